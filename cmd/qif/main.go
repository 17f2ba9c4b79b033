// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command qif computes bounds on the quantitative information flow of bit dependency graphs.
//
// Usage:
//
//	qif [--config file] [--verbose] [--algorithm name] leakage <graph.yaml>...
//	qif wdimacs [--output file] <graph.yaml>
//	qif [--handler spec] handler [spec]
package main

import (
	"fmt"
	"os"
)

// Version is the version of the tool
const Version = "v0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
