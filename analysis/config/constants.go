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

package config

const (
	// DefaultHandler is the method invocation handler used when none is configured
	DefaultHandler = "handler=inlining;maxrec=2;bot=basic"
	// DefaultBitWidth is the default width of integers
	DefaultBitWidth = 32
	// DefaultLeakageAlgorithm is the in-process MaxSAT backend
	DefaultLeakageAlgorithm = "maxsat-gini"
	// DefaultMaxReplicatedWeight bounds the number of weighted variables of the cost network of the in-process solver
	DefaultMaxReplicatedWeight = 1 << 14
	// NoResultInfinite reports an unbounded leakage when a solver fails
	NoResultInfinite = "infinite"
	// NoResultAbort makes the leakage computation fail when a solver fails
	NoResultAbort = "abort"
)
