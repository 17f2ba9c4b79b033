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

package lang

import "github.com/awslabs/ar-qif-tools/analysis/lattice"

// Env is the environment a Body is executed in. The analysis context implements it for the active frame.
type Env interface {
	// Arena returns the arena that owns all bits
	Arena() *lattice.Arena

	// Width returns the bit width of integers
	Width() int

	// Method returns the method being executed
	Method() *Method

	// Param returns the i-th parameter of the method
	Param(i int) lattice.Value

	// Global returns the current value of a global
	Global(name string) lattice.AppendOnlyValue

	// AppendGlobal appends the bits of v to a global
	AppendGlobal(name string, v lattice.Value)

	// Input reads a fresh input value at level sec
	Input(sec lattice.Sec) lattice.Value

	// Output writes v to the output at level sec
	Output(sec lattice.Sec, v lattice.Value)

	// Call evaluates the call site with the given arguments and returns the callee's return values
	Call(site *CallSite, args ...lattice.Value) ([]lattice.Value, error)

	// Return sets the return values of the method. Calling Return again joins the values.
	Return(values ...lattice.Value)
}
