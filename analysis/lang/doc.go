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

// Package lang contains the program model the analysis runs on: methods with bodies written against the [Env]
// interface, and the call sites the bodies declare.
//
// A program is built in Go:
//
//	p := lang.NewProgram()
//	id, _ := p.NewMethod("id", 1, 1, nil)
//	id.Body = func(env lang.Env) error {
//		env.Return(env.Param(0))
//		return nil
//	}
//	site := p.Main.CallTo(id)
//	p.SetMain(func(env lang.Env) error {
//		res, err := env.Call(site, env.Input(lattice.High))
//		if err != nil {
//			return err
//		}
//		env.Output(lattice.Low, res[0])
//		return nil
//	})
//
// Handlers that do not run a body rely on its declarations: the inputs it reads ([Method.ReadsInput]) and the
// globals it appends to ([Method.WritesGlobal], [Method.WritesOutput]).
package lang
