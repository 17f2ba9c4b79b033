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

/*
Package lattice implements the bit model the information flow analysis operates on.

Bits live in an [Arena] and are addressed by integer ids. A bit has an abstract value ([B]), a sorted set of
dependencies (the bits it may be computed from) and a weight, which bounds the information it can carry.
Bits are never deleted: the analysis clones them and rewrites dependency ids through explicit substitution maps.

A [Value] is a fixed-width sequence of bits representing an integer. Globals are [AppendOnlyValue]s.
*/
package lattice
