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

package funcutil

import "fmt"

// Optional is a value that may be absent. The zero Optional is absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present optional holding x
func Some[T any](x T) Optional[T] {
	return Optional[T]{value: x, ok: true}
}

// None returns an absent optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Value returns the value. It panics if the optional is absent.
func (o Optional[T]) Value() T {
	if !o.ok {
		panic("value of an absent optional")
	}
	return o.value
}

// ValueOr returns the value, or def if the optional is absent
func (o Optional[T]) ValueOr(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// IsSome returns true if the value is present
func (o Optional[T]) IsSome() bool {
	return o.ok
}

// IsNone returns true if the value is absent
func (o Optional[T]) IsNone() bool {
	return !o.ok
}

func (o Optional[T]) String() string {
	if !o.ok {
		return "none"
	}
	return fmt.Sprintf("%v", o.value)
}
