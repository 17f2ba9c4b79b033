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

import "sync"

// MapParallel applies f to every element of a using at most numRoutines goroutines. The results are in the order
// of a. If numRoutines <= 0, one goroutine is used.
func MapParallel[T any, S any](a []T, f func(T) S, numRoutines int) []S {
	res := make([]S, len(a))
	if numRoutines <= 0 {
		numRoutines = 1
	}
	if numRoutines > len(a) {
		numRoutines = len(a)
	}
	jobs := make(chan int)
	wg := &sync.WaitGroup{}
	wg.Add(numRoutines)
	for i := 0; i < numRoutines; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res[idx] = f(a[idx])
			}
		}()
	}
	for i := range a {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return res
}
