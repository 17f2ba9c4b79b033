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

package callgraph

import "container/heap"

// Worklist is a stable priority queue with set semantics: an element is queued at most once, elements with a
// lower priority come first and elements with the same priority come out in insertion order.
type Worklist[T comparable] struct {
	items    itemHeap[T]
	queued   map[T]bool
	priority func(T) int
	seq      int
}

// NewWorklist returns an empty worklist ordering elements by priority
func NewWorklist[T comparable](priority func(T) int) *Worklist[T] {
	return &Worklist[T]{queued: map[T]bool{}, priority: priority}
}

// NewCallNodeWorklist returns a worklist of call nodes ordered by loop depth
func NewCallNodeWorklist() *Worklist[*CallNode] {
	return NewWorklist(func(n *CallNode) int { return n.LoopDepth })
}

// Push adds x to the worklist, if it is not already queued. It returns true if x was added.
func (w *Worklist[T]) Push(x T) bool {
	if w.queued[x] {
		return false
	}
	w.queued[x] = true
	heap.Push(&w.items, item[T]{value: x, priority: w.priority(x), seq: w.seq})
	w.seq++
	return true
}

// Pop removes the first element of the worklist. The boolean is false if the worklist is empty.
func (w *Worklist[T]) Pop() (T, bool) {
	if len(w.items) == 0 {
		var zero T
		return zero, false
	}
	it := heap.Pop(&w.items).(item[T])
	delete(w.queued, it.value)
	return it.value, true
}

// Len returns the number of queued elements
func (w *Worklist[T]) Len() int {
	return len(w.items)
}

// Contains returns true if x is queued
func (w *Worklist[T]) Contains(x T) bool {
	return w.queued[x]
}

type item[T any] struct {
	value    T
	priority int
	seq      int
}

type itemHeap[T any] []item[T]

func (h itemHeap[T]) Len() int { return len(h) }

func (h itemHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap[T]) Push(x any) { *h = append(*h, x.(item[T])) }

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
