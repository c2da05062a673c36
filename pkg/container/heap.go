// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package container provides the single bounded-heap type every annidx
// search path shares: a priority queue that can be told either "the
// root is the best element" (BetterTop, used for candidate frontiers)
// or "the root is the worst retained element" (WorstTop, used to cap a
// top-k result set), with optional fixed capacity.
package container

import (
	"container/heap"
	"errors"
)

// Order selects which end of the ordering sits at the heap's root.
type Order int

const (
	// BetterTop keeps the best element (per Less) at the root.
	BetterTop Order = iota
	// WorstTop keeps the worst retained element at the root, so it can
	// be evicted in O(log n) when a better candidate arrives.
	WorstTop
)

var (
	// ErrEmpty is returned by Pop/Peek on an empty heap.
	ErrEmpty = errors.New("container: heap is empty")
	// ErrFull is returned by Push on a capacity-bounded, full heap.
	ErrFull = errors.New("container: heap is full")
)

// Less reports whether a is strictly better than b under the caller's
// metric ordering (e.g. metric.Metric.IsBetter).
type Less[T any] func(a, b T) bool

// Heap is a generic, optionally bounded priority queue. Capacity <= 0
// means "no limit": Push always succeeds and the backing slice grows by
// doubling via normal Go append semantics.
type Heap[T any] struct {
	order    Order
	less     Less[T]
	cap      int
	elements []T
}

// New creates a Heap with the given ordering, comparator, and capacity.
// Pass capacity <= 0 for an unbounded heap.
func New[T any](order Order, less Less[T], capacity int) *Heap[T] {
	return &Heap[T]{order: order, less: less, cap: capacity}
}

func (h *Heap[T]) Len() int { return len(h.elements) }

// Cap returns the configured capacity, or 0 for "no limit".
func (h *Heap[T]) Cap() int { return h.cap }

// Full reports whether the heap has reached a positive capacity.
func (h *Heap[T]) Full() bool { return h.cap > 0 && len(h.elements) >= h.cap }

// wrapper adapts Heap[T] to container/heap.Interface. It is never
// exposed; all mutation happens through Heap's own methods.
type wrapper[T any] struct{ h *Heap[T] }

func (w wrapper[T]) Len() int { return len(w.h.elements) }

func (w wrapper[T]) Less(i, j int) bool {
	a, b := w.h.elements[i], w.h.elements[j]
	if w.h.order == BetterTop {
		return w.h.less(a, b)
	}
	// WorstTop: the worst element (b better than a) sorts first.
	return w.h.less(b, a)
}

func (w wrapper[T]) Swap(i, j int) {
	w.h.elements[i], w.h.elements[j] = w.h.elements[j], w.h.elements[i]
}

func (w wrapper[T]) Push(x any) {
	w.h.elements = append(w.h.elements, x.(T))
}

func (w wrapper[T]) Pop() any {
	old := w.h.elements
	n := len(old)
	x := old[n-1]
	w.h.elements = old[:n-1]
	return x
}

// Push inserts an element. On a bounded, full heap it returns ErrFull
// instead of growing past capacity.
func (h *Heap[T]) Push(v T) error {
	if h.Full() {
		return ErrFull
	}
	heap.Push(wrapper[T]{h}, v)
	return nil
}

// Pop removes and returns the root element.
func (h *Heap[T]) Pop() (T, error) {
	var zero T
	if len(h.elements) == 0 {
		return zero, ErrEmpty
	}
	return heap.Pop(wrapper[T]{h}).(T), nil
}

// Peek returns the root element without removing it.
func (h *Heap[T]) Peek() (T, error) {
	var zero T
	if len(h.elements) == 0 {
		return zero, ErrEmpty
	}
	return h.elements[0], nil
}

// ReplaceRoot pops the root and pushes v in one rebalance, avoiding two
// separate sift operations.
func (h *Heap[T]) ReplaceRoot(v T) (T, error) {
	var zero T
	if len(h.elements) == 0 {
		return zero, ErrEmpty
	}
	old := h.elements[0]
	h.elements[0] = v
	heap.Fix(wrapper[T]{h}, 0)
	return old, nil
}

// InsertOrReplaceIfBetter is the convenience operation spec.md §4.B
// names: if the heap is full and v beats the current root, the root is
// replaced and the evicted value returned; if the heap is not full, v
// is inserted; otherwise (full and v does not beat the root) v is
// dropped and inserted is false.
func (h *Heap[T]) InsertOrReplaceIfBetter(v T) (evicted T, inserted bool) {
	if !h.Full() {
		_ = h.Push(v)
		return evicted, true
	}
	root, _ := h.Peek()
	// A value only displaces the current root if it is strictly better
	// than the worst retained element — i.e. better under the heap's
	// own ordering sense at the root.
	rootIsWorseThanV := h.less(v, root)
	if h.order == WorstTop && rootIsWorseThanV {
		old, _ := h.ReplaceRoot(v)
		return old, true
	}
	if h.order == BetterTop && h.less(v, root) {
		old, _ := h.ReplaceRoot(v)
		return old, true
	}
	return evicted, false
}

// Drain pops every element in best-to-worst order for BetterTop heaps,
// or worst-to-best order for WorstTop heaps (container/heap's natural
// pop order relative to the configured root).
func (h *Heap[T]) Drain() []T {
	out := make([]T, 0, len(h.elements))
	for len(h.elements) > 0 {
		v, _ := h.Pop()
		out = append(out, v)
	}
	return out
}
