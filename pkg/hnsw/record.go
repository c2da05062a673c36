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

// Package hnsw implements the Hierarchical Navigable Small World graph:
// level assignment, layered best-first search, heuristic neighbor
// selection, bidirectional connection with shrink, insertion, k-NN and
// tag-filtered search, and tombstone deletion (spec.md §3-4, modules
// D/E/F). It is the hard, interesting core this module exists for.
package hnsw

// Record is a vector payload: a caller-supplied nonzero id, a bitmask
// tag for filtered search, and an aligned values buffer. dims_aligned
// is always a multiple of 4; padding lanes beyond the logical
// dimensionality are zero (spec.md §3).
type Record struct {
	ID     uint64
	Tag    uint64
	Values []float32
}
