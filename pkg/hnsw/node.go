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

package hnsw

// noIndex marks the absence of an arena reference (nil for uint32
// indices). Spec.md §9 redesigns the source's raw node-pointer graph
// into an arena of nodes addressed by index, which is what noIndex,
// ref, and the arena slice below implement.
const noIndex = ^uint32(0)

// ref is an arena index standing in for a node pointer.
type ref = uint32

// node is one vertex of the HNSW graph: a vector record, the highest
// level it inhabits, per-level neighbor slots (capacity M0 at level 0,
// M0/2 above), and a liveness flag for tombstone deletes (spec.md §3).
type node struct {
	rec   Record
	level int
	alive bool

	// next threads every node (alive or tombstone), newest first,
	// supporting unfiltered linear scan, tag-filtered scan, export,
	// and remap without touching the graph (spec.md §3, "flat list").
	next ref

	neighbors [][]ref // neighbors[l] has len <= capacity(l)
	odegree   []uint32
	idegree   []uint32
}

// capacity returns the neighbor-slot capacity at level l: m0 at level
// 0, m0/2 at every higher level (spec.md §3).
func capacity(l, m0 int) int {
	if l == 0 {
		return m0
	}
	c := m0 / 2
	if c < 1 {
		c = 1
	}
	return c
}

func newNode(rec Record, level, m0 int) *node {
	n := &node{
		rec:       rec,
		level:     level,
		alive:     true,
		next:      noIndex,
		neighbors: make([][]ref, level+1),
		odegree:   make([]uint32, level+1),
		idegree:   make([]uint32, level+1),
	}
	for l := 0; l <= level; l++ {
		n.neighbors[l] = make([]ref, 0, capacity(l, m0))
	}
	return n
}
