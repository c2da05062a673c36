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

// Package flat is the brute-force exact-search oracle spec.md §1 and §8
// call for as a correctness reference: every Search is a full linear
// scan, so its results define "ground truth" for HNSW recall
// benchmarks and are never subject to the graph's approximation error.
package flat

import (
	"sort"

	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/hnsw"
	"github.com/benbenbenbenbenben/annidx/pkg/metric"
)

// Index is an exact nearest-neighbor index: an id-keyed map of records,
// scanned in full on every query.
type Index struct {
	metric      metric.Metric
	dims        int
	dimsAligned int
	records     map[uint64]hnsw.Record
	order       []uint64 // insertion order, for deterministic iteration
}

// New creates an empty flat index for the given metric and logical
// dimensionality.
func New(m metric.Metric, dims int) *Index {
	return &Index{
		metric:      m,
		dims:        dims,
		dimsAligned: metric.AlignDims(dims),
		records:     make(map[uint64]hnsw.Record),
	}
}

// DimsAligned returns the padded vector width Insert expects.
func (idx *Index) DimsAligned() int { return idx.dimsAligned }

// Len returns the number of live records.
func (idx *Index) Len() int { return len(idx.records) }

// Contains reports whether id is present.
func (idx *Index) Contains(id uint64) bool {
	_, ok := idx.records[id]
	return ok
}

// Insert adds rec, rejecting id 0 and duplicate ids (spec.md §4.G).
func (idx *Index) Insert(rec hnsw.Record) error {
	if rec.ID == 0 {
		return annerr.New("flat.insert", annerr.InvalidID)
	}
	if len(rec.Values) != idx.dimsAligned {
		return annerr.New("flat.insert", annerr.InvalidDimensions)
	}
	if _, exists := idx.records[rec.ID]; exists {
		return annerr.New("flat.insert", annerr.DuplicatedEntry)
	}
	idx.records[rec.ID] = rec
	idx.order = append(idx.order, rec.ID)
	return nil
}

// Delete removes id, reporting NotFoundID if it was never present.
func (idx *Index) Delete(id uint64) error {
	if _, ok := idx.records[id]; !ok {
		return annerr.New("flat.delete", annerr.NotFoundID)
	}
	delete(idx.records, id)
	return nil
}

type scored struct {
	rec hnsw.Record
	d   float32
}

// Search performs an exact k-NN scan, returning results sorted
// best-first.
func (idx *Index) Search(q []float32, k int) ([]hnsw.Result, error) {
	if len(idx.records) == 0 {
		return nil, annerr.New("flat.search_n", annerr.IndexEmpty)
	}
	scans := idx.scan(q, nil)
	return idx.topK(scans, k), nil
}

// SearchTagged performs an exact k-NN scan restricted to records whose
// tag overlaps mask.
func (idx *Index) SearchTagged(q []float32, mask uint64, k int) []hnsw.Result {
	scans := idx.scan(q, &mask)
	return idx.topK(scans, k)
}

func (idx *Index) scan(q []float32, mask *uint64) []scored {
	out := make([]scored, 0, len(idx.records))
	for _, id := range idx.order {
		rec, ok := idx.records[id]
		if !ok {
			continue
		}
		if mask != nil && rec.Tag&*mask == 0 {
			continue
		}
		out = append(out, scored{rec, idx.metric.Compare(q, rec.Values)})
	}
	return out
}

func (idx *Index) topK(scans []scored, k int) []hnsw.Result {
	sort.Slice(scans, func(i, j int) bool { return idx.metric.IsBetter(scans[i].d, scans[j].d) })
	if len(scans) > k {
		scans = scans[:k]
	}
	out := make([]hnsw.Result, len(scans))
	for i, s := range scans {
		out[i] = hnsw.Result{ID: s.rec.ID, Tag: s.rec.Tag, Distance: s.d}
	}
	return out
}
