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

// Package index is the public facade (spec.md module G): a
// single-writer/multi-reader wrapper around pkg/hnsw's graph and
// pkg/idmap's id table that validates every call, times every
// operation, and delegates persistence to pkg/persist.
package index

import (
	"log/slog"
	"sync"

	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/hnsw"
	"github.com/benbenbenbenbenben/annidx/pkg/idmap"
	"github.com/benbenbenbenbenben/annidx/pkg/metric"
	"github.com/benbenbenbenbenben/annidx/pkg/persist"
)

// Index is a concurrency-safe HNSW vector index. The zero value is not
// usable; construct with New.
type Index struct {
	mu sync.RWMutex

	opts   Options
	metric metric.Metric
	graph  *hnsw.Graph
	ids    *idmap.Map
	logger *slog.Logger
	stats  *statRegistry
}

// New builds an Index from options. WithDims is required; every other
// option falls back to a spec.md §6 default.
func New(options ...Option) (*Index, error) {
	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Dims <= 0 {
		return nil, annerr.New("index.new", annerr.InvalidDimensions)
	}
	m, ok := metric.ByCode(opts.Method)
	if !ok {
		return nil, annerr.New("index.new", annerr.InvalidMethod)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hctx := hnsw.Context{
		EfSearch:         opts.EfSearch,
		EfConstruct:      opts.EfConstruct,
		M0:               opts.M0,
		Seed:             opts.Seed,
		Strategy:         opts.Strategy,
		ExtendCandidates: opts.ExtendCandidates,
		KeepPruned:       opts.KeepPruned,
	}

	return &Index{
		opts:   opts,
		metric: m,
		graph:  hnsw.New(m, opts.Dims, hctx),
		ids:    idmap.New(opts.InitialBuckets, opts.LoadFactor),
		logger: logger,
		stats:  newStatRegistry(),
	}, nil
}

func (x *Index) pad(values []float32) ([]float32, error) {
	if len(values) != x.opts.Dims {
		return nil, annerr.New("validate", annerr.InvalidDimensions)
	}
	padded := make([]float32, x.graph.DimsAligned())
	metric.PadInto(padded, values)
	return padded, nil
}

// Insert adds a vector under id with an optional filter tag. id must
// be nonzero and not already present.
func (x *Index) Insert(id, tag uint64, values []float32) error {
	return x.timeOp("insert", func() error {
		if id == 0 {
			return annerr.New("insert", annerr.InvalidID)
		}
		padded, err := x.pad(values)
		if err != nil {
			return annerr.New("insert", annerr.InvalidDimensions)
		}

		x.mu.Lock()
		defer x.mu.Unlock()
		if x.ids.Has(id) {
			return annerr.New("insert", annerr.DuplicatedEntry)
		}
		r := x.graph.Insert(hnsw.Record{ID: id, Tag: tag, Values: padded})
		x.ids.Insert(id, r)
		x.logger.Debug("insert", "id", id, "tag", tag)
		return nil
	})
}

// Delete tombstones id. The graph's adjacency is left untouched;
// neighbors may still traverse through it (spec.md §4.F.8).
func (x *Index) Delete(id uint64) error {
	return x.timeOp("delete", func() error {
		x.mu.Lock()
		defer x.mu.Unlock()
		v, ok := x.ids.Remove(id)
		if !ok {
			return annerr.New("delete", annerr.NotFoundID)
		}
		x.graph.Tombstone(v.(uint32))
		x.logger.Debug("delete", "id", id)
		return nil
	})
}

// SearchN returns the k nearest neighbors of query, best-first.
func (x *Index) SearchN(query []float32, k int) ([]hnsw.Result, error) {
	var results []hnsw.Result
	err := x.timeOp("search_n", func() error {
		padded, err := x.pad(query)
		if err != nil {
			return annerr.New("search_n", annerr.InvalidDimensions)
		}
		x.mu.RLock()
		defer x.mu.RUnlock()
		r, err := x.graph.Search(padded, k)
		results = r
		return err
	})
	return results, err
}

// SearchTagged returns the k nearest neighbors whose tag overlaps mask
// (spec.md §4.F.7), via a linear scan rather than the graph.
func (x *Index) SearchTagged(query []float32, mask uint64, k int) ([]hnsw.Result, error) {
	var results []hnsw.Result
	err := x.timeOp("search_tagged", func() error {
		padded, err := x.pad(query)
		if err != nil {
			return annerr.New("search_tagged", annerr.InvalidDimensions)
		}
		x.mu.RLock()
		defer x.mu.RUnlock()
		results = x.graph.SearchTagged(padded, mask, k)
		return nil
	})
	return results, err
}

// Contains reports whether id is currently present (not tombstoned).
func (x *Index) Contains(id uint64) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ids.Has(id)
}

// Size returns the number of live (non-tombstoned) elements.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ids.Len()
}

// CompareOne returns the metric distance between two already-inserted
// ids.
func (x *Index) CompareOne(idA, idB uint64) (float32, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ra, ok := x.ids.Get(idA)
	if !ok {
		return 0, annerr.New("compare_one", annerr.NotFoundID)
	}
	rb, ok := x.ids.Get(idB)
	if !ok {
		return 0, annerr.New("compare_one", annerr.NotFoundID)
	}
	return x.graph.Distance(ra.(uint32), rb.(uint32)), nil
}

// Remap renames an existing id, rejecting a newID of 0 or one already
// in use.
func (x *Index) Remap(oldID, newID uint64) error {
	return x.timeOp("remap", func() error {
		if newID == 0 {
			return annerr.New("remap", annerr.InvalidID)
		}
		x.mu.Lock()
		defer x.mu.Unlock()
		r, ok := x.ids.Get(oldID)
		if !ok {
			return annerr.New("remap", annerr.NotFoundID)
		}
		if x.ids.Has(newID) {
			return annerr.New("remap", annerr.DuplicatedEntry)
		}
		x.ids.Remove(oldID)
		x.graph.SetID(r.(uint32), newID)
		x.ids.Insert(newID, r)
		return nil
	})
}

// Release discards the index's contents, returning it to a fresh
// empty state under the same options.
func (x *Index) Release() {
	x.mu.Lock()
	defer x.mu.Unlock()
	hctx := hnsw.Context{
		EfSearch:         x.opts.EfSearch,
		EfConstruct:      x.opts.EfConstruct,
		M0:               x.opts.M0,
		Seed:             x.opts.Seed,
		Strategy:         x.opts.Strategy,
		ExtendCandidates: x.opts.ExtendCandidates,
		KeepPruned:       x.opts.KeepPruned,
	}
	x.graph = hnsw.New(x.metric, x.opts.Dims, hctx)
	x.ids.Purge()
}

// UpdateContext live-updates ef_search/ef_construct/M0 without
// rebuilding the graph (spec.md §6).
func (x *Index) UpdateContext(flags hnsw.UpdateFlag, ctx hnsw.Context) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.graph.UpdateContext(flags, ctx)
	if flags&hnsw.SetEfSearch != 0 {
		x.opts.EfSearch = ctx.EfSearch
	}
	if flags&hnsw.SetEfConstruct != 0 {
		x.opts.EfConstruct = ctx.EfConstruct
	}
	if flags&hnsw.SetM0 != 0 {
		x.opts.M0 = ctx.M0
	}
}

// Export writes every live vector to path in the spec.md §6 binary
// format.
func (x *Index) Export(path string) error {
	return x.timeOp("export", func() error {
		x.mu.RLock()
		defer x.mu.RUnlock()
		records := x.graph.AllRecords(true)
		return persist.WriteFile(path, uint16(x.opts.Method), x.opts.Dims, x.graph.DimsAligned(), records)
	})
}

// ImportMode selects how Import reconciles a file's ids against ids
// already present in the index (spec.md §6).
type ImportMode int

const (
	// ImportOverwrite replaces an already-present id's vector in place.
	ImportOverwrite ImportMode = iota
	// ImportIgnore silently skips ids already present.
	ImportIgnore
	// ImportIgnoreVerbose skips ids already present but logs each skip.
	ImportIgnoreVerbose
)

// Import loads vectors from path, inserting ids not already present
// and reconciling duplicates per mode. It returns the number of ids
// inserted and the number skipped or overwritten.
func (x *Index) Import(path string, mode ImportMode) (imported, reconciled int, err error) {
	timingErr := x.timeOp("import", func() error {
		header, records, rerr := persist.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		if int(header.Dims) != x.opts.Dims {
			return annerr.New("import", annerr.InvalidDimensions)
		}

		x.mu.Lock()
		defer x.mu.Unlock()
		for _, rec := range records {
			if r, exists := x.ids.Get(rec.ID); exists {
				reconciled++
				switch mode {
				case ImportOverwrite:
					x.graph.SetValues(r.(uint32), rec.Values)
				case ImportIgnoreVerbose:
					x.logger.Warn("import: skipping duplicate id", "id", rec.ID)
				case ImportIgnore:
					// no-op
				}
				continue
			}
			r := x.graph.Insert(rec)
			x.ids.Insert(rec.ID, r)
			imported++
		}
		return nil
	})
	return imported, reconciled, timingErr
}
