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

package index

import (
	"log/slog"

	"github.com/benbenbenbenbenben/annidx/pkg/hnsw"
	"github.com/benbenbenbenbenben/annidx/pkg/metric"
)

// Options configures a new Index. Following the teacher repo's own
// options.go, every field has a functional-option setter and every
// zero value falls back to a spec.md §6 default at New time.
type Options struct {
	Dims   int
	Method metric.Code

	EfSearch         int
	EfConstruct      int
	M0               int
	Seed             *int64
	Strategy         hnsw.Strategy
	ExtendCandidates bool
	KeepPruned       bool

	InitialBuckets int
	LoadFactor     int

	Logger *slog.Logger
}

// Option mutates an Options in place.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Method:           metric.L2Code,
		EfSearch:         110,
		EfConstruct:      220,
		M0:               32,
		Strategy:         hnsw.Heuristic,
		ExtendCandidates: true,
		KeepPruned:       true,
		InitialBuckets:   16,
		LoadFactor:       15,
	}
}

// WithDims sets the logical vector dimensionality. Required.
func WithDims(dims int) Option { return func(o *Options) { o.Dims = dims } }

// WithMethod selects the distance metric.
func WithMethod(method metric.Code) Option { return func(o *Options) { o.Method = method } }

// WithEfSearch sets the default search-time candidate list size.
func WithEfSearch(ef int) Option { return func(o *Options) { o.EfSearch = ef } }

// WithEfConstruct sets the construction-time candidate list size.
func WithEfConstruct(ef int) Option { return func(o *Options) { o.EfConstruct = ef } }

// WithM0 sets the level-0 neighbor-slot capacity (levels above use
// M0/2).
func WithM0(m0 int) Option { return func(o *Options) { o.M0 = m0 } }

// WithSeed fixes the PRNG seed used for level assignment, making
// construction reproducible across runs.
func WithSeed(seed int64) Option { return func(o *Options) { o.Seed = &seed } }

// WithStrategy selects simple or heuristic neighbor selection.
func WithStrategy(s hnsw.Strategy) Option { return func(o *Options) { o.Strategy = s } }

// WithExtendCandidates toggles EXTEND_CANDIDATES for heuristic
// selection.
func WithExtendCandidates(b bool) Option { return func(o *Options) { o.ExtendCandidates = b } }

// WithKeepPruned toggles KEEP_PRUNED for heuristic selection.
func WithKeepPruned(b bool) Option { return func(o *Options) { o.KeepPruned = b } }

// WithIDMapSizing sets the id map's initial bucket count and
// load-factor rehash threshold.
func WithIDMapSizing(initialBuckets, loadFactor int) Option {
	return func(o *Options) { o.InitialBuckets = initialBuckets; o.LoadFactor = loadFactor }
}

// WithLogger overrides the default (slog.Default()) structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }
