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

// Package annidx is an approximate nearest-neighbor vector index built
// on Hierarchical Navigable Small World graphs. This file re-exports
// pkg/index's facade at the module root, the same way the teacher
// repo's levelgraph.go re-exports its own pkg/graph types, so most
// callers never need to import a pkg/ subpackage directly.
package annidx

import (
	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/hnsw"
	"github.com/benbenbenbenbenben/annidx/pkg/index"
	"github.com/benbenbenbenbenben/annidx/pkg/metric"
)

type (
	// Index is a concurrency-safe HNSW vector index.
	Index = index.Index
	// Options configures a new Index.
	Options = index.Options
	// Option mutates Options; pass any number to New.
	Option = index.Option
	// OpStat is a per-operation timing summary from Index.Stats.
	OpStat = index.OpStat
	// ImportMode selects how Import reconciles duplicate ids.
	ImportMode = index.ImportMode
	// Result is one k-NN match.
	Result = hnsw.Result
	// Strategy selects simple or heuristic neighbor selection.
	Strategy = hnsw.Strategy
	// UpdateFlag selects which Context fields UpdateContext replaces.
	UpdateFlag = hnsw.UpdateFlag
	// Context holds live-tunable HNSW parameters for UpdateContext.
	Context = hnsw.Context
	// MetricCode selects the distance metric.
	MetricCode = metric.Code
	// ErrorCode classifies a failure, usable with errors.Is-style Is.
	ErrorCode = annerr.Code
	// Error is the concrete error type every operation returns.
	Error = annerr.Error
)

const (
	ImportOverwrite      = index.ImportOverwrite
	ImportIgnore         = index.ImportIgnore
	ImportIgnoreVerbose  = index.ImportIgnoreVerbose
	Heuristic            = hnsw.Heuristic
	Simple               = hnsw.Simple
	SetEfSearch          = hnsw.SetEfSearch
	SetEfConstruct       = hnsw.SetEfConstruct
	SetM0                = hnsw.SetM0
	L2                   = metric.L2Code
	Cosine               = metric.CosineCode
	Dot                  = metric.DotCode

	ErrInvalidDimensions  = annerr.InvalidDimensions
	ErrInvalidMethod      = annerr.InvalidMethod
	ErrInvalidID          = annerr.InvalidID
	ErrInvalidVector      = annerr.InvalidVector
	ErrDuplicatedEntry    = annerr.DuplicatedEntry
	ErrNotFoundID         = annerr.NotFoundID
	ErrIndexEmpty         = annerr.IndexEmpty
	ErrIndexUninitialized = annerr.IndexUninitialized
	ErrFileIOError        = annerr.FileIOError
	ErrInvalidFile        = annerr.InvalidFile
)

// IsError reports whether err is an annidx *Error carrying code.
var IsError = annerr.Is

// Strerror translates an ErrorCode into a human-readable message.
var Strerror = annerr.Strerror

// New builds an Index from options. WithDims is required.
var New = index.New

var (
	WithDims             = index.WithDims
	WithMethod           = index.WithMethod
	WithEfSearch         = index.WithEfSearch
	WithEfConstruct      = index.WithEfConstruct
	WithM0               = index.WithM0
	WithSeed             = index.WithSeed
	WithStrategy         = index.WithStrategy
	WithExtendCandidates = index.WithExtendCandidates
	WithKeepPruned       = index.WithKeepPruned
	WithIDMapSizing      = index.WithIDMapSizing
	WithLogger           = index.WithLogger
)
