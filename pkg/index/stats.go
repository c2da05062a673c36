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
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// OpStat is the running timing summary for one operation name
// (spec.md §4.G "stats"): a call count plus min/max/last/mean
// latencies in milliseconds.
type OpStat struct {
	Count   uint64
	MinMs   float64
	MaxMs   float64
	LastMs  float64
	TotalMs float64
}

// MeanMs returns the mean latency, or 0 if the operation has never run.
func (s OpStat) MeanMs() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.TotalMs / float64(s.Count)
}

type statRegistry struct {
	mu   sync.Mutex
	byOp map[string]*OpStat
}

func newStatRegistry() *statRegistry {
	return &statRegistry{byOp: make(map[string]*OpStat)}
}

func (r *statRegistry) record(op string, d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byOp[op]
	if !ok {
		s = &OpStat{MinMs: ms, MaxMs: ms}
		r.byOp[op] = s
	}
	s.Count++
	s.LastMs = ms
	s.TotalMs += ms
	if ms < s.MinMs {
		s.MinMs = ms
	}
	if ms > s.MaxMs {
		s.MaxMs = ms
	}
}

func (r *statRegistry) snapshot() map[string]OpStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OpStat, len(r.byOp))
	for op, s := range r.byOp {
		out[op] = *s
	}
	return out
}

// Stats returns a point-in-time copy of every operation's timing
// summary.
func (x *Index) Stats() map[string]OpStat {
	return x.stats.snapshot()
}

// StatsString renders Stats as a stable, human-readable report, one
// line per operation sorted by name.
func (x *Index) StatsString() string {
	snap := x.Stats()
	names := make([]string, 0, len(snap))
	for op := range snap {
		names = append(names, op)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, op := range names {
		s := snap[op]
		fmt.Fprintf(&b, "%-12s count=%-8d min=%.3fms max=%.3fms mean=%.3fms last=%.3fms\n",
			op, s.Count, s.MinMs, s.MaxMs, s.MeanMs(), s.LastMs)
	}
	return b.String()
}

func (x *Index) timeOp(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	x.stats.record(op, time.Since(start))
	return err
}
