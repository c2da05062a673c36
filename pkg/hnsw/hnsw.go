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

import (
	"math"
	"math/rand"
	"sort"

	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/container"
	"github.com/benbenbenbenbenben/annidx/pkg/metric"
)

// UpdateFlag selects which fields of Context an UpdateContext call
// should replace (spec.md §6).
type UpdateFlag uint8

const (
	SetEfSearch UpdateFlag = 1 << iota
	SetEfConstruct
	SetM0
)

// Strategy selects how a node's neighbors are picked out of a
// candidate set (spec.md §4.F.3): Simple keeps the m closest by
// distance alone, Heuristic additionally enforces angular diversity so
// a cluster of near-duplicate candidates can't starve the neighbor
// list of long-range edges.
type Strategy uint8

const (
	Heuristic Strategy = iota
	Simple
)

// Context holds the tunable HNSW parameters, with the defaults spec.md
// §6 fixes when a caller omits them entirely.
type Context struct {
	EfSearch    int
	EfConstruct int
	M0          int
	// Seed reproduces level assignment across runs when non-nil
	// (spec.md §9's open design note, resolved explicitly).
	Seed *int64

	// Strategy picks the neighbor-selection algorithm; zero value is
	// Heuristic, spec.md's recommended default.
	Strategy Strategy
	// ExtendCandidates, when true, grows the selection working set
	// with each candidate's own neighbors before pruning
	// (EXTEND_CANDIDATES, spec.md §4.F.3). Only consulted for Heuristic.
	ExtendCandidates bool
	// KeepPruned, when true, backfills the selection with
	// heuristically-rejected candidates if fewer than m survived
	// (KEEP_PRUNED, spec.md §4.F.3). Only consulted for Heuristic.
	KeepPruned bool
}

// DefaultContext returns {EfSearch: 110, EfConstruct: 220, M0: 32,
// Strategy: Heuristic, ExtendCandidates: true, KeepPruned: true}.
func DefaultContext() Context {
	return Context{
		EfSearch:         110,
		EfConstruct:      220,
		M0:               32,
		Strategy:         Heuristic,
		ExtendCandidates: true,
		KeepPruned:       true,
	}
}

// Result is one k-NN match: the caller's id/tag and the distance under
// the index's metric.
type Result struct {
	ID       uint64
	Tag      uint64
	Distance float32
}

// cand pairs an arena reference with a distance already computed
// against some query, letting every heap in this package share one
// element type instead of recomputing distances on pop.
type cand struct {
	r ref
	d float32
}

// Graph is the HNSW proximity graph: level assignment, layered search,
// neighbor selection, and insertion (spec.md module F), built over an
// arena of nodes (module E) holding vector records (module D).
type Graph struct {
	metric      metric.Metric
	dims        int
	dimsAligned int
	m0          int
	efConstruct int
	efSearch    int
	levelMult   float64
	topLevel    int
	gentry      ref
	head        ref
	count       int
	arena       []*node
	rng         *rand.Rand

	strategy         Strategy
	extendCandidates bool
	keepPruned       bool
}

// New creates an empty graph for the given metric and logical
// dimensionality, honoring ctx or spec.md's defaults for any zero
// field.
func New(m metric.Metric, dims int, ctx Context) *Graph {
	m0 := ctx.M0
	if m0 <= 0 {
		m0 = 32
	}
	efc := ctx.EfConstruct
	if efc <= 0 {
		efc = 220
	}
	efs := ctx.EfSearch
	if efs <= 0 {
		efs = 110
	}
	var rng *rand.Rand
	if ctx.Seed != nil {
		rng = rand.New(rand.NewSource(*ctx.Seed))
	} else {
		// Matches the teacher's own vector/hnsw.go seeding idiom:
		// rand.New(rand.NewSource(rand.Int63())) rather than a bare
		// package-global source, so each graph owns its PRNG.
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	half := float64(m0) / 2
	if half < 2 {
		half = 2
	}
	return &Graph{
		metric:           m,
		dims:             dims,
		dimsAligned:      metric.AlignDims(dims),
		m0:               m0,
		efConstruct:      efc,
		efSearch:         efs,
		levelMult:        1.0 / math.Log(half),
		topLevel:         -1,
		gentry:           noIndex,
		head:             noIndex,
		rng:              rng,
		strategy:         ctx.Strategy,
		extendCandidates: ctx.ExtendCandidates,
		keepPruned:       ctx.KeepPruned,
	}
}

// DimsAligned returns the padded vector width every Record.Values
// buffer must have.
func (g *Graph) DimsAligned() int { return g.dimsAligned }

// Len returns the number of nodes ever inserted, alive or tombstoned
// (element count per spec.md §3 is tracked separately at the facade;
// this is the graph's own view used by invariants and tests).
func (g *Graph) Len() int { return g.count }

// UpdateContext replaces the fields named in flags. No rebuild is
// triggered. A new M0 sets the neighbor cap for every later insert and
// backlink, including backlinks into nodes created before the call;
// existing neighbor lists are not pruned to the new cap until a
// backlink into them triggers a shrink.
func (g *Graph) UpdateContext(flags UpdateFlag, ctx Context) {
	if flags&SetEfSearch != 0 {
		g.efSearch = ctx.EfSearch
	}
	if flags&SetEfConstruct != 0 {
		g.efConstruct = ctx.EfConstruct
	}
	if flags&SetM0 != 0 && ctx.M0 > 0 {
		g.m0 = ctx.M0
		half := float64(g.m0) / 2
		if half < 2 {
			half = 2
		}
		g.levelMult = 1.0 / math.Log(half)
	}
}

// randomLevel samples ℓ = floor(-ln(U) / ln(M0/2)) for U uniform in
// (0, 1), the highest level a new node will inhabit (spec.md §4.F.1).
func (g *Graph) randomLevel() int {
	u := g.rng.Float64()
	for u == 0 {
		u = g.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * g.levelMult))
}

// Insert adds rec (whose Values must already be zero-padded to
// DimsAligned) to the graph and returns its arena reference. The
// caller (pkg/index's facade) is responsible for id-map duplicate
// checking before calling Insert and for registering the returned
// reference in the id map afterward, compensating with Tombstone if that
// registration fails (spec.md §4.F.9, §4.G).
func (g *Graph) Insert(rec Record) ref {
	level := g.randomLevel()
	n := newNode(rec, level, g.m0)
	idx := ref(len(g.arena))
	g.arena = append(g.arena, n)

	if g.count == 0 {
		g.gentry = idx
		g.head = idx
		g.topLevel = level
		g.count = 1
		return idx
	}

	n.next = g.head
	g.head = idx

	L := g.topLevel
	ep := g.gentry

	// Descent phase: greedy single-best search down to ℓ_new+1.
	for l := L; l > level; l-- {
		w := g.searchLayer(rec.Values, []ref{ep}, 1, l, false)
		best, _ := w.Pop()
		ep = best.r
	}

	// Connect phase: ef_construct search + heuristic selection at
	// every level from min(L, ℓ_new) down to 0.
	epSet := []ref{ep}
	for l := min(L, level); l >= 0; l-- {
		w := g.searchLayer(rec.Values, epSet, g.efConstruct, l, false)
		m := capacity(l, g.m0)
		var selected []ref
		if g.strategy == Simple {
			selected = g.selectSimple(w.Drain(), m)
		} else {
			selected = g.selectHeuristic(rec.Values, w.Drain(), l, m, g.extendCandidates, g.keepPruned)
		}

		for _, s := range selected {
			n.neighbors[l] = append(n.neighbors[l], s)
			n.odegree[l]++
			g.arena[s].idegree[l]++
			g.backlink(idx, s, l, capacity(l, g.m0))
		}
		if len(selected) > 0 {
			epSet = selected
		}
	}

	g.count++
	if level > g.topLevel {
		g.gentry = idx
		g.topLevel = level
	}
	return idx
}

// searchLayer is the single-layer best-first search of spec.md §4.F.2:
// it returns a WorstTop heap of up to ef candidates, the nodes closest
// to q reachable from entries at level. When filterAlive is true,
// tombstoned nodes are still traversed but never inserted into the
// result set.
func (g *Graph) searchLayer(q []float32, entries []ref, ef, level int, filterAlive bool) *container.Heap[cand] {
	less := func(a, b cand) bool { return g.metric.IsBetter(a.d, b.d) }
	c := container.New[cand](container.BetterTop, less, 0)
	w := container.New[cand](container.WorstTop, less, ef)

	visited := make(map[ref]bool)
	insertW := func(v cand) {
		if !w.Full() {
			_ = w.Push(v)
			return
		}
		root, _ := w.Peek()
		if g.metric.IsBetter(v.d, root.d) {
			_, _ = w.ReplaceRoot(v)
		}
	}

	for _, e := range entries {
		if visited[e] {
			continue
		}
		visited[e] = true
		d := g.metric.Compare(q, g.arena[e].rec.Values)
		_ = c.Push(cand{e, d})
		if !filterAlive || g.arena[e].alive {
			insertW(cand{e, d})
		}
	}

	for c.Len() > 0 {
		cc, _ := c.Pop()
		if w.Full() {
			root, _ := w.Peek()
			if g.metric.IsBetter(root.d, cc.d) {
				break
			}
		}

		nd := g.arena[cc.r]
		if level >= len(nd.neighbors) {
			continue
		}
		for _, nb := range nd.neighbors[level] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			d := g.metric.Compare(q, g.arena[nb].rec.Values)

			pushC := !w.Full()
			if !pushC {
				root, _ := w.Peek()
				pushC = g.metric.IsBetter(d, root.d)
			}
			if pushC {
				_ = c.Push(cand{nb, d})
			}
			if !filterAlive || g.arena[nb].alive {
				insertW(cand{nb, d})
			}
		}
	}

	return w
}

// selectHeuristic implements the angular-diversity neighbor selection
// of spec.md §4.F.3. candidates is the working set drained from a
// layer search; level is needed only when extend is true, to read each
// candidate's own neighbor list. Each candidate is marked seen before
// its neighbors are examined, so a seed can never re-extend itself
// (spec.md §9's resolution of the EXTEND_CANDIDATES open question).
func (g *Graph) selectHeuristic(q []float32, candidates []cand, level, m int, extend, keepPruned bool) []ref {
	less := func(a, b cand) bool { return g.metric.IsBetter(a.d, b.d) }
	seen := make(map[ref]bool, len(candidates))
	wPrime := container.New[cand](container.BetterTop, less, 0)

	for _, c := range candidates {
		if seen[c.r] {
			continue
		}
		seen[c.r] = true
		_ = wPrime.Push(c)
	}

	if extend {
		for _, c := range candidates {
			nd := g.arena[c.r]
			if level >= len(nd.neighbors) {
				continue
			}
			for _, nb := range nd.neighbors[level] {
				if seen[nb] {
					continue
				}
				seen[nb] = true
				d := g.metric.Compare(q, g.arena[nb].rec.Values)
				_ = wPrime.Push(cand{nb, d})
			}
		}
	}

	var reservoir *container.Heap[cand]
	if keepPruned {
		reservoir = container.New[cand](container.BetterTop, less, 0)
	}

	result := make([]ref, 0, m)
	for wPrime.Len() > 0 && len(result) < m {
		e, _ := wPrime.Pop()
		admit := true
		for _, r := range result {
			dER := g.metric.Compare(g.arena[e.r].rec.Values, g.arena[r].rec.Values)
			if !g.metric.IsBetter(e.d, dER) {
				admit = false
				break
			}
		}
		if admit {
			result = append(result, e.r)
		} else if keepPruned {
			_ = reservoir.Push(e)
		}
	}

	if keepPruned {
		for len(result) < m && reservoir.Len() > 0 {
			e, _ := reservoir.Pop()
			result = append(result, e.r)
		}
	}
	return result
}

// selectSimple keeps the m candidates closest to q (spec.md §4.F.3,
// "simple" strategy).
func (g *Graph) selectSimple(candidates []cand, m int) []ref {
	sortBest(candidates, g.metric)
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	out := make([]ref, len(candidates))
	for i, c := range candidates {
		out[i] = c.r
	}
	return out
}

// backlink adds the directed edge n->e, shrinking n's neighbor list
// with heuristic selection if it is already at capacity (spec.md
// §4.F.4). idegree bookkeeping for dropped neighbors is best-effort,
// per spec.md §9's open question on idegree being advisory rather than
// a strict invariant.
func (g *Graph) backlink(e, n ref, level, m int) {
	nNode := g.arena[n]
	if int(nNode.odegree[level]) < m {
		nNode.neighbors[level] = append(nNode.neighbors[level], e)
		nNode.odegree[level]++
		g.arena[e].idegree[level]++
		return
	}

	old := nNode.neighbors[level]
	cands := make([]cand, 0, len(old)+1)
	for _, o := range old {
		cands = append(cands, cand{o, g.metric.Compare(nNode.rec.Values, g.arena[o].rec.Values)})
	}
	cands = append(cands, cand{e, g.metric.Compare(nNode.rec.Values, g.arena[e].rec.Values)})

	var survivors []ref
	if g.strategy == Simple {
		survivors = g.selectSimple(cands, m)
	} else {
		survivors = g.selectHeuristic(nNode.rec.Values, cands, level, m, false, g.keepPruned)
	}

	oldSet := make(map[ref]bool, len(old))
	for _, o := range old {
		oldSet[o] = true
	}
	newSet := make(map[ref]bool, len(survivors))
	for _, s := range survivors {
		newSet[s] = true
	}
	for r := range oldSet {
		if !newSet[r] && g.arena[r].idegree[level] > 0 {
			g.arena[r].idegree[level]--
		}
	}
	for r := range newSet {
		if !oldSet[r] {
			g.arena[r].idegree[level]++
		}
	}

	nNode.neighbors[level] = survivors
	nNode.odegree[level] = uint32(len(survivors))
}

// Search runs k-NN search over the graph (spec.md §4.F.6): greedy
// descent to level 1, then a filtered layer-0 search with ef =
// max(2k, efSearch), simple-selected down to k and returned best-first.
func (g *Graph) Search(q []float32, k int) ([]Result, error) {
	if g.count == 0 {
		return nil, annerr.New("search_n", annerr.IndexEmpty)
	}

	ep := g.gentry
	for l := g.topLevel; l >= 1; l-- {
		w := g.searchLayer(q, []ref{ep}, 1, l, false)
		best, _ := w.Pop()
		ep = best.r
	}

	ef := g.efSearch
	if 2*k > ef {
		ef = 2 * k
	}
	w := g.searchLayer(q, []ref{ep}, ef, 0, true)
	cands := w.Drain()
	sortBest(cands, g.metric)
	if len(cands) > k {
		cands = cands[:k]
	}

	results := make([]Result, len(cands))
	for i, c := range cands {
		n := g.arena[c.r]
		results[i] = Result{ID: n.rec.ID, Tag: n.rec.Tag, Distance: c.d}
	}
	return results, nil
}

// SearchTagged bypasses the graph entirely and linearly scans the flat
// list for alive nodes whose tag matches mask, per spec.md §4.F.7 (the
// graph is not built tag-aware, so a filtered graph walk could lose
// recall; a linear scan cannot).
func (g *Graph) SearchTagged(q []float32, mask uint64, k int) []Result {
	less := func(a, b cand) bool { return g.metric.IsBetter(a.d, b.d) }
	w := container.New[cand](container.WorstTop, less, k)

	for r := g.head; r != noIndex; r = g.arena[r].next {
		n := g.arena[r]
		if !n.alive || n.rec.Tag&mask == 0 {
			continue
		}
		d := g.metric.Compare(q, n.rec.Values)
		if !w.Full() {
			_ = w.Push(cand{r, d})
			continue
		}
		root, _ := w.Peek()
		if g.metric.IsBetter(d, root.d) {
			_, _ = w.ReplaceRoot(cand{r, d})
		}
	}

	cands := w.Drain()
	sortBest(cands, g.metric)
	results := make([]Result, len(cands))
	for i, c := range cands {
		n := g.arena[c.r]
		results[i] = Result{ID: n.rec.ID, Tag: n.rec.Tag, Distance: c.d}
	}
	return results
}

// Tombstone marks a node dead without touching adjacency: neighbors
// may still traverse through it, but it is excluded from future search
// results (spec.md §4.F.8).
func (g *Graph) Tombstone(r ref) {
	g.arena[r].alive = false
}

// Alive reports whether the node at r is live.
func (g *Graph) Alive(r ref) bool { return g.arena[r].alive }

// Record returns the vector record stored at r.
func (g *Graph) Record(r ref) Record { return g.arena[r].rec }

// SetID overwrites the id of the node at r, used by the facade's
// Remap operation (spec.md §4.G capability list).
func (g *Graph) SetID(r ref, id uint64) { g.arena[r].rec.ID = id }

// SetValues overwrites the vector of the node at r in place, backing
// the facade's OVERWRITE import mode. Existing edges are left as-is:
// they were chosen for the old vector, so an overwrite is a deliberate
// approximation rather than a full re-insertion (spec.md §6).
func (g *Graph) SetValues(r ref, values []float32) { g.arena[r].rec.Values = values }

// Distance computes the metric distance between two stored nodes,
// backing the facade's CompareOne operation.
func (g *Graph) Distance(a, b ref) float32 {
	return g.metric.Compare(g.arena[a].rec.Values, g.arena[b].rec.Values)
}

// AllRecords walks the flat list and returns every record in reverse
// insertion order (most-recent-first, since the list is built by
// prepending).
// aliveOnly excludes tombstones, matching the persisted-vectors export
// path which should not resurrect deleted ids on import.
func (g *Graph) AllRecords(aliveOnly bool) []Record {
	out := make([]Record, 0, g.count)
	for r := g.head; r != noIndex; r = g.arena[r].next {
		n := g.arena[r]
		if aliveOnly && !n.alive {
			continue
		}
		out = append(out, n.rec)
	}
	return out
}

// OdegreeAt returns the out-degree of the node at r at level l, used
// by invariant checks (spec.md §3 invariant 3 / §8 property 2).
func (g *Graph) OdegreeAt(r ref, l int) int {
	n := g.arena[r]
	if l >= len(n.odegree) {
		return 0
	}
	return int(n.odegree[l])
}

// Capacity exposes the per-level neighbor-slot cap for the graph's
// current M0.
func (g *Graph) Capacity(l int) int { return capacity(l, g.m0) }

// TopLevel returns the graph's current highest populated level.
func (g *Graph) TopLevel() int { return g.topLevel }

func sortBest(cands []cand, m metric.Metric) {
	sort.Slice(cands, func(i, j int) bool { return m.IsBetter(cands[i].d, cands[j].d) })
}
