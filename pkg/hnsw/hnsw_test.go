package hnsw

import (
	"math"
	"math/rand"
	"testing"

	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/metric"
)

func padded(dims int, v []float32) []float32 {
	a := metric.AlignDims(dims)
	out := make([]float32, a)
	metric.PadInto(out, v)
	return out
}

func seededContext(seed int64) Context {
	ctx := DefaultContext()
	ctx.Seed = &seed
	ctx.M0 = 16
	ctx.EfConstruct = 64
	ctx.EfSearch = 32
	return ctx
}

func TestInsertSingleAndSearchSelf(t *testing.T) {
	g := New(metric.L2{}, 2, seededContext(1))
	r := g.Insert(Record{ID: 1, Values: padded(2, []float32{1, 2})})
	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}
	if !g.Alive(r) {
		t.Fatal("newly inserted node should be alive")
	}

	res, err := g.Search(padded(2, []float32{1, 2}), 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ID != 1 {
		t.Fatalf("Search result = %+v, want a single match on id 1", res)
	}
	if res[0].Distance != 0 {
		t.Errorf("exact-match distance = %v, want 0", res[0].Distance)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	g := New(metric.L2{}, 2, seededContext(1))
	_, err := g.Search(padded(2, []float32{0, 0}), 1)
	if !annerr.Is(err, annerr.IndexEmpty) {
		t.Fatalf("Search on empty graph: got %v, want IndexEmpty", err)
	}
}

// buildGrid inserts n points with standard-normal coordinates drawn from
// a seeded PRNG, and returns their ids/vectors for brute-force
// cross-checking.
func buildGrid(t *testing.T, g *Graph, n, dims int, seed int64) ([]uint64, [][]float32) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	ids := make([]uint64, n)
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		raw := make([]float32, dims)
		for d := range raw {
			raw[d] = float32(rng.NormFloat64())
		}
		id := uint64(i + 1)
		g.Insert(Record{ID: id, Values: padded(dims, raw)})
		ids[i] = id
		vecs[i] = raw
	}
	return ids, vecs
}

func bruteForceKNN(q []float32, ids []uint64, vecs [][]float32, k int, m metric.Metric) []uint64 {
	type scored struct {
		id uint64
		d  float32
	}
	out := make([]scored, len(ids))
	for i := range ids {
		out[i] = scored{ids[i], m.Compare(q, vecs[i])}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if m.IsBetter(out[j].d, out[i].d) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	res := make([]uint64, len(out))
	for i, s := range out {
		res[i] = s.id
	}
	return res
}

func TestSearchRecallAgainstBruteForce(t *testing.T) {
	const dims = 16
	const n = 300
	const k = 10

	g := New(metric.L2{}, dims, seededContext(42))
	ids, vecs := buildGrid(t, g, n, dims, 7)

	rng := rand.New(rand.NewSource(99))
	var hits, total int
	for q := 0; q < 20; q++ {
		query := make([]float32, dims)
		for d := range query {
			query[d] = float32(rng.NormFloat64())
		}
		want := bruteForceKNN(query, ids, vecs, k, metric.L2{})
		got, err := g.Search(padded(dims, query), k)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		wantSet := make(map[uint64]bool, len(want))
		for _, id := range want {
			wantSet[id] = true
		}
		for _, r := range got {
			if wantSet[r.ID] {
				hits++
			}
		}
		total += len(want)
	}
	recall := float64(hits) / float64(total)
	if recall < 0.7 {
		t.Errorf("recall@%d = %.2f over %d queries, want >= 0.70", k, recall, 20)
	}
}

func TestTombstoneExcludesFromSearch(t *testing.T) {
	g := New(metric.L2{}, 2, seededContext(3))
	r1 := g.Insert(Record{ID: 1, Values: padded(2, []float32{0, 0})})
	g.Insert(Record{ID: 2, Values: padded(2, []float32{10, 10})})

	g.Tombstone(r1)
	if g.Alive(r1) {
		t.Fatal("Tombstone should clear alive flag")
	}

	res, err := g.Search(padded(2, []float32{0, 0}), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range res {
		if r.ID == 1 {
			t.Error("tombstoned id 1 should not appear in search results")
		}
	}
}

func TestSearchTaggedFiltersByMask(t *testing.T) {
	g := New(metric.L2{}, 2, seededContext(4))
	g.Insert(Record{ID: 1, Tag: 0b001, Values: padded(2, []float32{0, 0})})
	g.Insert(Record{ID: 2, Tag: 0b010, Values: padded(2, []float32{0, 1})})
	g.Insert(Record{ID: 3, Tag: 0b001, Values: padded(2, []float32{0, 2})})

	res := g.SearchTagged(padded(2, []float32{0, 0}), 0b001, 10)
	if len(res) != 2 {
		t.Fatalf("SearchTagged returned %d results, want 2", len(res))
	}
	for _, r := range res {
		if r.ID == 2 {
			t.Errorf("result %v should have been excluded by tag mask", r)
		}
	}
	// best match for tag 0b001 should be id 1 (distance 0)
	if res[0].ID != 1 {
		t.Errorf("closest tagged match = %d, want 1", res[0].ID)
	}
}

func TestNeighborCapacityRespectsM0(t *testing.T) {
	g := New(metric.L2{}, 4, seededContext(5))
	const n = 150
	for i := 0; i < n; i++ {
		raw := []float32{float32(i), float32(i % 3), float32(i % 7), float32(i % 11)}
		g.Insert(Record{ID: uint64(i + 1), Values: padded(4, raw)})
	}
	for r := ref(0); r < ref(n); r++ {
		if deg := g.OdegreeAt(r, 0); deg > g.Capacity(0) {
			t.Fatalf("node %d odegree at level 0 = %d, exceeds capacity %d", r, deg, g.Capacity(0))
		}
	}
}

func TestHeuristicSelectionDropsNearDuplicates(t *testing.T) {
	// Five candidates clustered near (0,0) and one far outlier at
	// (100,100). Heuristic selection with m=3 should prefer diversity
	// over five near-identical points, keeping the outlier.
	g := New(metric.L2{}, 2, seededContext(6))
	var cands []cand
	ids := []ref{}
	for i := 0; i < 5; i++ {
		r := g.Insert(Record{ID: uint64(i + 1), Values: padded(2, []float32{float32(i) * 0.01, 0})})
		ids = append(ids, r)
	}
	outlier := g.Insert(Record{ID: 99, Values: padded(2, []float32{100, 100})})
	ids = append(ids, outlier)

	q := padded(2, []float32{0, 0})
	for _, r := range ids {
		d := g.metric.Compare(q, g.arena[r].rec.Values)
		cands = append(cands, cand{r, d})
	}

	selected := g.selectHeuristic(q, cands, 0, 3, false, true)
	found := false
	for _, s := range selected {
		if s == outlier {
			found = true
		}
	}
	if !found {
		t.Error("KEEP_PRUNED heuristic selection should retain the distant outlier among survivors")
	}
	if len(selected) != 3 {
		t.Errorf("selectHeuristic returned %d neighbors, want 3", len(selected))
	}
}

func TestRandomLevelNeverNegativeOrNaN(t *testing.T) {
	g := New(metric.L2{}, 2, seededContext(11))
	for i := 0; i < 1000; i++ {
		l := g.randomLevel()
		if l < 0 {
			t.Fatalf("randomLevel() = %d, want >= 0", l)
		}
		if math.IsNaN(float64(l)) {
			t.Fatal("randomLevel() produced NaN")
		}
	}
}

func TestSimpleStrategyInsertAndSearch(t *testing.T) {
	ctx := seededContext(21)
	ctx.Strategy = Simple
	g := New(metric.L2{}, 2, ctx)
	for i := 0; i < 50; i++ {
		raw := []float32{float32(i), float32(-i)}
		g.Insert(Record{ID: uint64(i + 1), Values: padded(2, raw)})
	}
	res, err := g.Search(padded(2, []float32{0, 0}), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 5 {
		t.Fatalf("Search returned %d results, want 5", len(res))
	}
}
