package annidx_test

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/benbenbenbenbenben/annidx"
)

// TestS1ExactL2Neighbors is spec.md S1.
func TestS1ExactL2Neighbors(t *testing.T) {
	idx, err := annidx.New(annidx.WithDims(4), annidx.WithMethod(annidx.L2), annidx.WithSeed(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := idx.Insert(1, 0, []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}
	if err := idx.Insert(2, 0, []float32{0, 1, 0, 0}); err != nil {
		t.Fatalf("Insert(2): %v", err)
	}
	if err := idx.Insert(3, 0, []float32{0, 0, 1, 0}); err != nil {
		t.Fatalf("Insert(3): %v", err)
	}

	res, err := idx.SearchN([]float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("SearchN returned %d results, want 2", len(res))
	}
	if res[0].ID != 1 || math.Abs(float64(res[0].Distance)) > 1e-5 {
		t.Errorf("res[0] = %+v, want (1, 0.0)", res[0])
	}
	if res[1].ID != 2 || math.Abs(float64(res[1].Distance)-math.Sqrt2) > 1e-4 {
		t.Errorf("res[1] = %+v, want (2, sqrt(2))", res[1])
	}
}

// TestS2DeleteExcludesFromSearch is spec.md S2.
func TestS2DeleteExcludesFromSearch(t *testing.T) {
	idx, err := annidx.New(annidx.WithDims(4), annidx.WithMethod(annidx.L2), annidx.WithSeed(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = idx.Insert(1, 0, []float32{1, 0, 0, 0})
	_ = idx.Insert(2, 0, []float32{0, 1, 0, 0})
	_ = idx.Insert(3, 0, []float32{0, 0, 1, 0})

	if err := idx.Delete(1); err != nil {
		t.Fatalf("Delete(1): %v", err)
	}

	res, err := idx.SearchN([]float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	if len(res) != 1 || res[0].ID != 2 || math.Abs(float64(res[0].Distance)-math.Sqrt2) > 1e-4 {
		t.Errorf("SearchN after delete = %+v, want [(2, sqrt(2))]", res)
	}
	if idx.Contains(1) {
		t.Error("Contains(1) should be false after Delete")
	}
	if idx.Size() != 2 {
		t.Errorf("Size() = %d, want 2", idx.Size())
	}
}

// TestS3CosineOpposites is spec.md S3.
func TestS3CosineOpposites(t *testing.T) {
	idx, err := annidx.New(annidx.WithDims(4), annidx.WithMethod(annidx.Cosine), annidx.WithSeed(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = idx.Insert(1, 0, []float32{1, 0, 0, 0})
	_ = idx.Insert(2, 0, []float32{-1, 0, 0, 0})

	res, err := idx.SearchN([]float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("SearchN returned %d results, want 2", len(res))
	}
	if res[0].ID != 1 || math.Abs(float64(res[0].Distance)-1.0) > 1e-5 {
		t.Errorf("res[0] = %+v, want (1, 1.0)", res[0])
	}
	if res[1].ID != 2 || math.Abs(float64(res[1].Distance)+1.0) > 1e-5 {
		t.Errorf("res[1] = %+v, want (2, -1.0)", res[1])
	}
}

// TestS4RecallAgainstFlat is spec.md S4: 10k random normalized 2-d
// vectors, M0=32/ef_construct=200/ef_search=200, mean Recall@10 over
// 100 queries must be >= 0.90. The oracle is a second index whose
// ef_search spans the whole dataset, standing in for a flat scan.
func TestS4RecallAgainstFlat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 10k-vector recall scenario in -short mode")
	}
	const dims = 2
	const n = 10000
	const k = 10

	idx, err := annidx.New(
		annidx.WithDims(dims),
		annidx.WithMethod(annidx.L2),
		annidx.WithM0(32),
		annidx.WithEfConstruct(200),
		annidx.WithEfSearch(200),
		annidx.WithSeed(7),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	flatIdx, err := annidx.New(
		annidx.WithDims(dims),
		annidx.WithMethod(annidx.L2),
	)
	if err != nil {
		t.Fatalf("New (flat oracle via brute ef): %v", err)
	}
	// Force an effectively-exhaustive HNSW search to stand in for the
	// flat oracle: ef_search spanning the whole dataset makes layer-0
	// search recall-complete without a second index type at this layer.
	flatIdx.UpdateContext(annidx.SetEfSearch, annidx.Context{EfSearch: n})

	rng := rand.New(rand.NewSource(42))
	normalize := func(v []float32) []float32 {
		var sumSq float64
		for _, x := range v {
			sumSq += float64(x) * float64(x)
		}
		norm := math.Sqrt(sumSq)
		if norm == 0 {
			return v
		}
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(float64(x) / norm)
		}
		return out
	}

	for i := 1; i <= n; i++ {
		v := normalize([]float32{float32(rng.NormFloat64()), float32(rng.NormFloat64())})
		if err := idx.Insert(uint64(i), 0, v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := flatIdx.Insert(uint64(i), 0, v); err != nil {
			t.Fatalf("flat Insert: %v", err)
		}
	}

	recalls := make([]float64, 0, 100)
	for q := 0; q < 100; q++ {
		query := normalize([]float32{float32(rng.NormFloat64()), float32(rng.NormFloat64())})
		want, err := flatIdx.SearchN(query, k)
		if err != nil {
			t.Fatalf("flat SearchN: %v", err)
		}
		got, err := idx.SearchN(query, k)
		if err != nil {
			t.Fatalf("SearchN: %v", err)
		}
		wantSet := make(map[uint64]bool, len(want))
		for _, r := range want {
			wantSet[r.ID] = true
		}
		hits := 0
		for _, r := range got {
			if wantSet[r.ID] {
				hits++
			}
		}
		recalls = append(recalls, float64(hits)/float64(len(want)))
	}

	mean := stat.Mean(recalls, nil)
	if mean < 0.90 {
		t.Errorf("mean recall@%d over 100 queries = %.3f, want >= 0.90", k, mean)
	}
}

// TestS5DuplicateInsertRejected is spec.md S5.
func TestS5DuplicateInsertRejected(t *testing.T) {
	idx, err := annidx.New(annidx.WithDims(4), annidx.WithSeed(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := idx.Insert(1, 0, []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := idx.Insert(1, 0, []float32{1, 2, 3, 4}); !annidx.IsError(err, annidx.ErrDuplicatedEntry) {
		t.Errorf("second Insert = %v, want DuplicatedEntry", err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size() = %d, want 1", idx.Size())
	}
}

// TestS6PersistenceRoundTripRecall is spec.md S6: build an index with
// 1000 vectors, export, import into a fresh index under OVERWRITE, and
// check that 50 k=10 queries recall >= 0.95 against the original.
func TestS6PersistenceRoundTripRecall(t *testing.T) {
	const dims = 8
	const n = 1000
	const k = 10

	original, err := annidx.New(
		annidx.WithDims(dims),
		annidx.WithMethod(annidx.L2),
		annidx.WithM0(32),
		annidx.WithEfConstruct(200),
		annidx.WithEfSearch(200),
		annidx.WithSeed(3),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rng := rand.New(rand.NewSource(55))
	for i := 1; i <= n; i++ {
		v := make([]float32, dims)
		for d := range v {
			v[d] = float32(rng.NormFloat64())
		}
		if err := original.Insert(uint64(i), 0, v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "s6.annv")
	if err := original.Export(path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	restored, err := annidx.New(
		annidx.WithDims(dims),
		annidx.WithMethod(annidx.L2),
		annidx.WithM0(32),
		annidx.WithEfConstruct(200),
		annidx.WithEfSearch(200),
		annidx.WithSeed(4),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	imported, _, err := restored.Import(path, annidx.ImportOverwrite)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported != n {
		t.Fatalf("Import restored %d vectors, want %d", imported, n)
	}

	recalls := make([]float64, 0, 50)
	for q := 0; q < 50; q++ {
		query := make([]float32, dims)
		for d := range query {
			query[d] = float32(rng.NormFloat64())
		}
		want, err := original.SearchN(query, k)
		if err != nil {
			t.Fatalf("original SearchN: %v", err)
		}
		got, err := restored.SearchN(query, k)
		if err != nil {
			t.Fatalf("restored SearchN: %v", err)
		}
		wantSet := make(map[uint64]bool, len(want))
		for _, r := range want {
			wantSet[r.ID] = true
		}
		hits := 0
		for _, r := range got {
			if wantSet[r.ID] {
				hits++
			}
		}
		recalls = append(recalls, float64(hits)/float64(len(want)))
	}

	mean := stat.Mean(recalls, nil)
	if mean < 0.95 {
		t.Errorf("mean recall@%d over 50 queries = %.3f, want >= 0.95", k, mean)
	}
}
