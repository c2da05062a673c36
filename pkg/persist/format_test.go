package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/hnsw"
	"github.com/benbenbenbenbenben/annidx/pkg/metric"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dims := 3
	dimsAligned := metric.AlignDims(dims)
	records := []hnsw.Record{
		{ID: 1, Tag: 0, Values: padTo(dimsAligned, []float32{1, 2, 3})},
		{ID: 2, Tag: 7, Values: padTo(dimsAligned, []float32{4, 5, 6})},
	}

	path := filepath.Join(t.TempDir(), "index.annv")
	if err := WriteFile(path, uint16(metric.L2Code), dims, dimsAligned, records); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h, got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if h.Magic != Magic {
		t.Errorf("header magic = %#x, want %#x", h.Magic, Magic)
	}
	if h.Elements != uint64(len(records)) {
		t.Errorf("header elements = %d, want %d", h.Elements, len(records))
	}
	if int(h.Dims) != dims || int(h.DimsAligned) != dimsAligned {
		t.Errorf("header dims = (%d, %d), want (%d, %d)", h.Dims, h.DimsAligned, dims, dimsAligned)
	}
	if len(got) != len(records) {
		t.Fatalf("ReadFile returned %d records, want %d", len(got), len(records))
	}
	for i, rec := range records {
		if got[i].ID != rec.ID || got[i].Tag != rec.Tag {
			t.Errorf("record %d = %+v, want %+v", i, got[i], rec)
		}
		for d := range rec.Values {
			if got[i].Values[d] != rec.Values[d] {
				t.Errorf("record %d value[%d] = %v, want %v", i, d, got[i].Values[d], rec.Values[d])
			}
		}
	}
}

func TestReadFileRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-annidx.bin")
	if err := WriteFile(path, uint16(metric.L2Code), 2, 4, nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// Corrupt the magic bytes in place.
	corrupt(t, path)

	if _, _, err := ReadFile(path); !annerr.Is(err, annerr.InvalidFile) {
		t.Errorf("ReadFile on corrupted magic = %v, want InvalidFile", err)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.annv")); !annerr.Is(err, annerr.FileIOError) {
		t.Errorf("ReadFile(missing) = %v, want FileIOError", err)
	}
}

func padTo(n int, v []float32) []float32 {
	out := make([]float32, n)
	copy(out, v)
	return out
}

func corrupt(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[0] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
