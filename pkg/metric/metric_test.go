package metric

import "testing"

func TestAlignDims(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {1, 4}, {3, 4}, {4, 4}, {5, 8}, {128, 128}, {129, 132},
	}
	for _, c := range cases {
		if got := AlignDims(c.in); got != c.want {
			t.Errorf("AlignDims(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestPadInto(t *testing.T) {
	dst := make([]float32, 8)
	for i := range dst {
		dst[i] = 99
	}
	PadInto(dst, []float32{1, 2, 3})
	want := []float32{1, 2, 3, 0, 0, 0, 0, 0}
	for i, w := range want {
		if dst[i] != w {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
}

func TestL2(t *testing.T) {
	var l L2
	u := []float32{0, 0, 0, 0}
	v := []float32{3, 4, 0, 0}
	if d := l.Compare(u, v); d != 5 {
		t.Errorf("L2.Compare = %v, want 5", d)
	}
	if !l.IsBetter(1, 2) || l.IsBetter(2, 1) {
		t.Errorf("L2.IsBetter ordering wrong")
	}
}

func TestCosineZeroNorm(t *testing.T) {
	var c Cosine
	zero := []float32{0, 0, 0, 0}
	v := []float32{1, 2, 3, 4}
	if d := c.Compare(zero, v); d != 0 {
		t.Errorf("Cosine.Compare with zero vector = %v, want 0", d)
	}
}

func TestCosineIdentical(t *testing.T) {
	var c Cosine
	v := []float32{1, 2, 3, 4}
	d := c.Compare(v, v)
	if d < 0.999 || d > 1.001 {
		t.Errorf("Cosine.Compare(v, v) = %v, want ~1", d)
	}
	if !c.IsBetter(0.9, 0.1) {
		t.Errorf("Cosine.IsBetter: larger should be better")
	}
}

func TestDot(t *testing.T) {
	var d Dot
	u := []float32{1, 2, 3, 4}
	v := []float32{1, 1, 1, 1}
	if got := d.Compare(u, v); got != 10 {
		t.Errorf("Dot.Compare = %v, want 10", got)
	}
}

func TestByCode(t *testing.T) {
	for _, code := range []Code{L2Code, CosineCode, DotCode} {
		m, ok := ByCode(code)
		if !ok {
			t.Fatalf("ByCode(%v) not found", code)
		}
		if m.Code() != code {
			t.Errorf("metric.Code() = %v, want %v", m.Code(), code)
		}
	}
	if _, ok := ByCode(Code(99)); ok {
		t.Error("ByCode(99) should fail for unknown code")
	}
}
