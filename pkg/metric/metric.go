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

// Package metric provides the pairwise distance kernels annidx indexes
// are built over: squared-free L2, cosine, and dot product. Every
// kernel walks vectors in groups of four lanes so the compiler can
// auto-vectorize the loop, and treats any padding lanes beyond the
// caller's real dimensionality as pre-zeroed.
package metric

import "math"

// Code identifies a metric on the wire and in Options, matching the
// codes fixed by spec.md §6.
type Code uint16

const (
	L2Code     Code = 0
	CosineCode Code = 1
	DotCode    Code = 2
)

// Metric computes distances between aligned float32 vectors and knows
// its own ordering and sentinel "worst" value.
type Metric interface {
	// Compare returns the distance between u and v, both of length
	// dimsAligned. Padding lanes (indices >= the caller's logical dims)
	// must already be zero in both slices.
	Compare(u, v []float32) float32

	// IsBetter reports whether a is a strictly better (closer/more
	// similar) distance than b under this metric's ordering.
	IsBetter(a, b float32) bool

	// WorstValue returns the metric's sentinel "worst" distance: +Inf
	// for L2, -1 for Cosine and Dot.
	WorstValue() float32

	// Code returns the wire code for this metric.
	Code() Code
}

// ByCode resolves a Code to its Metric implementation.
func ByCode(c Code) (Metric, bool) {
	switch c {
	case L2Code:
		return L2{}, true
	case CosineCode:
		return Cosine{}, true
	case DotCode:
		return Dot{}, true
	default:
		return nil, false
	}
}

// L2 is Euclidean distance: smaller is better.
type L2 struct{}

func (L2) Code() Code { return L2Code }

func (L2) Compare(u, v []float32) float32 {
	var sum float32
	n := len(u)
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := u[i] - v[i]
		d1 := u[i+1] - v[i+1]
		d2 := u[i+2] - v[i+2]
		d3 := u[i+3] - v[i+3]
		sum += d0*d0 + d1*d1 + d2*d2 + d3*d3
	}
	for ; i < n; i++ {
		d := u[i] - v[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

func (L2) IsBetter(a, b float32) bool { return a < b }

func (L2) WorstValue() float32 { return float32(math.Inf(1)) }

// Cosine is cosine similarity expressed as a distance where larger is
// better (it is the raw similarity, not 1-similarity, per spec.md §4.A).
type Cosine struct{}

func (Cosine) Code() Code { return CosineCode }

func (Cosine) Compare(u, v []float32) float32 {
	var dot, normU, normV float32
	n := len(u)
	i := 0
	for ; i+4 <= n; i += 4 {
		dot += u[i]*v[i] + u[i+1]*v[i+1] + u[i+2]*v[i+2] + u[i+3]*v[i+3]
		normU += u[i]*u[i] + u[i+1]*u[i+1] + u[i+2]*u[i+2] + u[i+3]*u[i+3]
		normV += v[i]*v[i] + v[i+1]*v[i+1] + v[i+2]*v[i+2] + v[i+3]*v[i+3]
	}
	for ; i < n; i++ {
		dot += u[i] * v[i]
		normU += u[i] * u[i]
		normV += v[i] * v[i]
	}
	if normU == 0 || normV == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(normU))*math.Sqrt(float64(normV)))
}

func (Cosine) IsBetter(a, b float32) bool { return a > b }

func (Cosine) WorstValue() float32 { return -1 }

// Dot is the raw dot product: larger is better.
type Dot struct{}

func (Dot) Code() Code { return DotCode }

func (Dot) Compare(u, v []float32) float32 {
	var sum float32
	n := len(u)
	i := 0
	for ; i+4 <= n; i += 4 {
		sum += u[i]*v[i] + u[i+1]*v[i+1] + u[i+2]*v[i+2] + u[i+3]*v[i+3]
	}
	for ; i < n; i++ {
		sum += u[i] * v[i]
	}
	return sum
}

func (Dot) IsBetter(a, b float32) bool { return a > b }

func (Dot) WorstValue() float32 { return -1 }

// AlignDims rounds dims up to the next multiple of 4, per spec.md §3's
// dims_aligned invariant.
func AlignDims(dims int) int {
	return (dims + 3) &^ 3
}

// PadInto copies src into a dst of length dimsAligned, zero-filling the
// padding lanes so they never perturb L2 or cosine norms.
func PadInto(dst, src []float32) {
	n := copy(dst, src)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
