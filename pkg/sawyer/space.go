package sawyer

import (
	"math"
	"math/rand"
)

// Box is a bounded region of R^n describing valid actions or
// observations. Bounds are inclusive; an unbounded dimension uses ±Inf.
type Box struct {
	Low  []float64
	High []float64
}

// NewBox constructs a box from lower and upper bounds. The bounds must
// have the same length.
func NewBox(low, high []float64) Box {
	if len(low) != len(high) {
		panic("box bounds length mismatch")
	}
	return Box{Low: low, High: high}
}

// UnboundedBox returns an n-dimensional box with infinite bounds.
func UnboundedBox(n int) Box {
	low := make([]float64, n)
	high := make([]float64, n)
	for i := range low {
		low[i] = math.Inf(-1)
		high[i] = math.Inf(1)
	}
	return Box{Low: low, High: high}
}

// Dim returns the dimensionality of the box.
func (b Box) Dim() int {
	return len(b.Low)
}

// Clip returns a copy of x with every element limited to the box bounds.
func (b Box) Clip(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Min(math.Max(v, b.Low[i]), b.High[i])
	}
	return out
}

// Contains reports whether x lies within the box bounds.
func (b Box) Contains(x []float64) bool {
	if len(x) != b.Dim() {
		return false
	}
	for i, v := range x {
		if v < b.Low[i] || v > b.High[i] {
			return false
		}
	}
	return true
}

// Sample draws a uniform sample from the box. Unbounded dimensions fall
// back to a standard normal draw.
func (b Box) Sample(rng *rand.Rand) []float64 {
	out := make([]float64, b.Dim())
	for i := range out {
		lo, hi := b.Low[i], b.High[i]
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			out[i] = rng.NormFloat64()
			continue
		}
		out[i] = lo + rng.Float64()*(hi-lo)
	}
	return out
}
