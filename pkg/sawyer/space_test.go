package sawyer

import (
	"math"
	"math/rand"
	"testing"
)

func TestBoxClip(t *testing.T) {
	b := NewBox([]float64{-1, 0, -0.5}, []float64{1, 2, 0.5})

	tests := []struct {
		in       []float64
		expected []float64
	}{
		{[]float64{0, 1, 0}, []float64{0, 1, 0}},
		{[]float64{-5, -5, -5}, []float64{-1, 0, -0.5}},
		{[]float64{5, 5, 5}, []float64{1, 2, 0.5}},
		{[]float64{-1, 2, 0.5}, []float64{-1, 2, 0.5}}, // bounds are inclusive
	}

	for _, tt := range tests {
		got := b.Clip(tt.in)
		for i := range tt.expected {
			if got[i] != tt.expected[i] {
				t.Errorf("Clip(%v)[%d] = %v, want %v", tt.in, i, got[i], tt.expected[i])
			}
		}
	}
}

func TestBoxClipDoesNotMutate(t *testing.T) {
	b := NewBox([]float64{-1}, []float64{1})
	in := []float64{5}
	b.Clip(in)
	if in[0] != 5 {
		t.Error("Clip mutated its input")
	}
}

func TestBoxContains(t *testing.T) {
	b := NewBox([]float64{-1, -1}, []float64{1, 1})

	if !b.Contains([]float64{0, 0.5}) {
		t.Error("point inside the box reported outside")
	}
	if b.Contains([]float64{0, 1.5}) {
		t.Error("point outside the box reported inside")
	}
	if b.Contains([]float64{0}) {
		t.Error("wrong dimensionality reported inside")
	}
}

func TestBoxSampleWithinBounds(t *testing.T) {
	b := NewBox([]float64{-0.02, 0}, []float64{0.02, 100})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		s := b.Sample(rng)
		if !b.Contains(s) {
			t.Fatalf("sample %v outside bounds", s)
		}
	}
}

func TestUnboundedBox(t *testing.T) {
	b := UnboundedBox(4)
	if b.Dim() != 4 {
		t.Fatalf("Dim = %d, want 4", b.Dim())
	}
	if !math.IsInf(b.Low[0], -1) || !math.IsInf(b.High[3], 1) {
		t.Error("bounds are not infinite")
	}
	if !b.Contains([]float64{1e12, -1e12, 0, 3}) {
		t.Error("unbounded box should contain everything of the right size")
	}
}
