package fmath

import (
	"math"
	"testing"
)

func TestSplineThroughKnots(t *testing.T) {
	xs := []float64{0, 64, 128, 255}
	ys := []float64{0, 80, 100, 255}
	s := NewSpline(xs, ys)

	for i := range xs {
		if got := s.Eval(xs[i]); math.Abs(got-ys[i]) > 1e-9 {
			t.Errorf("Eval(%v) = %v, want knot value %v", xs[i], got, ys[i])
		}
	}
}

func TestSplineStraightLine(t *testing.T) {
	s := NewSpline([]float64{0, 255}, []float64{0, 255})
	for x := 0.0; x <= 255; x++ {
		if got := s.Eval(x); math.Abs(got-x) > 1e-9 {
			t.Fatalf("Eval(%v) = %v on the identity line", x, got)
		}
	}
}

func TestSplineMonotoneNoOvershoot(t *testing.T) {
	// Non-decreasing knots must give a non-decreasing interpolant that
	// stays inside [ys[0], ys[last]].
	xs := []float64{0, 32, 128, 200, 255}
	ys := []float64{0, 10, 200, 230, 255}
	s := NewSpline(xs, ys)

	prev := math.Inf(-1)
	for x := 0.0; x <= 255; x += 0.5 {
		y := s.Eval(x)
		if y < prev-1e-9 {
			t.Fatalf("interpolant decreased at x=%v: %v -> %v", x, prev, y)
		}
		if y < -1e-9 || y > 255+1e-9 {
			t.Fatalf("interpolant overshot at x=%v: %v", x, y)
		}
		prev = y
	}
}

func TestSplineFlattensAtExtrema(t *testing.T) {
	// A local maximum at x=128 must not overshoot past its knot value.
	xs := []float64{0, 128, 255}
	ys := []float64{0, 200, 50}
	s := NewSpline(xs, ys)

	for x := 0.0; x <= 255; x += 0.25 {
		if y := s.Eval(x); y > 200+1e-9 {
			t.Fatalf("overshoot past local max at x=%v: %v", x, y)
		}
	}
}

func TestClampToByte(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-10, 0}, {0, 0}, {0.4, 0}, {0.6, 1}, {127.5, 128}, {254.9, 255}, {300, 255},
	}
	for _, c := range cases {
		if got := ClampToByte(c.in); got != c.want {
			t.Errorf("ClampToByte(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
