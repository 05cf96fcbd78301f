package fmath

// A Spline is a monotone cubic Hermite interpolant through a small set
// of knots, using the Fritsch-Carlson rule for knot derivatives: where
// adjacent segment slopes oppose (or either is zero) the derivative is
// forced to zero, so the curve flattens at local extrema instead of
// overshooting the knot values.
//
// Eval is only defined for x inside [xs[0], xs[n-1]]; callers clamp
// before evaluating.
type Spline struct {
	xs, ys []float64
	c1     []float64 // per-segment Hermite coefficients
	c2     []float64
	c3     []float64
}

// NewSpline fits a spline through the given knots. xs must be strictly
// increasing, and len(xs) == len(ys) >= 2.
func NewSpline(xs, ys []float64) *Spline {
	n := len(xs)

	// Per-segment slopes
	dx := make([]float64, n-1)
	m := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		dx[i] = xs[i+1] - xs[i]
		m[i] = (ys[i+1] - ys[i]) / dx[i]
	}

	// Knot derivatives. Endpoints just take the adjacent slope.
	d := make([]float64, n)
	d[0] = m[0]
	d[n-1] = m[n-2]
	for i := 1; i < n-1; i++ {
		if m[i-1]*m[i] <= 0 {
			d[i] = 0 // local extremum, flatten
		} else {
			// Weighted harmonic mean of the two adjacent slopes
			common := dx[i-1] + dx[i]
			d[i] = 3 * common / ((common+dx[i])/m[i-1] + (common+dx[i-1])/m[i])
		}
	}

	s := &Spline{
		xs: xs,
		ys: ys,
		c1: make([]float64, n-1),
		c2: make([]float64, n-1),
		c3: make([]float64, n-1),
	}

	for i := 0; i < n-1; i++ {
		h := dx[i]
		s.c1[i] = d[i]
		s.c2[i] = (3*m[i] - 2*d[i] - d[i+1]) / h
		s.c3[i] = (d[i] + d[i+1] - 2*m[i]) / (h * h)
	}

	return s
}

// Eval computes the spline at x, which must lie within the knot range.
// The segment lookup is a linear scan; curves never carry more than a
// handful of control points.
func (s *Spline)Eval(x float64) float64 {
	i := len(s.xs) - 2
	for j := 0; j < len(s.xs)-1; j++ {
		if x < s.xs[j+1] {
			i = j
			break
		}
	}

	d := x - s.xs[i]
	return s.ys[i] + d*(s.c1[i]+d*(s.c2[i]+d*s.c3[i]))
}
