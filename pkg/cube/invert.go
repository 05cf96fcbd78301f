package cube

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/filmgallery/filmdev/pkg/fmath"
)

const (
	invertMaxIters = 30
	invertTol      = 1e-6
	jacobianStep   = 1e-4
)

// Invert builds a LUT of the given size that undoes this one: for any x
// in the forward LUT's range, inv.Apply(l.Apply(x)) ~= x. Each grid
// point is solved by Newton iteration with a numeric Jacobian. Grid
// points outside the forward LUT's range converge to the nearest
// attainable color instead of failing.
func (l *LUT)Invert(size int) (*LUT, error) {
	if size < 2 {
		return nil, fmt.Errorf("invert size %d too small", size)
	}

	inv := newLUT(size)
	if l.Title != "" {
		inv.Title = l.Title + " (inverted)"
	}

	n := float64(size - 1)
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				target := [3]float64{float64(r) / n, float64(g) / n, float64(b) / n}
				inv.set(r, g, b, l.solve(target))
			}
		}
	}
	return inv, nil
}

// solve finds x with Apply(x) ~= target. The identity guess works
// because film LUTs stay loosely monotone per channel.
func (l *LUT)solve(target [3]float64) [3]float64 {
	x := target

	f := mat.NewVecDense(3, nil)
	d := mat.NewVecDense(3, nil)
	jac := mat.NewDense(3, 3, nil)

	for iter := 0; iter < invertMaxIters; iter++ {
		got := l.Apply(x)

		maxErr := 0.0
		for i := 0; i < 3; i++ {
			e := got[i] - target[i]
			f.SetVec(i, e)
			if a := math.Abs(e); a > maxErr {
				maxErr = a
			}
		}
		if maxErr < invertTol {
			break
		}

		// Forward-difference Jacobian of Apply at x.
		for j := 0; j < 3; j++ {
			xp := x
			xp[j] += jacobianStep
			gp := l.Apply(xp)
			for i := 0; i < 3; i++ {
				jac.Set(i, j, (gp[i]-got[i])/jacobianStep)
			}
		}

		if err := d.SolveVec(jac, f); err != nil {
			// Singular at a flat region. The current x is as close as
			// Newton gets.
			break
		}

		step := 1.0
		for i := 0; i < 3; i++ {
			if s := math.Abs(d.AtVec(i)); s > 0.5 {
				step = math.Min(step, 0.5/s)
			}
		}
		for i := 0; i < 3; i++ {
			x[i] = fmath.Clamp(x[i]-step*d.AtVec(i), 0, 1)
		}
	}
	return x
}
