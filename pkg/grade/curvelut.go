package grade

import (
	"github.com/filmgallery/filmdev/pkg/fmath"
)

// A CurveLUT maps an input byte through a channel tone curve. One
// independent instance is built per grading pass; they are pure values,
// never shared or cached across requests.
type CurveLUT [256]uint8

// IdentityLUT is what you get from fewer than two control points.
func IdentityLUT() CurveLUT {
	var lut CurveLUT
	for i := range lut {
		lut[i] = uint8(i)
	}
	return lut
}

// BuildCurveLUT fits a monotone spline through the control points and
// samples it at every byte value. Inputs left of the first point clamp
// to its y, inputs right of the last point clamp to its y.
func BuildCurveLUT(points []CurvePoint) CurveLUT {
	pts := normalizePoints(points)
	if len(pts) < 2 {
		return IdentityLUT()
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, pt := range pts {
		xs[i] = pt.X
		ys[i] = pt.Y
	}
	spline := fmath.NewSpline(xs, ys)

	var lut CurveLUT
	for i := 0; i < 256; i++ {
		x := float64(i)
		switch {
		case x <= xs[0]:
			lut[i] = fmath.ClampToByte(ys[0])
		case x >= xs[len(xs)-1]:
			lut[i] = fmath.ClampToByte(ys[len(ys)-1])
		default:
			lut[i] = fmath.ClampToByte(spline.Eval(x))
		}
	}
	return lut
}

// BuildCurveLUTs builds the four per-request curve LUTs. Application
// order is fixed: tone, then RGB curve, then the per-channel curve.
func BuildCurveLUTs(c Curves) (rgb, red, green, blue CurveLUT) {
	return BuildCurveLUT(c.RGB), BuildCurveLUT(c.Red), BuildCurveLUT(c.Green), BuildCurveLUT(c.Blue)
}
