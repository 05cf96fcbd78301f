package grade

import (
	"math"

	"github.com/filmgallery/filmdev/pkg/fmath"
)

// A ToneLUT folds the six scalar tone sliders into one 256-entry table.
// Built once per grading request and shared by every pixel of it.
type ToneLUT [256]uint8

// BuildToneLUT computes the tone table from the exposure, contrast,
// highlights, shadows, whites and blacks sliders of p.
//
// The contrast slider is scaled from its external +/-100 range to the
// +/-255 the S-curve formula expects.
func BuildToneLUT(p Params) ToneLUT {
	exposureGain := math.Pow(2, p.Exposure/50) // stop-like gain

	contrast := p.Contrast * 2.55
	contrastFactor := (259 * (contrast + 255)) / (255 * (259 - contrast))

	blackPoint := -p.Blacks * 0.002
	whitePoint := 1 - p.Whites*0.002

	var lut ToneLUT
	for i := 0; i < 256; i++ {
		val := float64(i) / 255

		val *= exposureGain
		val = (val-0.5)*contrastFactor + 0.5

		if whitePoint != blackPoint {
			val = (val - blackPoint) / (whitePoint - blackPoint)
		}

		// Parabolic weights concentrate each slider in its own tonal
		// region and vanish at the opposite extreme.
		val += p.Shadows * 0.005 * (1 - val) * (1 - val) * val * 4
		val += p.Highlights * 0.005 * val * val * (1 - val) * 4

		lut[i] = fmath.ClampToByte(val * 255)
	}
	return lut
}
