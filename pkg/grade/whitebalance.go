package grade

import (
	"github.com/filmgallery/filmdev/pkg/fmath"
)

// Gain clamp bounds. Shared by every invoker of SolveWBGains; client
// preview and server export must agree pixel-for-pixel.
const (
	MinWBGain = 0.05
	MaxWBGain = 50.0
)

// WBGains are the three per-channel white balance multipliers.
type WBGains struct {
	R, G, B float64
}

// SolveWBGains turns the base channel gains plus the temp/tint sliders
// into clamped multipliers. Positive temp warms the image (more red,
// less blue); positive tint pushes toward magenta (more red and blue,
// less green).
func SolveWBGains(p Params) WBGains {
	t := p.Temp / 100
	n := p.Tint / 100

	return WBGains{
		R: fmath.Clamp(p.Red*(1+t*0.5+n*0.3), MinWBGain, MaxWBGain),
		G: fmath.Clamp(p.Green*(1-n*0.5), MinWBGain, MaxWBGain),
		B: fmath.Clamp(p.Blue*(1-t*0.5+n*0.3), MinWBGain, MaxWBGain),
	}
}
