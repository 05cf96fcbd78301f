package grade

import (
	"fmt"
	"io/ioutil"
	"log"
	"sort"

	"gopkg.in/yaml.v2"
)

const (
	InversionLinear = "linear"
	InversionLog    = "log"
)

// A CurvePoint is one control point of a channel tone curve, with both
// coordinates in [0, 255].
type CurvePoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Curves holds the per-channel control points. RGB applies to all three
// channels; Red/Green/Blue apply to their own channel afterwards.
type Curves struct {
	RGB   []CurvePoint `yaml:"rgb,omitempty"`
	Red   []CurvePoint `yaml:"red,omitempty"`
	Green []CurvePoint `yaml:"green,omitempty"`
	Blue  []CurvePoint `yaml:"blue,omitempty"`
}

// Params is everything a grading request carries. All the slider values
// are nominally in [-100, 100]; the channel gains are straight
// multipliers defaulting to 1.0.
type Params struct {
	Exposure   float64 `yaml:"exposure"`
	Contrast   float64 `yaml:"contrast"`
	Highlights float64 `yaml:"highlights"`
	Shadows    float64 `yaml:"shadows"`
	Whites     float64 `yaml:"whites"`
	Blacks     float64 `yaml:"blacks"`

	Temp float64 `yaml:"temp"`
	Tint float64 `yaml:"tint"`

	Red   float64 `yaml:"red"`
	Green float64 `yaml:"green"`
	Blue  float64 `yaml:"blue"`

	Inverted      bool   `yaml:"inverted"`
	InversionMode string `yaml:"inversionmode"`

	Rotation    float64   `yaml:"rotation"`    // arbitrary degrees
	Orientation int       `yaml:"orientation"` // multiple of 90
	Crop        *CropRect `yaml:"crop,omitempty"`

	Curves Curves `yaml:"curves"`
}

type CropRect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

func IdentityCurve() []CurvePoint {
	return []CurvePoint{{0, 0}, {255, 255}}
}

func NewParams() Params {
	return Params{
		Red:           1.0,
		Green:         1.0,
		Blue:          1.0,
		InversionMode: InversionLinear,
		Curves: Curves{
			RGB:   IdentityCurve(),
			Red:   IdentityCurve(),
			Green: IdentityCurve(),
			Blue:  IdentityCurve(),
		},
	}
}

// NeedsLogInversion is the single condition under which the pixel
// pipeline performs inversion and white balance itself. In linear mode
// both are done upstream by the base transform; get this wrong and
// white balance is double-applied or skipped.
func (p Params)NeedsLogInversion() bool {
	return p.Inverted && p.InversionMode == InversionLog
}

// Validate rejects out-of-range sliders and malformed curves before
// any LUT gets built from them.
func (p Params)Validate() error {
	sliders := map[string]float64{
		"exposure": p.Exposure, "contrast": p.Contrast,
		"highlights": p.Highlights, "shadows": p.Shadows,
		"whites": p.Whites, "blacks": p.Blacks,
		"temp": p.Temp, "tint": p.Tint,
	}
	for name, v := range sliders {
		if v < -100 || v > 100 {
			return fmt.Errorf("param %s = %v out of range [-100, 100]", name, v)
		}
	}

	for name, g := range map[string]float64{"red": p.Red, "green": p.Green, "blue": p.Blue} {
		if g <= 0 {
			return fmt.Errorf("channel gain %s = %v must be positive", name, g)
		}
	}

	if p.InversionMode != InversionLinear && p.InversionMode != InversionLog {
		return fmt.Errorf("unknown inversion mode '%s'", p.InversionMode)
	}

	if c := p.Crop; c != nil && (c.W < 0 || c.H < 0) {
		return fmt.Errorf("crop %dx%d has negative extent", c.W, c.H)
	}

	for name, pts := range map[string][]CurvePoint{
		"rgb": p.Curves.RGB, "red": p.Curves.Red,
		"green": p.Curves.Green, "blue": p.Curves.Blue,
	} {
		for _, pt := range pts {
			if pt.X < 0 || pt.X > 255 || pt.Y < 0 || pt.Y > 255 {
				return fmt.Errorf("curve %s point (%v,%v) out of range [0, 255]", name, pt.X, pt.Y)
			}
		}
	}
	return nil
}

func LoadParams(filename string) (Params, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Params{}, fmt.Errorf("params read %s: %v", filename, err)
	}

	p := NewParams()
	if err := yaml.Unmarshal(contents, &p); err != nil {
		return Params{}, fmt.Errorf("params yaml %s: %v", filename, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("params %s: %v", filename, err)
	}
	return p, nil
}

func (p Params)AsYaml() string {
	b, err := yaml.Marshal(p)
	if err != nil {
		log.Fatalf("Can't marshal params yaml: %v\n", err)
	}
	return string(b)
}

// normalizePoints sorts by x and drops duplicate abscissas (the first
// occurrence wins). Spline fitting needs strictly increasing xs.
func normalizePoints(points []CurvePoint) []CurvePoint {
	out := make([]CurvePoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })

	dedup := out[:0]
	for _, pt := range out {
		if len(dedup) > 0 && pt.X == dedup[len(dedup)-1].X {
			continue
		}
		dedup = append(dedup, pt)
	}
	return dedup
}
