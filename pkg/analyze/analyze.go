// Package analyze computes per-frame statistics used to sanity-check a
// scan and to seed grading suggestions: channel histograms, an average
// color cast in Lab, and black/white point estimates.
package analyze

import (
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/skypies/util/histogram"
	"gonum.org/v1/gonum/stat"

	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// Stats for one frame. The histograms have one bucket per byte value.
type Stats struct {
	Hist [3]histogram.Histogram // R, G, B

	// Average color in Lab. A/B far from zero means a cast: positive A
	// leans magenta, positive B leans yellow.
	MeanL, MeanA, MeanB float64

	// Luminance quantiles, usable as auto black/white points.
	BlackPoint uint8 // 1st percentile
	WhitePoint uint8 // 99th percentile
}

// Frame walks the first three channels of an 8-bit frame. Large frames
// are sampled rather than walked exhaustively; the stats are seeds for
// sliders, not science.
func Frame(f *pipeline.Frame) Stats {
	s := Stats{}
	for c := 0; c < 3; c++ {
		s.Hist[c] = histogram.Histogram{NumBuckets: 256, ValMin: 0, ValMax: 256}
	}

	src := f.To8Bit()
	stride := src.Channels

	// Cap the walk at ~1M pixels.
	step := 1
	if n := src.Width * src.Height; n > 1<<20 {
		step = n/(1<<20) + 1
	}

	var lums []float64
	var sumL, sumA, sumB float64
	count := 0

	for i := 0; i+2 < len(src.Pix); i += stride * step {
		r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]

		s.Hist[0].Add(histogram.ScalarVal(int(r)))
		s.Hist[1].Add(histogram.ScalarVal(int(g)))
		s.Hist[2].Add(histogram.ScalarVal(int(b)))

		col := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		l, a, bb := col.Lab()
		sumL += l
		sumA += a
		sumB += bb

		// Rec.601 luma is plenty for level estimation
		lums = append(lums, 0.299*float64(r)+0.587*float64(g)+0.114*float64(b))
		count++
	}

	if count == 0 {
		return s
	}

	s.MeanL = sumL / float64(count)
	s.MeanA = sumA / float64(count)
	s.MeanB = sumB / float64(count)

	sort.Float64s(lums)
	s.BlackPoint = clampByte(stat.Quantile(0.01, stat.Empirical, lums, nil))
	s.WhitePoint = clampByte(stat.Quantile(0.99, stat.Empirical, lums, nil))

	return s
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
