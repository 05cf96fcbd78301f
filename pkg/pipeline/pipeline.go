package pipeline

import (
	"fmt"
	"math"
	"runtime"

	"github.com/filmgallery/filmdev/pkg/fmath"
	"github.com/filmgallery/filmdev/pkg/grade"
)

var invLn256 = 1 / math.Log(256)

// Run grades an already geometry-transformed frame into a packed
// 3-channel 8-bit frame of the same size.
//
// Geometry, and for linear inversion mode the 255-v inversion plus
// white balance, happen upstream in basetran. This loop only does the
// log-mode inversion (which can't be folded into the linear upstream
// path) with its deferred white balance, then tone and curve grading.
// Alpha or extra source channels are dropped from the output.
func Run(src *Frame, p grade.Params) (*Frame, error) {
	if src.BitDepth != 8 {
		src = src.To8Bit()
	}
	if src.Channels < 3 {
		return nil, fmt.Errorf("pipeline needs >= 3 channels, got %d", src.Channels)
	}

	tone := grade.BuildToneLUT(p)
	rgbLUT, redLUT, greenLUT, blueLUT := grade.BuildCurveLUTs(p.Curves)
	chanLUTs := [3]*grade.CurveLUT{&redLUT, &greenLUT, &blueLUT}

	logInvert := p.NeedsLogInversion()
	var gains [3]float64
	if logInvert {
		wb := grade.SolveWBGains(p)
		gains = [3]float64{wb.R, wb.G, wb.B}
	}

	out := NewFrame(src.Width, src.Height, 3)

	gradeRow := func(y int) {
		si := y * src.Width * src.Channels
		di := y * src.Width * 3
		for x := 0; x < src.Width; x++ {
			for c := 0; c < 3; c++ {
				v := src.Pix[si+c]

				if logInvert {
					// Logarithmic negative-to-positive flip,
					// approximating film density response; white
					// balance has to wait until after it.
					fv := 255 * (1 - math.Log(float64(v)+1)*invLn256)
					fv *= gains[c]
					v = fmath.ClampToByte(fv)
				}

				v = tone[v]
				v = rgbLUT[v]
				v = chanLUTs[c][v]

				out.Pix[di+c] = v
			}
			si += src.Channels
			di += 3
		}
	}

	parallelRows(src.Height, gradeRow)
	return out, nil
}

// Run16 produces the 16-bit buffer for TIFF export. It runs the
// identical 8-bit pipeline and bit-replicates each byte into 16 bits.
// Precision is not actually improved over the 8-bit path; this is kept
// for bit-compatibility with existing exports.
func Run16(src *Frame, p grade.Params) (*Frame, error) {
	f8, err := Run(src, p)
	if err != nil {
		return nil, err
	}

	out := NewFrame16(f8.Width, f8.Height, 3)
	for i, v := range f8.Pix {
		out.Pix16[i] = uint16(v)<<8 | uint16(v)
	}
	return out, nil
}

// parallelRows runs fn over every row with bounded concurrency, one
// worker slot per CPU. Rows are independent so no locking is needed.
func parallelRows(height int, fn func(y int)) {
	workers := runtime.NumCPU()
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		for y := 0; y < height; y++ {
			fn(y)
		}
		return
	}

	sem := make(chan bool, workers)
	batch := (height + workers*4 - 1) / (workers * 4)
	if batch < 1 {
		batch = 1
	}

	for lo := 0; lo < height; lo += batch {
		hi := lo + batch
		if hi > height {
			hi = height
		}

		sem <- true
		go func(lo, hi int) {
			for y := lo; y < hi; y++ {
				fn(y)
			}
			<-sem
		}(lo, hi)
	}

	for i := 0; i < cap(sem); i++ { // wait for workers to finish
		sem <- true
	}
}
