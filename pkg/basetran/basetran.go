// Package basetran is the geometry side of the pipeline: it decodes
// common containers (JPEG/TIFF/PNG) and applies the linear operations —
// orientation, rotation, crop, resize, and for linear inversion mode
// the 255-v inversion plus white balance. Log-mode inversion cannot be
// expressed here and stays in the pixel pipeline, along with its
// deferred white balance.
package basetran

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/filmgallery/filmdev/pkg/fmath"
	"github.com/filmgallery/filmdev/pkg/grade"
	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// Load decodes the file (honouring its EXIF orientation tag) and runs
// the geometry transform. maxWidth of 0 keeps the native size.
func Load(path string, p grade.Params, maxWidth int) (*pipeline.Frame, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("base transform open '%s': %v", path, err)
	}
	return Transform(img, p, maxWidth), nil
}

// Transform applies orientation, rotation, crop and resize, then for
// linear mode the inversion and white balance. The returned frame is
// ready for the pixel pipeline.
func Transform(img image.Image, p grade.Params, maxWidth int) *pipeline.Frame {
	switch normalizeOrientation(p.Orientation) {
	case 90:
		img = imaging.Rotate90(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate270(img)
	}

	if p.Rotation != 0 {
		img = imaging.Rotate(img, p.Rotation, color.Black)
	}

	if c := p.Crop; c != nil && c.W > 0 && c.H > 0 {
		img = imaging.Crop(img, image.Rect(c.X, c.Y, c.X+c.W, c.Y+c.H))
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	if p.Inverted && p.InversionMode == grade.InversionLinear {
		img = imaging.Invert(img)
	}

	// White balance belongs here except when the log inversion has to
	// run first, in which case the pixel pipeline owns it.
	if !p.NeedsLogInversion() {
		img = applyWB(img, grade.SolveWBGains(p))
	}

	return pipeline.FromImage(img)
}

func applyWB(img image.Image, wb grade.WBGains) image.Image {
	if wb.R == 1 && wb.G == 1 && wb.B == 1 {
		return img
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = fmath.ClampToByte(float64(c.R) * wb.R)
		c.G = fmath.ClampToByte(float64(c.G) * wb.G)
		c.B = fmath.ClampToByte(float64(c.B) * wb.B)
		return c
	})
}

func normalizeOrientation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
