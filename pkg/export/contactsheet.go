package export

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	"golang.org/x/image/font/basicfont"

	"github.com/filmgallery/filmdev/pkg/codec"
)

const (
	sheetCell    = 260 // cell square, px
	sheetPad     = 12
	sheetCaption = 18
)

// A SheetFrame is one cell of a contact sheet.
type SheetFrame struct {
	Label string // drawn under the thumbnail
	Image image.Image
}

// ContactSheet lays the frames out on a dark grid, columns across, with
// the label under each cell. Classic darkroom contact print, minus the
// darkroom.
func ContactSheet(frames []SheetFrame, columns int) (image.Image, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("contact sheet: no frames")
	}
	if columns < 1 {
		columns = 6
	}
	if columns > len(frames) {
		columns = len(frames)
	}
	rows := (len(frames) + columns - 1) / columns

	cellH := sheetCell + sheetCaption
	width := columns*(sheetCell+sheetPad) + sheetPad
	height := rows*(cellH+sheetPad) + sheetPad

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.08, 0.08, 0.08)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for i, f := range frames {
		col, row := i%columns, i/columns
		x := sheetPad + col*(sheetCell+sheetPad)
		y := sheetPad + row*(cellH+sheetPad)

		thumb := resize.Thumbnail(sheetCell, sheetCell, f.Image, resize.Lanczos3)
		b := thumb.Bounds()

		// Center the thumbnail in its cell.
		dc.DrawImage(thumb, x+(sheetCell-b.Dx())/2, y+(sheetCell-b.Dy())/2)

		if f.Label != "" {
			dc.SetRGB(0.85, 0.85, 0.85)
			dc.DrawStringAnchored(f.Label,
				float64(x)+sheetCell/2, float64(y+sheetCell)+sheetCaption/2, 0.5, 0.5)
		}
	}

	return dc.Image(), nil
}

// WriteContactSheet renders the sheet and writes it as a JPEG.
func WriteContactSheet(filename string, frames []SheetFrame, columns int) error {
	img, err := ContactSheet(frames, columns)
	if err != nil {
		return err
	}
	data, err := codec.ScaleJPEG(img, uint(img.Bounds().Dx()), codec.DefaultJPEGQuality)
	if err != nil {
		return fmt.Errorf("contact sheet: %v", err)
	}
	return codec.WriteFile(filename, data)
}
