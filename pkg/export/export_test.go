package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/filmgallery/filmdev/pkg/grade"
)

func writeTestJPEG(t *testing.T, dir, name string, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExportJPEGAndThumb(t *testing.T) {
	dir := t.TempDir()
	src := writeTestJPEG(t, dir, "scan.jpg", 64, 48, color.NRGBA{180, 120, 90, 255})

	res, err := Export(context.Background(), nil, Request{
		SourcePath: src,
		Roll:       "roll01",
		Frame:      "007",
		Params:     grade.NewParams(),
		OutDir:     dir,
	})
	if err != nil {
		t.Fatal(err)
	}

	if filepath.Base(res.JPEGPath) != "roll01-007.jpg" {
		t.Errorf("jpeg name = %s", filepath.Base(res.JPEGPath))
	}
	if filepath.Base(res.ThumbPath) != "roll01-007-thumb.jpg" {
		t.Errorf("thumb name = %s", filepath.Base(res.ThumbPath))
	}

	for _, p := range []string{res.JPEGPath, res.ThumbPath} {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Errorf("missing or empty output %s: %v", p, err)
		}
	}
	if res.TIFFPath != "" {
		t.Errorf("unexpected TIFF output %s", res.TIFFPath)
	}
}

func TestExportTIFF(t *testing.T) {
	dir := t.TempDir()
	src := writeTestJPEG(t, dir, "scan.jpg", 32, 32, color.NRGBA{100, 100, 100, 255})

	res, err := Export(context.Background(), nil, Request{
		SourcePath: src,
		Roll:       "r",
		Frame:      "1",
		Params:     grade.NewParams(),
		OutDir:     dir,
		TIFF:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(res.TIFFPath) != "r-1.tif" {
		t.Errorf("tiff name = %s", filepath.Base(res.TIFFPath))
	}
	if fi, err := os.Stat(res.TIFFPath); err != nil || fi.Size() == 0 {
		t.Errorf("missing or empty TIFF: %v", err)
	}
}

func TestExportRawWithoutDecoder(t *testing.T) {
	_, err := Export(context.Background(), nil, Request{
		SourcePath: "frame.nef",
		Roll:       "r",
		Frame:      "1",
		Params:     grade.NewParams(),
		OutDir:     t.TempDir(),
	})
	if err == nil {
		t.Error("expected error for RAW source with no decoder")
	}
}

func TestContactSheetLayout(t *testing.T) {
	cell := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	frames := []SheetFrame{
		{Label: "001", Image: cell},
		{Label: "002", Image: cell},
		{Label: "003", Image: cell},
	}

	img, err := ContactSheet(frames, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Two columns, two rows.
	wantW := 2*(sheetCell+sheetPad) + sheetPad
	wantH := 2*(sheetCell+sheetCaption+sheetPad) + sheetPad
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Errorf("sheet is %v, want %dx%d", img.Bounds().Size(), wantW, wantH)
	}
}

func TestContactSheetEmpty(t *testing.T) {
	if _, err := ContactSheet(nil, 4); err == nil {
		t.Error("expected error for empty sheet")
	}
}
