// Package codec is the bridge between graded pixel buffers and encoded
// image files: JPEG for the 8-bit path, LZW TIFF for the 16-bit path,
// plus small JPEG thumbnails.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"

	"github.com/nfnt/resize"
	"golang.org/x/image/tiff"

	"github.com/filmgallery/filmdev/pkg/pipeline"
)

const (
	DefaultJPEGQuality = 95
	ThumbJPEGQuality   = 40
	ThumbMaxDim        = 240
)

// EncodeJPEG encodes a packed 3-channel 8-bit frame. quality <= 0 means
// the default export quality.
func EncodeJPEG(f *pipeline.Frame, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	img, err := f.ToImage()
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %v", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %v", err)
	}
	return buf.Bytes(), nil
}

// EncodeTIFF16 encodes a packed 3-channel 16-bit frame with LZW
// compression.
func EncodeTIFF16(f *pipeline.Frame) ([]byte, error) {
	if f.BitDepth != 16 {
		return nil, fmt.Errorf("tiff encode: frame is %d-bit, want 16", f.BitDepth)
	}

	img, err := f.ToImage()
	if err != nil {
		return nil, fmt.Errorf("tiff encode: %v", err)
	}

	var buf bytes.Buffer
	opts := &tiff.Options{Compression: tiff.LZW, Predictor: true}
	if err := tiff.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("tiff encode: %v", err)
	}
	return buf.Bytes(), nil
}

// EncodeThumbnail scales the frame to fit inside ThumbMaxDim on its
// longest side and encodes a low-quality JPEG.
func EncodeThumbnail(f *pipeline.Frame) ([]byte, error) {
	img, err := f.ToImage()
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %v", err)
	}

	small := resize.Thumbnail(ThumbMaxDim, ThumbMaxDim, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: ThumbJPEGQuality}); err != nil {
		return nil, fmt.Errorf("thumbnail: %v", err)
	}
	return buf.Bytes(), nil
}

// ScaleJPEG re-encodes an image to a width cap at the given quality;
// used for the RAW thumbnail fallback path.
func ScaleJPEG(img image.Image, maxWidth uint, quality int) ([]byte, error) {
	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("scale jpeg: %v", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes an encoded buffer, logging in passing. Callers pick
// deterministic names so re-exports overwrite instead of piling up.
func WriteFile(filename string, data []byte) error {
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	log.Printf("Wrote %s (%d bytes)", filename, len(data))
	return nil
}
