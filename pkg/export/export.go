// Package export orchestrates a full development pass: source file in,
// graded JPEG (and optionally 16-bit TIFF) out, with a thumbnail on the
// side. Output names are deterministic per roll and frame so that
// re-exporting a regrade overwrites the previous files.
package export

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/filmgallery/filmdev/pkg/basetran"
	"github.com/filmgallery/filmdev/pkg/codec"
	"github.com/filmgallery/filmdev/pkg/cube"
	"github.com/filmgallery/filmdev/pkg/grade"
	"github.com/filmgallery/filmdev/pkg/pipeline"
	"github.com/filmgallery/filmdev/pkg/rawdec"
)

// A Request describes one frame to develop.
type Request struct {
	SourcePath string
	Roll       string // e.g. "2024-03-portra400"
	Frame      string // e.g. "017"

	Params grade.Params

	OutDir      string
	JPEGQuality int  // <= 0 means codec.DefaultJPEGQuality
	TIFF        bool // also write a 16-bit TIFF
	MaxWidth    int  // 0 keeps the native size

	// Optional look LUT applied after grading.
	Cube *cube.LUT
}

// A Result lists what was written.
type Result struct {
	JPEGPath  string
	TIFFPath  string
	ThumbPath string
}

func (r Request)baseName() string {
	return fmt.Sprintf("%s-%s", r.Roll, r.Frame)
}

// Export develops one frame end to end. The thumbnail is best-effort:
// its failure is logged but never fails the export.
func Export(ctx context.Context, dec *rawdec.Decoder, req Request) (*Result, error) {
	base, err := loadBase(ctx, dec, req)
	if err != nil {
		return nil, err
	}

	graded, err := pipeline.Run(base, req.Params)
	if err != nil {
		return nil, fmt.Errorf("export '%s': %v", req.SourcePath, err)
	}
	if req.Cube != nil {
		req.Cube.ApplyToFrame(graded)
	}

	res := &Result{}

	data, err := codec.EncodeJPEG(graded, req.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("export '%s': %v", req.SourcePath, err)
	}
	res.JPEGPath = filepath.Join(req.OutDir, req.baseName()+".jpg")
	if err := codec.WriteFile(res.JPEGPath, data); err != nil {
		return nil, err
	}

	if thumb, err := codec.EncodeThumbnail(graded); err != nil {
		log.Printf("Thumbnail for %s failed: %v", req.SourcePath, err)
	} else {
		path := filepath.Join(req.OutDir, req.baseName()+"-thumb.jpg")
		if err := codec.WriteFile(path, thumb); err != nil {
			log.Printf("Thumbnail for %s failed: %v", req.SourcePath, err)
		} else {
			res.ThumbPath = path
		}
	}

	if req.TIFF {
		deep, err := pipeline.Run16(base, req.Params)
		if err != nil {
			return nil, fmt.Errorf("export '%s': %v", req.SourcePath, err)
		}
		data, err := codec.EncodeTIFF16(deep)
		if err != nil {
			return nil, fmt.Errorf("export '%s': %v", req.SourcePath, err)
		}
		res.TIFFPath = filepath.Join(req.OutDir, req.baseName()+".tif")
		if err := codec.WriteFile(res.TIFFPath, data); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// loadBase gets the geometry-corrected frame: RAW files go through the
// decoder and then the base transform, everything else through the
// image loader.
func loadBase(ctx context.Context, dec *rawdec.Decoder, req Request) (*pipeline.Frame, error) {
	if !rawdec.IsRawFile(req.SourcePath) {
		return basetran.Load(req.SourcePath, req.Params, req.MaxWidth)
	}

	if dec == nil {
		return nil, fmt.Errorf("export '%s': no RAW decoder", req.SourcePath)
	}
	frame, err := dec.DecodeFrame(ctx, req.SourcePath, rawdec.DefaultDecodeOptions(), nil)
	if err != nil {
		return nil, fmt.Errorf("export '%s': %v", req.SourcePath, err)
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("export '%s': %v", req.SourcePath, err)
	}
	return basetran.Transform(img, req.Params, req.MaxWidth), nil
}
