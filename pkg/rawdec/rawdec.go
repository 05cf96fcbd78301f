// Package rawdec turns camera RAW files into pixel buffers, thumbnails
// and metadata, over whichever decode backend the host machine offers.
// The backend chain (LibRaw CLIs, then dcraw, then nothing) is probed
// once when the Decoder is built and is immutable afterwards; tests and
// callers can inject their own backend instead.
package rawdec

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codahale/hdrhistogram"

	"github.com/filmgallery/filmdev/pkg/codec"
	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// Membership is by extension, not content sniffing.
var rawExtensions = map[string]bool{
	".3fr": true, ".arw": true, ".cr2": true, ".cr3": true, ".crw": true,
	".dcr": true, ".dng": true, ".erf": true, ".fff": true, ".iiq": true,
	".kdc": true, ".mef": true, ".mos": true, ".mrw": true, ".nef": true,
	".nrw": true, ".orf": true, ".pef": true, ".raf": true, ".raw": true,
	".rw2": true, ".sr2": true, ".srf": true, ".srw": true, ".x3f": true,
}

// IsRawFile reports whether the filename looks like a RAW container.
func IsRawFile(name string) bool {
	return rawExtensions[strings.ToLower(filepath.Ext(name))]
}

// A Decoder fronts the active backend. Safe for concurrent use: the
// backend choice is read-only and every decode is an independent
// session.
type Decoder struct {
	backend Backend // nil when no backend could be probed
	version Version
}

// New probes the backend chain and fixes the choice for the process
// lifetime.
func New() *Decoder {
	for _, b := range []Backend{newLibRawBackend(), newDcrawBackend()} {
		if b.Available() {
			log.Printf("RAW decoder: using %s backend", b.Name())
			return NewWithBackend(b)
		}
		log.Printf("RAW decoder: %s backend not available", b.Name())
	}

	log.Printf("RAW decoder: no backend available, metadata-only mode")
	return &Decoder{version: Version{Decoder: "none", Source: KindUnavailable}}
}

// NewWithBackend builds a Decoder over an explicit backend.
func NewWithBackend(b Backend) *Decoder {
	return &Decoder{backend: b, version: b.Version(context.Background())}
}

func (d *Decoder)IsAvailable() bool { return d.backend != nil }

func (d *Decoder)GetVersion() Version { return d.version }

func (d *Decoder)IsRawFile(name string) bool { return IsRawFile(name) }

func (d *Decoder)SupportedFormats() []string {
	formats := make([]string, 0, len(rawExtensions))
	for ext := range rawExtensions {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

// DecodeFrame runs a full decode and hands back the pixel buffer.
func (d *Decoder)DecodeFrame(ctx context.Context, path string, opts DecodeOptions, progress ProgressFunc) (*pipeline.Frame, error) {
	if !IsRawFile(path) {
		return nil, fmt.Errorf("unsupported format '%s': not a RAW file", filepath.Ext(path))
	}
	if d.backend == nil {
		return nil, fmt.Errorf("RAW decoder not available")
	}

	proc, err := d.backend.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("RAW decoding failed: %v", err)
	}
	defer closeQuietly(proc)

	frame, err := proc.Process(opts, progress)
	if err != nil {
		return nil, fmt.Errorf("RAW decoding failed: %v", err)
	}
	return frame, nil
}

// Decode runs a full decode and encodes the result: a JPEG buffer at
// opts.JPEGQuality, or a 16-bit LZW TIFF buffer.
func (d *Decoder)Decode(ctx context.Context, path string, opts DecodeOptions, progress ProgressFunc) ([]byte, error) {
	if opts.Format == "tiff" && opts.OutputBps == 0 {
		opts.OutputBps = 16
	}

	frame, err := d.DecodeFrame(ctx, path, opts, progress)
	if err != nil {
		return nil, err
	}

	report(progress, 98, "encoding")

	switch opts.Format {
	case "", "jpeg":
		data, err := codec.EncodeJPEG(frame.To8Bit(), opts.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("RAW decoding failed: %v", err)
		}
		report(progress, 100, "done")
		return data, nil

	case "tiff":
		if frame.BitDepth != 16 {
			frame = widen(frame)
		}
		data, err := codec.EncodeTIFF16(frame)
		if err != nil {
			return nil, fmt.Errorf("RAW decoding failed: %v", err)
		}
		report(progress, 100, "done")
		return data, nil
	}

	return nil, fmt.Errorf("unsupported output format '%s'", opts.Format)
}

// ExtractThumbnail returns the embedded preview, or failing that a
// half-size decode scaled to <= 400px wide at quality 80. It never
// returns an empty buffer without an error.
func (d *Decoder)ExtractThumbnail(ctx context.Context, path string) ([]byte, error) {
	if !IsRawFile(path) {
		return nil, fmt.Errorf("unsupported format '%s': not a RAW file", filepath.Ext(path))
	}
	if d.backend == nil {
		return nil, fmt.Errorf("RAW decoder not available")
	}

	proc, err := d.backend.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("thumbnail '%s': %v", path, err)
	}
	defer closeQuietly(proc)

	if data, err := proc.Thumbnail(); err == nil && len(data) > 0 {
		return data, nil
	} else if err != nil {
		log.Printf("No embedded thumbnail in %s (%v), decoding instead", path, err)
	}

	opts := DefaultDecodeOptions()
	opts.HalfSize = true
	frame, err := proc.Process(opts, nil)
	if err != nil {
		return nil, fmt.Errorf("thumbnail decode '%s': %v", path, err)
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("thumbnail '%s': %v", path, err)
	}
	data, err := codec.ScaleJPEG(img, 400, 80)
	if err != nil {
		return nil, fmt.Errorf("thumbnail '%s': %v", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("thumbnail '%s': empty encode", path)
	}
	return data, nil
}

// GetMetadata reads shooting metadata from the native backend, falling
// back to a plain EXIF parse of the same file on any failure.
func (d *Decoder)GetMetadata(ctx context.Context, path string) (Metadata, error) {
	if d.backend != nil {
		md, err := d.backend.Metadata(ctx, path)
		if err == nil {
			return md, nil
		}
		log.Printf("Backend metadata for %s failed (%v), trying EXIF", path, err)
	}

	md, err := exifMetadata(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata '%s': %v", path, err)
	}
	return md, nil
}

// A BatchFile names one input of a batch decode.
type BatchFile struct {
	ID   string
	Path string
}

// A BatchResult is the per-file outcome; one failure never aborts the
// siblings.
type BatchResult struct {
	ID      string
	Success bool
	Data    []byte
	Err     error
}

// BatchDecode decodes a file list sequentially — parallel RAW decodes
// chew through backend resources and memory, so breadth comes from the
// caller's worker pool, not from here. Cancellation is cooperative at
// file granularity: a dead ctx fails the remaining files but keeps
// their result entries.
func (d *Decoder)BatchDecode(ctx context.Context, files []BatchFile, opts DecodeOptions, progress ProgressFunc) []BatchResult {
	results := make([]BatchResult, 0, len(files))
	timings := hdrhistogram.New(1, 10*60*1000, 3) // ms

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			results = append(results, BatchResult{ID: f.ID, Err: fmt.Errorf("batch cancelled: %v", err)})
			continue
		}

		start := time.Now()
		data, err := d.Decode(ctx, f.Path, opts, nil)
		if err != nil {
			log.Printf("Batch decode %s failed: %v", f.Path, err)
			results = append(results, BatchResult{ID: f.ID, Err: err})
		} else {
			results = append(results, BatchResult{ID: f.ID, Success: true, Data: data})
			timings.RecordValue(time.Since(start).Milliseconds())
		}

		report(progress, (i+1)*100/len(files), fmt.Sprintf("decoded %d/%d", i+1, len(files)))
	}

	if timings.TotalCount() > 0 {
		log.Printf("Batch decode timings: p50=%dms p99=%dms over %d files",
			timings.ValueAtQuantile(50), timings.ValueAtQuantile(99), timings.TotalCount())
	}
	return results
}

// widen bit-replicates an 8-bit frame up to 16 bits for TIFF encoding.
func widen(f *pipeline.Frame) *pipeline.Frame {
	out := pipeline.NewFrame16(f.Width, f.Height, f.Channels)
	for i, v := range f.Pix {
		out.Pix16[i] = uint16(v)<<8 | uint16(v)
	}
	return out
}

// Close failures are best-effort by the time we get here: either the
// result is already in hand or the request already failed.
func closeQuietly(p Processor) {
	if err := p.Close(); err != nil {
		log.Printf("Processor close: %v", err)
	}
}
