package rawdec

import (
	"context"

	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// Kind says which rung of the backend chain is active. It is decided
// once at process start and never changes.
type Kind string

const (
	KindNative      Kind = "native"   // LibRaw CLI family
	KindFallback    Kind = "fallback" // plain dcraw
	KindUnavailable Kind = "unavailable"
)

// Version describes the active backend.
type Version struct {
	Decoder       string
	Version       string
	LibRawVersion string
	CameraCount   int
	Source        Kind
}

// DecodeOptions configure a decode. Only the native backend honours
// the knobs; the fallback runs a fixed conversion.
type DecodeOptions struct {
	HalfSize        bool
	CameraWB        bool // as-shot white balance
	AutoWB          bool
	DemosaicQuality int // -1 leaves the backend default; else 0=linear 1=VNG 2=PPG 3=AHD 11=DHT 12=AAHD
	OutputBps       int // 8 or 16; 0 means 8

	Format      string // "jpeg" or "tiff"
	JPEGQuality int
}

func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		CameraWB:        true,
		DemosaicQuality: -1,
		OutputBps:       8,
		Format:          "jpeg",
	}
}

// A ProgressFunc receives advisory progress with a human-readable
// stage label. Percentages only ever go up. Never required for
// correctness; may be nil.
type ProgressFunc func(percent int, stage string)

func report(progress ProgressFunc, percent int, stage string) {
	if progress != nil {
		progress(percent, stage)
	}
}

// A Processor is one decode session over a single file. Close must
// always run, on error paths too: the exec backends hold scratch
// directories the way the native library held native memory.
type Processor interface {
	Process(opts DecodeOptions, progress ProgressFunc) (*pipeline.Frame, error)
	Thumbnail() ([]byte, error)
	Close() error
}

// A Backend is one rung of the decode chain. Implementations are
// stateless apart from probed tool paths, so one value serves all
// requests for the process lifetime.
type Backend interface {
	Name() string
	Kind() Kind
	Available() bool
	Version(ctx context.Context) Version
	Open(ctx context.Context, path string) (Processor, error)
	Metadata(ctx context.Context, path string) (Metadata, error)
}
