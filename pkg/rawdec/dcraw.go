package rawdec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"golang.org/x/image/tiff"

	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// The fallback backend is classic dcraw. It streams everything over
// stdout (-c), needs no scratch files, and exposes none of the decode
// knobs: camera white balance, 8-bit sRGB TIFF, take it or leave it.
type dcrawBackend struct {
	path string
}

var dcrawVersionRe = regexp.MustCompile(`dcraw"? v([0-9][0-9.]*)`)

func newDcrawBackend() *dcrawBackend {
	b := &dcrawBackend{}
	b.path, _ = exec.LookPath("dcraw")
	return b
}

func (b *dcrawBackend)Name() string    { return "dcraw" }
func (b *dcrawBackend)Kind() Kind      { return KindFallback }
func (b *dcrawBackend)Available() bool { return b.path != "" }

func (b *dcrawBackend)Version(ctx context.Context) Version {
	v := Version{Decoder: b.Name(), Source: b.Kind()}
	out, _ := exec.CommandContext(ctx, b.path).CombinedOutput()
	if m := dcrawVersionRe.FindSubmatch(out); m != nil {
		v.Version = string(m[1])
	}
	return v
}

func (b *dcrawBackend)Open(ctx context.Context, path string) (Processor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open '%s': %v", path, err)
	}
	return &dcrawProcessor{backend: b, ctx: ctx, path: path}, nil
}

type dcrawProcessor struct {
	backend *dcrawBackend
	ctx     context.Context
	path    string
}

func (p *dcrawProcessor)Process(opts DecodeOptions, progress ProgressFunc) (*pipeline.Frame, error) {
	report(progress, 10, "loading RAW data")

	// Fixed conversion; the half-size/WB/quality/bps knobs are a
	// native-backend feature.
	cmd := exec.CommandContext(p.ctx, p.backend.path, "-c", "-T", "-w", "-W", p.path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	report(progress, 30, "demosaic processing")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("dcraw: %v (%s)", err, firstLine(stderr.Bytes()))
	}

	report(progress, 75, "reading decoded image")
	img, err := tiff.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decoded tiff: %v", err)
	}

	report(progress, 95, "decoded")
	return pipeline.FromImage(img), nil
}

func (p *dcrawProcessor)Thumbnail() ([]byte, error) {
	out, err := exec.CommandContext(p.ctx, p.backend.path, "-c", "-e", p.path).Output()
	if err != nil {
		return nil, fmt.Errorf("dcraw -e '%s': %v", p.path, err)
	}

	// Some cameras embed PPM previews; callers want JPEG.
	if len(out) < 2 || out[0] != 0xFF || out[1] != 0xD8 {
		return nil, fmt.Errorf("embedded thumbnail is not jpeg")
	}
	return out, nil
}

// Close has nothing to release; dcraw leaves no scratch state. Kept so
// both backends satisfy the same cleanup contract.
func (p *dcrawProcessor)Close() error { return nil }

func (b *dcrawBackend)Metadata(ctx context.Context, path string) (Metadata, error) {
	out, err := exec.CommandContext(ctx, b.path, "-i", "-v", path).Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("dcraw -i '%s': %v", path, err)
	}
	return parseIdentifyOutput(out)
}
