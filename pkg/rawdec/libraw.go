package rawdec

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"golang.org/x/image/tiff"

	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// The primary backend drives the LibRaw sample CLIs: dcraw_emu for the
// demosaic, raw-identify for metadata, simple_dcraw for the embedded
// thumbnail. Probing is a LookPath per tool; dcraw_emu decides
// availability.
type librawBackend struct {
	emuPath      string
	identifyPath string
	simplePath   string
}

var librawVersionRe = regexp.MustCompile(`LibRaw[^0-9]*([0-9][0-9a-z.\-]*)`)
var cameraCountRe = regexp.MustCompile(`([0-9]+) cameras`)

func newLibRawBackend() *librawBackend {
	b := &librawBackend{}
	b.emuPath, _ = exec.LookPath("dcraw_emu")
	b.identifyPath, _ = exec.LookPath("raw-identify")
	b.simplePath, _ = exec.LookPath("simple_dcraw")
	return b
}

func (b *librawBackend)Name() string    { return "libraw" }
func (b *librawBackend)Kind() Kind      { return KindNative }
func (b *librawBackend)Available() bool { return b.emuPath != "" }

func (b *librawBackend)Version(ctx context.Context) Version {
	v := Version{Decoder: b.Name(), Source: b.Kind()}

	// dcraw_emu prints its LibRaw version in the usage banner.
	out, _ := exec.CommandContext(ctx, b.emuPath).CombinedOutput()
	if m := librawVersionRe.FindSubmatch(out); m != nil {
		v.Version = string(m[1])
		v.LibRawVersion = string(m[1])
	}
	if m := cameraCountRe.FindSubmatch(out); m != nil {
		v.CameraCount, _ = strconv.Atoi(string(m[1]))
	}
	return v
}

func (b *librawBackend)Open(ctx context.Context, path string) (Processor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open '%s': %v", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open '%s': %v", path, err)
	}

	// The LibRaw CLIs write their output next to the input, so the
	// session runs against a link inside a scratch dir we own.
	scratch, err := os.MkdirTemp("", "filmdev-libraw-")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %v", err)
	}

	link := filepath.Join(scratch, filepath.Base(abs))
	if err := os.Symlink(abs, link); err != nil {
		// Some filesystems refuse symlinks; fall back to a copy.
		if err := copyFile(abs, link); err != nil {
			os.RemoveAll(scratch)
			return nil, fmt.Errorf("stage '%s': %v", path, err)
		}
	}

	return &librawProcessor{backend: b, ctx: ctx, scratch: scratch, link: link}, nil
}

type librawProcessor struct {
	backend *librawBackend
	ctx     context.Context
	scratch string
	link    string
}

func (p *librawProcessor)Process(opts DecodeOptions, progress ProgressFunc) (*pipeline.Frame, error) {
	report(progress, 10, "loading RAW data")

	args := []string{"-T", "-W", "-g", "2.4", "12.92"}
	if opts.OutputBps == 16 {
		args = append(args, "-6")
	}
	if opts.HalfSize {
		args = append(args, "-h")
	}
	switch {
	case opts.AutoWB:
		args = append(args, "-a")
	case opts.CameraWB:
		args = append(args, "-w")
	}
	if opts.DemosaicQuality >= 0 {
		args = append(args, "-q", strconv.Itoa(opts.DemosaicQuality))
	}
	args = append(args, p.link)

	report(progress, 30, "demosaic processing")
	if out, err := exec.CommandContext(p.ctx, p.backend.emuPath, args...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("dcraw_emu: %v (%s)", err, firstLine(out))
	}

	report(progress, 75, "reading decoded image")
	reader, err := os.Open(p.link + ".tiff")
	if err != nil {
		return nil, fmt.Errorf("decoded tiff: %v", err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decoded tiff: %v", err)
	}

	var frame *pipeline.Frame
	if opts.OutputBps == 16 {
		frame = pipeline.FromImage16(img)
	} else {
		frame = pipeline.FromImage(img)
	}

	report(progress, 95, "decoded")
	return frame, nil
}

func (p *librawProcessor)Thumbnail() ([]byte, error) {
	if p.backend.simplePath == "" {
		return nil, fmt.Errorf("simple_dcraw not installed")
	}

	if out, err := exec.CommandContext(p.ctx, p.backend.simplePath, "-e", p.link).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("simple_dcraw -e: %v (%s)", err, firstLine(out))
	}

	// Embedded previews come out as .thumb.jpg; PPM previews are no use
	// to callers expecting JPEG, so treat them as absent.
	data, err := os.ReadFile(p.link + ".thumb.jpg")
	if err != nil {
		return nil, fmt.Errorf("no embedded jpeg thumbnail: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("embedded thumbnail is empty")
	}
	return data, nil
}

func (p *librawProcessor)Close() error {
	return os.RemoveAll(p.scratch)
}

func (b *librawBackend)Metadata(ctx context.Context, path string) (Metadata, error) {
	if b.identifyPath == "" {
		return Metadata{}, fmt.Errorf("raw-identify not installed")
	}

	out, err := exec.CommandContext(ctx, b.identifyPath, "-v", path).Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("raw-identify '%s': %v", path, err)
	}
	return parseIdentifyOutput(out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
