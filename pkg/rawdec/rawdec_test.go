package rawdec

import (
	"context"
	"fmt"
	"testing"

	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// fakeBackend scripts backend behavior so the decoder surface can be
// tested without any native tooling installed.
type fakeBackend struct {
	opens      int
	processErr map[string]error // by path
	thumbErr   error
	thumbData  []byte
	metaErr    error
	closed     int
}

func (b *fakeBackend)Name() string    { return "fake" }
func (b *fakeBackend)Kind() Kind      { return KindNative }
func (b *fakeBackend)Available() bool { return true }

func (b *fakeBackend)Version(ctx context.Context) Version {
	return Version{Decoder: "fake", Version: "1.0", LibRawVersion: "0.21.0", CameraCount: 1234, Source: KindNative}
}

func (b *fakeBackend)Open(ctx context.Context, path string) (Processor, error) {
	b.opens++
	return &fakeProcessor{backend: b, path: path}, nil
}

func (b *fakeBackend)Metadata(ctx context.Context, path string) (Metadata, error) {
	if b.metaErr != nil {
		return Metadata{}, b.metaErr
	}
	return Metadata{Camera: "Fake FX-1", Make: "Fake", ISO: 200}, nil
}

type fakeProcessor struct {
	backend *fakeBackend
	path    string
}

func (p *fakeProcessor)Process(opts DecodeOptions, progress ProgressFunc) (*pipeline.Frame, error) {
	if err := p.backend.processErr[p.path]; err != nil {
		return nil, err
	}
	report(progress, 50, "demosaic processing")

	w, h := 64, 48
	if opts.HalfSize {
		w, h = 32, 24
	}
	f := pipeline.NewFrame(w, h, 3)
	for i := range f.Pix {
		f.Pix[i] = 120
	}
	if opts.OutputBps == 16 {
		f16 := pipeline.NewFrame16(w, h, 3)
		for i := range f16.Pix16 {
			f16.Pix16[i] = 120<<8 | 120
		}
		return f16, nil
	}
	return f, nil
}

func (p *fakeProcessor)Thumbnail() ([]byte, error) {
	if p.backend.thumbErr != nil {
		return nil, p.backend.thumbErr
	}
	return p.backend.thumbData, nil
}

func (p *fakeProcessor)Close() error {
	p.backend.closed++
	return nil
}

func TestIsRawFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"roll1/frame03.NEF", true},
		{"scan.cr2", true},
		{"scan.CR3", true},
		{"scan.dng", true},
		{"scan.jpg", false},
		{"scan.tif", false},
		{"noext", false},
		{"archive.nef.zip", false},
	}
	for _, c := range cases {
		if got := IsRawFile(c.name); got != c.want {
			t.Errorf("IsRawFile(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDecodeRejectsNonRawWithoutBackendCall(t *testing.T) {
	b := &fakeBackend{}
	d := NewWithBackend(b)

	_, err := d.Decode(context.Background(), "scan.jpg", DefaultDecodeOptions(), nil)
	if err == nil {
		t.Fatal("expected unsupported format error")
	}
	if b.opens != 0 {
		t.Errorf("backend was invoked %d times for a non-RAW file", b.opens)
	}
}

func TestDecodeUnavailable(t *testing.T) {
	d := &Decoder{version: Version{Decoder: "none", Source: KindUnavailable}}
	if d.IsAvailable() {
		t.Fatal("decoder claims availability with no backend")
	}
	if _, err := d.Decode(context.Background(), "scan.nef", DefaultDecodeOptions(), nil); err == nil {
		t.Fatal("expected not-available error")
	}
}

func TestDecodeClosesProcessor(t *testing.T) {
	b := &fakeBackend{processErr: map[string]error{"bad.nef": fmt.Errorf("corrupt")}}
	d := NewWithBackend(b)

	if _, err := d.Decode(context.Background(), "good.nef", DefaultDecodeOptions(), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Decode(context.Background(), "bad.nef", DefaultDecodeOptions(), nil); err == nil {
		t.Fatal("expected decode failure")
	}
	if b.closed != 2 {
		t.Errorf("processor closed %d times, want 2 (success and error paths)", b.closed)
	}
}

func TestDecodeProgressMonotonic(t *testing.T) {
	d := NewWithBackend(&fakeBackend{})

	last := -1
	_, err := d.Decode(context.Background(), "scan.arw", DefaultDecodeOptions(), func(pct int, stage string) {
		if pct < last {
			t.Errorf("progress went backwards: %d after %d (%s)", pct, last, stage)
		}
		if stage == "" {
			t.Error("empty stage label")
		}
		last = pct
	})
	if err != nil {
		t.Fatal(err)
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestDecodeTIFFIs16Bit(t *testing.T) {
	d := NewWithBackend(&fakeBackend{})
	opts := DefaultDecodeOptions()
	opts.Format = "tiff"
	opts.OutputBps = 0 // must be promoted to 16 for tiff

	data, err := d.Decode(context.Background(), "scan.raf", opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty tiff")
	}
}

func TestExtractThumbnailEmbedded(t *testing.T) {
	d := NewWithBackend(&fakeBackend{thumbData: []byte{0xFF, 0xD8, 0x01, 0x02}})

	data, err := d.ExtractThumbnail(context.Background(), "scan.nef")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4 {
		t.Errorf("wanted the embedded bytes back, got %d bytes", len(data))
	}
}

func TestExtractThumbnailFallsBackToDecode(t *testing.T) {
	d := NewWithBackend(&fakeBackend{thumbErr: fmt.Errorf("no embedded thumbnail")})

	data, err := d.ExtractThumbnail(context.Background(), "scan.nef")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("thumbnail must never be empty without an error")
	}
}

func TestExtractThumbnailNeverSilentlyEmpty(t *testing.T) {
	// An empty embedded thumbnail is treated as absent, not returned.
	d := NewWithBackend(&fakeBackend{thumbData: []byte{}})

	data, err := d.ExtractThumbnail(context.Background(), "scan.nef")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("got an empty thumbnail with no error")
	}
}

func TestGetMetadataFallsBackOnBackendFailure(t *testing.T) {
	b := &fakeBackend{metaErr: fmt.Errorf("native metadata exploded")}
	d := NewWithBackend(b)

	// The EXIF fallback will also fail on a nonexistent file; the point
	// is that the error comes from the fallback path, wrapped.
	_, err := d.GetMetadata(context.Background(), "does-not-exist.nef")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetMetadataNative(t *testing.T) {
	d := NewWithBackend(&fakeBackend{})
	md, err := d.GetMetadata(context.Background(), "scan.nef")
	if err != nil {
		t.Fatal(err)
	}
	if md.Camera != "Fake FX-1" || md.ISO != 200 {
		t.Errorf("unexpected metadata: %+v", md)
	}
}

func TestBatchDecodeIsolatesFailures(t *testing.T) {
	b := &fakeBackend{processErr: map[string]error{"f2.nef": fmt.Errorf("corrupt file")}}
	d := NewWithBackend(b)

	files := []BatchFile{
		{ID: "f1", Path: "f1.nef"},
		{ID: "f2", Path: "f2.nef"},
		{ID: "f3", Path: "f3.nef"},
	}
	results := d.BatchDecode(context.Background(), files, DefaultDecodeOptions(), nil)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		wantOK := r.ID != "f2"
		if r.Success != wantOK {
			t.Errorf("result %d (%s): success=%v, want %v (err=%v)", i, r.ID, r.Success, wantOK, r.Err)
		}
	}
	if results[1].Err == nil {
		t.Error("failed entry carries no error")
	}
}

func TestBatchDecodeProgress(t *testing.T) {
	d := NewWithBackend(&fakeBackend{})
	files := []BatchFile{{"a", "a.nef"}, {"b", "b.nef"}, {"c", "c.nef"}, {"d", "d.nef"}}

	var pcts []int
	d.BatchDecode(context.Background(), files, DefaultDecodeOptions(), func(pct int, stage string) {
		pcts = append(pcts, pct)
	})

	want := []int{25, 50, 75, 100}
	if len(pcts) != len(want) {
		t.Fatalf("got %v progress reports, want %v", pcts, want)
	}
	for i := range want {
		if pcts[i] != want[i] {
			t.Errorf("progress[%d] = %d, want %d", i, pcts[i], want[i])
		}
	}
}

func TestBatchDecodeCancellation(t *testing.T) {
	d := NewWithBackend(&fakeBackend{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := d.BatchDecode(ctx, []BatchFile{{"a", "a.nef"}, {"b", "b.nef"}}, DefaultDecodeOptions(), nil)
	if len(results) != 2 {
		t.Fatalf("cancelled batch still owes one result per file, got %d", len(results))
	}
	for _, r := range results {
		if r.Success || r.Err == nil {
			t.Errorf("cancelled entry looks successful: %+v", r)
		}
	}
}

func TestGetVersionFixedAtConstruction(t *testing.T) {
	d := NewWithBackend(&fakeBackend{})
	v := d.GetVersion()
	if v.Decoder != "fake" || v.CameraCount != 1234 || v.Source != KindNative {
		t.Errorf("unexpected version: %+v", v)
	}
}

func TestSupportedFormatsSorted(t *testing.T) {
	d := NewWithBackend(&fakeBackend{})
	formats := d.SupportedFormats()
	if len(formats) == 0 {
		t.Fatal("no supported formats")
	}
	for i := 1; i < len(formats); i++ {
		if formats[i] < formats[i-1] {
			t.Fatalf("formats not sorted: %v", formats)
		}
	}
}

func TestParseIdentifyOutput(t *testing.T) {
	out := []byte(`
Filename: /scans/frame01.nef
Timestamp: Sat Aug 29 10:12:13 2026
Camera: NIKON CORPORATION NIKON D750
ISO speed: 100
Shutter: 1/200.0 sec
Aperture: f/8.0
Focal length: 50.0 mm
Image size:  6016 x 4016
`)
	md, err := parseIdentifyOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if md.Camera != "NIKON CORPORATION NIKON D750" || md.Make != "NIKON" {
		t.Errorf("camera/make: %q / %q", md.Camera, md.Make)
	}
	if md.ISO != 100 || md.Shutter != "1/200.0" || md.Aperture != 8.0 || md.FocalLength != 50.0 {
		t.Errorf("exposure fields: %+v", md)
	}
	if md.Width != 6016 || md.Height != 4016 {
		t.Errorf("size: %dx%d", md.Width, md.Height)
	}
	if md.Date.Year() != 2026 {
		t.Errorf("date: %v", md.Date)
	}
}

func TestParseIdentifyOutputNoCamera(t *testing.T) {
	if _, err := parseIdentifyOutput([]byte("garbage\n")); err == nil {
		t.Error("expected error for output with no camera info")
	}
}
