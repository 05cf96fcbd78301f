// rawinfo inspects RAW files: backend status, shooting metadata, and
// optional thumbnail extraction.
package main

import(
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/filmgallery/filmdev/pkg/codec"
	"github.com/filmgallery/filmdev/pkg/rawdec"
)

var(
	fThumbs bool
	fFormats bool
)

func init() {
	flag.BoolVar(&fThumbs, "thumbs", false, "also extract a thumbnail next to each file")
	flag.BoolVar(&fFormats, "formats", false, "list supported RAW extensions and exit")
	flag.Parse()
}

func main() {
	dec := rawdec.New()

	v := dec.GetVersion()
	fmt.Printf("decoder: %s (%s)\n", v.Decoder, v.Version)
	if v.LibRawVersion != "" {
		fmt.Printf("libraw:  %s, %d cameras\n", v.LibRawVersion, v.CameraCount)
	}

	if fFormats {
		fmt.Printf("formats: %s\n", strings.Join(dec.SupportedFormats(), " "))
		return
	}

	ctx := context.Background()
	for _, path := range flag.Args() {
		md, err := dec.GetMetadata(ctx, path)
		if err != nil {
			log.Printf("%s: %v", path, err)
			continue
		}

		fmt.Printf("\n%s\n", path)
		fmt.Printf("  camera:   %s (%s)\n", md.Camera, md.Make)
		if md.Lens != "" {
			fmt.Printf("  lens:     %s\n", md.Lens)
		}
		fmt.Printf("  exposure: ISO %d, %ss, f/%.1f, %.0fmm\n", md.ISO, md.Shutter, md.Aperture, md.FocalLength)
		fmt.Printf("  size:     %dx%d\n", md.Width, md.Height)
		if !md.Date.IsZero() {
			fmt.Printf("  date:     %s\n", md.Date.Format("2006-01-02 15:04:05"))
		}

		if fThumbs {
			data, err := dec.ExtractThumbnail(ctx, path)
			if err != nil {
				log.Printf("%s: thumbnail: %v", path, err)
				continue
			}
			out := strings.TrimSuffix(path, filepath.Ext(path)) + "-thumb.jpg"
			if err := codec.WriteFile(out, data); err != nil {
				log.Printf("%s: %v", path, err)
			}
		}
	}
}
