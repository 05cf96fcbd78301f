package main

import(
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"log"
	"os"
	"path/filepath"

	"github.com/filmgallery/filmdev/pkg/cube"
	"github.com/filmgallery/filmdev/pkg/export"
	"github.com/filmgallery/filmdev/pkg/grade"
	"github.com/filmgallery/filmdev/pkg/rawdec"
)

var(
	fParams string
	fRoll string
	fOutDir string
	fQuality int
	fTiff bool
	fMaxWidth int
	fCube string
	fInvertCube string
	fSheet string
	fSheetCols int
	fVerbose bool
)

func init() {
	flag.StringVar(&fParams, "params", "", "yaml file of grading params (default: ungraded)")
	flag.StringVar(&fRoll, "roll", "roll", "roll name used in output filenames")
	flag.StringVar(&fOutDir, "out", ".", "output directory")
	flag.IntVar(&fQuality, "quality", 0, "jpeg quality (0 = default)")
	flag.BoolVar(&fTiff, "tiff", false, "also write a 16-bit TIFF per frame")
	flag.IntVar(&fMaxWidth, "maxwidth", 0, "cap output width in pixels (0 = native)")
	flag.StringVar(&fCube, "cube", "", "apply this .cube look LUT after grading")
	flag.StringVar(&fInvertCube, "invertcube", "", "invert the -cube LUT and write it here, then exit")
	flag.StringVar(&fSheet, "sheet", "", "also write a contact sheet to this file")
	flag.IntVar(&fSheetCols, "sheetcols", 6, "contact sheet columns")
	flag.BoolVar(&fVerbose, "v", false, "log the effective params")
	flag.Parse()

	log.Printf("filmdev starting\n")
}

func main() {
	var look *cube.LUT
	if fCube != "" {
		var err error
		if look, err = cube.Load(fCube); err != nil {
			log.Fatal(err)
		}
	}

	if fInvertCube != "" {
		if look == nil {
			log.Fatal("-invertcube needs -cube")
		}
		invertAndExit(look)
	}

	if flag.NArg() == 0 {
		log.Fatal("usage: filmdev [flags] scan1.jpg scan2.nef ...")
	}

	p := grade.NewParams()
	if fParams != "" {
		var err error
		if p, err = grade.LoadParams(fParams); err != nil {
			log.Fatal(err)
		}
	}
	if fVerbose {
		log.Printf("Effective params:-\n\n%s\n", p.AsYaml())
	}

	dec := rawdec.New()
	ctx := context.Background()

	var sheet []export.SheetFrame
	for i, path := range flag.Args() {
		req := export.Request{
			SourcePath:  path,
			Roll:        fRoll,
			Frame:       fmt.Sprintf("%03d", i+1),
			Params:      p,
			OutDir:      fOutDir,
			JPEGQuality: fQuality,
			TIFF:        fTiff,
			MaxWidth:    fMaxWidth,
			Cube:        look,
		}
		res, err := export.Export(ctx, dec, req)
		if err != nil {
			log.Printf("Skipping %s: %v", path, err)
			continue
		}

		if fSheet != "" {
			img, err := loadForSheet(res.JPEGPath)
			if err != nil {
				log.Printf("Contact sheet frame %s: %v", res.JPEGPath, err)
				continue
			}
			label := fmt.Sprintf("%s  %s", req.Frame, filepath.Base(path))
			sheet = append(sheet, export.SheetFrame{Label: label, Image: img})
		}
	}

	if fSheet != "" {
		if err := export.WriteContactSheet(fSheet, sheet, fSheetCols); err != nil {
			log.Fatal(err)
		}
	}
}

func invertAndExit(look *cube.LUT) {
	inv, err := look.Invert(look.Size)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(fInvertCube)
	if err != nil {
		log.Fatal(err)
	}
	if err := inv.Write(f); err != nil {
		f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote inverted LUT to %s", fInvertCube)
	os.Exit(0)
}

func loadForSheet(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
