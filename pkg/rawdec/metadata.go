package rawdec

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata is the shooting info callers get for a file. Both the
// native path and the EXIF fallback populate the same fields, from
// their own field names.
type Metadata struct {
	Camera      string
	Make        string
	Lens        string
	ISO         int
	Shutter     string // e.g. "1/200"
	Aperture    float64
	FocalLength float64
	Width       int
	Height      int
	Date        time.Time
}

// parseIdentifyOutput understands the key/value dump shared by
// `raw-identify -v` and `dcraw -i -v`.
func parseIdentifyOutput(out []byte) (Metadata, error) {
	md := Metadata{}
	found := false

	for _, line := range strings.Split(string(out), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "Camera":
			md.Camera = val
			if fields := strings.Fields(val); len(fields) > 0 {
				md.Make = fields[0]
			}
			found = true
		case "ISO speed":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				md.ISO = int(f)
			}
		case "Shutter":
			md.Shutter = strings.TrimSuffix(val, " sec")
		case "Aperture":
			if f, err := strconv.ParseFloat(strings.TrimPrefix(val, "f/"), 64); err == nil {
				md.Aperture = f
			}
		case "Focal length":
			if f, err := strconv.ParseFloat(strings.TrimSuffix(val, " mm"), 64); err == nil {
				md.FocalLength = f
			}
		case "Image size":
			if w, h, ok := strings.Cut(val, "x"); ok {
				md.Width, _ = strconv.Atoi(strings.TrimSpace(w))
				md.Height, _ = strconv.Atoi(strings.TrimSpace(h))
			}
		case "Timestamp":
			if t, err := time.Parse(time.ANSIC, val); err == nil {
				md.Date = t
			}
		}
	}

	if !found {
		return md, fmt.Errorf("no camera info in identify output")
	}
	return md, nil
}

// exifMetadata is the non-native fallback: read what the EXIF block
// offers, tolerating missing tags. It works on anything goexif can
// parse, RAW or not.
func exifMetadata(filename string) (Metadata, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return Metadata{}, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return Metadata{}, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}

	md := Metadata{}

	if tag, err := ex.Get(exif.Model); err == nil {
		md.Camera, _ = tag.StringVal()
	}
	if tag, err := ex.Get(exif.Make); err == nil {
		md.Make, _ = tag.StringVal()
	}
	if tag, err := ex.Get(exif.LensModel); err == nil {
		md.Lens, _ = tag.StringVal()
	}
	if tag, err := ex.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int64(0); err == nil {
			md.ISO = int(v)
		}
	}
	if tag, err := ex.Get(exif.ExposureTime); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
			md.Shutter = fmt.Sprintf("%d/%d", num, denom)
		}
	}
	if tag, err := ex.Get(exif.FNumber); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
			md.Aperture = float64(num) / float64(denom)
		}
	}
	if tag, err := ex.Get(exif.FocalLength); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
			md.FocalLength = float64(num) / float64(denom)
		}
	}
	if tag, err := ex.Get(exif.PixelXDimension); err == nil {
		if v, err := tag.Int64(0); err == nil {
			md.Width = int(v)
		}
	}
	if tag, err := ex.Get(exif.PixelYDimension); err == nil {
		if v, err := tag.Int64(0); err == nil {
			md.Height = int(v)
		}
	}
	if t, err := ex.DateTime(); err == nil {
		md.Date = t
	}

	if md.Camera == "" && md.Make == "" && md.ISO == 0 {
		return md, fmt.Errorf("exif for '%s' had no usable fields", filename)
	}
	return md, nil
}
