// Package cube reads, writes, applies and inverts .cube 3D LUT files.
// Inverting turns a "negative film look" LUT into one that removes the
// look: InvLUT(LUT(x)) ~= x on the grid points.
package cube

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/filmgallery/filmdev/pkg/fmath"
	"github.com/filmgallery/filmdev/pkg/pipeline"
)

// A LUT is a size^3 grid of RGB triples over the unit cube. Data is
// stored in .cube order: red varies fastest, then green, then blue.
type LUT struct {
	Title     string
	Size      int
	DomainMin [3]float64
	DomainMax [3]float64

	data []float64 // Size^3 * 3
}

func Identity(size int) *LUT {
	l := newLUT(size)
	l.Title = "Identity"
	n := float64(size - 1)
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				l.set(r, g, b, [3]float64{float64(r) / n, float64(g) / n, float64(b) / n})
			}
		}
	}
	return l
}

func newLUT(size int) *LUT {
	return &LUT{
		Size:      size,
		DomainMax: [3]float64{1, 1, 1},
		data:      make([]float64, size*size*size*3),
	}
}

func (l *LUT)index(r, g, b int) int {
	return ((b*l.Size+g)*l.Size + r) * 3
}

func (l *LUT)at(r, g, b int) [3]float64 {
	i := l.index(r, g, b)
	return [3]float64{l.data[i], l.data[i+1], l.data[i+2]}
}

func (l *LUT)set(r, g, b int, v [3]float64) {
	i := l.index(r, g, b)
	l.data[i], l.data[i+1], l.data[i+2] = v[0], v[1], v[2]
}

func Load(filename string) (*LUT, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("cube parse '%s': %v", filename, err)
	}
	return l, nil
}

// Parse reads a .cube file. Unknown keywords are skipped; data rows are
// any line of three floats.
func Parse(r io.Reader) (*LUT, error) {
	l := &LUT{DomainMax: [3]float64{1, 1, 1}}
	var rows []float64

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "TITLE":
			if i := strings.Index(line, `"`); i >= 0 {
				l.Title = strings.Trim(line[i:], `"`)
			} else if len(fields) > 1 {
				l.Title = fields[1]
			}
		case "LUT_3D_SIZE":
			if len(fields) < 2 {
				return nil, fmt.Errorf("bad LUT_3D_SIZE line %q", line)
			}
			size, err := strconv.Atoi(fields[1])
			if err != nil || size < 2 {
				return nil, fmt.Errorf("bad LUT_3D_SIZE %q", fields[1])
			}
			l.Size = size
		case "DOMAIN_MIN", "DOMAIN_MAX":
			if len(fields) != 4 {
				return nil, fmt.Errorf("bad %s line %q", fields[0], line)
			}
			var v [3]float64
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("bad %s value %q", fields[0], fields[i+1])
				}
				v[i] = f
			}
			if fields[0] == "DOMAIN_MIN" {
				l.DomainMin = v
			} else {
				l.DomainMax = v
			}
		default:
			if len(fields) != 3 {
				continue // some other keyword
			}
			ok := true
			var v [3]float64
			for i, fld := range fields {
				f, err := strconv.ParseFloat(fld, 64)
				if err != nil {
					ok = false
					break
				}
				v[i] = f
			}
			if ok {
				rows = append(rows, v[0], v[1], v[2])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cube read: %v", err)
	}

	if l.Size == 0 {
		// Some files omit the header; infer a cubic size.
		n := len(rows) / 3
		size := 2
		for size*size*size < n {
			size++
		}
		if size*size*size != n {
			return nil, fmt.Errorf("no LUT_3D_SIZE and %d rows is not a cube", n)
		}
		l.Size = size
	}

	if want := l.Size * l.Size * l.Size * 3; len(rows) != want {
		return nil, fmt.Errorf("size %d wants %d values, got %d", l.Size, want, len(rows))
	}
	l.data = rows
	return l, nil
}

func (l *LUT)Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if l.Title != "" {
		fmt.Fprintf(bw, "TITLE %q\n", l.Title)
	}
	fmt.Fprintf(bw, "LUT_3D_SIZE %d\n", l.Size)
	fmt.Fprintf(bw, "DOMAIN_MIN %g %g %g\n", l.DomainMin[0], l.DomainMin[1], l.DomainMin[2])
	fmt.Fprintf(bw, "DOMAIN_MAX %g %g %g\n", l.DomainMax[0], l.DomainMax[1], l.DomainMax[2])

	for i := 0; i < len(l.data); i += 3 {
		fmt.Fprintf(bw, "%.6f %.6f %.6f\n", l.data[i], l.data[i+1], l.data[i+2])
	}
	return bw.Flush()
}

// Apply maps one RGB triple (components in [0,1]) through the LUT with
// trilinear interpolation.
func (l *LUT)Apply(in [3]float64) [3]float64 {
	n := float64(l.Size - 1)

	var idx [3]int
	var frac [3]float64
	for i := 0; i < 3; i++ {
		v := fmath.Clamp(in[i], 0, 1) * n
		idx[i] = int(v)
		if idx[i] >= l.Size-1 {
			idx[i] = l.Size - 2
		}
		frac[i] = v - float64(idx[i])
	}

	var out [3]float64
	for dr := 0; dr < 2; dr++ {
		for dg := 0; dg < 2; dg++ {
			for db := 0; db < 2; db++ {
				w := weight(frac[0], dr) * weight(frac[1], dg) * weight(frac[2], db)
				if w == 0 {
					continue
				}
				corner := l.at(idx[0]+dr, idx[1]+dg, idx[2]+db)
				out[0] += w * corner[0]
				out[1] += w * corner[1]
				out[2] += w * corner[2]
			}
		}
	}
	return out
}

func weight(frac float64, hi int) float64 {
	if hi == 1 {
		return frac
	}
	return 1 - frac
}

// ApplyToFrame maps every pixel of an 8-bit frame through the LUT, in
// place.
func (l *LUT)ApplyToFrame(f *pipeline.Frame) {
	for i := 0; i+2 < len(f.Pix); i += f.Channels {
		out := l.Apply([3]float64{
			float64(f.Pix[i]) / 255,
			float64(f.Pix[i+1]) / 255,
			float64(f.Pix[i+2]) / 255,
		})
		f.Pix[i] = fmath.ClampToByte(out[0] * 255)
		f.Pix[i+1] = fmath.ClampToByte(out[1] * 255)
		f.Pix[i+2] = fmath.ClampToByte(out[2] * 255)
	}
}
