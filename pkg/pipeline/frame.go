package pipeline

import (
	"fmt"
	"image"
	"image/color"
)

// A Frame is an owned interleaved pixel buffer plus its geometry. It is
// produced by the RAW decoder or the base transform, and consumed by
// the pixel pipeline and the codec bridge. Single writer, single
// reader; never shared across concurrent requests.
type Frame struct {
	Width    int
	Height   int
	Channels int
	BitDepth int

	Pix   []uint8  // interleaved, when BitDepth == 8
	Pix16 []uint16 // interleaved, when BitDepth == 16
}

func NewFrame(w, h, channels int) *Frame {
	return &Frame{
		Width:    w,
		Height:   h,
		Channels: channels,
		BitDepth: 8,
		Pix:      make([]uint8, w*h*channels),
	}
}

func NewFrame16(w, h, channels int) *Frame {
	return &Frame{
		Width:    w,
		Height:   h,
		Channels: channels,
		BitDepth: 16,
		Pix16:    make([]uint16, w*h*channels),
	}
}

// FromImage flattens any image into a packed 3-channel 8-bit frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy(), 3)

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return f
}

// FromImage16 flattens an image into a packed 3-channel 16-bit frame,
// keeping the full channel depth.
func FromImage16(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame16(b.Dx(), b.Dy(), 3)

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix16[i] = uint16(r)
			f.Pix16[i+1] = uint16(g)
			f.Pix16[i+2] = uint16(bl)
			i += 3
		}
	}
	return f
}

// ToImage expands a frame back into a stdlib image for the encoders.
// Only the first three channels are read.
func (f *Frame)ToImage() (image.Image, error) {
	switch f.BitDepth {
	case 8:
		img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
		si := 0
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				img.SetNRGBA(x, y, color.NRGBA{f.Pix[si], f.Pix[si+1], f.Pix[si+2], 0xFF})
				si += f.Channels
			}
		}
		return img, nil

	case 16:
		img := image.NewRGBA64(image.Rect(0, 0, f.Width, f.Height))
		si := 0
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				img.SetRGBA64(x, y, color.RGBA64{f.Pix16[si], f.Pix16[si+1], f.Pix16[si+2], 0xFFFF})
				si += f.Channels
			}
		}
		return img, nil
	}

	return nil, fmt.Errorf("frame has unsupported bit depth %d", f.BitDepth)
}

// To8Bit returns the frame itself when already 8-bit, or a top-byte
// copy of a 16-bit frame.
func (f *Frame)To8Bit() *Frame {
	if f.BitDepth == 8 {
		return f
	}
	out := NewFrame(f.Width, f.Height, f.Channels)
	for i, v := range f.Pix16 {
		out.Pix[i] = uint8(v >> 8)
	}
	return out
}

func (f *Frame)String() string {
	return fmt.Sprintf("Frame %dx%d, %dch, %d-bit", f.Width, f.Height, f.Channels, f.BitDepth)
}
