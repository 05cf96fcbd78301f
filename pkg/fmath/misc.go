package fmath

import "math"

// Some functions that only operate on basic types, that are useful

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampToByte rounds to nearest and pins to [0, 255].
func ClampToByte(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
