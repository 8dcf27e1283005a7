package math

import "math"

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float32) float32 {
	return Clamp(v, 0, 1)
}

// Lerp interpolates between a and b by t without clamping.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// InverseLerp returns where v lies between a and b, clamped to [0, 1].
// A degenerate range returns 0.
func InverseLerp(a, b, v float32) float32 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// SmoothInverseLerp is InverseLerp passed through smoothstep.
func SmoothInverseLerp(a, b, v float32) float32 {
	t := InverseLerp(a, b, v)
	return t * t * (3 - 2*t)
}

// Abs returns |v|.
func Abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Floor rounds down to the nearest integer.
func Floor(v float32) int {
	return int(math.Floor(float64(v)))
}

// Sqrt returns the square root of v.
func Sqrt(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math.Pi / 180
}
