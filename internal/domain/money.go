package domain

import "math"

// Round2 rounds to 2 decimal places, half away from zero. Applied once at the
// final aggregate step; intermediate percentage math stays unrounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CeilUnit rounds up to the next whole currency unit. Used for the
// distance-based delivery fee.
func CeilUnit(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Ceil(v)
}

// NonNegative clamps negative money values to zero. Promotions never drive a
// price below zero.
func NonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
