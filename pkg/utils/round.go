package utils

import "math"

// RoundUp rounds value up to the next multiple of step. Exact multiples are
// returned unchanged.
func RoundUp(value, step float64) float64 {
	m := math.Mod(value, step)
	if m == 0 {
		return value
	}
	return value - m + step
}

// RoundQuarter is RoundUp with a 0.25 step, the usual odds increment.
func RoundQuarter(value float64) float64 { return RoundUp(value, 0.25) }
