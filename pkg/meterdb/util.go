package meterdb

import "math"

// NaN cannot be JSON encoded and SQLite stores it as NULL.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
