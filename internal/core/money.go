// Package core implements the balance and allocation engine: pure functions
// that fold a user's transaction set into point-in-time balances, daily
// budget capacity, and per-category range statistics.
//
// Amounts are binary float64 rounded to two decimals at output boundaries
// only, matching the behavior of the system this replaces. Intermediate sums
// are not decimal-exact; this is a known precision caveat, not an invariant
// worth breaking compatibility over.
package core

import "math"

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
