package gryffin

import (
	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// clamp returns v limited to the closed interval [lo, hi].
//
// Returns:
// - lo if v < lo, hi if v > hi, v otherwise.
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// cloneSample returns an independent copy of s. Samples are passed around as
// plain slices, so every component that mutates or stores one copies it first
// to keep callers' data intact.
func cloneSample(s Sample) Sample {
	out := make(Sample, len(s))
	copy(out, s)

	return out
}

// sampleEqual reports whether two samples are identical element-for-element.
// Exact comparison is intended: the selector's duplicate detection operates on
// integer-valued categorical vectors where bitwise equality is meaningful.
func sampleEqual(a, b Sample) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// uniqueSamples returns the distinct samples of batch in first-encountered
// order.
func uniqueSamples(batch []Sample) []Sample {
	unique := make([]Sample, 0, len(batch))

	for _, s := range batch {
		seen := false

		for _, u := range unique {
			if sampleEqual(u, s) {
				seen = true

				break
			}
		}

		if !seen {
			unique = append(unique, s)
		}
	}

	return unique
}
