package internal

import (
	"golang.org/x/exp/constraints"
)

// AlignUp rounds v up to a multiple of alignment; alignment must be a power
// of two.
func AlignUp[T constraints.Integer](v, alignment T) T {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) &^ (alignment - 1)
}

// HalfUp is ceil(v/2), the chroma size of a 4:2:0 dimension.
func HalfUp[T constraints.Integer](v T) T {
	return (v + 1) / 2
}
