package core

import (
	"golang.org/x/exp/constraints"
)

// Series is an ordered run of values, such as the times or values of a
// sample group
type Series[T constraints.Ordered] []T

// Last returns the value at a specified position from the end
// position 0 is the last value, 1 is the second-to-last, etc.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// Sorted reports whether the series never decreases
func (s Series[T]) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}
