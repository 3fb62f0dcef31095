// Package compare defines the word ordering contract shared by the batch
// sorter, the segment writer and the k-way merger.
package compare

import "bytes"

// Func compares two words and returns a negative number when a sorts before
// b, zero when they are equal, and a positive number when a sorts after b.
type Func func(a, b []byte) int

// Forward orders words byte-lexicographically ascending
func Forward(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Reverse orders words byte-lexicographically descending
func Reverse(a, b []byte) int {
	return bytes.Compare(b, a)
}

// ForOrder returns the comparator for the requested direction
func ForOrder(reverse bool) Func {
	if reverse {
		return Reverse
	}
	return Forward
}
