package model

import "strconv"

// NewerID reports whether id a sorts before id b in newest-first order.
// Numeric-looking ids compare by value; a numeric id always sorts
// before a non-numeric one; two non-numeric ids fall back to a
// lexicographic comparison.
func NewerID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	isNumA := errA == nil
	isNumB := errB == nil
	switch {
	case isNumA && isNumB:
		return na > nb
	case isNumA:
		return true
	case isNumB:
		return false
	default:
		return a > b
	}
}

// OlderID reports whether id a sorts after id b in newest-first order.
func OlderID(a, b string) bool {
	return NewerID(b, a)
}

// MaxBatchID returns the newest id in a batch, "" for an empty batch.
func MaxBatchID(ids []string) string {
	max := ""
	for _, id := range ids {
		if max == "" || NewerID(id, max) {
			max = id
		}
	}
	return max
}

// MinBatchID returns the oldest id in a batch, "" for an empty batch.
func MinBatchID(ids []string) string {
	min := ""
	for _, id := range ids {
		if min == "" || OlderID(id, min) {
			min = id
		}
	}
	return min
}
