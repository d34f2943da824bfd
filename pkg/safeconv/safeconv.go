// Package safeconv converts between integer types without silent overflow.
package safeconv

import "math"

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > math.MaxUint32 {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// ClampToUint32 converts v to uint32, saturating at the type's bounds.
func ClampToUint32(v int) uint32 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}

// ClampUint64ToInt64 converts v to int64, saturating at math.MaxInt64.
func ClampUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// IntToUint64 converts a non-negative int such as a length to uint64.
// Negative values map to zero.
func IntToUint64(v int) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}

// Int64ToUint64 converts a non-negative int64 such as a file size to
// uint64. Negative values map to zero.
func Int64ToUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}
