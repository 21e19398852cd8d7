package servo

// Sign returns -1, 0, or 1 depending on the sign of v.
func Sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp64 is Clamp for 64-bit intermediates, used where a scaled
// multiplication could overflow 32 bits before the result is clamped
// back down.
func Clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScaleDiv computes num*scale/den using a 64-bit intermediate so the
// multiplication cannot overflow before the division narrows the
// result back to int32. All observer and control-law state updates
// use pre-scaled integer coefficients and must not lose precision to
// 32-bit overflow.
func ScaleDiv(num, scale, den int32) int32 {
	if den == 0 {
		return 0
	}
	return int32(int64(num) * int64(scale) / int64(den))
}

// AbsInt32 returns the absolute value of v as an int32, saturating at
// MaxInt32 instead of overflowing for v == MinInt32.
func AbsInt32(v int32) int32 {
	if v >= 0 {
		return v
	}
	if v == -2147483648 {
		return 2147483647
	}
	return -v
}

// MinInt32 returns the smaller of a and b.
func MinInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// MaxInt32 returns the larger of a and b.
func MaxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
