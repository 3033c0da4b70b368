// Package mathx holds small integer helpers for firmware maths.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// RoundDiv returns a/b rounded half away from zero. b == 0 yields 0.
func RoundDiv[T constraints.Signed](a, b T) T {
	if b == 0 {
		return 0
	}
	if (a < 0) != (b < 0) {
		return (a - b/2) / b
	}
	return (a + b/2) / b
}

// Percent maps v in [lo, hi] onto 0..100 with clamping.
func Percent[T constraints.Integer](v, lo, hi T) int {
	if hi <= lo {
		return 0
	}
	v = Clamp(v, lo, hi)
	return int(RoundDiv(int64(v-lo)*100, int64(hi-lo)))
}
