package dlheap

import "golang.org/x/exp/constraints"

// roundUp rounds n up to a multiple of m. m must be a power of 2.
func roundUp[T constraints.Integer](n, m T) T {
	return (n + m - 1) &^ (m - 1)
}

// nextPow2 returns the smallest power of 2 >= n, for n >= 1.
func nextPow2[T constraints.Integer](n T) T {
	v := T(1)
	for v < n {
		v <<= 1
	}
	return v
}
