// Package money holds overflow-checked arithmetic for amounts in the smallest
// currency unit.
package money

import (
	"math"
	"math/bits"
)

// Mul returns a*b and false when either operand is negative or the product
// does not fit an int64.
func Mul(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// Add returns the sum of the amounts and false when any of them is negative
// or the sum does not fit an int64.
func Add(amounts ...int64) (int64, bool) {
	var total int64
	for _, v := range amounts {
		if v < 0 || v > math.MaxInt64-total {
			return 0, false
		}
		total += v
	}
	return total, true
}
