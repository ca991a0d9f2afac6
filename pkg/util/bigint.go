package util

import (
	"math/big"

	"github.com/holiman/uint256"
)

// maxUint256Plus1 is 2^256, the modulus of the two's-complement ring that
// Integer stack items (bounded to 32 bytes, spec §3) live in.
var maxUint256Plus1 = new(big.Int).Lsh(big.NewInt(1), 256)

// signBitBig is 2^255: the value at or above which an unsigned 256-bit
// word's two's-complement interpretation is negative.
var signBitBig = new(big.Int).Lsh(big.NewInt(1), 255)

// FromBig packs a signed big.Int of at most 256 bits magnitude into its
// unsigned two's-complement representation as a fixed-width word, giving
// the VM's Integer stack item a fast path that avoids repeated big.Int
// allocation for values that fit in a machine-word-sized fixed array.
func FromBig(v *big.Int) *uint256.Int {
	if v.Sign() >= 0 {
		u, _ := uint256.FromBig(v)
		return u
	}
	wrapped := new(big.Int).Add(v, maxUint256Plus1)
	u, _ := uint256.FromBig(wrapped)
	return u
}

// ToBig unpacks x's two's-complement-in-256-bits representation back into a
// signed big.Int.
func ToBig(x *uint256.Int) *big.Int {
	b := x.ToBig()
	if b.Cmp(signBitBig) >= 0 {
		b.Sub(b, maxUint256Plus1)
	}
	return b
}

// ToInt64 narrows x to an int64 using the signed interpretation from ToBig.
// The caller must have already checked IsInt64.
func ToInt64(x *uint256.Int) int64 {
	return ToBig(x).Int64()
}

// IsInt64 reports whether x's signed value fits in an int64.
func IsInt64(x *uint256.Int) bool {
	return ToBig(x).IsInt64()
}
