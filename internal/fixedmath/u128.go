// internal/fixedmath/u128.go
package fixedmath

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"
)

// u128Bits is the width of the wide domain. Values are carried in a
// uint256.Int but any result wider than this is an overflow.
const u128Bits = 128

// Widen lifts a 64-bit value into the wide domain.
func Widen(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Mul128 returns a*b. The product of two 64-bit values always fits 128 bits.
func Mul128(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(Widen(a), Widen(b))
}

// Add128 returns a+b, failing when the sum needs more than 128 bits.
func Add128(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow || sum.BitLen() > u128Bits {
		return nil, ErrMathOverflow
	}
	return sum, nil
}

// Sub128 returns a-b.
func Sub128(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrMathUnderflow
	}
	return diff, nil
}

// Div128 returns floor(a/b). Truncation is intentional: callers rely on it
// to round in a fixed direction.
func Div128(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrMathDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// Narrow converts a wide value back to 64 bits.
func Narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrMathOverflow
	}
	return v.Uint64(), nil
}

// MulDivFloor returns floor(a*b/d) with the product formed in 128 bits.
func MulDivFloor(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrMathDivisionByZero
	}
	q := new(uint256.Int).Div(Mul128(a, b), Widen(d))
	return Narrow(q)
}

// ToUint128 converts a wide value into the persisted little-endian u128.
func ToUint128(v *uint256.Int) (bin.Uint128, error) {
	if v.BitLen() > u128Bits {
		return bin.Uint128{}, ErrMathOverflow
	}
	return bin.Uint128{Lo: v[0], Hi: v[1], Endianness: binary.LittleEndian}, nil
}

// FromUint128 lifts a persisted u128 into the wide domain.
func FromUint128(u bin.Uint128) *uint256.Int {
	return &uint256.Int{u.Lo, u.Hi, 0, 0}
}
