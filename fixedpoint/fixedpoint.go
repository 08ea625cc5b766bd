// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint implements unsigned 18-decimal fixed point arithmetic
// over 256-bit integers.
//
// Every division truncates toward zero. Overflow, underflow and division by
// zero abort the current computation by panicking with one of the sentinel
// errors below; call boundaries convert the panic back into an error with
// Recover or AsError.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Scaling constants
var (
	// ONE is 1.0 (1e18)
	ONE = uint256.NewInt(1e18)

	// MaxUint256 is the largest representable value
	MaxUint256 = new(uint256.Int).SetAllOne()
)

// Errors
var (
	ErrOverflow       = errors.New("fixedpoint: overflow")
	ErrUnderflow      = errors.New("fixedpoint: underflow")
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
)

func abort(err error, op string) {
	panic(fmt.Errorf("%w: %s", err, op))
}

// Zero returns a new zero value.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// New returns the integer n (not scaled).
func New(n uint64) *uint256.Int {
	return uint256.NewInt(n)
}

// Add returns a + b.
func Add(a, b *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		abort(ErrOverflow, "add")
	}
	return z
}

// Sub returns a - b.
func Sub(a, b *uint256.Int) *uint256.Int {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		abort(ErrUnderflow, "sub")
	}
	return z
}

// SubOrZero returns a - b, saturating at zero.
func SubOrZero(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// Mul returns a * b (plain integer product).
func Mul(a, b *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		abort(ErrOverflow, "mul")
	}
	return z
}

// Div returns a / b truncated (plain integer quotient).
func Div(a, b *uint256.Int) *uint256.Int {
	if b.IsZero() {
		abort(ErrDivisionByZero, "div")
	}
	return new(uint256.Int).Div(a, b)
}

// MulDown returns a * b / ONE rounded down.
func MulDown(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(Mul(a, b), ONE)
}

// MulUp returns a * b / ONE rounded up.
func MulUp(a, b *uint256.Int) *uint256.Int {
	product := Mul(a, b)
	if product.IsZero() {
		return product
	}
	z := new(uint256.Int).Sub(product, uint256.NewInt(1))
	z.Div(z, ONE)
	return z.AddUint64(z, 1)
}

// DivDown returns a * ONE / b rounded down.
func DivDown(a, b *uint256.Int) *uint256.Int {
	if b.IsZero() {
		abort(ErrDivisionByZero, "divDown")
	}
	return new(uint256.Int).Div(Mul(a, ONE), b)
}

// DivUp returns a * ONE / b rounded up.
func DivUp(a, b *uint256.Int) *uint256.Int {
	if b.IsZero() {
		abort(ErrDivisionByZero, "divUp")
	}
	if a.IsZero() {
		return new(uint256.Int)
	}
	z := new(uint256.Int).Sub(Mul(a, ONE), uint256.NewInt(1))
	z.Div(z, b)
	return z.AddUint64(z, 1)
}

// Complement returns ONE - x, or zero when x >= ONE.
func Complement(x *uint256.Int) *uint256.Int {
	return SubOrZero(ONE, x)
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// Max returns the larger of a and b.
func Max(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// Sum returns the sum of values.
func Sum(values []*uint256.Int) *uint256.Int {
	total := new(uint256.Int)
	for _, v := range values {
		total = Add(total, v)
	}
	return total
}

// Normalize scales weights so they sum to exactly ONE. The rounding
// remainder is added to index 0.
func Normalize(weights []*uint256.Int) []*uint256.Int {
	total := Sum(weights)
	if total.IsZero() {
		abort(ErrDivisionByZero, "normalize")
	}

	normalized := make([]*uint256.Int, len(weights))
	adjusted := new(uint256.Int)
	for i, w := range weights {
		normalized[i] = new(uint256.Int).Div(Mul(w, ONE), total)
		adjusted = Add(adjusted, normalized[i])
	}
	normalized[0] = Add(normalized[0], Sub(ONE, adjusted))
	return normalized
}

// Clone deep-copies a slice of values. Nil entries become zero.
func Clone(values []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = new(uint256.Int)
			continue
		}
		out[i] = v.Clone()
	}
	return out
}

// Zeros returns n zero values.
func Zeros(n int) []*uint256.Int {
	out := make([]*uint256.Int, n)
	for i := range out {
		out[i] = new(uint256.Int)
	}
	return out
}

// IsArithmeticError reports whether err is one of the package's aborts.
func IsArithmeticError(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrUnderflow) || errors.Is(err, ErrDivisionByZero)
}

// AsError converts a recovered panic value into an error. Panics that were
// not raised by this package are re-raised.
func AsError(r any) error {
	if err, ok := r.(error); ok && IsArithmeticError(err) {
		return err
	}
	panic(r)
}

// Recover turns an arithmetic abort into *err. It must be deferred directly:
//
//	defer fixedpoint.Recover(&err)
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = AsError(r)
	}
}
