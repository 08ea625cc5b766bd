// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), ONE)
}

func frac(num, den uint64) *uint256.Int {
	return new(uint256.Int).Div(e18(num), uint256.NewInt(den))
}

func TestMulDivRounding(t *testing.T) {
	require := require.New(t)

	third := frac(1, 3)
	require.Equal("333333333333333333", third.Dec())

	require.Equal("999999999999999999", MulDown(third, e18(3)).Dec())
	require.Equal("999999999999999999", MulUp(third, e18(3)).Dec())
	require.Equal("2", MulUp(uint256.NewInt(1), uint256.NewInt(1e18+1)).Dec())
	require.Equal("1", MulDown(uint256.NewInt(1), uint256.NewInt(1e18+1)).Dec())

	require.Equal("333333333333333333", DivDown(ONE, e18(3)).Dec())
	require.Equal("333333333333333334", DivUp(ONE, e18(3)).Dec())
	require.True(DivUp(Zero(), ONE).IsZero())
}

func TestComplement(t *testing.T) {
	require := require.New(t)

	require.Equal(frac(7, 10), Complement(frac(3, 10)))
	require.True(Complement(ONE).IsZero())
	require.True(Complement(e18(2)).IsZero())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		weights []*uint256.Int
	}{
		{
			name:    "thirds",
			weights: []*uint256.Int{New(1), New(1), New(1)},
		},
		{
			name:    "already normalized",
			weights: []*uint256.Int{frac(7, 10), frac(3, 10)},
		},
		{
			name:    "uneven",
			weights: []*uint256.Int{New(7), New(13), New(101), New(3)},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			normalized := Normalize(test.weights)
			require.Len(t, normalized, len(test.weights))
			require.Equal(t, ONE, Sum(normalized))
		})
	}

	thirds := Normalize([]*uint256.Int{New(1), New(1), New(1)})
	require.Equal(t, "333333333333333334", thirds[0].Dec())
	require.Equal(t, "333333333333333333", thirds[1].Dec())
}

func TestArithmeticAborts(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want error
	}{
		{"add overflow", func() { Add(MaxUint256, New(1)) }, ErrOverflow},
		{"mul overflow", func() { MulDown(MaxUint256, e18(2)) }, ErrOverflow},
		{"sub underflow", func() { Sub(New(1), New(2)) }, ErrUnderflow},
		{"div by zero", func() { DivDown(ONE, Zero()) }, ErrDivisionByZero},
		{"normalize zero", func() { Normalize([]*uint256.Int{Zero(), Zero()}) }, ErrDivisionByZero},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := func() (err error) {
				defer Recover(&err)
				test.fn()
				return nil
			}()
			require.ErrorIs(t, err, test.want)
		})
	}
}

func TestRecoverRethrowsForeignPanics(t *testing.T) {
	require.PanicsWithValue(t, "boom", func() {
		var err error
		defer Recover(&err)
		panic("boom")
	})
}

func TestSubOrZero(t *testing.T) {
	require.True(t, SubOrZero(New(1), New(5)).IsZero())
	require.Equal(t, New(4), SubOrZero(New(5), New(1)))
}
