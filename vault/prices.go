// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/parsdao/vault/fixedpoint"
)

// OraclePrices returns the oracle price of every pool token in the numeraire
// and the time each answer was updated. The numeraire is priced at ONE.
func (v *Vault) OraclePrices() ([]*uint256.Int, []uint64, error) {
	type result struct {
		prices    []*uint256.Int
		updatedAt []uint64
	}
	out, err := view(func() (result, error) {
		prices, updatedAt, err := v.oraclePrices()
		return result{prices, updatedAt}, err
	})
	return out.prices, out.updatedAt, err
}

func (v *Vault) oraclePrices() ([]*uint256.Int, []uint64, error) {
	prices := make([]*uint256.Int, v.numPoolTokens)
	updatedAt := make([]uint64, v.numPoolTokens)
	now := v.host.Now()

	for i, oracle := range v.oracles {
		if i == v.numeraire {
			prices[i] = fixedpoint.ONE.Clone()
			updatedAt[i] = now
			continue
		}

		round, err := oracle.LatestRoundData()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read oracle %d: %w", i, err)
		}
		if round.Answer == nil || round.Answer.Sign() <= 0 {
			return nil, nil, fmt.Errorf("%w: index=%d, answer=%v", ErrOraclePriceInvalid, i, round.Answer)
		}
		price, overflow := uint256.FromBig(round.Answer)
		if overflow {
			return nil, nil, fmt.Errorf("%w: index=%d, answer overflows", ErrOraclePriceInvalid, i)
		}
		if !v.oracleUnits[i].Eq(fixedpoint.ONE) {
			price = fixedpoint.Div(fixedpoint.Mul(price, fixedpoint.ONE), v.oracleUnits[i])
		}
		prices[i] = price
		updatedAt[i] = round.UpdatedAt
	}
	return prices, updatedAt, nil
}

// checkOracleStatus fails when oracles are disabled or any answer is older
// than the allowed delay. Answers from the future count as fresh.
func (v *Vault) checkOracleStatus(updatedAt []uint64) error {
	if !v.st.OraclesEnabled {
		return ErrOraclesAreDisabled
	}
	now := v.host.Now()
	for i, t := range updatedAt {
		if i == v.numeraire || t >= now {
			continue
		}
		if delay := now - t; delay > v.policy.MaxOracleDelay {
			return fmt.Errorf("%w: index=%d, delay=%d, max=%d", ErrOracleIsDelayedBeyondMax, i, delay, v.policy.MaxOracleDelay)
		}
	}
	return nil
}

// SpotPrices returns the pool spot price of every pool token in the
// numeraire, including the swap fee.
func (v *Vault) SpotPrices() ([]*uint256.Int, error) {
	return view(func() ([]*uint256.Int, error) {
		poolHoldings, err := v.poolHoldings()
		if err != nil {
			return nil, err
		}
		return v.spotPrices(poolHoldings)
	})
}

func (v *Vault) spotPrices(poolHoldings []*uint256.Int) ([]*uint256.Int, error) {
	weights, err := v.pool.GetNormalizedWeights()
	if err != nil {
		return nil, err
	}
	swapFee, err := v.pool.GetSwapFeePercentage()
	if err != nil {
		return nil, err
	}
	if len(weights) != v.numPoolTokens {
		return nil, fmt.Errorf("%w: pool returned %d weights", ErrValueLengthIsNotSame, len(weights))
	}

	prices := make([]*uint256.Int, v.numPoolTokens)
	for i := range prices {
		if i == v.numeraire {
			prices[i] = fixedpoint.ONE.Clone()
			continue
		}
		prices[i] = calcSpotPrice(
			poolHoldings[v.numeraire], weights[v.numeraire],
			poolHoldings[i], weights[i],
			swapFee,
		)
	}
	return prices, nil
}

// calcSpotPrice returns the amount of tokenIn paid per unit of tokenOut:
// ((balanceIn / weightIn) / (balanceOut / weightOut)) / (1 - swapFee).
func calcSpotPrice(balanceIn, weightIn, balanceOut, weightOut, swapFee *uint256.Int) *uint256.Int {
	if balanceOut.IsZero() || weightIn.IsZero() {
		return new(uint256.Int)
	}
	numer := fixedpoint.DivDown(balanceIn, weightIn)
	denom := fixedpoint.DivDown(balanceOut, weightOut)
	if denom.IsZero() {
		return new(uint256.Int)
	}
	ratio := fixedpoint.DivDown(numer, denom)
	return fixedpoint.MulDown(ratio, fixedpoint.DivDown(fixedpoint.ONE, fixedpoint.Complement(swapFee)))
}

// valueOf returns amount of pool token i in the numeraire at price.
func (v *Vault) valueOf(i int, amount, price *uint256.Int) *uint256.Int {
	if i == v.numeraire {
		return amount.Clone()
	}
	return fixedpoint.MulDown(amount, price)
}

// yieldUnderlying converts yield share amounts to underlying assets.
func (v *Vault) yieldUnderlying(shares []*uint256.Int) ([]*uint256.Int, error) {
	assets := make([]*uint256.Int, len(shares))
	for j, s := range shares {
		if s.IsZero() {
			assets[j] = new(uint256.Int)
			continue
		}
		a, err := v.yieldTokens[j].Wrapper.ConvertToAssets(s)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yield token %d shares: %w", j, err)
		}
		assets[j] = a
	}
	return assets, nil
}

// totalValue prices pool holdings plus yield underlying assets.
func (v *Vault) totalValue(poolHoldings, yieldAssets, prices []*uint256.Int) *uint256.Int {
	total := new(uint256.Int)
	for i, h := range poolHoldings {
		total = fixedpoint.Add(total, v.valueOf(i, h, prices[i]))
	}
	for j, a := range yieldAssets {
		u := v.yieldTokens[j].UnderlyingIndex
		total = fixedpoint.Add(total, v.valueOf(u, a, prices[u]))
	}
	return total
}
