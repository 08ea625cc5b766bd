// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
)

// NormalizedWeights returns the weight of every vault token: pool weights
// scaled to the pool's share of value, followed by yield token weights
// valued at spot prices of their underlying.
func (v *Vault) NormalizedWeights() ([]*uint256.Int, error) {
	return view(v.normalizedWeights)
}

func (v *Vault) normalizedWeights() ([]*uint256.Int, error) {
	poolWeights, err := v.pool.GetNormalizedWeights()
	if err != nil {
		return nil, err
	}
	if v.numYieldTokens == 0 {
		return poolWeights, nil
	}

	poolHoldings, err := v.poolHoldings()
	if err != nil {
		return nil, err
	}
	yieldHoldings, err := v.yieldHoldings()
	if err != nil {
		return nil, err
	}
	yieldAssets, err := v.yieldUnderlying(yieldHoldings)
	if err != nil {
		return nil, err
	}
	spot, err := v.spotPrices(poolHoldings)
	if err != nil {
		return nil, err
	}

	weights := make([]*uint256.Int, v.numTokens)
	total := v.totalValue(poolHoldings, yieldAssets, spot)
	yieldWeightSum := new(uint256.Int)
	for j, a := range yieldAssets {
		w := new(uint256.Int)
		if !total.IsZero() {
			u := v.yieldTokens[j].UnderlyingIndex
			w = fixedpoint.DivDown(v.valueOf(u, a, spot[u]), total)
		}
		weights[v.numPoolTokens+j] = w
		yieldWeightSum = fixedpoint.Add(yieldWeightSum, w)
	}

	poolShare := fixedpoint.Complement(yieldWeightSum)
	sum := yieldWeightSum.Clone()
	for i, w := range poolWeights {
		weights[i] = fixedpoint.MulDown(w, poolShare)
		sum = fixedpoint.Add(sum, weights[i])
	}
	weights[0] = fixedpoint.Add(weights[0], fixedpoint.SubOrZero(fixedpoint.ONE, sum))
	return weights, nil
}

// UpdateWeightsGradually moves the vault toward targetWeights between
// startTime and endTime. Yield token targets are served immediately through
// wrapper deposits and withdrawals; pool weights then move gradually to the
// weights that make up the rest.
func (v *Vault) UpdateWeightsGradually(caller common.Address, targetWeights []*uint256.Int, startTime, endTime uint64) error {
	return v.execute("updateWeightsGradually", func() error {
		if err := guard(v.onlyGuardian(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
			return err
		}
		if err := v.checkLength(len(targetWeights)); err != nil {
			return err
		}
		if sum := fixedpoint.Sum(targetWeights); !sum.Eq(fixedpoint.ONE) {
			return fmt.Errorf("%w: sum=%s", ErrSumOfWeightIsNotOne, sum.Dec())
		}

		if startTime > math.MaxUint32 || endTime > math.MaxUint32 {
			return fmt.Errorf("%w: start=%d, end=%d, max=%d", ErrWeightChangeTimeIsAboveMax, startTime, endTime, uint64(math.MaxUint32))
		}
		now := v.host.Now()
		start := max(startTime, now)
		if endTime < start {
			return fmt.Errorf("%w: start=%d, end=%d", ErrWeightChangeEndBeforeStart, start, endTime)
		}
		duration := endTime - start
		if duration < v.policy.MinWeightChangeDuration {
			return fmt.Errorf("%w: duration=%d, min=%d", ErrWeightChangeDurationIsBelowMin, duration, v.policy.MinWeightChangeDuration)
		}

		if err := v.lockGuardianFees(false); err != nil {
			return err
		}

		weights, err := v.pool.GetNormalizedWeights()
		if err != nil {
			return err
		}
		poolHoldings, err := v.poolHoldings()
		if err != nil {
			return err
		}

		targetPoolWeights := targetWeights[:v.numPoolTokens]
		if v.numYieldTokens > 0 {
			prices, err := v.adjustYieldTokens(targetWeights, weights, poolHoldings)
			if err != nil {
				return err
			}
			if targetPoolWeights, err = v.targetPoolWeights(targetWeights, prices); err != nil {
				return err
			}
		}

		newPoolHoldings, err := v.poolHoldings()
		if err != nil {
			return err
		}
		current := make([]*uint256.Int, v.numPoolTokens)
		for i, w := range weights {
			if poolHoldings[i].IsZero() {
				current[i] = w.Clone()
				continue
			}
			current[i] = fixedpoint.Div(fixedpoint.Mul(w, newPoolHoldings[i]), poolHoldings[i])
		}
		current = fixedpoint.Normalize(current)
		if err := v.updateWeightsNow(current); err != nil {
			return err
		}

		if err := v.checkWeightChangeRatio(current, targetPoolWeights, duration); err != nil {
			return err
		}
		if err := v.pool.UpdateWeightsGradually(start, endTime, v.poolTokenAddrs, targetPoolWeights); err != nil {
			return err
		}

		return v.emit("UpdateWeightsGradually", bigTime(start), bigTime(endTime), toBigs(targetWeights))
	})
}

// targetPoolWeights moves each yield token's shortfall against its target
// back onto its underlying pool token.
func (v *Vault) targetPoolWeights(targetWeights, prices []*uint256.Int) ([]*uint256.Int, error) {
	poolHoldings, err := v.poolHoldings()
	if err != nil {
		return nil, err
	}
	yieldHoldings, err := v.yieldHoldings()
	if err != nil {
		return nil, err
	}
	yieldAssets, err := v.yieldUnderlying(yieldHoldings)
	if err != nil {
		return nil, err
	}
	total := v.totalValue(poolHoldings, yieldAssets, prices)

	credit := fixedpoint.Clone(targetWeights[:v.numPoolTokens])
	debit := fixedpoint.Zeros(v.numPoolTokens)
	for j, yt := range v.yieldTokens {
		u := yt.UnderlyingIndex
		credit[u] = fixedpoint.Add(credit[u], targetWeights[v.numPoolTokens+j])
		if !total.IsZero() {
			actual := fixedpoint.DivDown(v.valueOf(u, yieldAssets[j], prices[u]), total)
			debit[u] = fixedpoint.Add(debit[u], actual)
		}
	}

	weights := make([]*uint256.Int, v.numPoolTokens)
	for i := range weights {
		weights[i] = fixedpoint.SubOrZero(credit[i], debit[i])
	}
	return fixedpoint.Normalize(weights), nil
}

// checkWeightChangeRatio bounds how fast each pool weight may move: the
// ratio of the larger to the smaller weight must not exceed
// MaxWeightChangeRatio per second of duration.
func (v *Vault) checkWeightChangeRatio(current, target []*uint256.Int, duration uint64) error {
	maxRatio := fixedpoint.Mul(v.policy.MaxWeightChangeRatio, uint256.NewInt(duration))
	for i := range current {
		lo, hi := current[i], target[i]
		if lo.Gt(hi) {
			lo, hi = hi, lo
		}
		if lo.IsZero() {
			return fmt.Errorf("%w: index=%d, weight is zero", ErrWeightChangeRatioIsAboveMax, i)
		}
		if ratio := fixedpoint.DivDown(hi, lo); ratio.Gt(maxRatio) {
			return fmt.Errorf("%w: index=%d, ratio=%s, max=%s", ErrWeightChangeRatioIsAboveMax, i, ratio.Dec(), maxRatio.Dec())
		}
	}
	return nil
}

// CancelWeightUpdates freezes pool weights at their current values.
func (v *Vault) CancelWeightUpdates(caller common.Address) error {
	return v.execute("cancelWeightUpdates", func() error {
		if err := guard(v.onlyGuardian(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
			return err
		}
		weights, err := v.pool.GetNormalizedWeights()
		if err != nil {
			return err
		}
		if err := v.updateWeightsNow(weights); err != nil {
			return err
		}
		return v.emit("CancelWeightUpdates", toBigs(weights))
	})
}
