// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/holiman/uint256"

	"github.com/parsdao/vault/fixedpoint"
)

// adjustYieldTokens deposits into or withdraws from each yield wrapper so its
// value approaches its target weight, then returns idle underlying to the
// pool. Deltas are sized first, the pool is drawn once for all deposits, and
// every deposit runs before any withdrawal. Wrapper failures and dust-sized
// deltas are skipped. It returns the oracle prices used for sizing.
func (v *Vault) adjustYieldTokens(targetWeights, poolWeights, poolHoldings []*uint256.Int) ([]*uint256.Int, error) {
	prices, updatedAt, err := v.oraclePrices()
	if err != nil {
		return nil, err
	}
	if err := v.checkOracleStatus(updatedAt); err != nil {
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

	deposits := fixedpoint.Zeros(v.numYieldTokens)
	withdrawals := fixedpoint.Zeros(v.numYieldTokens)
	needed := fixedpoint.Zeros(v.numPoolTokens)
	for j, yt := range v.yieldTokens {
		u := yt.UnderlyingIndex
		targetValue := fixedpoint.MulDown(total, targetWeights[v.numPoolTokens+j])
		targetAssets := targetValue
		if u != v.numeraire {
			targetAssets = fixedpoint.DivDown(targetValue, prices[u])
		}

		switch {
		case targetAssets.Gt(yieldAssets[j]):
			delta := fixedpoint.Sub(targetAssets, yieldAssets[j])
			if !v.isDust(u, delta, prices[u]) {
				deposits[j] = delta
				needed[u] = fixedpoint.Add(needed[u], delta)
			}
		case yieldAssets[j].Gt(targetAssets):
			delta := fixedpoint.Sub(yieldAssets[j], targetAssets)
			if !v.isDust(u, delta, prices[u]) {
				withdrawals[j] = delta
			}
		}
	}

	// Pool balance that can leave without pushing the weight below MinWeight.
	fromPool := fixedpoint.Zeros(v.numPoolTokens)
	for i, h := range poolHoldings {
		if needed[i].IsZero() || !poolWeights[i].Gt(MinWeight) {
			continue
		}
		idle, err := v.idleBalance(i)
		if err != nil {
			return nil, err
		}
		available := fixedpoint.Div(fixedpoint.Mul(h, fixedpoint.Sub(poolWeights[i], MinWeight)), poolWeights[i])
		fromPool[i] = fixedpoint.Min(fixedpoint.SubOrZero(needed[i], idle), available)
	}
	if _, err := v.withdrawFromPool(fromPool); err != nil {
		return nil, err
	}

	for j, amount := range deposits {
		if !amount.IsZero() {
			if err := v.depositYield(j, amount); err != nil {
				return nil, err
			}
		}
	}
	for j, amount := range withdrawals {
		if !amount.IsZero() {
			v.withdrawYield(j, amount)
		}
	}

	idle := make([]*uint256.Int, v.numPoolTokens)
	for i := range idle {
		if idle[i], err = v.idleBalance(i); err != nil {
			return nil, err
		}
	}
	if err := v.depositToPool(idle); err != nil {
		return nil, err
	}
	return prices, nil
}

func (v *Vault) isDust(u int, amount, price *uint256.Int) bool {
	return v.valueOf(u, amount, price).Lt(v.policy.MinYieldActionThreshold)
}

// depositYield moves up to want of the vault's underlying into wrapper j,
// bounded by what the wrapper accepts.
func (v *Vault) depositYield(j int, want *uint256.Int) error {
	yt := v.yieldTokens[j]

	maxDeposit, err := yt.Wrapper.MaxDeposit(v.address)
	if err != nil || maxDeposit.IsZero() {
		v.log.Debug("yield deposit skipped", "vault", v.address, "wrapper", yt.Wrapper.Address(), "err", err)
		return nil
	}
	idle, err := v.idleBalance(yt.UnderlyingIndex)
	if err != nil {
		return err
	}
	amount := fixedpoint.Min(fixedpoint.Min(want, maxDeposit), idle)
	if amount.IsZero() {
		return nil
	}

	if err := v.tryCall(func() error {
		_, err := yt.Wrapper.Deposit(v.address, amount, v.address)
		return err
	}); err != nil {
		v.log.Debug("yield deposit failed", "vault", v.address, "wrapper", yt.Wrapper.Address(), "amount", amount.Dec(), "err", err)
	}
	return nil
}

// withdrawYield redeems up to want underlying from wrapper j into the vault.
func (v *Vault) withdrawYield(j int, want *uint256.Int) {
	yt := v.yieldTokens[j]

	maxWithdraw, err := yt.Wrapper.MaxWithdraw(v.address)
	if err != nil || maxWithdraw.IsZero() {
		v.log.Debug("yield withdrawal skipped", "vault", v.address, "wrapper", yt.Wrapper.Address(), "err", err)
		return
	}
	amount := fixedpoint.Min(want, maxWithdraw)

	if err := v.tryCall(func() error {
		_, err := yt.Wrapper.Withdraw(v.address, amount, v.address, v.address)
		return err
	}); err != nil {
		v.log.Debug("yield withdrawal failed", "vault", v.address, "wrapper", yt.Wrapper.Address(), "amount", amount.Dec(), "err", err)
	}
}

// tryCall runs an external call whose failure is tolerated. Host changes made
// by a failed call are reverted.
func (v *Vault) tryCall(call func() error) error {
	snapshot := v.host.Snapshot()
	if err := call(); err != nil {
		v.host.RevertToSnapshot(snapshot)
		return err
	}
	return nil
}
