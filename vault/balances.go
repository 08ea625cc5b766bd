// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
)

// poolHoldings returns the pool's balance of every pool token.
func (v *Vault) poolHoldings() ([]*uint256.Int, error) {
	_, balances, _, err := v.pool.GetPoolTokens()
	if err != nil {
		return nil, err
	}
	if len(balances) != v.numPoolTokens {
		return nil, fmt.Errorf("%w: pool returned %d balances", ErrValueLengthIsNotSame, len(balances))
	}
	return fixedpoint.Clone(balances), nil
}

// yieldHoldings returns the vault's yield token shares net of unclaimed fees.
func (v *Vault) yieldHoldings() ([]*uint256.Int, error) {
	holdings := make([]*uint256.Int, v.numYieldTokens)
	for j, yt := range v.yieldTokens {
		balance, err := yt.Wrapper.BalanceOf(v.address)
		if err != nil {
			return nil, fmt.Errorf("failed to read yield token %d balance: %w", j, err)
		}
		holdings[j] = fixedpoint.SubOrZero(balance, v.st.FeesTotal[v.numPoolTokens+j])
	}
	return holdings, nil
}

// idleBalance returns pool token i held by the vault itself, net of fees.
func (v *Vault) idleBalance(i int) (*uint256.Int, error) {
	balance, err := v.poolTokens[i].BalanceOf(v.address)
	if err != nil {
		return nil, fmt.Errorf("failed to read token %d balance: %w", i, err)
	}
	return fixedpoint.SubOrZero(balance, v.st.FeesTotal[i]), nil
}

func (v *Vault) poolLastChangeBlock() (uint64, error) {
	_, _, lastChangeBlock, err := v.pool.GetPoolTokens()
	return lastChangeBlock, err
}

func (v *Vault) checkBalanceUnchanged() error {
	lastChangeBlock, err := v.poolLastChangeBlock()
	if err != nil {
		return err
	}
	if block := v.host.BlockNumber(); lastChangeBlock == block {
		return fmt.Errorf("%w: block=%d", ErrBalanceChangedInCurrentBlock, block)
	}
	return nil
}

// depositToPool moves amounts held by the vault into pool cash.
func (v *Vault) depositToPool(amounts []*uint256.Int) error {
	ops := make([]PoolBalanceOp, 0, 2*len(amounts))
	for i, amount := range amounts {
		if amount.IsZero() {
			continue
		}
		ops = append(ops,
			PoolBalanceOp{Kind: OpUpdate, Token: v.poolTokenAddrs[i], Amount: amount.Clone()},
			PoolBalanceOp{Kind: OpDeposit, Token: v.poolTokenAddrs[i], Amount: amount.Clone()},
		)
	}
	if len(ops) == 0 {
		return nil
	}
	return v.custody.ManagePoolBalance(v.address, ops)
}

// withdrawFromPool moves amounts from pool cash to the vault and returns
// what the vault actually received.
func (v *Vault) withdrawFromPool(amounts []*uint256.Int) ([]*uint256.Int, error) {
	before := make([]*uint256.Int, len(amounts))
	ops := make([]PoolBalanceOp, 0, 2*len(amounts))
	for i, amount := range amounts {
		if amount.IsZero() {
			continue
		}
		balance, err := v.poolTokens[i].BalanceOf(v.address)
		if err != nil {
			return nil, err
		}
		before[i] = balance
		ops = append(ops,
			PoolBalanceOp{Kind: OpWithdraw, Token: v.poolTokenAddrs[i], Amount: amount.Clone()},
			PoolBalanceOp{Kind: OpUpdate, Token: v.poolTokenAddrs[i], Amount: new(uint256.Int)},
		)
	}

	received := fixedpoint.Zeros(len(amounts))
	if len(ops) == 0 {
		return received, nil
	}
	if err := v.custody.ManagePoolBalance(v.address, ops); err != nil {
		return nil, err
	}
	for i := range amounts {
		if before[i] == nil {
			continue
		}
		after, err := v.poolTokens[i].BalanceOf(v.address)
		if err != nil {
			return nil, err
		}
		received[i] = fixedpoint.SubOrZero(after, before[i])
	}
	return received, nil
}

// pullToken transfers amount of token from owner to the vault and returns
// what the vault received.
func (v *Vault) pullToken(token Token, from common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if amount.IsZero() {
		return new(uint256.Int), nil
	}
	before, err := token.BalanceOf(v.address)
	if err != nil {
		return nil, err
	}
	if err := token.Transfer(from, v.address, amount); err != nil {
		return nil, fmt.Errorf("failed to transfer %s from %s: %w", token.Address(), from, err)
	}
	after, err := token.BalanceOf(v.address)
	if err != nil {
		return nil, err
	}
	return fixedpoint.SubOrZero(after, before), nil
}

// sendToken transfers amount of token from the vault to recipient.
func (v *Vault) sendToken(token Token, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := token.Transfer(v.address, to, amount); err != nil {
		return fmt.Errorf("failed to transfer %s to %s: %w", token.Address(), to, err)
	}
	return nil
}

// tokenAt returns the token for a slot: pool tokens first, then yield tokens.
func (v *Vault) tokenAt(i int) Token {
	if i < v.numPoolTokens {
		return v.poolTokens[i]
	}
	return v.yieldTokens[i-v.numPoolTokens].Wrapper
}

// updateWeightsNow sets pool weights instantly.
func (v *Vault) updateWeightsNow(weights []*uint256.Int) error {
	now := v.host.Now()
	return v.pool.UpdateWeightsGradually(now, now, v.poolTokenAddrs, weights)
}

func (v *Vault) checkLength(values int) error {
	if values != v.numTokens {
		return fmt.Errorf("%w: got %d, want %d", ErrValueLengthIsNotSame, values, v.numTokens)
	}
	return nil
}
