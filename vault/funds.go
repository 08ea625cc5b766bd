// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
)

// depositMode selects how deposit prices are chosen.
type depositMode uint8

const (
	// depositDetermined lets the price policy choose spot or oracle prices
	depositDetermined depositMode = iota
	// depositRiskingArbitrage keeps spot prices regardless of size
	depositRiskingArbitrage
)

// InitialDeposit seeds the pool, sets the initial weights and enables
// trading. Weights cover pool tokens and yield tokens and must sum to ONE.
func (v *Vault) InitialDeposit(caller common.Address, amounts, weights []*uint256.Int) error {
	return v.execute("initialDeposit", func() error {
		if err := guard(v.onlyOwner(caller), v.whenNotFinalized()); err != nil {
			return err
		}
		if v.st.Initialized {
			return ErrVaultIsAlreadyInitialized
		}
		if err := v.checkLength(len(amounts)); err != nil {
			return err
		}
		if err := v.checkLength(len(weights)); err != nil {
			return err
		}
		if sum := fixedpoint.Sum(weights); !sum.Eq(fixedpoint.ONE) {
			return fmt.Errorf("%w: sum=%s", ErrSumOfWeightIsNotOne, sum.Dec())
		}
		for i, amount := range amounts[:v.numPoolTokens] {
			if amount.IsZero() {
				return fmt.Errorf("%w: index=%d", ErrAmountIsZero, i)
			}
		}

		if err := v.updateWeightsNow(fixedpoint.Normalize(weights[:v.numPoolTokens])); err != nil {
			return err
		}

		received := make([]*uint256.Int, v.numTokens)
		for i, amount := range amounts {
			r, err := v.pullToken(v.tokenAt(i), caller, amount)
			if err != nil {
				return err
			}
			received[i] = r
		}
		if err := v.custody.JoinPoolInit(v.address, received[:v.numPoolTokens]); err != nil {
			return err
		}
		if err := v.pool.SetSwapEnabled(true); err != nil {
			return err
		}

		v.st.Initialized = true
		v.st.LastFeeCheckpoint = v.host.Now()

		v.log.Info("vault initialized", "vault", v.address, "owner", caller)
		return v.emit("InitialDeposit", toBigs(amounts), toBigs(received), toBigs(weights))
	})
}

// Deposit adds amounts to the vault, pricing the deposit with spot or oracle
// prices as the price policy decides.
func (v *Vault) Deposit(caller common.Address, amounts []*uint256.Int) error {
	return v.execute("deposit", func() error {
		return v.deposit(caller, amounts, depositDetermined, false)
	})
}

// DepositIfBalanceUnchanged is Deposit that fails when pool balances changed
// in the current block.
func (v *Vault) DepositIfBalanceUnchanged(caller common.Address, amounts []*uint256.Int) error {
	return v.execute("depositIfBalanceUnchanged", func() error {
		return v.deposit(caller, amounts, depositDetermined, true)
	})
}

// DepositRiskingArbitrage adds amounts keeping current spot prices.
func (v *Vault) DepositRiskingArbitrage(caller common.Address, amounts []*uint256.Int) error {
	return v.execute("depositRiskingArbitrage", func() error {
		return v.deposit(caller, amounts, depositRiskingArbitrage, false)
	})
}

// DepositRiskingArbitrageIfBalanceUnchanged is DepositRiskingArbitrage that
// fails when pool balances changed in the current block.
func (v *Vault) DepositRiskingArbitrageIfBalanceUnchanged(caller common.Address, amounts []*uint256.Int) error {
	return v.execute("depositRiskingArbitrageIfBalanceUnchanged", func() error {
		return v.deposit(caller, amounts, depositRiskingArbitrage, true)
	})
}

func (v *Vault) deposit(caller common.Address, amounts []*uint256.Int, mode depositMode, requireUnchanged bool) error {
	if err := guard(v.onlyOwner(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
		return err
	}
	if err := v.checkLength(len(amounts)); err != nil {
		return err
	}
	if requireUnchanged {
		if err := v.checkBalanceUnchanged(); err != nil {
			return err
		}
	}

	if err := v.lockGuardianFees(false); err != nil {
		return err
	}

	poolHoldings, err := v.poolHoldings()
	if err != nil {
		return err
	}
	weights, err := v.pool.GetNormalizedWeights()
	if err != nil {
		return err
	}

	prices, priceType := []*uint256.Int(nil), PriceTypeNone
	if mode == depositDetermined {
		if prices, priceType, err = v.determinedPrices(amounts); err != nil {
			return err
		}
	}

	received := make([]*uint256.Int, v.numTokens)
	for i, amount := range amounts {
		r, err := v.pullToken(v.tokenAt(i), caller, amount)
		if err != nil {
			return err
		}
		received[i] = r
	}
	if err := v.depositToPool(received[:v.numPoolTokens]); err != nil {
		return err
	}

	newWeights := make([]*uint256.Int, v.numPoolTokens)
	for i, h := range poolHoldings {
		newBalance := fixedpoint.Add(h, received[i])
		switch {
		case priceType == PriceTypeOracle:
			newWeights[i] = v.valueOf(i, newBalance, prices[i])
		case h.IsZero():
			newWeights[i] = weights[i].Clone()
		default:
			newWeights[i] = fixedpoint.Div(fixedpoint.Mul(weights[i], newBalance), h)
		}
	}
	if err := v.updateWeightsNow(fixedpoint.Normalize(newWeights)); err != nil {
		return err
	}

	vaultWeights, err := v.normalizedWeights()
	if err != nil {
		return err
	}
	v.log.Debug("vault deposit", "vault", v.address, "priceType", priceType)
	return v.emit("Deposit", toBigs(amounts), toBigs(received), toBigs(vaultWeights))
}

// Withdraw returns amounts to the owner.
func (v *Vault) Withdraw(caller common.Address, amounts []*uint256.Int) error {
	return v.execute("withdraw", func() error {
		return v.withdraw(caller, amounts, false)
	})
}

// WithdrawIfBalanceUnchanged is Withdraw that fails when pool balances changed
// in the current block.
func (v *Vault) WithdrawIfBalanceUnchanged(caller common.Address, amounts []*uint256.Int) error {
	return v.execute("withdrawIfBalanceUnchanged", func() error {
		return v.withdraw(caller, amounts, true)
	})
}

func (v *Vault) withdraw(caller common.Address, amounts []*uint256.Int, requireUnchanged bool) error {
	if err := guard(v.onlyOwner(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
		return err
	}
	if err := v.checkLength(len(amounts)); err != nil {
		return err
	}
	if requireUnchanged {
		if err := v.checkBalanceUnchanged(); err != nil {
			return err
		}
	}

	if err := v.lockGuardianFees(false); err != nil {
		return err
	}

	poolHoldings, err := v.poolHoldings()
	if err != nil {
		return err
	}
	weights, err := v.pool.GetNormalizedWeights()
	if err != nil {
		return err
	}
	redeemAssets, err := v.checkWithdrawAmounts(poolHoldings, amounts)
	if err != nil {
		return err
	}

	withdrawn, err := v.withdrawFromPool(amounts[:v.numPoolTokens])
	if err != nil {
		return err
	}

	sent := make([]*uint256.Int, v.numTokens)
	for i := 0; i < v.numPoolTokens; i++ {
		sent[i] = withdrawn[i]
		if err := v.sendToken(v.poolTokens[i], caller, withdrawn[i]); err != nil {
			return err
		}
	}
	for j, yt := range v.yieldTokens {
		amount := amounts[v.numPoolTokens+j]
		sent[v.numPoolTokens+j] = amount.Clone()
		if amount.IsZero() {
			continue
		}
		if yt.IsWithdrawable {
			if err := v.sendToken(yt.Wrapper, caller, amount); err != nil {
				return err
			}
			continue
		}
		if _, err := yt.Wrapper.Withdraw(v.address, redeemAssets[j], caller, v.address); err != nil {
			return fmt.Errorf("failed to redeem yield token %d: %w", j, err)
		}
	}

	newWeights := make([]*uint256.Int, v.numPoolTokens)
	for i, h := range poolHoldings {
		if h.IsZero() {
			newWeights[i] = weights[i].Clone()
			continue
		}
		remaining := fixedpoint.Sub(h, amounts[i])
		newWeights[i] = fixedpoint.Div(fixedpoint.Mul(weights[i], remaining), h)
	}
	if err := v.updateWeightsNow(fixedpoint.Normalize(newWeights)); err != nil {
		return err
	}

	vaultWeights, err := v.normalizedWeights()
	if err != nil {
		return err
	}
	return v.emit("Withdraw", toBigs(amounts), toBigs(sent), toBigs(vaultWeights))
}

// checkWithdrawAmounts bounds amounts by holdings and returns, for yield
// tokens that are redeemed, the underlying assets the shares convert to now.
func (v *Vault) checkWithdrawAmounts(poolHoldings, amounts []*uint256.Int) ([]*uint256.Int, error) {
	for i, h := range poolHoldings {
		if amounts[i].Gt(h) {
			return nil, fmt.Errorf("%w: token=%s, amount=%s, available=%s", ErrAmountExceedAvailable, v.poolTokenAddrs[i], amounts[i].Dec(), h.Dec())
		}
	}

	yieldHoldings, err := v.yieldHoldings()
	if err != nil {
		return nil, err
	}
	redeemAssets := fixedpoint.Zeros(v.numYieldTokens)
	for j, yt := range v.yieldTokens {
		amount := amounts[v.numPoolTokens+j]
		if amount.Gt(yieldHoldings[j]) {
			return nil, fmt.Errorf("%w: token=%s, amount=%s, available=%s", ErrAmountExceedAvailable, yt.Wrapper.Address(), amount.Dec(), yieldHoldings[j].Dec())
		}
		if yt.IsWithdrawable || amount.IsZero() {
			continue
		}
		assets, err := yt.Wrapper.ConvertToAssets(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yield token %d shares: %w", j, err)
		}
		redeemAssets[j] = assets
	}
	return redeemAssets, nil
}
