// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
)

// =========================================================================
// Ownership
// =========================================================================

// TransferOwnership offers ownership to newOwner, who must accept it.
func (v *Vault) TransferOwnership(caller, newOwner common.Address) error {
	return v.execute("transferOwnership", func() error {
		if err := v.onlyOwner(caller); err != nil {
			return err
		}
		if newOwner == (common.Address{}) {
			return ErrOwnerIsZeroAddress
		}
		if newOwner == v.st.Guardian {
			return fmt.Errorf("%w: %s", ErrGuardianIsOwner, newOwner)
		}
		v.st.PendingOwner = newOwner
		return v.emit("OwnershipTransferOffered", caller, newOwner)
	})
}

// CancelOwnershipTransfer withdraws a pending ownership offer.
func (v *Vault) CancelOwnershipTransfer(caller common.Address) error {
	return v.execute("cancelOwnershipTransfer", func() error {
		if err := v.onlyOwner(caller); err != nil {
			return err
		}
		if v.st.PendingOwner == (common.Address{}) {
			return ErrNotPendingOwner
		}
		canceled := v.st.PendingOwner
		v.st.PendingOwner = common.Address{}
		return v.emit("OwnershipTransferCanceled", caller, canceled)
	})
}

// AcceptOwnership completes a transfer offered to caller.
func (v *Vault) AcceptOwnership(caller common.Address) error {
	return v.execute("acceptOwnership", func() error {
		if v.st.PendingOwner == (common.Address{}) || caller != v.st.PendingOwner {
			return fmt.Errorf("%w: %s", ErrNotPendingOwner, caller)
		}
		if caller == v.st.Guardian {
			return fmt.Errorf("%w: %s", ErrGuardianIsOwner, caller)
		}
		previous := v.st.Owner
		v.st.Owner = caller
		v.st.PendingOwner = common.Address{}
		v.log.Info("vault ownership transferred", "vault", v.address, "previous", previous, "owner", caller)
		return v.emit("OwnershipTransferred", previous, caller)
	})
}

// RenounceOwnership always fails: a vault must keep an owner to return funds.
func (v *Vault) RenounceOwnership(caller common.Address) error {
	if err := v.onlyOwner(caller); err != nil {
		return err
	}
	return ErrVaultIsNotRenounceable
}

// =========================================================================
// Guardian
// =========================================================================

// SetGuardian replaces the guardian. Fees accrued so far, including the
// guaranteed window, are locked for the outgoing guardian first.
func (v *Vault) SetGuardian(caller, newGuardian common.Address) error {
	return v.execute("setGuardian", func() error {
		if err := guard(v.onlyOwner(caller), v.whenNotFinalized()); err != nil {
			return err
		}
		if err := checkGuardian(newGuardian, v.st.Owner); err != nil {
			return err
		}
		if err := v.lockGuardianFees(true); err != nil {
			return err
		}

		previous := v.st.Guardian
		v.st.Guardian = newGuardian
		if _, ok := v.st.GuardianFees[newGuardian]; !ok {
			v.st.GuardianFees[newGuardian] = fixedpoint.Zeros(v.numTokens)
		}

		v.log.Info("vault guardian changed", "vault", v.address, "previous", previous, "guardian", newGuardian)
		return v.emit("GuardianChanged", previous, newGuardian)
	})
}

// =========================================================================
// Finalization
// =========================================================================

// Finalize locks all fees including the guaranteed window, disables trading
// and returns every holding to the owner. The vault cannot be used afterwards
// except for fee claims.
func (v *Vault) Finalize(caller common.Address) error {
	return v.execute("finalize", func() error {
		if err := guard(v.onlyOwner(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
			return err
		}
		if err := v.lockGuardianFees(true); err != nil {
			return err
		}
		if err := v.pool.SetSwapEnabled(false); err != nil {
			return err
		}

		poolHoldings, err := v.poolHoldings()
		if err != nil {
			return err
		}
		if _, err := v.withdrawFromPool(poolHoldings); err != nil {
			return err
		}

		amounts := make([]*uint256.Int, v.numTokens)
		for i := 0; i < v.numTokens; i++ {
			token := v.tokenAt(i)
			balance, err := token.BalanceOf(v.address)
			if err != nil {
				return err
			}
			amounts[i] = fixedpoint.SubOrZero(balance, v.st.FeesTotal[i])
			if err := v.sendToken(token, caller, amounts[i]); err != nil {
				return err
			}
		}

		v.st.Finalized = true
		v.log.Info("vault finalized", "vault", v.address, "owner", caller)
		return v.emit("Finalized", caller, toBigs(amounts))
	})
}

// =========================================================================
// Trading controls
// =========================================================================

// EnableTradingRiskingArbitrage enables swaps at the current pool weights.
func (v *Vault) EnableTradingRiskingArbitrage(caller common.Address) error {
	return v.execute("enableTradingRiskingArbitrage", func() error {
		if err := guard(v.onlyOwner(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
			return err
		}
		return v.setSwapEnabled(true)
	})
}

// EnableTradingWithWeights sets vault weights and enables swaps. Yield token
// entries take part in the sum but only pool weights are applied.
func (v *Vault) EnableTradingWithWeights(caller common.Address, weights []*uint256.Int) error {
	return v.execute("enableTradingWithWeights", func() error {
		if err := guard(v.onlyOwner(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
			return err
		}
		if err := v.checkLength(len(weights)); err != nil {
			return err
		}
		if sum := fixedpoint.Sum(weights); !sum.Eq(fixedpoint.ONE) {
			return fmt.Errorf("%w: sum=%s", ErrSumOfWeightIsNotOne, sum.Dec())
		}
		if err := v.updateWeightsNow(fixedpoint.Normalize(weights[:v.numPoolTokens])); err != nil {
			return err
		}
		return v.setSwapEnabled(true)
	})
}

// EnableTradingWithOraclePrice sets pool weights so spot prices match fresh
// oracle prices, then enables swaps.
func (v *Vault) EnableTradingWithOraclePrice(caller common.Address) error {
	return v.execute("enableTradingWithOraclePrice", func() error {
		if err := guard(v.onlyGuardian(caller), v.whenInitialized(), v.whenNotFinalized()); err != nil {
			return err
		}
		prices, updatedAt, err := v.oraclePrices()
		if err != nil {
			return err
		}
		if err := v.checkOracleStatus(updatedAt); err != nil {
			return err
		}
		poolHoldings, err := v.poolHoldings()
		if err != nil {
			return err
		}

		values := make([]*uint256.Int, v.numPoolTokens)
		for i, h := range poolHoldings {
			values[i] = v.valueOf(i, h, prices[i])
		}
		if err := v.updateWeightsNow(fixedpoint.Normalize(values)); err != nil {
			return err
		}
		return v.setSwapEnabled(true)
	})
}

// DisableTrading stops swaps in the pool.
func (v *Vault) DisableTrading(caller common.Address) error {
	return v.execute("disableTrading", func() error {
		if err := guard(v.onlyOwnerOrGuardian(caller), v.whenInitialized()); err != nil {
			return err
		}
		return v.setSwapEnabled(false)
	})
}

func (v *Vault) setSwapEnabled(enabled bool) error {
	if err := v.pool.SetSwapEnabled(enabled); err != nil {
		return err
	}
	return v.emit("SetSwapEnabled", enabled)
}

// SetOraclesEnabled allows or forbids the use of oracle prices.
func (v *Vault) SetOraclesEnabled(caller common.Address, enabled bool) error {
	return v.execute("setOraclesEnabled", func() error {
		if err := guard(v.onlyOwnerOrGuardian(caller), v.whenNotFinalized()); err != nil {
			return err
		}
		v.st.OraclesEnabled = enabled
		return v.emit("SetOraclesEnabled", enabled)
	})
}

// =========================================================================
// Swap fee
// =========================================================================

// SetSwapFee changes the pool swap fee. Updates are rate limited by a
// cooldown and a maximum change per update.
func (v *Vault) SetSwapFee(caller common.Address, newSwapFee *uint256.Int) error {
	return v.execute("setSwapFee", func() error {
		if err := guard(v.onlyGuardian(caller), v.whenNotFinalized()); err != nil {
			return err
		}

		now := v.host.Now()
		if v.st.LastSwapFeeCheckpoint != 0 {
			if next := v.st.LastSwapFeeCheckpoint + v.policy.SwapFeeCooldown; now < next {
				return fmt.Errorf("%w: now=%d, next=%d", ErrCannotSetSwapFeeBeforeCooldown, now, next)
			}
		}

		current, err := v.pool.GetSwapFeePercentage()
		if err != nil {
			return err
		}
		delta := fixedpoint.SubOrZero(newSwapFee, current)
		if current.Gt(newSwapFee) {
			delta = fixedpoint.Sub(current, newSwapFee)
		}
		if delta.Gt(v.policy.MaxSwapFeeDelta) {
			return fmt.Errorf("%w: delta=%s, max=%s", ErrSwapFeePercentageChangeIsAboveMax, delta.Dec(), v.policy.MaxSwapFeeDelta.Dec())
		}

		if err := v.pool.UpdateSwapFeeGradually(now, now, newSwapFee, newSwapFee); err != nil {
			return err
		}
		v.st.LastSwapFeeCheckpoint = now
		return v.emit("SetSwapFee", newSwapFee.ToBig())
	})
}

// =========================================================================
// Sweep
// =========================================================================

// Sweep sends amount of a token that is not a vault asset to the owner.
func (v *Vault) Sweep(caller common.Address, token Token, amount *uint256.Int) error {
	return v.execute("sweep", func() error {
		if err := v.onlyOwner(caller); err != nil {
			return err
		}
		addr := token.Address()
		for _, vaultToken := range v.Tokens() {
			if addr == vaultToken {
				return fmt.Errorf("%w: %s", ErrCannotSweepVaultAsset, addr)
			}
		}
		if err := v.sendToken(token, caller, amount); err != nil {
			return err
		}
		return v.emit("Sweep", addr, amount.ToBig())
	})
}
