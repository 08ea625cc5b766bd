// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
)

// FeeIndex returns the number of seconds of management fee that locking now
// would charge. With lockGuaranteedFee the window extends to the end of the
// guaranteed fee period. It is zero before the initial deposit and after
// finalization.
func (v *Vault) FeeIndex(lockGuaranteedFee bool) uint64 {
	if !v.st.Initialized || v.st.Finalized {
		return 0
	}
	index, _ := v.feeWindow(lockGuaranteedFee)
	return index
}

// feeWindow returns the fee index and the timestamp the checkpoint moves to.
func (v *Vault) feeWindow(lockGuaranteedFee bool) (uint64, uint64) {
	end := v.host.Now()
	if lockGuaranteedFee {
		if minFeeEnd := v.st.CreatedAt + v.policy.MinFeeDuration; minFeeEnd > end {
			end = minFeeEnd
		}
	}
	checkpoint := v.st.LastFeeCheckpoint
	if end <= checkpoint {
		return 0, checkpoint
	}
	return end - checkpoint, end
}

// lockGuardianFees moves accrued management fees into the current guardian's
// ledger row. Pool token fees leave the pool and are credited by the amount
// the vault actually received; yield token fees stay in place and are carved
// out of holdings.
func (v *Vault) lockGuardianFees(lockGuaranteedFee bool) error {
	if !v.st.Initialized || v.st.Finalized || v.policy.ManagementFee.IsZero() {
		return nil
	}

	index, end := v.feeWindow(lockGuaranteedFee)
	if index == 0 {
		return nil
	}
	v.st.LastFeeCheckpoint = end

	poolHoldings, err := v.poolHoldings()
	if err != nil {
		return err
	}
	yieldHoldings, err := v.yieldHoldings()
	if err != nil {
		return err
	}

	rate := fixedpoint.Mul(uint256.NewInt(index), v.policy.ManagementFee)
	newFees := make([]*uint256.Int, v.numTokens)
	for i, h := range append(poolHoldings, yieldHoldings...) {
		newFees[i] = fixedpoint.Min(fixedpoint.MulDown(h, rate), h)
	}

	received, err := v.withdrawFromPool(newFees[:v.numPoolTokens])
	if err != nil {
		return err
	}
	copy(newFees, received)

	v.creditFees(v.st.Guardian, newFees)
	return nil
}

func (v *Vault) creditFees(guardian common.Address, fees []*uint256.Int) {
	row, ok := v.st.GuardianFees[guardian]
	if !ok {
		row = fixedpoint.Zeros(v.numTokens)
		v.st.GuardianFees[guardian] = row
	}
	for i, fee := range fees {
		row[i] = fixedpoint.Add(row[i], fee)
		v.st.FeesTotal[i] = fixedpoint.Add(v.st.FeesTotal[i], fee)
	}
}

// ClaimGuardianFees pays out the caller's unclaimed fees. The current
// guardian accrues its guaranteed fees first. A former guardian's ledger row
// is removed once claimed.
func (v *Vault) ClaimGuardianFees(caller common.Address) error {
	return v.execute("claimGuardianFees", func() error {
		if _, ok := v.st.GuardianFees[caller]; !ok {
			return fmt.Errorf("%w: %s", ErrNoAvailableFeeForCaller, caller)
		}

		if caller == v.st.Guardian {
			if err := v.lockGuardianFees(true); err != nil {
				return err
			}
		}

		fees := v.st.GuardianFees[caller]
		for i, fee := range fees {
			if err := v.sendToken(v.tokenAt(i), caller, fee); err != nil {
				return err
			}
			v.st.FeesTotal[i] = fixedpoint.Sub(v.st.FeesTotal[i], fee)
		}

		if caller == v.st.Guardian {
			v.st.GuardianFees[caller] = fixedpoint.Zeros(v.numTokens)
		} else {
			delete(v.st.GuardianFees, caller)
		}

		v.log.Info("guardian fees claimed", "vault", v.address, "guardian", caller)
		return v.emit("DistributeGuardianFees", caller, toBigs(fees))
	})
}
