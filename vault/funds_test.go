// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault_test

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/vault/config"
	"github.com/parsdao/vault/vault"
)

func TestInitialDeposit(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	v := f.vault

	require.ErrorIs(v.Deposit(owner, amounts(ether(1), ether(1))), vault.ErrVaultNotInitialized)
	require.ErrorIs(v.InitialDeposit(guardian, amounts(ether(1), ether(1)), weights(500, 500)), vault.ErrCallerIsNotOwner)
	require.ErrorIs(v.InitialDeposit(owner, amounts(ether(1)), weights(500, 500)), vault.ErrValueLengthIsNotSame)
	require.ErrorIs(v.InitialDeposit(owner, amounts(ether(1), ether(1)), weights(500, 400)), vault.ErrSumOfWeightIsNotOne)
	require.ErrorIs(v.InitialDeposit(owner, amounts(ether(1), new(uint256.Int)), weights(500, 500)), vault.ErrAmountIsZero)

	require.NoError(v.InitialDeposit(owner, amounts(ether(100), ether(50)), weights(600, 400)))
	require.True(v.IsInitialized())
	require.Equal(genesis, v.LastFeeCheckpoint())
	require.Equal(amounts(ether(100), ether(50)), f.holdings(t))
	require.Equal(weights(600, 400), f.poolWeights(t))
	require.Equal(ether(9_900), f.balance(t, f.tokens[0], owner))
	require.Equal(ether(9_950), f.balance(t, f.tokens[1], owner))

	enabled, err := v.IsSwapEnabled()
	require.NoError(err)
	require.True(enabled)
	require.Equal(1, f.events("InitialDeposit"))

	require.ErrorIs(v.InitialDeposit(owner, amounts(ether(1), ether(1)), weights(500, 500)), vault.ErrVaultIsAlreadyInitialized)
}

func TestInitialDepositTransferFee(t *testing.T) {
	f := newFixture(t)
	f.tokens[1].SetTransferFee(100) // 1%

	require.NoError(t, f.vault.InitialDeposit(owner, amounts(ether(100), ether(100)), weights(500, 500)))
	// the pool is seeded with what the vault received, less the fee on the way in
	holdings := f.holdings(t)
	require.Equal(t, ether(100), holdings[0])
	require.True(t, holdings[1].Lt(ether(99)))
}

func TestDepositWithdrawConservation(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t, withoutFee())
	v := f.vault
	before0 := f.balance(t, f.tokens[0], owner)
	before1 := f.balance(t, f.tokens[1], owner)

	f.chain.Advance(10)
	require.NoError(v.Deposit(owner, amounts(ether(10), ether(10))))
	require.Equal(amounts(ether(110), ether(110)), f.holdings(t))
	requireSumIsOne(t, f.poolWeights(t))

	f.chain.Advance(10)
	require.NoError(v.Withdraw(owner, amounts(ether(10), ether(10))))
	require.Equal(amounts(ether(100), ether(100)), f.holdings(t))
	require.Equal(before0, f.balance(t, f.tokens[0], owner))
	require.Equal(before1, f.balance(t, f.tokens[1], owner))
	require.Equal(weights(500, 500), f.poolWeights(t))

	require.Equal(1, f.events("Deposit"))
	require.Equal(1, f.events("Withdraw"))
}

func TestDepositRiskingArbitrageScalesWeights(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t)

	// w_i * new_i / old_i: 0.5 and 0.75, normalized to 0.4 and 0.6
	require.NoError(f.vault.DepositRiskingArbitrage(owner, amounts(new(uint256.Int), ether(50))))
	require.Equal(weights(400, 600), f.poolWeights(t))

	w, err := f.vault.NormalizedWeights()
	require.NoError(err)
	require.Equal(weights(400, 600), w)
}

func TestDepositIfBalanceUnchanged(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t)
	v := f.vault

	// the pool was seeded in this block
	require.ErrorIs(v.DepositIfBalanceUnchanged(owner, amounts(ether(1), ether(1))), vault.ErrBalanceChangedInCurrentBlock)
	require.ErrorIs(v.DepositRiskingArbitrageIfBalanceUnchanged(owner, amounts(ether(1), ether(1))), vault.ErrBalanceChangedInCurrentBlock)

	f.chain.Mine()
	require.NoError(v.DepositRiskingArbitrageIfBalanceUnchanged(owner, amounts(ether(1), ether(1))))
	require.ErrorIs(v.WithdrawIfBalanceUnchanged(owner, amounts(ether(1), ether(1))), vault.ErrBalanceChangedInCurrentBlock)

	f.chain.Mine()
	require.NoError(v.WithdrawIfBalanceUnchanged(owner, amounts(ether(1), ether(1))))
	f.chain.Mine()
	require.NoError(v.DepositIfBalanceUnchanged(owner, amounts(new(uint256.Int), new(uint256.Int))))
}

func TestDepositPriceSource(t *testing.T) {
	tests := []struct {
		name   string
		policy func(*config.Policy)
		setup  func(t *testing.T, f *fixture)
		amount *uint256.Int
		err    error
		want   []*uint256.Int
	}{
		{
			name:   "small deposit uses spot prices",
			amount: ether(5),
			want:   weights(500, 500),
		},
		{
			name:   "significant deposit uses oracle prices",
			amount: ether(10),
			want:   weights(500, 500),
		},
		{
			name: "oracle diverges from spot",
			setup: func(t *testing.T, f *fixture) {
				f.feed.SetAnswer(big.NewInt(2e8))
			},
			amount: ether(5),
			err:    vault.ErrOracleSpotPriceDivergenceExceedsMax,
		},
		{
			name: "stale oracle on significant deposit",
			setup: func(t *testing.T, f *fixture) {
				f.feed.SetUpdatedAt(genesis - 3_601)
			},
			amount: ether(10),
			err:    vault.ErrOracleIsDelayedBeyondMax,
		},
		{
			name: "stale oracle on small deposit",
			setup: func(t *testing.T, f *fixture) {
				f.feed.SetUpdatedAt(genesis - 3_601)
			},
			amount: ether(5),
			want:   weights(500, 500),
		},
		{
			name: "unreliable vault uses oracle",
			policy: func(p *config.Policy) {
				p.MinReliableVaultValue = ether(1_000)
			},
			setup: func(t *testing.T, f *fixture) {
				f.feed.SetAnswer(big.NewInt(3e8))
			},
			amount: ether(1),
			// values 101 and 3*101 in the numeraire
			want: weights(250, 750),
		},
		{
			name: "unreliable vault with oracles disabled",
			policy: func(p *config.Policy) {
				p.MinReliableVaultValue = ether(1_000)
			},
			setup: func(t *testing.T, f *fixture) {
				require.NoError(t, f.vault.SetOraclesEnabled(guardian, false))
			},
			amount: ether(1),
			err:    vault.ErrOraclesAreDisabled,
		},
		{
			name: "oracle read failure",
			setup: func(t *testing.T, f *fixture) {
				f.feed.SetError(vault.ErrOraclePriceInvalid)
			},
			amount: ether(1),
			err:    vault.ErrOraclePriceInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []fixtureOption{withoutFee()}
			if tt.policy != nil {
				opts = append(opts, withPolicy(tt.policy))
			}
			f := newInitializedFixture(t, opts...)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			err := f.vault.Deposit(owner, amounts(tt.amount, tt.amount))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				require.Equal(t, amounts(ether(100), ether(100)), f.holdings(t))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, f.poolWeights(t))
		})
	}
}

func TestDepositRiskingArbitrageIgnoresOracle(t *testing.T) {
	f := newInitializedFixture(t)
	f.feed.SetAnswer(big.NewInt(5e8))
	f.feed.SetError(vault.ErrOraclePriceInvalid)

	require.NoError(t, f.vault.DepositRiskingArbitrage(owner, amounts(ether(10), ether(10))))
	require.Equal(t, amounts(ether(110), ether(110)), f.holdings(t))
}

func TestWithdraw(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t, withoutFee())
	v := f.vault

	require.ErrorIs(v.Withdraw(guardian, amounts(ether(1), ether(1))), vault.ErrCallerIsNotOwner)
	require.ErrorIs(v.Withdraw(owner, amounts(ether(101), ether(1))), vault.ErrAmountExceedAvailable)

	require.NoError(v.Withdraw(owner, amounts(ether(50), new(uint256.Int))))
	require.Equal(amounts(ether(50), ether(100)), f.holdings(t))
	require.Equal(ether(9_950), f.balance(t, f.tokens[0], owner))

	// 0.25 and 0.5 normalized; the rounding remainder lands on index 0
	w := f.poolWeights(t)
	requireSumIsOne(t, w)
	require.Equal(uint256.NewInt(333_333_333_333_333_334), w[0])
	require.Equal(uint256.NewInt(666_666_666_666_666_666), w[1])
}

func TestWithdrawExcludesUnclaimedFees(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t)
	f.chain.Advance(1_000)

	// locks 1000s of fees: 1e13 per token
	require.NoError(f.vault.Withdraw(owner, amounts(new(uint256.Int), new(uint256.Int))))
	fee := uint256.NewInt(1e13)
	require.Equal([]*uint256.Int{fee, fee}, f.vault.FeesTotal())

	available := new(uint256.Int).Sub(ether(100), fee)
	require.Equal(amounts(available, available), f.holdings(t))
	err := f.vault.Withdraw(owner, amounts(ether(100), new(uint256.Int)))
	require.ErrorIs(err, vault.ErrAmountExceedAvailable)
	require.NoError(f.vault.Withdraw(owner, amounts(ether(50), new(uint256.Int))))
}
