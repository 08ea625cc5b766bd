// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault_test

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/vault/config"
	"github.com/parsdao/vault/vault"
)

func TestUpdateWeightsGraduallyAndCancel(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t, withoutFee())
	v := f.vault
	now := f.chain.Now()

	require.NoError(v.UpdateWeightsGradually(guardian, weights(700, 300), now, now+5_000))
	require.Equal(now+5_000, f.pool.WeightChangeEnd())
	require.Equal(1, f.events("UpdateWeightsGradually"))

	f.chain.Advance(2_500)
	require.Equal(weights(600, 400), f.poolWeights(t))

	require.NoError(v.CancelWeightUpdates(guardian))
	require.Equal(1, f.events("CancelWeightUpdates"))

	f.chain.Advance(1_000)
	require.Equal(weights(600, 400), f.poolWeights(t))

	w, err := v.NormalizedWeights()
	require.NoError(err)
	require.Equal(weights(600, 400), w)
}

func TestUpdateWeightsGraduallyStartsNow(t *testing.T) {
	f := newInitializedFixture(t, withoutFee())
	now := f.chain.Now()

	// a start in the past is moved to now
	require.NoError(t, f.vault.UpdateWeightsGradually(guardian, weights(700, 300), now-500, now+2_000))
	f.chain.Advance(1_000)
	require.Equal(t, weights(600, 400), f.poolWeights(t))
}

func TestUpdateWeightsGraduallyValidation(t *testing.T) {
	tests := []struct {
		name    string
		caller  common.Address
		weights []uint64
		start   uint64
		end     uint64
		err     error
	}{
		{
			name:    "caller is owner",
			caller:  owner,
			weights: []uint64{600, 400},
			end:     5_000,
			err:     vault.ErrCallerIsNotGuardian,
		},
		{
			name:    "length",
			weights: []uint64{1_000},
			end:     5_000,
			err:     vault.ErrValueLengthIsNotSame,
		},
		{
			name:    "sum",
			weights: []uint64{600, 300},
			end:     5_000,
			err:     vault.ErrSumOfWeightIsNotOne,
		},
		{
			name:    "end before start",
			weights: []uint64{600, 400},
			start:   2_000,
			end:     1_000,
			err:     vault.ErrWeightChangeEndBeforeStart,
		},
		{
			name:    "end beyond uint32",
			weights: []uint64{600, 400},
			end:     1 << 32,
			err:     vault.ErrWeightChangeTimeIsAboveMax,
		},
		{
			name:    "start beyond uint32",
			weights: []uint64{600, 400},
			start:   1 << 32,
			end:     1<<32 + 5_000,
			err:     vault.ErrWeightChangeTimeIsAboveMax,
		},
		{
			name:    "too short",
			weights: []uint64{600, 400},
			end:     999,
			err:     vault.ErrWeightChangeDurationIsBelowMin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInitializedFixture(t)
			caller := guardian
			if tt.caller != (common.Address{}) {
				caller = tt.caller
			}
			now := f.chain.Now()
			err := f.vault.UpdateWeightsGradually(caller, weights(tt.weights...), now+tt.start, now+tt.end)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, weights(500, 500), f.poolWeights(t))
		})
	}
}

func TestWeightChangeRateLimit(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t, withoutFee(), withPolicy(func(p *config.Policy) {
		p.MinWeightChangeDuration = 4 * 60 * 60
	}))
	v := f.vault
	now := f.chain.Now()

	// 0.5 / 0.01 = 50 exceeds the 14.4 allowed over 14400 seconds
	err := v.UpdateWeightsGradually(guardian, weights(990, 10), now, now+14_400)
	require.ErrorIs(err, vault.ErrWeightChangeRatioIsAboveMax)
	require.Zero(f.events("UpdateWeightsGradually"))

	// the same move fits a longer window
	require.NoError(v.UpdateWeightsGradually(guardian, weights(990, 10), now, now+100_000))
	require.NoError(v.UpdateWeightsGradually(guardian, weights(700, 300), now, now+14_400))
}

func TestCancelWeightUpdatesRequiresGuardian(t *testing.T) {
	f := newInitializedFixture(t)
	require.ErrorIs(t, f.vault.CancelWeightUpdates(owner), vault.ErrCallerIsNotGuardian)

	uninitialized := newFixture(t)
	require.ErrorIs(t, uninitialized.vault.CancelWeightUpdates(guardian), vault.ErrVaultNotInitialized)
}
