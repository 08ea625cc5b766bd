// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault_test

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/vault/fixedpoint"
	"github.com/parsdao/vault/vault"
)

func TestPriceViews(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t)
	v := f.vault

	spot, err := v.SpotPrices()
	require.NoError(err)
	// equal balances and weights, grossed up by the 0.1% swap fee
	require.Equal([]*uint256.Int{fixedpoint.ONE, uint256.NewInt(1_001_001_001_001_001_001)}, spot)

	f.chain.Advance(60)
	f.feed.SetAnswer(big.NewInt(250_000_000))
	prices, updatedAt, err := v.OraclePrices()
	require.NoError(err)
	require.Equal([]*uint256.Int{fixedpoint.ONE, uint256.NewInt(25e17)}, prices)
	require.Equal([]uint64{genesis + 60, genesis + 60}, updatedAt)

	f.feed.SetAnswer(big.NewInt(0))
	_, _, err = v.OraclePrices()
	require.ErrorIs(err, vault.ErrOraclePriceInvalid)
}

func TestPolicyIsCopied(t *testing.T) {
	f := newFixture(t)
	policy := f.vault.Policy()
	fee := policy.ManagementFee.Clone()

	policy.ManagementFee.SetUint64(7)
	require.Equal(t, fee, f.vault.Policy().ManagementFee)
}

func TestEventDecoding(t *testing.T) {
	require := require.New(t)

	f := newInitializedFixture(t)
	logs := f.chain.LogsByTopic(vault.VaultABI.Events["InitialDeposit"].ID)
	require.Len(logs, 1)
	require.Equal(vaultAddr, logs[0].Address)

	out, err := vault.VaultABI.UnpackEvent("InitialDeposit", logs[0])
	require.NoError(err)
	require.Len(out, 3)
	require.Equal(bigs(100, 100), out[0])
	require.Equal(bigs(100, 100), out[1])
	require.Equal([]*big.Int{milli(500).ToBig(), milli(500).ToBig()}, out[2])

	_, err = vault.VaultABI.UnpackEvent("Deposit", logs[0])
	require.Error(err)
}
