// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault_test

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/vault/modules"
	"github.com/parsdao/vault/vault"
)

func bigs(n ...uint64) []*big.Int {
	out := make([]*big.Int, len(n))
	for i, v := range n {
		out[i] = ether(v).ToBig()
	}
	return out
}

func pack(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	input, err := vault.VaultABI.Pack(method, args...)
	require.NoError(t, err)
	return input
}

func TestContractRun(t *testing.T) {
	require := require.New(t)

	f := newFixture(t, withoutFee())
	c := vault.NewContract(f.vault)

	w := []*big.Int{milli(500).ToBig(), milli(500).ToBig()}
	ret, remaining, err := c.Run(owner, pack(t, "initialDeposit", bigs(100, 100), w), vault.GasFunds+1, false)
	require.NoError(err)
	require.Empty(ret)
	require.Equal(uint64(1), remaining)
	require.True(f.vault.IsInitialized())

	ret, remaining, err = c.Run(stranger, pack(t, "getHoldings"), vault.GasView, true)
	require.NoError(err)
	require.Zero(remaining)
	out, err := vault.VaultABI.Unpack("getHoldings", ret)
	require.NoError(err)
	require.Equal(bigs(100, 100), out[0])

	ret, _, err = c.Run(stranger, pack(t, "getNormalizedWeights"), vault.GasView, true)
	require.NoError(err)
	out, err = vault.VaultABI.Unpack("getNormalizedWeights", ret)
	require.NoError(err)
	require.Equal(w, out[0])

	ret, _, err = c.Run(stranger, pack(t, "guardian"), vault.GasView, true)
	require.NoError(err)
	out, err = vault.VaultABI.Unpack("guardian", ret)
	require.NoError(err)
	require.Equal(guardian, out[0])

	ret, _, err = c.Run(stranger, pack(t, "description"), vault.GasView, true)
	require.NoError(err)
	out, err = vault.VaultABI.Unpack("description", ret)
	require.NoError(err)
	require.Equal("AAA/BBB basket", out[0])

	_, _, err = c.Run(owner, pack(t, "withdraw", bigs(10, 0)), vault.GasFunds, false)
	require.NoError(err)
	require.Equal(amounts(ether(90), ether(100)), f.holdings(t))

	_, _, err = c.Run(owner, pack(t, "setGuardian", newGuardian), vault.GasAdmin, false)
	require.NoError(err)
	require.Equal(newGuardian, f.vault.Guardian())
}

func TestContractRunErrors(t *testing.T) {
	f := newInitializedFixture(t)
	c := vault.NewContract(f.vault)

	tests := []struct {
		name      string
		caller    common.Address
		input     []byte
		gas       uint64
		readOnly  bool
		remaining uint64
		err       error
	}{
		{
			name:      "short input",
			input:     []byte{0x01, 0x02},
			gas:       vault.GasFunds,
			remaining: vault.GasFunds,
			err:       vault.ErrInvalidInput,
		},
		{
			name:      "unknown selector",
			input:     []byte{0xde, 0xad, 0xbe, 0xef},
			gas:       vault.GasFunds,
			remaining: vault.GasFunds,
			err:       vault.ErrUnknownSelector,
		},
		{
			name:      "truncated arguments",
			input:     pack(t, "setOraclesEnabled", true)[:20],
			gas:       vault.GasAdmin,
			remaining: vault.GasAdmin,
			err:       vault.ErrInvalidInput,
		},
		{
			name:  "out of gas",
			input: pack(t, "deposit", bigs(1, 1)),
			gas:   vault.GasFunds - 1,
			err:   vault.ErrInsufficientGas,
		},
		{
			name:     "write in read-only call",
			caller:   owner,
			input:    pack(t, "deposit", bigs(1, 1)),
			gas:      vault.GasFunds,
			readOnly: true,
			err:      vault.ErrWriteProtection,
		},
		{
			name:      "operation error",
			caller:    stranger,
			input:     pack(t, "finalize"),
			gas:       vault.GasFinalize + 5,
			remaining: 5,
			err:       vault.ErrCallerIsNotOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret, remaining, err := c.Run(tt.caller, tt.input, tt.gas, tt.readOnly)
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, ret)
			require.Equal(t, tt.remaining, remaining)
		})
	}
	require.Equal(t, amounts(ether(100), ether(100)), f.holdings(t))
}

func TestContractModuleCall(t *testing.T) {
	require := require.New(t)

	addr, err := modules.VaultAddress(3)
	require.NoError(err)
	f := newFixture(t, func(f *fixture) { f.params.Address = addr })
	c := vault.NewContract(f.vault)

	require.NoError(c.Register("basketVault"))
	t.Cleanup(func() { modules.UnregisterModule("basketVault") })
	require.Error(c.Register("basketVault"))

	module, ok := modules.GetModule("basketVault")
	require.True(ok)
	require.Equal(addr, module.Address)

	ret, _, err := modules.Call(addr, stranger, pack(t, "owner"), vault.GasView, true)
	require.NoError(err)
	out, err := vault.VaultABI.Unpack("owner", ret)
	require.NoError(err)
	require.Equal(owner, out[0])

	_, _, err = modules.Call(addr, owner, pack(t, "transferOwnership", stranger), vault.GasAdmin, false)
	require.NoError(err)
	_, _, err = modules.Call(addr, stranger, pack(t, "acceptOwnership"), vault.GasAdmin, false)
	require.NoError(err)
	require.Equal(stranger, f.vault.Owner())

	// the default fixture address lies outside the reserved page
	outside := newFixture(t)
	require.Error(vault.NewContract(outside.vault).Register("outsideVault"))
}
