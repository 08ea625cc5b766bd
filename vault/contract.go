// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/modules"
)

var _ modules.StatefulContract = (*Contract)(nil)

// Gas costs
const (
	GasView      uint64 = 2_000
	GasAdmin     uint64 = 20_000
	GasFunds     uint64 = 100_000
	GasRebalance uint64 = 250_000
	GasFinalize  uint64 = 150_000
	GasClaimFees uint64 = 60_000
)

var methodGas = map[string]uint64{
	"initialDeposit":                            GasFunds,
	"deposit":                                   GasFunds,
	"depositIfBalanceUnchanged":                 GasFunds,
	"depositRiskingArbitrage":                   GasFunds,
	"depositRiskingArbitrageIfBalanceUnchanged": GasFunds,
	"withdraw":                                  GasFunds,
	"withdrawIfBalanceUnchanged":                GasFunds,
	"updateWeightsGradually":                    GasRebalance,
	"finalize":                                  GasFinalize,
	"claimGuardianFees":                         GasClaimFees,
}

// Contract exposes a vault through ABI-encoded calls.
type Contract struct {
	vault *Vault
}

// NewContract wraps v.
func NewContract(v *Vault) *Contract {
	return &Contract{vault: v}
}

// Module returns the registry entry for the contract at the vault address.
func (c *Contract) Module(configKey string) modules.Module {
	return modules.Module{
		ConfigKey: configKey,
		Address:   c.vault.Address(),
		Contract:  c,
	}
}

// Register adds the contract to the module registry under configKey.
func (c *Contract) Register(configKey string) error {
	return modules.RegisterModule(c.Module(configKey))
}

// Run decodes input and executes the selected vault operation.
func (c *Contract) Run(
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	method, args, err := VaultABI.UnpackCall(input)
	if err != nil {
		return nil, suppliedGas, err
	}

	cost, ok := methodGas[method.Name]
	switch {
	case method.IsConstant():
		cost = GasView
	case !ok:
		cost = GasAdmin
	}
	if suppliedGas < cost {
		return nil, 0, fmt.Errorf("%w: %s needs %d, have %d", ErrInsufficientGas, method.Name, cost, suppliedGas)
	}
	remainingGas = suppliedGas - cost

	if readOnly && !method.IsConstant() {
		return nil, remainingGas, fmt.Errorf("%w: %s", ErrWriteProtection, method.Name)
	}

	ret, err = c.dispatch(caller, method.Name, args)
	return ret, remainingGas, err
}

func (c *Contract) dispatch(caller common.Address, name string, args []interface{}) ([]byte, error) {
	v := c.vault
	switch name {
	case "initialDeposit":
		amounts, err := argAmounts(args, 0)
		if err != nil {
			return nil, err
		}
		weights, err := argAmounts(args, 1)
		if err != nil {
			return nil, err
		}
		return nil, v.InitialDeposit(caller, amounts, weights)
	case "deposit", "depositIfBalanceUnchanged", "depositRiskingArbitrage", "depositRiskingArbitrageIfBalanceUnchanged",
		"withdraw", "withdrawIfBalanceUnchanged", "enableTradingWithWeights":
		amounts, err := argAmounts(args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.runAmounts(caller, name, amounts)
	case "updateWeightsGradually":
		weights, err := argAmounts(args, 0)
		if err != nil {
			return nil, err
		}
		startTime, err := argTime(args, 1)
		if err != nil {
			return nil, err
		}
		endTime, err := argTime(args, 2)
		if err != nil {
			return nil, err
		}
		return nil, v.UpdateWeightsGradually(caller, weights, startTime, endTime)
	case "setSwapFee":
		fee, err := argAmount(args, 0)
		if err != nil {
			return nil, err
		}
		return nil, v.SetSwapFee(caller, fee)
	case "setOraclesEnabled":
		enabled, err := argAs[bool](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, v.SetOraclesEnabled(caller, enabled)
	case "setGuardian", "transferOwnership":
		addr, err := argAs[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		if name == "setGuardian" {
			return nil, v.SetGuardian(caller, addr)
		}
		return nil, v.TransferOwnership(caller, addr)
	case "cancelWeightUpdates":
		return nil, v.CancelWeightUpdates(caller)
	case "enableTradingRiskingArbitrage":
		return nil, v.EnableTradingRiskingArbitrage(caller)
	case "enableTradingWithOraclePrice":
		return nil, v.EnableTradingWithOraclePrice(caller)
	case "disableTrading":
		return nil, v.DisableTrading(caller)
	case "claimGuardianFees":
		return nil, v.ClaimGuardianFees(caller)
	case "finalize":
		return nil, v.Finalize(caller)
	case "acceptOwnership":
		return nil, v.AcceptOwnership(caller)
	case "cancelOwnershipTransfer":
		return nil, v.CancelOwnershipTransfer(caller)
	case "renounceOwnership":
		return nil, v.RenounceOwnership(caller)
	default:
		return c.dispatchView(name, args)
	}
}

func (c *Contract) runAmounts(caller common.Address, name string, amounts []*uint256.Int) error {
	v := c.vault
	switch name {
	case "deposit":
		return v.Deposit(caller, amounts)
	case "depositIfBalanceUnchanged":
		return v.DepositIfBalanceUnchanged(caller, amounts)
	case "depositRiskingArbitrage":
		return v.DepositRiskingArbitrage(caller, amounts)
	case "depositRiskingArbitrageIfBalanceUnchanged":
		return v.DepositRiskingArbitrageIfBalanceUnchanged(caller, amounts)
	case "withdraw":
		return v.Withdraw(caller, amounts)
	case "withdrawIfBalanceUnchanged":
		return v.WithdrawIfBalanceUnchanged(caller, amounts)
	case "enableTradingWithWeights":
		return v.EnableTradingWithWeights(caller, amounts)
	}
	return fmt.Errorf("%w: %s", ErrUnknownSelector, name)
}

func (c *Contract) dispatchView(name string, args []interface{}) ([]byte, error) {
	v := c.vault
	switch name {
	case "getHoldings":
		holdings, err := v.Holdings()
		if err != nil {
			return nil, err
		}
		return VaultABI.PackOutput(name, toBigs(holdings))
	case "getNormalizedWeights":
		weights, err := v.NormalizedWeights()
		if err != nil {
			return nil, err
		}
		return VaultABI.PackOutput(name, toBigs(weights))
	case "getGuardianFees":
		guardian, err := argAs[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		return VaultABI.PackOutput(name, toBigs(v.GuardianFees(guardian)))
	case "guardian":
		return VaultABI.PackOutput(name, v.Guardian())
	case "owner":
		return VaultABI.PackOutput(name, v.Owner())
	case "isSwapEnabled":
		enabled, err := v.IsSwapEnabled()
		if err != nil {
			return nil, err
		}
		return VaultABI.PackOutput(name, enabled)
	case "description":
		return VaultABI.PackOutput(name, v.Description())
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, name)
}

func argAs[T any](args []interface{}, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, fmt.Errorf("%w: missing argument %d", ErrInvalidInput, i)
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d has type %T", ErrInvalidInput, i, args[i])
	}
	return v, nil
}

func argAmount(args []interface{}, i int) (*uint256.Int, error) {
	b, err := argAs[*big.Int](args, i)
	if err != nil {
		return nil, err
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: argument %d overflows", ErrInvalidInput, i)
	}
	return v, nil
}

func argAmounts(args []interface{}, i int) ([]*uint256.Int, error) {
	bs, err := argAs[[]*big.Int](args, i)
	if err != nil {
		return nil, err
	}
	return fromBigs(bs)
}

func argTime(args []interface{}, i int) (uint64, error) {
	b, err := argAs[*big.Int](args, i)
	if err != nil {
		return 0, err
	}
	if !b.IsUint64() {
		return 0, fmt.Errorf("%w: argument %d is not a timestamp", ErrInvalidInput, i)
	}
	return b.Uint64(), nil
}
