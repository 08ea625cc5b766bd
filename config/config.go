// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the policy thresholds that govern a vault and loads
// them from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/parsdao/vault/fixedpoint"
)

// Bounds on configurable values
var (
	// MaxManagementFee is 1e-9 per second (about 3.15% per year)
	MaxManagementFee = uint256.NewInt(1e9)

	// MaxSwapFeeDelta caps the configurable per-update swap fee change (0.5%)
	MaxSwapFeeDelta = uint256.NewInt(5e15)

	// MaxOracleDelay caps the configurable oracle staleness window
	MaxOracleDelay = uint64(24 * 60 * 60)
)

var (
	ErrManagementFeeTooHigh        = errors.New("management fee is above max")
	ErrMinFeeDurationIsZero        = errors.New("min fee duration is zero")
	ErrMaxOracleSpotDivergenceLow  = errors.New("max oracle spot divergence is below one")
	ErrMaxOracleDelayIsZero        = errors.New("max oracle delay is zero")
	ErrMaxOracleDelayTooHigh       = errors.New("max oracle delay is above max")
	ErrMaxWeightChangeRatioIsZero  = errors.New("max weight change ratio is zero")
	ErrMaxSwapFeeDeltaOutOfRange   = errors.New("max swap fee delta is out of range")
	ErrMinSignificantDepositIsZero = errors.New("min significant deposit value is zero")
	ErrMinReliableVaultValueIsZero = errors.New("min reliable vault value is zero")
)

// Policy holds the thresholds a vault is created with. Fixed point values are
// scaled by 1e18; durations are in seconds.
type Policy struct {
	// Per-second management fee
	ManagementFee *uint256.Int
	// Window from creation during which fees are guaranteed to the guardian
	MinFeeDuration uint64

	// Below this total value spot prices are unreliable
	MinReliableVaultValue *uint256.Int
	// Deposits valued below this use spot prices
	MinSignificantDepositValue *uint256.Int
	// Max ratio between oracle and spot price
	MaxOracleSpotDivergence *uint256.Int
	// Max age of an oracle answer
	MaxOracleDelay uint64

	// Yield deposits and withdrawals valued below this are skipped
	MinYieldActionThreshold *uint256.Int

	// Shortest allowed gradual weight update
	MinWeightChangeDuration uint64
	// Max per-second ratio of weight change
	MaxWeightChangeRatio *uint256.Int

	// Max change of swap fee per update
	MaxSwapFeeDelta *uint256.Int
	// Min time between swap fee updates
	SwapFeeCooldown uint64
}

// DefaultPolicy returns the thresholds used when no file overrides them.
func DefaultPolicy() Policy {
	return Policy{
		ManagementFee:              uint256.NewInt(1e8),
		MinFeeDuration:             30 * 24 * 60 * 60,
		MinReliableVaultValue:      uint256.NewInt(1e18),
		MinSignificantDepositValue: new(uint256.Int).Mul(uint256.NewInt(20), fixedpoint.ONE),
		MaxOracleSpotDivergence:    uint256.NewInt(1.1e18),
		MaxOracleDelay:             60 * 60,
		MinYieldActionThreshold:    uint256.NewInt(1e18),
		MinWeightChangeDuration:    4 * 60 * 60,
		MaxWeightChangeRatio:       uint256.NewInt(1e15),
		MaxSwapFeeDelta:            uint256.NewInt(5e15),
		SwapFeeCooldown:            60,
	}
}

// Verify checks that the policy is internally consistent.
func (p *Policy) Verify() error {
	switch {
	case p.ManagementFee == nil || p.ManagementFee.Gt(MaxManagementFee):
		return fmt.Errorf("%w: fee=%s, max=%s", ErrManagementFeeTooHigh, dec(p.ManagementFee), MaxManagementFee.Dec())
	case p.MinFeeDuration == 0:
		return ErrMinFeeDurationIsZero
	case p.MinReliableVaultValue == nil || p.MinReliableVaultValue.IsZero():
		return ErrMinReliableVaultValueIsZero
	case p.MinSignificantDepositValue == nil || p.MinSignificantDepositValue.IsZero():
		return ErrMinSignificantDepositIsZero
	case p.MaxOracleSpotDivergence == nil || p.MaxOracleSpotDivergence.Lt(fixedpoint.ONE):
		return fmt.Errorf("%w: divergence=%s", ErrMaxOracleSpotDivergenceLow, dec(p.MaxOracleSpotDivergence))
	case p.MaxOracleDelay == 0:
		return ErrMaxOracleDelayIsZero
	case p.MaxOracleDelay > MaxOracleDelay:
		return fmt.Errorf("%w: delay=%d, max=%d", ErrMaxOracleDelayTooHigh, p.MaxOracleDelay, MaxOracleDelay)
	case p.MaxWeightChangeRatio == nil || p.MaxWeightChangeRatio.IsZero():
		return ErrMaxWeightChangeRatioIsZero
	case p.MaxSwapFeeDelta == nil || p.MaxSwapFeeDelta.IsZero() || p.MaxSwapFeeDelta.Gt(MaxSwapFeeDelta):
		return fmt.Errorf("%w: delta=%s, max=%s", ErrMaxSwapFeeDeltaOutOfRange, dec(p.MaxSwapFeeDelta), MaxSwapFeeDelta.Dec())
	}
	if p.MinYieldActionThreshold == nil {
		p.MinYieldActionThreshold = new(uint256.Int)
	}
	return nil
}

// Clone returns a deep copy of the policy.
func (p Policy) Clone() Policy {
	out := p
	out.ManagementFee = cloneInt(p.ManagementFee)
	out.MinReliableVaultValue = cloneInt(p.MinReliableVaultValue)
	out.MinSignificantDepositValue = cloneInt(p.MinSignificantDepositValue)
	out.MaxOracleSpotDivergence = cloneInt(p.MaxOracleSpotDivergence)
	out.MinYieldActionThreshold = cloneInt(p.MinYieldActionThreshold)
	out.MaxWeightChangeRatio = cloneInt(p.MaxWeightChangeRatio)
	out.MaxSwapFeeDelta = cloneInt(p.MaxSwapFeeDelta)
	return out
}

func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return v.Clone()
}

func dec(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.Dec()
}

// fileFormat mirrors Policy with big values as decimal strings.
type fileFormat struct {
	ManagementFee              string  `yaml:"management_fee"`
	MinFeeDuration             *uint64 `yaml:"min_fee_duration"`
	MinReliableVaultValue      string  `yaml:"min_reliable_vault_value"`
	MinSignificantDepositValue string  `yaml:"min_significant_deposit_value"`
	MaxOracleSpotDivergence    string  `yaml:"max_oracle_spot_divergence"`
	MaxOracleDelay             *uint64 `yaml:"max_oracle_delay"`
	MinYieldActionThreshold    string  `yaml:"min_yield_action_threshold"`
	MinWeightChangeDuration    *uint64 `yaml:"min_weight_change_duration"`
	MaxWeightChangeRatio       string  `yaml:"max_weight_change_ratio"`
	MaxSwapFeeDelta            string  `yaml:"max_swap_fee_delta"`
	SwapFeeCooldown            *uint64 `yaml:"swap_fee_cooldown"`
}

// Parse decodes a YAML policy. Fields missing from the document keep their
// DefaultPolicy values. The result is verified.
func Parse(data []byte) (Policy, error) {
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}

	policy := DefaultPolicy()
	amounts := []struct {
		name  string
		raw   string
		field **uint256.Int
	}{
		{"management_fee", file.ManagementFee, &policy.ManagementFee},
		{"min_reliable_vault_value", file.MinReliableVaultValue, &policy.MinReliableVaultValue},
		{"min_significant_deposit_value", file.MinSignificantDepositValue, &policy.MinSignificantDepositValue},
		{"max_oracle_spot_divergence", file.MaxOracleSpotDivergence, &policy.MaxOracleSpotDivergence},
		{"min_yield_action_threshold", file.MinYieldActionThreshold, &policy.MinYieldActionThreshold},
		{"max_weight_change_ratio", file.MaxWeightChangeRatio, &policy.MaxWeightChangeRatio},
		{"max_swap_fee_delta", file.MaxSwapFeeDelta, &policy.MaxSwapFeeDelta},
	}
	for _, a := range amounts {
		if a.raw == "" {
			continue
		}
		v, err := uint256.FromDecimal(a.raw)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid %s %q: %w", a.name, a.raw, err)
		}
		*a.field = v
	}

	durations := []struct {
		raw   *uint64
		field *uint64
	}{
		{file.MinFeeDuration, &policy.MinFeeDuration},
		{file.MaxOracleDelay, &policy.MaxOracleDelay},
		{file.MinWeightChangeDuration, &policy.MinWeightChangeDuration},
		{file.SwapFeeCooldown, &policy.SwapFeeCooldown},
	}
	for _, d := range durations {
		if d.raw != nil {
			*d.field = *d.raw
		}
	}

	if err := policy.Verify(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Load reads and parses a YAML policy file.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	return Parse(data)
}
