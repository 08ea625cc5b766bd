// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/parsdao/vault/config"
)

// Pool limits
var (
	// MinWeight is the smallest weight the pool accepts for a token (1%)
	MinWeight = uint256.NewInt(1e16)
)

// PriceType records which price source drove a weight recomputation.
type PriceType uint8

const (
	// PriceTypeNone keeps spot prices (deposit risking arbitrage)
	PriceTypeNone PriceType = iota
	// PriceTypeSpot uses pool spot prices
	PriceTypeSpot
	// PriceTypeOracle uses oracle prices
	PriceTypeOracle
)

func (p PriceType) String() string {
	switch p {
	case PriceTypeNone:
		return "none"
	case PriceTypeSpot:
		return "spot"
	case PriceTypeOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// YieldTokenConfig binds an ERC-4626 wrapper to the pool token it wraps.
type YieldTokenConfig struct {
	Wrapper YieldWrapper
	// UnderlyingIndex is the pool token index of the wrapper's asset
	UnderlyingIndex int
	// IsWithdrawable means the owner receives shares on withdrawal; otherwise
	// shares are redeemed for the underlying asset.
	IsWithdrawable bool
}

// Params is the immutable configuration of a vault.
type Params struct {
	// Address is the vault's own account
	Address     common.Address
	Description string

	Owner    common.Address
	Guardian common.Address

	Host    Host
	Pool    Pool
	Custody Custody

	// PoolTokens must be sorted ascending by address
	PoolTokens  []Token
	YieldTokens []YieldTokenConfig
	// Oracles has one feed per pool token; the numeraire entry is nil
	Oracles        []Oracle
	NumeraireIndex int

	Policy config.Policy

	// DB persists committed state; memdb when nil
	DB database.Database
	// Logger defaults to an info-level test logger
	Logger log.Logger
}
