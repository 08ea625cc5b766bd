// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// Host is the execution environment the vault runs in. It supplies block
// context, journaled snapshots for atomic calls and the event log.
type Host interface {
	Now() uint64
	BlockNumber() uint64
	Snapshot() int
	RevertToSnapshot(id int)
	AddLog(log *types.Log)
}

// Token is a fungible token. Transfer moves funds held by from; allowance
// handling is the adapter's concern.
type Token interface {
	Address() common.Address
	BalanceOf(account common.Address) (*uint256.Int, error)
	Transfer(from, to common.Address, amount *uint256.Int) error
}

// YieldWrapper is an ERC-4626 tokenized vault. Its share token is the Token.
type YieldWrapper interface {
	Token
	Asset() common.Address
	MaxDeposit(receiver common.Address) (*uint256.Int, error)
	Deposit(caller common.Address, assets *uint256.Int, receiver common.Address) (*uint256.Int, error)
	MaxWithdraw(owner common.Address) (*uint256.Int, error)
	Withdraw(caller common.Address, assets *uint256.Int, receiver, owner common.Address) (*uint256.Int, error)
	ConvertToAssets(shares *uint256.Int) (*uint256.Int, error)
}

// RoundData is the latest answer of a price feed.
type RoundData struct {
	RoundID   uint64
	Answer    *big.Int
	StartedAt uint64
	UpdatedAt uint64
}

// Oracle is an aggregator-style price feed quoting a token in the numeraire.
type Oracle interface {
	LatestRoundData() (RoundData, error)
	Decimals() (uint8, error)
}

// Pool is the managed weighted AMM pool the vault owns.
type Pool interface {
	GetNormalizedWeights() ([]*uint256.Int, error)
	GetSwapFeePercentage() (*uint256.Int, error)
	UpdateWeightsGradually(startTime, endTime uint64, tokens []common.Address, endWeights []*uint256.Int) error
	UpdateSwapFeeGradually(startTime, endTime uint64, startFee, endFee *uint256.Int) error
	SetSwapEnabled(enabled bool) error
	GetSwapEnabled() (bool, error)
	// GetPoolTokens returns tokens, total balances and the block of the last
	// balance change.
	GetPoolTokens() ([]common.Address, []*uint256.Int, uint64, error)
}

// PoolBalanceOpKind selects a custody balance operation.
type PoolBalanceOpKind uint8

const (
	// OpWithdraw moves cash from the pool to the asset manager.
	OpWithdraw PoolBalanceOpKind = iota
	// OpDeposit moves managed balance back into pool cash.
	OpDeposit
	// OpUpdate sets the managed balance reported to the pool.
	OpUpdate
)

func (k PoolBalanceOpKind) String() string {
	switch k {
	case OpWithdraw:
		return "WITHDRAW"
	case OpDeposit:
		return "DEPOSIT"
	case OpUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// PoolBalanceOp is one asset-manager balance operation on a pool token.
type PoolBalanceOp struct {
	Kind   PoolBalanceOpKind
	Token  common.Address
	Amount *uint256.Int
}

// Custody holds pool balances and executes asset-manager operations on them.
type Custody interface {
	ManagePoolBalance(manager common.Address, ops []PoolBalanceOp) error
	// JoinPoolInit seeds an empty pool with amounts taken from sender.
	JoinPoolInit(sender common.Address, amounts []*uint256.Int) error
}
