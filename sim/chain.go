// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sim is an in-memory execution host with reference adapters for the
// vault: ERC-20 tokens, a managed weighted pool with asset-manager custody,
// ERC-4626 wrappers and price feeds. State changes are journaled so calls can
// be reverted atomically.
package sim

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// Errors
var (
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrTokenNotRegistered        = errors.New("token not registered in pool")
	ErrPoolAlreadyInitialized    = errors.New("pool already initialized")
	ErrPoolNotInitialized        = errors.New("pool not initialized")
	ErrMinWeight                 = errors.New("weight below minimum")
	ErrNormalizedWeightInvariant = errors.New("weights do not sum to one")
	ErrInvalidTimes              = errors.New("end time before start time")
	ErrSwapFeeOutOfRange         = errors.New("swap fee out of range")
	ErrInsufficientCash          = errors.New("insufficient pool cash")
	ErrInsufficientManaged       = errors.New("insufficient managed balance")
	ErrExceedsMaxDeposit         = errors.New("deposit exceeds max")
	ErrExceedsMaxWithdraw        = errors.New("withdraw exceeds max")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrWrapperFailure            = errors.New("wrapper call failed")
)

// journaled is a component whose state follows chain snapshots.
type journaled interface {
	snapshot() any
	restore(any)
}

type chainSnapshot struct {
	logs   int
	states []any
}

// Chain is the simulated host: a clock, a block counter, an event log and
// journaled snapshots over every registered component.
type Chain struct {
	now   uint64
	block uint64

	logs       []*types.Log
	components []journaled
	snapshots  []chainSnapshot
}

// NewChain creates a chain at timestamp now and block 1.
func NewChain(now uint64) *Chain {
	return &Chain{
		now:   now,
		block: 1,
		logs:  make([]*types.Log, 0),
	}
}

// Address derives a deterministic address from a label.
func Address(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(label))[12:])
}

func (c *Chain) register(j journaled) {
	c.components = append(c.components, j)
}

// Now returns the current block timestamp.
func (c *Chain) Now() uint64 { return c.now }

// BlockNumber returns the current block number.
func (c *Chain) BlockNumber() uint64 { return c.block }

// Advance moves time forward by seconds and mines a new block.
func (c *Chain) Advance(seconds uint64) {
	c.now += seconds
	c.block++
}

// Mine starts a new block without moving time.
func (c *Chain) Mine() {
	c.block++
}

// Snapshot captures every component and the log length.
func (c *Chain) Snapshot() int {
	states := make([]any, len(c.components))
	for i, component := range c.components {
		states[i] = component.snapshot()
	}
	c.snapshots = append(c.snapshots, chainSnapshot{logs: len(c.logs), states: states})
	return len(c.snapshots) - 1
}

// RevertToSnapshot restores the state captured by Snapshot and drops every
// later snapshot.
func (c *Chain) RevertToSnapshot(id int) {
	if id < 0 || id >= len(c.snapshots) {
		panic(fmt.Sprintf("sim: invalid snapshot id %d", id))
	}
	snap := c.snapshots[id]
	for i, state := range snap.states {
		c.components[i].restore(state)
	}
	c.logs = c.logs[:snap.logs]
	c.snapshots = c.snapshots[:id]
}

// AddLog appends an event.
func (c *Chain) AddLog(log *types.Log) {
	log.Index = uint(len(c.logs))
	c.logs = append(c.logs, log)
}

// Logs returns the events emitted so far.
func (c *Chain) Logs() []*types.Log {
	return append([]*types.Log(nil), c.logs...)
}

// LogsByTopic returns the events whose first topic is topic.
func (c *Chain) LogsByTopic(topic common.Hash) []*types.Log {
	var out []*types.Log
	for _, log := range c.logs {
		if len(log.Topics) > 0 && log.Topics[0] == topic {
			out = append(out, log)
		}
	}
	return out
}
