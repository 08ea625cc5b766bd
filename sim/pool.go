// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
	"github.com/parsdao/vault/vault"
)

var (
	_ vault.Pool    = (*ManagedPool)(nil)
	_ vault.Custody = (*ManagedPool)(nil)
)

// Swap fee limits
var (
	MinSwapFee = uint256.NewInt(1e12) // 0.0001%
	MaxSwapFee = uint256.NewInt(1e17) // 10%
)

type poolState struct {
	// cash is held at the pool address; managed is held by the asset manager
	cash    []*uint256.Int
	managed []*uint256.Int

	startWeights []*uint256.Int
	endWeights   []*uint256.Int
	startTime    uint64
	endTime      uint64

	startFee     *uint256.Int
	endFee       *uint256.Int
	feeStartTime uint64
	feeEndTime   uint64

	swapEnabled     bool
	initialized     bool
	lastChangeBlock uint64
}

func (s poolState) clone() poolState {
	out := s
	out.cash = fixedpoint.Clone(s.cash)
	out.managed = fixedpoint.Clone(s.managed)
	out.startWeights = fixedpoint.Clone(s.startWeights)
	out.endWeights = fixedpoint.Clone(s.endWeights)
	out.startFee = s.startFee.Clone()
	out.endFee = s.endFee.Clone()
	return out
}

// ManagedPool is a weighted pool whose weights and swap fee move linearly
// between scheduled endpoints, with per-token asset-manager balances.
type ManagedPool struct {
	chain   *Chain
	address common.Address
	tokens  []*Token
	index   map[common.Address]int

	st poolState
}

// NewManagedPool creates an empty pool over tokens with equal weights.
func NewManagedPool(chain *Chain, tokens []*Token, swapFee *uint256.Int) (*ManagedPool, error) {
	if swapFee.Lt(MinSwapFee) || swapFee.Gt(MaxSwapFee) {
		return nil, fmt.Errorf("%w: %s", ErrSwapFeeOutOfRange, swapFee.Dec())
	}
	sorted := append([]*Token(nil), tokens...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].address[:], sorted[j].address[:]) < 0
	})

	n := len(sorted)
	equal := make([]*uint256.Int, n)
	for i := range equal {
		equal[i] = fixedpoint.ONE.Clone()
	}
	weights := fixedpoint.Normalize(equal)

	p := &ManagedPool{
		chain:   chain,
		address: Address("pool"),
		tokens:  sorted,
		index:   make(map[common.Address]int, n),
		st: poolState{
			cash:         fixedpoint.Zeros(n),
			managed:      fixedpoint.Zeros(n),
			startWeights: weights,
			endWeights:   fixedpoint.Clone(weights),
			startFee:     swapFee.Clone(),
			endFee:       swapFee.Clone(),
		},
	}
	for i, t := range sorted {
		p.index[t.address] = i
	}
	chain.register(p)
	return p, nil
}

func (p *ManagedPool) snapshot() any { return p.st.clone() }

func (p *ManagedPool) restore(s any) { p.st = s.(poolState).clone() }

// Address returns the account holding pool cash.
func (p *ManagedPool) Address() common.Address { return p.address }

// Tokens returns the pool tokens in registration order.
func (p *ManagedPool) Tokens() []*Token {
	return append([]*Token(nil), p.tokens...)
}

// Cash returns the cash balance of token i.
func (p *ManagedPool) Cash(i int) *uint256.Int { return p.st.cash[i].Clone() }

// Managed returns the managed balance of token i.
func (p *ManagedPool) Managed(i int) *uint256.Int { return p.st.managed[i].Clone() }

// WeightChangeEnd returns the end of the scheduled weight change.
func (p *ManagedPool) WeightChangeEnd() uint64 { return p.st.endTime }

// interpolate moves from start to end by the elapsed share of [startTime, endTime].
func (p *ManagedPool) interpolate(start, end *uint256.Int, startTime, endTime uint64) *uint256.Int {
	now := p.chain.Now()
	switch {
	case now <= startTime:
		return start.Clone()
	case now >= endTime:
		return end.Clone()
	}
	pct := fixedpoint.DivDown(uint256.NewInt(now-startTime), uint256.NewInt(endTime-startTime))
	if end.Gt(start) {
		return fixedpoint.Add(start, fixedpoint.MulDown(fixedpoint.Sub(end, start), pct))
	}
	return fixedpoint.Sub(start, fixedpoint.MulDown(fixedpoint.Sub(start, end), pct))
}

// GetNormalizedWeights returns the current interpolated weights.
func (p *ManagedPool) GetNormalizedWeights() (weights []*uint256.Int, err error) {
	defer fixedpoint.Recover(&err)

	weights = make([]*uint256.Int, len(p.tokens))
	for i := range weights {
		weights[i] = p.interpolate(p.st.startWeights[i], p.st.endWeights[i], p.st.startTime, p.st.endTime)
	}
	return fixedpoint.Normalize(weights), nil
}

// GetSwapFeePercentage returns the current interpolated swap fee.
func (p *ManagedPool) GetSwapFeePercentage() (fee *uint256.Int, err error) {
	defer fixedpoint.Recover(&err)
	return p.interpolate(p.st.startFee, p.st.endFee, p.st.feeStartTime, p.st.feeEndTime), nil
}

// UpdateWeightsGradually schedules a linear move from the current weights to
// endWeights. A start in the past starts now.
func (p *ManagedPool) UpdateWeightsGradually(startTime, endTime uint64, tokens []common.Address, endWeights []*uint256.Int) error {
	if len(tokens) != len(p.tokens) || len(endWeights) != len(p.tokens) {
		return fmt.Errorf("%w: got %d tokens and %d weights", ErrTokenNotRegistered, len(tokens), len(endWeights))
	}
	for i, addr := range tokens {
		if addr != p.tokens[i].address {
			return fmt.Errorf("%w: %s at %d", ErrTokenNotRegistered, addr, i)
		}
	}
	for i, w := range endWeights {
		if w.Lt(vault.MinWeight) {
			return fmt.Errorf("%w: index=%d weight=%s", ErrMinWeight, i, w.Dec())
		}
	}
	if sum := fixedpoint.Sum(endWeights); !sum.Eq(fixedpoint.ONE) {
		return fmt.Errorf("%w: sum=%s", ErrNormalizedWeightInvariant, sum.Dec())
	}

	startTime = max(startTime, p.chain.Now())
	if endTime < startTime {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidTimes, startTime, endTime)
	}

	current, err := p.GetNormalizedWeights()
	if err != nil {
		return err
	}
	p.st.startWeights = current
	p.st.endWeights = fixedpoint.Clone(endWeights)
	p.st.startTime = startTime
	p.st.endTime = endTime
	return nil
}

// UpdateSwapFeeGradually schedules a linear swap fee move.
func (p *ManagedPool) UpdateSwapFeeGradually(startTime, endTime uint64, startFee, endFee *uint256.Int) error {
	for _, fee := range []*uint256.Int{startFee, endFee} {
		if fee.Lt(MinSwapFee) || fee.Gt(MaxSwapFee) {
			return fmt.Errorf("%w: %s", ErrSwapFeeOutOfRange, fee.Dec())
		}
	}
	startTime = max(startTime, p.chain.Now())
	if endTime < startTime {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidTimes, startTime, endTime)
	}
	p.st.startFee = startFee.Clone()
	p.st.endFee = endFee.Clone()
	p.st.feeStartTime = startTime
	p.st.feeEndTime = endTime
	return nil
}

// SetSwapEnabled toggles swaps.
func (p *ManagedPool) SetSwapEnabled(enabled bool) error {
	p.st.swapEnabled = enabled
	return nil
}

// GetSwapEnabled reports whether swaps are enabled.
func (p *ManagedPool) GetSwapEnabled() (bool, error) {
	return p.st.swapEnabled, nil
}

// GetPoolTokens returns tokens, cash plus managed balances and the block of
// the last balance change.
func (p *ManagedPool) GetPoolTokens() ([]common.Address, []*uint256.Int, uint64, error) {
	addrs := make([]common.Address, len(p.tokens))
	balances := make([]*uint256.Int, len(p.tokens))
	for i, t := range p.tokens {
		addrs[i] = t.address
		balances[i] = new(uint256.Int).Add(p.st.cash[i], p.st.managed[i])
	}
	return addrs, balances, p.st.lastChangeBlock, nil
}

// JoinPoolInit seeds the empty pool with amounts taken from sender.
func (p *ManagedPool) JoinPoolInit(sender common.Address, amounts []*uint256.Int) error {
	if p.st.initialized {
		return ErrPoolAlreadyInitialized
	}
	if len(amounts) != len(p.tokens) {
		return fmt.Errorf("%w: got %d amounts", ErrTokenNotRegistered, len(amounts))
	}
	for i, amount := range amounts {
		received, err := p.receive(i, sender, amount)
		if err != nil {
			return err
		}
		p.st.cash[i] = fixedpoint.Add(p.st.cash[i], received)
	}
	p.st.initialized = true
	p.st.lastChangeBlock = p.chain.BlockNumber()
	return nil
}

// ManagePoolBalance executes asset-manager operations for manager.
func (p *ManagedPool) ManagePoolBalance(manager common.Address, ops []vault.PoolBalanceOp) (err error) {
	defer fixedpoint.Recover(&err)

	if !p.st.initialized {
		return ErrPoolNotInitialized
	}
	for _, op := range ops {
		i, ok := p.index[op.Token]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTokenNotRegistered, op.Token)
		}
		switch op.Kind {
		case vault.OpWithdraw:
			if p.st.cash[i].Lt(op.Amount) {
				return fmt.Errorf("%w: token=%s cash=%s amount=%s", ErrInsufficientCash, op.Token, p.st.cash[i].Dec(), op.Amount.Dec())
			}
			p.st.cash[i] = fixedpoint.Sub(p.st.cash[i], op.Amount)
			p.st.managed[i] = fixedpoint.Add(p.st.managed[i], op.Amount)
			if err := p.tokens[i].Transfer(p.address, manager, op.Amount); err != nil {
				return err
			}
		case vault.OpDeposit:
			if p.st.managed[i].Lt(op.Amount) {
				return fmt.Errorf("%w: token=%s managed=%s amount=%s", ErrInsufficientManaged, op.Token, p.st.managed[i].Dec(), op.Amount.Dec())
			}
			received, err := p.receive(i, manager, op.Amount)
			if err != nil {
				return err
			}
			p.st.managed[i] = fixedpoint.Sub(p.st.managed[i], op.Amount)
			p.st.cash[i] = fixedpoint.Add(p.st.cash[i], received)
		case vault.OpUpdate:
			p.st.managed[i] = op.Amount.Clone()
		default:
			return fmt.Errorf("unknown pool balance op %s", op.Kind)
		}
		p.st.lastChangeBlock = p.chain.BlockNumber()
	}
	return nil
}

// receive pulls amount of token i from sender and returns what arrived.
func (p *ManagedPool) receive(i int, sender common.Address, amount *uint256.Int) (*uint256.Int, error) {
	token := p.tokens[i]
	before := token.balanceOf(p.address)
	if err := token.Transfer(sender, p.address, amount); err != nil {
		return nil, err
	}
	return fixedpoint.Sub(token.balanceOf(p.address), before), nil
}
