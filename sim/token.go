// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
)

// BasisPoints is 100%
const BasisPoints uint64 = 10_000

// TransferHook runs after a successful transfer.
type TransferHook func(from, to common.Address, amount *uint256.Int) error

type tokenState struct {
	balances map[common.Address]*uint256.Int
	supply   *uint256.Int
}

func (s tokenState) clone() tokenState {
	out := tokenState{
		balances: make(map[common.Address]*uint256.Int, len(s.balances)),
		supply:   s.supply.Clone(),
	}
	for addr, bal := range s.balances {
		out.balances[addr] = bal.Clone()
	}
	return out
}

// Token is an ERC-20 ledger. Transfers may burn a fee and run a hook.
type Token struct {
	address common.Address
	symbol  string

	st tokenState

	transferFeeBps uint64
	hook           TransferHook
}

// NewToken creates a token whose address is derived from symbol.
func NewToken(chain *Chain, symbol string) *Token {
	return NewTokenAt(chain, symbol, Address("token:"+symbol))
}

// NewTokenAt creates a token at a fixed address.
func NewTokenAt(chain *Chain, symbol string, address common.Address) *Token {
	t := &Token{
		address: address,
		symbol:  symbol,
		st: tokenState{
			balances: make(map[common.Address]*uint256.Int),
			supply:   new(uint256.Int),
		},
	}
	chain.register(t)
	return t
}

func (t *Token) snapshot() any { return t.st.clone() }

func (t *Token) restore(s any) { t.st = s.(tokenState).clone() }

// Address returns the token address.
func (t *Token) Address() common.Address { return t.address }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// TotalSupply returns the minted supply.
func (t *Token) TotalSupply() *uint256.Int { return t.st.supply.Clone() }

// SetTransferFee burns bps of every transfer.
func (t *Token) SetTransferFee(bps uint64) { t.transferFeeBps = bps }

// SetTransferHook installs a hook run after every transfer.
func (t *Token) SetTransferHook(hook TransferHook) { t.hook = hook }

// BalanceOf returns the balance of account.
func (t *Token) BalanceOf(account common.Address) (*uint256.Int, error) {
	return t.balanceOf(account), nil
}

func (t *Token) balanceOf(account common.Address) *uint256.Int {
	if bal, ok := t.st.balances[account]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Mint creates amount for to.
func (t *Token) Mint(to common.Address, amount *uint256.Int) {
	t.st.balances[to] = fixedpoint.Add(t.balanceOf(to), amount)
	t.st.supply = fixedpoint.Add(t.st.supply, amount)
}

// Burn destroys amount held by from.
func (t *Token) Burn(from common.Address, amount *uint256.Int) error {
	bal := t.balanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientBalance, from, bal.Dec(), t.symbol, amount.Dec())
	}
	t.st.balances[from] = new(uint256.Int).Sub(bal, amount)
	t.st.supply = new(uint256.Int).Sub(t.st.supply, amount)
	return nil
}

// Transfer moves amount from from to to, burning the transfer fee.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	if err := t.Burn(from, amount); err != nil {
		return err
	}
	fee := new(uint256.Int).Div(fixedpoint.Mul(amount, uint256.NewInt(t.transferFeeBps)), uint256.NewInt(BasisPoints))
	t.Mint(to, new(uint256.Int).Sub(amount, fee))

	if t.hook != nil {
		return t.hook(from, to, amount)
	}
	return nil
}
