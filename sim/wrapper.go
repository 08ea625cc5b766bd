// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/vault/fixedpoint"
	"github.com/parsdao/vault/vault"
)

var _ vault.YieldWrapper = (*Wrapper)(nil)

// Wrapper is an ERC-4626 vault over asset. Shares are tracked by the embedded
// Token and total assets are the asset balance held at the wrapper address.
type Wrapper struct {
	*Token
	asset *Token

	// depositCap and withdrawCap are nil when unlimited
	depositCap  *uint256.Int
	withdrawCap *uint256.Int

	failMax      bool
	failDeposit  bool
	failWithdraw bool
}

// NewWrapper creates a wrapper over asset with share symbol symbol.
func NewWrapper(chain *Chain, symbol string, asset *Token) *Wrapper {
	return &Wrapper{
		Token: NewToken(chain, symbol),
		asset: asset,
	}
}

// Asset returns the underlying token address.
func (w *Wrapper) Asset() common.Address { return w.asset.Address() }

// SetDepositCap limits MaxDeposit; nil removes the limit.
func (w *Wrapper) SetDepositCap(limit *uint256.Int) { w.depositCap = limit }

// SetWithdrawCap limits MaxWithdraw; nil removes the limit.
func (w *Wrapper) SetWithdrawCap(limit *uint256.Int) { w.withdrawCap = limit }

// SetFailures makes the max queries, deposits or withdrawals fail.
func (w *Wrapper) SetFailures(maxQueries, deposits, withdrawals bool) {
	w.failMax = maxQueries
	w.failDeposit = deposits
	w.failWithdraw = withdrawals
}

// Accrue adds yield by minting amount of the asset to the wrapper.
func (w *Wrapper) Accrue(amount *uint256.Int) {
	w.asset.Mint(w.address, amount)
}

// TotalAssets returns the assets backing all shares.
func (w *Wrapper) TotalAssets() *uint256.Int {
	return w.asset.balanceOf(w.address)
}

// ConvertToShares rounds down.
func (w *Wrapper) ConvertToShares(assets *uint256.Int) *uint256.Int {
	supply, total := w.st.supply, w.TotalAssets()
	if supply.IsZero() || total.IsZero() {
		return assets.Clone()
	}
	return fixedpoint.Div(fixedpoint.Mul(assets, supply), total)
}

// ConvertToAssets rounds down.
func (w *Wrapper) ConvertToAssets(shares *uint256.Int) (*uint256.Int, error) {
	supply := w.st.supply
	if supply.IsZero() {
		return shares.Clone(), nil
	}
	return fixedpoint.Div(fixedpoint.Mul(shares, w.TotalAssets()), supply), nil
}

// MaxDeposit returns the deposit cap.
func (w *Wrapper) MaxDeposit(common.Address) (*uint256.Int, error) {
	if w.failMax {
		return nil, fmt.Errorf("%w: maxDeposit", ErrWrapperFailure)
	}
	if w.depositCap == nil {
		return fixedpoint.MaxUint256.Clone(), nil
	}
	return w.depositCap.Clone(), nil
}

// Deposit takes assets from caller and mints shares to receiver.
func (w *Wrapper) Deposit(caller common.Address, assets *uint256.Int, receiver common.Address) (*uint256.Int, error) {
	if w.failDeposit {
		return nil, fmt.Errorf("%w: deposit", ErrWrapperFailure)
	}
	limit, err := w.MaxDeposit(receiver)
	if err != nil {
		return nil, err
	}
	if assets.Gt(limit) {
		return nil, fmt.Errorf("%w: %s > %s", ErrExceedsMaxDeposit, assets.Dec(), limit.Dec())
	}

	shares := w.ConvertToShares(assets)
	if err := w.asset.Transfer(caller, w.address, assets); err != nil {
		return nil, err
	}
	w.Mint(receiver, shares)
	return shares, nil
}

// MaxWithdraw returns the assets owner can withdraw.
func (w *Wrapper) MaxWithdraw(owner common.Address) (*uint256.Int, error) {
	if w.failMax {
		return nil, fmt.Errorf("%w: maxWithdraw", ErrWrapperFailure)
	}
	assets, err := w.ConvertToAssets(w.balanceOf(owner))
	if err != nil {
		return nil, err
	}
	if w.withdrawCap != nil {
		assets = fixedpoint.Min(assets, w.withdrawCap)
	}
	return assets, nil
}

// Withdraw burns the shares for assets from owner and sends assets to
// receiver. Shares round up.
func (w *Wrapper) Withdraw(caller common.Address, assets *uint256.Int, receiver, owner common.Address) (*uint256.Int, error) {
	if w.failWithdraw {
		return nil, fmt.Errorf("%w: withdraw", ErrWrapperFailure)
	}
	if caller != owner {
		return nil, fmt.Errorf("%w: %s cannot withdraw for %s", ErrUnauthorized, caller, owner)
	}
	limit, err := w.MaxWithdraw(owner)
	if err != nil {
		return nil, err
	}
	if assets.Gt(limit) {
		return nil, fmt.Errorf("%w: %s > %s", ErrExceedsMaxWithdraw, assets.Dec(), limit.Dec())
	}

	shares := assets.Clone()
	if supply := w.st.supply; !supply.IsZero() {
		shares = divCeil(fixedpoint.Mul(assets, supply), w.TotalAssets())
	}
	if err := w.Burn(owner, shares); err != nil {
		return nil, err
	}
	if err := w.asset.Transfer(w.address, receiver, assets); err != nil {
		return nil, err
	}
	return shares, nil
}

func divCeil(a, b *uint256.Int) *uint256.Int {
	q, r := new(uint256.Int).DivMod(a, b, new(uint256.Int))
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}
