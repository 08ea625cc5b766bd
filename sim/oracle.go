// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"math/big"

	"github.com/parsdao/vault/vault"
)

var _ vault.Oracle = (*Feed)(nil)

// Feed is an aggregator-style price feed driven by the test.
type Feed struct {
	chain    *Chain
	decimals uint8

	round     uint64
	answer    *big.Int
	updatedAt uint64
	err       error
}

// NewFeed creates a feed reporting answer as of the current block.
func NewFeed(chain *Chain, decimals uint8, answer *big.Int) *Feed {
	f := &Feed{chain: chain, decimals: decimals}
	f.SetAnswer(answer)
	return f
}

// SetAnswer publishes a new round at the current block time.
func (f *Feed) SetAnswer(answer *big.Int) {
	f.round++
	f.answer = new(big.Int).Set(answer)
	f.updatedAt = f.chain.Now()
}

// SetUpdatedAt overrides the timestamp of the latest round.
func (f *Feed) SetUpdatedAt(updatedAt uint64) { f.updatedAt = updatedAt }

// SetError makes every read fail with err; nil clears it.
func (f *Feed) SetError(err error) { f.err = err }

// LatestRoundData returns the latest round.
func (f *Feed) LatestRoundData() (vault.RoundData, error) {
	if f.err != nil {
		return vault.RoundData{}, f.err
	}
	return vault.RoundData{
		RoundID:   f.round,
		Answer:    new(big.Int).Set(f.answer),
		StartedAt: f.updatedAt,
		UpdatedAt: f.updatedAt,
	}, nil
}

// Decimals returns the precision of answers.
func (f *Feed) Decimals() (uint8, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.decimals, nil
}
