// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/parsdao/vault/fixedpoint"
)

// determinedPrices picks the price source for a deposit of amounts.
//
// Small vaults have unreliable spot prices and use the oracle. Otherwise the
// oracle must agree with spot within MaxOracleSpotDivergence; small deposits
// then use spot prices and significant ones the oracle.
func (v *Vault) determinedPrices(amounts []*uint256.Int) ([]*uint256.Int, PriceType, error) {
	poolHoldings, err := v.poolHoldings()
	if err != nil {
		return nil, PriceTypeNone, err
	}
	yieldHoldings, err := v.yieldHoldings()
	if err != nil {
		return nil, PriceTypeNone, err
	}
	yieldAssets, err := v.yieldUnderlying(yieldHoldings)
	if err != nil {
		return nil, PriceTypeNone, err
	}

	spot, err := v.spotPrices(poolHoldings)
	if err != nil {
		return nil, PriceTypeNone, err
	}
	oracle, updatedAt, err := v.oraclePrices()
	if err != nil {
		return nil, PriceTypeNone, err
	}

	holdingsValue := v.totalValue(poolHoldings, yieldAssets, spot)
	if holdingsValue.Lt(v.policy.MinReliableVaultValue) {
		if err := v.checkOracleStatus(updatedAt); err != nil {
			return nil, PriceTypeNone, err
		}
		return oracle, PriceTypeOracle, nil
	}

	for i := range spot {
		if i == v.numeraire {
			continue
		}
		if err := v.checkDivergence(i, spot[i], oracle[i]); err != nil {
			return nil, PriceTypeNone, err
		}
	}

	depositAssets, err := v.yieldUnderlying(amounts[v.numPoolTokens:])
	if err != nil {
		return nil, PriceTypeNone, err
	}
	depositValue := v.totalValue(amounts[:v.numPoolTokens], depositAssets, spot)
	if depositValue.Lt(v.policy.MinSignificantDepositValue) {
		return spot, PriceTypeSpot, nil
	}

	if err := v.checkOracleStatus(updatedAt); err != nil {
		return nil, PriceTypeNone, err
	}
	return oracle, PriceTypeOracle, nil
}

func (v *Vault) checkDivergence(i int, spot, oracle *uint256.Int) error {
	if spot.IsZero() {
		return fmt.Errorf("%w: index=%d, spot price is zero", ErrOracleSpotPriceDivergenceExceedsMax, i)
	}
	var ratio *uint256.Int
	if spot.Gt(oracle) {
		ratio = fixedpoint.DivDown(spot, oracle)
	} else {
		ratio = fixedpoint.DivDown(oracle, spot)
	}
	if ratio.Gt(v.policy.MaxOracleSpotDivergence) {
		return fmt.Errorf("%w: index=%d, ratio=%s, max=%s", ErrOracleSpotPriceDivergenceExceedsMax, i, ratio.Dec(), v.policy.MaxOracleSpotDivergence.Dec())
	}
	return nil
}
