// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import "errors"

// Errors - Construction
var (
	ErrDescriptionIsEmpty        = errors.New("description is empty")
	ErrTooFewPoolTokens          = errors.New("vault needs at least two pool tokens")
	ErrTokensNotSorted           = errors.New("pool tokens are not sorted")
	ErrPoolTokenMismatch         = errors.New("pool tokens do not match configured tokens")
	ErrNumeraireOutOfRange       = errors.New("numeraire index out of range")
	ErrOracleLengthMismatch      = errors.New("oracle count does not match pool tokens")
	ErrNumeraireOracleIsNotEmpty = errors.New("numeraire oracle must be empty")
	ErrOracleIsMissing           = errors.New("oracle is missing")
	ErrOracleDecimalsInvalid     = errors.New("oracle decimals invalid")
	ErrInvalidUnderlyingIndex    = errors.New("yield token underlying index out of range")
	ErrUnderlyingMismatch        = errors.New("yield token asset does not match underlying")
	ErrMissingAdapter            = errors.New("missing adapter")
)

// Errors - Access control and lifecycle
var (
	ErrCallerIsNotOwner           = errors.New("caller is not owner")
	ErrCallerIsNotGuardian        = errors.New("caller is not guardian")
	ErrCallerIsNotOwnerOrGuardian = errors.New("caller is not owner or guardian")
	ErrNotPendingOwner            = errors.New("caller is not pending owner")
	ErrOwnerIsZeroAddress         = errors.New("owner is zero address")
	ErrGuardianIsZeroAddress      = errors.New("guardian is zero address")
	ErrGuardianIsOwner            = errors.New("guardian is owner")
	ErrVaultNotInitialized        = errors.New("vault is not initialized")
	ErrVaultIsAlreadyInitialized  = errors.New("vault is already initialized")
	ErrVaultIsFinalized           = errors.New("vault is finalized")
	ErrVaultIsNotRenounceable     = errors.New("vault ownership is not renounceable")
	ErrReentrant                  = errors.New("reentrancy detected")
)

// Errors - Inputs
var (
	ErrValueLengthIsNotSame  = errors.New("value length is not same as number of tokens")
	ErrSumOfWeightIsNotOne   = errors.New("sum of weights is not one")
	ErrAmountIsZero          = errors.New("amount is zero")
	ErrAmountExceedAvailable = errors.New("amount exceeds available holdings")
	ErrCannotSweepVaultAsset = errors.New("cannot sweep vault asset")
)

// Errors - Prices
var (
	ErrOraclesAreDisabled                  = errors.New("oracles are disabled")
	ErrOraclePriceInvalid                  = errors.New("oracle price is invalid")
	ErrOracleIsDelayedBeyondMax            = errors.New("oracle is delayed beyond max")
	ErrOracleSpotPriceDivergenceExceedsMax = errors.New("oracle spot price divergence exceeds max")
)

// Errors - Weights, swap fee and balances
var (
	ErrWeightChangeTimeIsAboveMax        = errors.New("weight change time is above max")
	ErrWeightChangeEndBeforeStart        = errors.New("weight change end time is before start time")
	ErrWeightChangeDurationIsBelowMin    = errors.New("weight change duration is below min")
	ErrWeightChangeRatioIsAboveMax       = errors.New("weight change ratio is above max")
	ErrBalanceChangedInCurrentBlock      = errors.New("pool balance changed in current block")
	ErrCannotSetSwapFeeBeforeCooldown    = errors.New("cannot set swap fee before cooldown")
	ErrSwapFeePercentageChangeIsAboveMax = errors.New("swap fee percentage change is above max")
	ErrNoAvailableFeeForCaller           = errors.New("no available fee for caller")
)

// Errors - Call surface
var (
	ErrWriteProtection = errors.New("write protection")
	ErrInsufficientGas = errors.New("insufficient gas")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownSelector = errors.New("unknown function selector")
)
