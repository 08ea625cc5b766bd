// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vault implements a managed weighted-basket vault. The vault owns a
// weighted AMM pool through an asset-manager custody interface, parks part of
// its assets in ERC-4626 yield wrappers, rebalances toward guardian-proposed
// target weights and accrues a per-second management fee for the guardian.
//
// A Vault is driven by a single executor. Every mutating entry point runs
// atomically: on error the host snapshot and the in-memory state are both
// rolled back.
package vault

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/parsdao/vault/config"
	"github.com/parsdao/vault/fixedpoint"
)

// maxOracleDecimals bounds feed decimals so that 10^decimals fits comfortably
const maxOracleDecimals = 36

// Vault is a managed weighted-basket vault.
type Vault struct {
	address     common.Address
	description string

	host    Host
	pool    Pool
	custody Custody

	poolTokens     []Token
	poolTokenAddrs []common.Address
	yieldTokens    []YieldTokenConfig

	oracles     []Oracle
	oracleUnits []*uint256.Int
	numeraire   int

	numPoolTokens  int
	numYieldTokens int
	numTokens      int

	policy config.Policy
	store  *stateStore
	log    log.Logger

	// mu protects the reentrancy flag
	mu sync.Mutex
	// locked prevents reentrancy attacks
	locked bool

	st *state
}

// New validates params and creates a vault. When the database already holds
// state for params.Address the vault resumes from it.
func New(params Params) (*Vault, error) {
	if params.Host == nil || params.Pool == nil || params.Custody == nil {
		return nil, fmt.Errorf("%w: host, pool and custody are required", ErrMissingAdapter)
	}
	if params.Description == "" {
		return nil, ErrDescriptionIsEmpty
	}
	if len(params.PoolTokens) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoolTokens, len(params.PoolTokens))
	}

	policy := params.Policy.Clone()
	if err := policy.Verify(); err != nil {
		return nil, err
	}

	v := &Vault{
		address:        params.Address,
		description:    params.Description,
		host:           params.Host,
		pool:           params.Pool,
		custody:        params.Custody,
		poolTokens:     params.PoolTokens,
		yieldTokens:    params.YieldTokens,
		oracles:        params.Oracles,
		numeraire:      params.NumeraireIndex,
		numPoolTokens:  len(params.PoolTokens),
		numYieldTokens: len(params.YieldTokens),
		policy:         policy,
		log:            params.Logger,
	}
	v.numTokens = v.numPoolTokens + v.numYieldTokens
	if v.log == nil {
		v.log = log.NewTestLogger(log.InfoLevel)
	}

	if err := v.validateTokens(); err != nil {
		return nil, err
	}
	if err := v.validateOracles(); err != nil {
		return nil, err
	}

	db := params.DB
	if db == nil {
		db = memdb.New()
	}
	v.store = newStateStore(db, v.address)

	stored, found, err := v.store.load()
	if err != nil {
		return nil, err
	}
	if found {
		if len(stored.FeesTotal) != v.numTokens {
			return nil, fmt.Errorf("%w: stored state has %d tokens, vault has %d", ErrValueLengthIsNotSame, len(stored.FeesTotal), v.numTokens)
		}
		v.st = stored
		v.log.Info("vault state restored",
			"vault", v.address,
			"initialized", stored.Initialized,
			"finalized", stored.Finalized,
		)
		return v, nil
	}

	if params.Owner == (common.Address{}) {
		return nil, ErrOwnerIsZeroAddress
	}
	if err := checkGuardian(params.Guardian, params.Owner); err != nil {
		return nil, err
	}

	v.st = &state{
		OraclesEnabled: true,
		Owner:          params.Owner,
		Guardian:       params.Guardian,
		CreatedAt:      v.host.Now(),
		GuardianFees: map[common.Address][]*uint256.Int{
			params.Guardian: fixedpoint.Zeros(v.numTokens),
		},
		FeesTotal: fixedpoint.Zeros(v.numTokens),
	}
	if err := v.store.save(v.st); err != nil {
		return nil, err
	}

	v.log.Info("vault created",
		"vault", v.address,
		"description", v.description,
		"poolTokens", v.numPoolTokens,
		"yieldTokens", v.numYieldTokens,
	)
	return v, nil
}

func (v *Vault) validateTokens() error {
	v.poolTokenAddrs = make([]common.Address, v.numPoolTokens)
	for i, token := range v.poolTokens {
		if token == nil {
			return fmt.Errorf("%w: pool token %d", ErrMissingAdapter, i)
		}
		v.poolTokenAddrs[i] = token.Address()
		if i > 0 && bytes.Compare(v.poolTokenAddrs[i-1][:], v.poolTokenAddrs[i][:]) >= 0 {
			return fmt.Errorf("%w: index=%d, token=%s", ErrTokensNotSorted, i, v.poolTokenAddrs[i])
		}
	}

	registered, _, _, err := v.pool.GetPoolTokens()
	if err != nil {
		return err
	}
	if len(registered) != v.numPoolTokens {
		return fmt.Errorf("%w: pool has %d tokens, vault has %d", ErrPoolTokenMismatch, len(registered), v.numPoolTokens)
	}
	for i, addr := range registered {
		if addr != v.poolTokenAddrs[i] {
			return fmt.Errorf("%w: index=%d, pool=%s, vault=%s", ErrPoolTokenMismatch, i, addr, v.poolTokenAddrs[i])
		}
	}

	for j, yt := range v.yieldTokens {
		if yt.Wrapper == nil {
			return fmt.Errorf("%w: yield token %d", ErrMissingAdapter, j)
		}
		if yt.UnderlyingIndex < 0 || yt.UnderlyingIndex >= v.numPoolTokens {
			return fmt.Errorf("%w: yield token %d, index=%d", ErrInvalidUnderlyingIndex, j, yt.UnderlyingIndex)
		}
		if asset := yt.Wrapper.Asset(); asset != v.poolTokenAddrs[yt.UnderlyingIndex] {
			return fmt.Errorf("%w: yield token %d, asset=%s, underlying=%s", ErrUnderlyingMismatch, j, asset, v.poolTokenAddrs[yt.UnderlyingIndex])
		}
	}
	return nil
}

func (v *Vault) validateOracles() error {
	if v.numeraire < 0 || v.numeraire >= v.numPoolTokens {
		return fmt.Errorf("%w: index=%d", ErrNumeraireOutOfRange, v.numeraire)
	}
	if len(v.oracles) != v.numPoolTokens {
		return fmt.Errorf("%w: oracles=%d, pool tokens=%d", ErrOracleLengthMismatch, len(v.oracles), v.numPoolTokens)
	}

	v.oracleUnits = make([]*uint256.Int, v.numPoolTokens)
	ten := uint256.NewInt(10)
	for i, oracle := range v.oracles {
		if i == v.numeraire {
			if oracle != nil {
				return ErrNumeraireOracleIsNotEmpty
			}
			v.oracleUnits[i] = fixedpoint.ONE.Clone()
			continue
		}
		if oracle == nil {
			return fmt.Errorf("%w: index=%d", ErrOracleIsMissing, i)
		}
		decimals, err := oracle.Decimals()
		if err != nil {
			return fmt.Errorf("failed to read oracle %d decimals: %w", i, err)
		}
		if decimals > maxOracleDecimals {
			return fmt.Errorf("%w: index=%d, decimals=%d", ErrOracleDecimalsInvalid, i, decimals)
		}
		v.oracleUnits[i] = new(uint256.Int).Exp(ten, uint256.NewInt(uint64(decimals)))
	}
	return nil
}

func checkGuardian(guardian, owner common.Address) error {
	if guardian == (common.Address{}) {
		return ErrGuardianIsZeroAddress
	}
	if guardian == owner {
		return fmt.Errorf("%w: %s", ErrGuardianIsOwner, guardian)
	}
	return nil
}

// =========================================================================
// Call boundary
// =========================================================================

// execute runs fn atomically under the reentrancy lock. Host and vault state
// are rolled back when fn fails or an arithmetic abort occurs; on success the
// state is persisted.
func (v *Vault) execute(op string, fn func() error) (err error) {
	v.mu.Lock()
	if v.locked {
		v.mu.Unlock()
		v.log.Warn("reentrant call rejected", "vault", v.address, "op", op)
		return fmt.Errorf("%w: %s", ErrReentrant, op)
	}
	v.locked = true
	v.mu.Unlock()

	snapshot := v.host.Snapshot()
	saved := v.st.clone()

	defer func() {
		if r := recover(); r != nil {
			err = fixedpoint.AsError(r)
		}
		if err == nil {
			err = v.store.save(v.st)
		}
		if err != nil {
			v.host.RevertToSnapshot(snapshot)
			v.st = saved
			v.log.Debug("vault call reverted", "vault", v.address, "op", op, "err", err)
		}

		v.mu.Lock()
		v.locked = false
		v.mu.Unlock()
	}()

	return fn()
}

// view runs a read-only computation, converting arithmetic aborts to errors.
func view[T any](fn func() (T, error)) (out T, err error) {
	defer fixedpoint.Recover(&err)
	return fn()
}

// =========================================================================
// Guards
// =========================================================================

func (v *Vault) onlyOwner(caller common.Address) error {
	if caller != v.st.Owner {
		return fmt.Errorf("%w: %s", ErrCallerIsNotOwner, caller)
	}
	return nil
}

func (v *Vault) onlyGuardian(caller common.Address) error {
	if caller != v.st.Guardian {
		return fmt.Errorf("%w: %s", ErrCallerIsNotGuardian, caller)
	}
	return nil
}

func (v *Vault) onlyOwnerOrGuardian(caller common.Address) error {
	if caller != v.st.Owner && caller != v.st.Guardian {
		return fmt.Errorf("%w: %s", ErrCallerIsNotOwnerOrGuardian, caller)
	}
	return nil
}

func (v *Vault) whenInitialized() error {
	if !v.st.Initialized {
		return ErrVaultNotInitialized
	}
	return nil
}

func (v *Vault) whenNotFinalized() error {
	if v.st.Finalized {
		return ErrVaultIsFinalized
	}
	return nil
}

// guard runs checks in order and returns the first failure.
func guard(checks ...error) error {
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// =========================================================================
// Views
// =========================================================================

// Address returns the vault's account.
func (v *Vault) Address() common.Address { return v.address }

// Description returns the vault description.
func (v *Vault) Description() string { return v.description }

// Owner returns the current owner.
func (v *Vault) Owner() common.Address { return v.st.Owner }

// PendingOwner returns the address offered ownership, if any.
func (v *Vault) PendingOwner() common.Address { return v.st.PendingOwner }

// Guardian returns the current guardian.
func (v *Vault) Guardian() common.Address { return v.st.Guardian }

// IsInitialized reports whether the initial deposit happened.
func (v *Vault) IsInitialized() bool { return v.st.Initialized }

// IsFinalized reports whether the vault is finalized.
func (v *Vault) IsFinalized() bool { return v.st.Finalized }

// OraclesEnabled reports whether oracle prices may be used.
func (v *Vault) OraclesEnabled() bool { return v.st.OraclesEnabled }

// CreatedAt returns the creation timestamp.
func (v *Vault) CreatedAt() uint64 { return v.st.CreatedAt }

// LastFeeCheckpoint returns the timestamp fees were last locked at.
func (v *Vault) LastFeeCheckpoint() uint64 { return v.st.LastFeeCheckpoint }

// NumTokens returns the number of pool tokens plus yield tokens.
func (v *Vault) NumTokens() int { return v.numTokens }

// Policy returns a copy of the vault's thresholds.
func (v *Vault) Policy() config.Policy { return v.policy.Clone() }

// Tokens returns the pool token addresses followed by the yield token addresses.
func (v *Vault) Tokens() []common.Address {
	tokens := make([]common.Address, 0, v.numTokens)
	tokens = append(tokens, v.poolTokenAddrs...)
	for _, yt := range v.yieldTokens {
		tokens = append(tokens, yt.Wrapper.Address())
	}
	return tokens
}

// IsSwapEnabled reports whether the pool accepts swaps.
func (v *Vault) IsSwapEnabled() (bool, error) {
	return v.pool.GetSwapEnabled()
}

// GuardianFees returns the unclaimed fees of guardian, or zeros when it has
// no ledger row.
func (v *Vault) GuardianFees(guardian common.Address) []*uint256.Int {
	if fees, ok := v.st.GuardianFees[guardian]; ok {
		return fixedpoint.Clone(fees)
	}
	return fixedpoint.Zeros(v.numTokens)
}

// FeesTotal returns the unclaimed fees of all guardians per token.
func (v *Vault) FeesTotal() []*uint256.Int {
	return fixedpoint.Clone(v.st.FeesTotal)
}

// Holdings returns the vault's holdings net of unclaimed fees: pool balances
// followed by yield token share balances.
func (v *Vault) Holdings() ([]*uint256.Int, error) {
	return view(func() ([]*uint256.Int, error) {
		poolHoldings, err := v.poolHoldings()
		if err != nil {
			return nil, err
		}
		yieldHoldings, err := v.yieldHoldings()
		if err != nil {
			return nil, err
		}
		return append(poolHoldings, yieldHoldings...), nil
	})
}
