// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rlp"
	"github.com/zeebo/blake3"

	"github.com/parsdao/vault/fixedpoint"
)

// Storage key prefixes for vault state
var (
	vaultStatePrefix = []byte("vlts")
)

// state is the mutable part of a vault. Every mutating call works on it
// directly and restores a clone on failure.
type state struct {
	Initialized    bool
	Finalized      bool
	OraclesEnabled bool

	Owner        common.Address
	PendingOwner common.Address
	Guardian     common.Address

	CreatedAt             uint64
	LastFeeCheckpoint     uint64
	LastSwapFeeCheckpoint uint64

	// GuardianFees holds unclaimed fees per guardian, one entry per token
	GuardianFees map[common.Address][]*uint256.Int
	// FeesTotal is the sum of GuardianFees per token
	FeesTotal []*uint256.Int
}

func (s *state) clone() *state {
	out := *s
	out.GuardianFees = make(map[common.Address][]*uint256.Int, len(s.GuardianFees))
	for guardian, fees := range s.GuardianFees {
		out.GuardianFees[guardian] = fixedpoint.Clone(fees)
	}
	out.FeesTotal = fixedpoint.Clone(s.FeesTotal)
	return &out
}

// storedFees is one guardian ledger row.
type storedFees struct {
	Guardian common.Address
	Amounts  []*big.Int
}

// storedState is the RLP layout of state.
type storedState struct {
	Initialized           bool
	Finalized             bool
	OraclesEnabled        bool
	Owner                 common.Address
	PendingOwner          common.Address
	Guardian              common.Address
	CreatedAt             uint64
	LastFeeCheckpoint     uint64
	LastSwapFeeCheckpoint uint64
	GuardianFees          []storedFees
	FeesTotal             []*big.Int
}

func toBigs(values []*uint256.Int) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = v.ToBig()
	}
	return out
}

func fromBigs(values []*big.Int) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		u, overflow := uint256.FromBig(v)
		if overflow {
			return nil, fmt.Errorf("amount %d overflows uint256", i)
		}
		out[i] = u
	}
	return out, nil
}

// stateStore persists committed vault state in a key-value database.
type stateStore struct {
	db  database.Database
	key []byte
}

func newStateStore(db database.Database, vaultAddr common.Address) *stateStore {
	key := makeStorageKey(vaultStatePrefix, vaultAddr.Bytes())
	return &stateStore{db: db, key: key[:]}
}

// makeStorageKey creates a storage key from prefix and identifier
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func (s *stateStore) save(st *state) error {
	stored := storedState{
		Initialized:           st.Initialized,
		Finalized:             st.Finalized,
		OraclesEnabled:        st.OraclesEnabled,
		Owner:                 st.Owner,
		PendingOwner:          st.PendingOwner,
		Guardian:              st.Guardian,
		CreatedAt:             st.CreatedAt,
		LastFeeCheckpoint:     st.LastFeeCheckpoint,
		LastSwapFeeCheckpoint: st.LastSwapFeeCheckpoint,
		FeesTotal:             toBigs(st.FeesTotal),
	}
	for guardian, fees := range st.GuardianFees {
		stored.GuardianFees = append(stored.GuardianFees, storedFees{
			Guardian: guardian,
			Amounts:  toBigs(fees),
		})
	}
	// sort by guardian for a deterministic encoding
	sort.Slice(stored.GuardianFees, func(i, j int) bool {
		return bytes.Compare(stored.GuardianFees[i].Guardian[:], stored.GuardianFees[j].Guardian[:]) < 0
	})

	encoded, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode vault state: %w", err)
	}
	if err := s.db.Put(s.key, encoded); err != nil {
		return fmt.Errorf("failed to write vault state: %w", err)
	}
	return nil
}

// load returns the stored state, or false when none exists.
func (s *stateStore) load() (*state, bool, error) {
	encoded, err := s.db.Get(s.key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read vault state: %w", err)
	}

	var stored storedState
	if err := rlp.DecodeBytes(encoded, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to decode vault state: %w", err)
	}

	st := &state{
		Initialized:           stored.Initialized,
		Finalized:             stored.Finalized,
		OraclesEnabled:        stored.OraclesEnabled,
		Owner:                 stored.Owner,
		PendingOwner:          stored.PendingOwner,
		Guardian:              stored.Guardian,
		CreatedAt:             stored.CreatedAt,
		LastFeeCheckpoint:     stored.LastFeeCheckpoint,
		LastSwapFeeCheckpoint: stored.LastSwapFeeCheckpoint,
		GuardianFees:          make(map[common.Address][]*uint256.Int, len(stored.GuardianFees)),
	}
	if st.FeesTotal, err = fromBigs(stored.FeesTotal); err != nil {
		return nil, false, err
	}
	for _, row := range stored.GuardianFees {
		fees, err := fromBigs(row.Amounts)
		if err != nil {
			return nil, false, err
		}
		st.GuardianFees[row.Guardian] = fees
	}
	return st, true, nil
}
