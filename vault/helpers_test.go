// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault_test

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/vault/config"
	"github.com/parsdao/vault/fixedpoint"
	"github.com/parsdao/vault/sim"
	"github.com/parsdao/vault/vault"
)

const genesis uint64 = 1_700_000_000

// Test accounts
var (
	owner       = sim.Address("owner")
	guardian    = sim.Address("guardian")
	newGuardian = sim.Address("new-guardian")
	stranger    = sim.Address("stranger")
	vaultAddr   = sim.Address("vault")
)

// ether returns n whole tokens.
func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), fixedpoint.ONE)
}

// milli returns n thousandths of ONE.
func milli(n uint64) *uint256.Int {
	return uint256.NewInt(n * 1e15)
}

func amounts(values ...*uint256.Int) []*uint256.Int {
	return values
}

func weights(thousandths ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(thousandths))
	for i, n := range thousandths {
		out[i] = milli(n)
	}
	return out
}

// testPolicy keeps default thresholds with short windows so scenarios fit in
// a few thousand seconds.
func testPolicy() config.Policy {
	policy := config.DefaultPolicy()
	policy.MinFeeDuration = 1_000
	policy.MinWeightChangeDuration = 1_000
	return policy
}

type fixture struct {
	chain   *sim.Chain
	pool    *sim.ManagedPool
	tokens  []*sim.Token
	wrapper *sim.Wrapper
	feed    *sim.Feed

	params vault.Params
	vault  *vault.Vault
}

type fixtureOption func(*fixture)

// withYieldToken adds an ERC-4626 wrapper over the numeraire token.
func withYieldToken(withdrawable bool) fixtureOption {
	return func(f *fixture) {
		f.wrapper = sim.NewWrapper(f.chain, "yAAA", f.tokens[0])
		f.params.YieldTokens = []vault.YieldTokenConfig{{
			Wrapper:         f.wrapper,
			UnderlyingIndex: 0,
			IsWithdrawable:  withdrawable,
		}}
	}
}

func withPolicy(mutate func(*config.Policy)) fixtureOption {
	return func(f *fixture) {
		mutate(&f.params.Policy)
	}
}

func withoutFee() fixtureOption {
	return withPolicy(func(p *config.Policy) {
		p.ManagementFee = new(uint256.Int)
	})
}

// newEnv builds the chain, a two-token pool with token 0 as numeraire and a
// feed pricing token 1 at 1.0, without deploying the vault.
func newEnv(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	chain := sim.NewChain(genesis)
	pool, err := sim.NewManagedPool(chain, []*sim.Token{
		sim.NewToken(chain, "AAA"),
		sim.NewToken(chain, "BBB"),
	}, uint256.NewInt(1e15))
	require.NoError(t, err)

	tokens := pool.Tokens()
	for _, token := range tokens {
		token.Mint(owner, ether(10_000))
	}

	f := &fixture{
		chain:  chain,
		pool:   pool,
		tokens: tokens,
		feed:   sim.NewFeed(chain, 8, big.NewInt(1e8)),
	}
	f.params = vault.Params{
		Address:        vaultAddr,
		Description:    "AAA/BBB basket",
		Owner:          owner,
		Guardian:       guardian,
		Host:           chain,
		Pool:           pool,
		Custody:        pool,
		PoolTokens:     []vault.Token{tokens[0], tokens[1]},
		Oracles:        []vault.Oracle{nil, f.feed},
		NumeraireIndex: 0,
		Policy:         testPolicy(),
		DB:             memdb.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// newFixture deploys a vault over a fresh environment.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := newEnv(t, opts...)
	v, err := vault.New(f.params)
	require.NoError(t, err)
	f.vault = v
	return f
}

// newInitializedFixture deploys a vault and seeds it with 100 of each pool
// token at equal weights.
func newInitializedFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	n := f.vault.NumTokens()
	deposit := make([]*uint256.Int, n)
	w := make([]*uint256.Int, n)
	for i := range deposit {
		deposit[i] = new(uint256.Int)
		w[i] = new(uint256.Int)
	}
	deposit[0], deposit[1] = ether(100), ether(100)
	w[0], w[1] = milli(500), milli(500)
	require.NoError(t, f.vault.InitialDeposit(owner, deposit, w))
	return f
}

func (f *fixture) balance(t *testing.T, token vault.Token, account common.Address) *uint256.Int {
	t.Helper()
	bal, err := token.BalanceOf(account)
	require.NoError(t, err)
	return bal
}

func (f *fixture) holdings(t *testing.T) []*uint256.Int {
	t.Helper()
	holdings, err := f.vault.Holdings()
	require.NoError(t, err)
	return holdings
}

func (f *fixture) poolWeights(t *testing.T) []*uint256.Int {
	t.Helper()
	w, err := f.pool.GetNormalizedWeights()
	require.NoError(t, err)
	return w
}

func (f *fixture) events(name string) int {
	return len(f.chain.LogsByTopic(vault.VaultABI.Events[name].ID))
}

func requireSumIsOne(t *testing.T, values []*uint256.Int) {
	t.Helper()
	require.Equal(t, fixedpoint.ONE, fixedpoint.Sum(values))
}
