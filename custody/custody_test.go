// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package custody_test

import (
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/bastion/custody"
	"github.com/blinklabs-io/bastion/database"

	"github.com/stretchr/testify/require"
)

// testClock is a manually advanced clock for exercising timelock
// boundaries deterministically
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{
		now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine *custody.Engine
	db     *database.Database
	clock  *testClock
	ledger *custody.LedgerDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	clock := newTestClock()
	ledger := custody.NewLedgerDispatcher(db)
	engine, err := custody.NewEngine(custody.EngineConfig{
		Database:   db,
		Clock:      clock,
		Dispatcher: ledger,
	})
	require.NoError(t, err)
	t.Cleanup(engine.EventBus().Stop)
	return &testEnv{
		engine: engine,
		db:     db,
		clock:  clock,
		ledger: ledger,
	}
}

// testAddr derives a distinct, deterministic address from a label
func testAddr(t *testing.T, label string) custody.Address {
	t.Helper()
	return custody.NewAddressFromCredential(
		[]byte(t.Name() + "/" + label),
	)
}

// newTestAccount bootstraps an account with the given signer sets and a
// routing table configured from the supplied ranges
func newTestAccount(
	t *testing.T,
	env *testEnv,
	owner custody.Address,
	signerSets [][]custody.Address,
	ranges ...custody.AmountRange,
) *custody.Account {
	t.Helper()
	acct, err := env.engine.NewAccount(owner, signerSets)
	require.NoError(t, err)
	for _, r := range ranges {
		_, err := acct.ConfigureAmountRange(owner, r)
		require.NoError(t, err)
	}
	return acct
}

// proposeAmount routes a proposal through the engine as the gate would
func proposeAmount(
	t *testing.T,
	env *testEnv,
	acct *custody.Account,
	to custody.Address,
	value uint64,
	data []byte,
	amount uint64,
) custody.TxKey {
	t.Helper()
	key, err := acct.Propose(env.engine.GateAddress(), to, value, data, amount)
	require.NoError(t, err)
	return key
}
