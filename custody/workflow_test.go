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
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/bastion/custody"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Lowest tier: a single level with a 2-of-3 quorum and a one hour
// timelock. Two signers sign, the timelock elapses, completion and
// execution follow, and the ledger moves exactly the proposed value.
func TestWorkflowSingleLevel(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signers := []custody.Address{
		testAddr(t, "signer1"),
		testAddr(t, "signer2"),
		testAddr(t, "signer3"),
	}
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{signers},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{2},
			Timelocks: []time.Duration{time.Hour},
		},
	)
	require.NoError(t, env.ledger.Credit(acct.Address(), 1000))
	dest := testAddr(t, "dest")
	key := proposeAmount(t, env, acct, dest, 500, nil, 500)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signers[0], key))
	require.NoError(t, lvl.Sign(signers[1], key))
	// Quorum met but timelock still active
	err = lvl.CompleteTimelock(key)
	var timelockErr custody.TimelockActiveError
	require.ErrorAs(t, err, &timelockErr)
	env.clock.Advance(time.Hour)
	require.NoError(t, lvl.CompleteTimelock(key))
	status, err := acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.True(t, status.FullyApproved)
	require.NoError(t, acct.ExecuteApproved(key))
	destBalance, err := env.ledger.Balance(dest)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), destBalance)
	acctBalance, err := env.ledger.Balance(acct.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(500), acctBalance)
	// All transaction state was reclaimed
	_, err = acct.TransactionStatus(key)
	require.ErrorIs(t, err, custody.ErrTxNotFound)
}

// Three tiers: 3-of-3, then 2-of-2, then 1-of-1. Completing level 2 must
// leave level 3 already submitted purely as a result of the completion
// callback, with the cursor pointing at it.
func TestWorkflowThreeLevels(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	level1 := []custody.Address{
		testAddr(t, "l1s1"),
		testAddr(t, "l1s2"),
		testAddr(t, "l1s3"),
	}
	level2 := []custody.Address{
		testAddr(t, "l2s1"),
		testAddr(t, "l2s2"),
	}
	level3 := []custody.Address{
		testAddr(t, "l3s1"),
	}
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{level1, level2, level3},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 10000,
			LevelIds:  []uint64{1, 2, 3},
			Quorums:   []uint64{3, 2, 1},
			Timelocks: []time.Duration{
				time.Hour,
				30 * time.Minute,
				time.Minute,
			},
		},
	)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 5000, nil, 5000)
	lvl1, err := acct.Level(1)
	require.NoError(t, err)
	lvl2, err := acct.Level(2)
	require.NoError(t, err)
	lvl3, err := acct.Level(3)
	require.NoError(t, err)
	// Level 2 cannot act before the transaction reaches it
	err = lvl2.Sign(level2[0], key)
	require.ErrorIs(t, err, custody.ErrNotSubmitted)
	for _, signer := range level1 {
		require.NoError(t, lvl1.Sign(signer, key))
	}
	env.clock.Advance(time.Hour)
	require.NoError(t, lvl1.CompleteTimelock(key))
	status, err := acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Cursor)
	assert.True(t, status.Levels[1].Submitted)
	for _, signer := range level2 {
		require.NoError(t, lvl2.Sign(signer, key))
	}
	env.clock.Advance(30 * time.Minute)
	require.NoError(t, lvl2.CompleteTimelock(key))
	// Level 3 became active purely through the level 2 completion callback
	status, err = acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Cursor)
	assert.True(t, status.Levels[2].Submitted)
	assert.False(t, status.FullyApproved)
	require.NoError(t, lvl3.Sign(level3[0], key))
	env.clock.Advance(time.Minute)
	require.NoError(t, lvl3.CompleteTimelock(key))
	status, err = acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.True(t, status.FullyApproved)
	assert.Equal(t, 3, status.Cursor)
}

// Veto window: quorum reached, then a different signer at the same level
// denies before the timelock elapses. The denial is permanent and a
// post-timelock completion fails as already denied.
func TestWorkflowVetoAfterQuorum(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signers := []custody.Address{
		testAddr(t, "signer1"),
		testAddr(t, "signer2"),
		testAddr(t, "signer3"),
	}
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{signers},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{2},
			Timelocks: []time.Duration{time.Hour},
		},
	)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 100, nil, 100)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signers[0], key))
	require.NoError(t, lvl.Sign(signers[1], key))
	require.NoError(t, lvl.Deny(signers[2], key))
	status, err := acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.True(t, status.Denied)
	assert.Equal(t, uint64(1), status.DeniedLevelId)
	assert.Equal(t, signers[2], status.Denier)
	assert.False(t, status.FullyApproved)
	env.clock.Advance(2 * time.Hour)
	err = lvl.CompleteTimelock(key)
	require.ErrorIs(t, err, custody.ErrAlreadyDenied)
	// Denial halts execution permanently
	err = acct.ExecuteApproved(key)
	require.ErrorIs(t, err, custody.ErrAlreadyDenied)
	// Further signing is rejected too
	err = lvl.Sign(signers[2], key)
	require.ErrorIs(t, err, custody.ErrAlreadyDenied)
}

// Zero timelock: the quorum-reaching sign approves the level and advances
// the cursor within the same call. A separate completion attempt fails as
// already approved.
func TestWorkflowZeroTimelock(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signers := []custody.Address{
		testAddr(t, "signer1"),
		testAddr(t, "signer2"),
	}
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{signers},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{2},
			Timelocks: []time.Duration{0},
		},
	)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 100, nil, 100)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signers[0], key))
	status, err := acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.False(t, status.FullyApproved)
	require.NoError(t, lvl.Sign(signers[1], key))
	status, err = acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.True(t, status.FullyApproved)
	err = lvl.CompleteTimelock(key)
	require.ErrorIs(t, err, custody.ErrAlreadyApproved)
}

// Timelock boundary is monotonic: completion fails at end-1 and succeeds
// exactly at end
func TestTimelockBoundary(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signer := testAddr(t, "signer")
	timelock := time.Hour
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{{signer}},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{1},
			Timelocks: []time.Duration{timelock},
		},
	)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 100, nil, 100)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signer, key))
	status, err := acct.TransactionStatus(key)
	require.NoError(t, err)
	require.True(t, status.Levels[0].QuorumReached)
	timelockEnd := status.Levels[0].TimelockEnd
	env.clock.Advance(timelock - time.Second)
	err = lvl.CompleteTimelock(key)
	var timelockErr custody.TimelockActiveError
	require.ErrorAs(t, err, &timelockErr)
	assert.Equal(t, timelockEnd, timelockErr.End)
	env.clock.Advance(time.Second)
	require.NoError(t, lvl.CompleteTimelock(key))
	// timelockEnd was set exactly once and never reset
	status, err = acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.Equal(t, timelockEnd, status.Levels[0].TimelockEnd)
	// Redundant completion fails cleanly without re-firing the callback
	err = lvl.CompleteTimelock(key)
	require.ErrorIs(t, err, custody.ErrAlreadyApproved)
	status, err = acct.TransactionStatus(key)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Cursor)
}

func TestCompleteTimelockBeforeQuorum(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signers := []custody.Address{
		testAddr(t, "signer1"),
		testAddr(t, "signer2"),
	}
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{signers},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{2},
			Timelocks: []time.Duration{time.Hour},
		},
	)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 100, nil, 100)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signers[0], key))
	env.clock.Advance(24 * time.Hour)
	err = lvl.CompleteTimelock(key)
	require.ErrorIs(t, err, custody.ErrQuorumNotReached)
}

func TestExecuteNotFullyApproved(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signer := testAddr(t, "signer")
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{{signer}},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{1},
			Timelocks: []time.Duration{time.Hour},
		},
	)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 100, nil, 100)
	err := acct.ExecuteApproved(key)
	require.ErrorIs(t, err, custody.ErrNotFullyApproved)
	err = acct.ExecuteApproved(custody.NewTxKeyFromBytes([]byte("missing")))
	require.ErrorIs(t, err, custody.ErrTxNotFound)
}

// A failed destination call is final: the error carries the failure, the
// cleared state is not restored, and there is no re-queue path
func TestExecuteDispatchFailureIsFinal(t *testing.T) {
	db := newTestEnv(t)
	owner := testAddr(t, "owner")
	signer := testAddr(t, "signer")
	dispatchErr := errors.New("destination rejected call")
	engine, err := custody.NewEngine(custody.EngineConfig{
		Database: db.db,
		Clock:    db.clock,
		Dispatcher: custody.DispatchFunc(func(
			from custody.Address,
			to custody.Address,
			value uint64,
			data []byte,
		) ([]byte, error) {
			return []byte("revert reason"), dispatchErr
		}),
	})
	require.NoError(t, err)
	t.Cleanup(engine.EventBus().Stop)
	acct, err := engine.NewAccount(
		owner,
		[][]custody.Address{{signer}},
	)
	require.NoError(t, err)
	_, err = acct.ConfigureAmountRange(
		owner,
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{1},
			Timelocks: []time.Duration{0},
		},
	)
	require.NoError(t, err)
	key, err := acct.Propose(
		engine.GateAddress(),
		testAddr(t, "dest"),
		100,
		nil,
		100,
	)
	require.NoError(t, err)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signer, key))
	err = acct.ExecuteApproved(key)
	var dispatchFailure custody.DispatchError
	require.ErrorAs(t, err, &dispatchFailure)
	assert.Equal(t, []byte("revert reason"), dispatchFailure.ReturnData)
	require.ErrorIs(t, err, dispatchErr)
	// State was cleared before dispatch; a retry finds nothing
	err = acct.ExecuteApproved(key)
	require.ErrorIs(t, err, custody.ErrTxNotFound)
}

func TestExecuteInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signer := testAddr(t, "signer")
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{{signer}},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{1},
			Timelocks: []time.Duration{0},
		},
	)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 100, nil, 100)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signer, key))
	err = acct.ExecuteApproved(key)
	require.ErrorIs(t, err, custody.ErrInsufficientFunds)
}

// The proposal-recorded event is the only durable record once a
// transaction is executed and cleared, so its field set is asserted
// explicitly
func TestWorkflowEvents(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signers := []custody.Address{
		testAddr(t, "signer1"),
		testAddr(t, "signer2"),
	}
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{signers},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{2},
			Timelocks: []time.Duration{time.Hour},
		},
	)
	require.NoError(t, env.ledger.Credit(acct.Address(), 1000))
	bus := env.engine.EventBus()
	_, proposalCh := bus.Subscribe(custody.ProposalRecordedEventType)
	_, signedCh := bus.Subscribe(custody.SignedEventType)
	_, quorumCh := bus.Subscribe(custody.QuorumReachedEventType)
	_, approvedCh := bus.Subscribe(custody.LevelApprovedEventType)
	_, completedCh := bus.Subscribe(custody.LevelCompletedEventType)
	_, readyCh := bus.Subscribe(custody.ReadyForExecutionEventType)
	_, executedCh := bus.Subscribe(custody.ExecutedEventType)
	dest := testAddr(t, "dest")
	key := proposeAmount(t, env, acct, dest, 500, nil, 500)
	proposalEvt := (<-proposalCh).Data.(custody.ProposalRecordedEvent)
	assert.Equal(t, key, proposalEvt.Key)
	assert.Equal(t, acct.Address(), proposalEvt.Account)
	assert.Equal(t, dest, proposalEvt.To)
	assert.Equal(t, uint64(500), proposalEvt.Value)
	assert.Equal(t, uint64(500), proposalEvt.Amount)
	assert.Equal(t, []uint64{1}, proposalEvt.LevelIds)
	assert.Equal(t, []uint64{2}, proposalEvt.Quorums)
	assert.Equal(t, []time.Duration{time.Hour}, proposalEvt.Timelocks)
	lvl, err := acct.Level(1)
	require.NoError(t, err)
	require.NoError(t, lvl.Sign(signers[0], key))
	signedEvt := (<-signedCh).Data.(custody.SignedEvent)
	assert.Equal(t, signers[0], signedEvt.Signer)
	assert.Equal(t, uint64(1), signedEvt.Count)
	assert.Equal(t, uint64(2), signedEvt.Required)
	require.NoError(t, lvl.Sign(signers[1], key))
	signedEvt = (<-signedCh).Data.(custody.SignedEvent)
	assert.Equal(t, uint64(2), signedEvt.Count)
	quorumEvt := (<-quorumCh).Data.(custody.QuorumReachedEvent)
	assert.Equal(t, key, quorumEvt.Key)
	assert.Equal(
		t,
		env.clock.Now().Add(time.Hour),
		quorumEvt.TimelockEnd,
	)
	env.clock.Advance(time.Hour)
	require.NoError(t, lvl.CompleteTimelock(key))
	approvedEvt := (<-approvedCh).Data.(custody.LevelApprovedEvent)
	assert.Equal(t, uint64(1), approvedEvt.LevelId)
	completedEvt := (<-completedCh).Data.(custody.LevelCompletedEvent)
	assert.Equal(t, 1, completedEvt.NewCursor)
	readyEvt := (<-readyCh).Data.(custody.ReadyForExecutionEvent)
	assert.Equal(t, key, readyEvt.Key)
	require.NoError(t, acct.ExecuteApproved(key))
	executedEvt := (<-executedCh).Data.(custody.ExecutedEvent)
	assert.Equal(t, key, executedEvt.Key)
	assert.Equal(t, dest, executedEvt.To)
	assert.Equal(t, uint64(500), executedEvt.Value)
}

// Events are published only after a successful commit; a failed operation
// publishes nothing
func TestNoEventsOnFailedOperation(t *testing.T) {
	env := newTestEnv(t)
	owner := testAddr(t, "owner")
	signer := testAddr(t, "signer")
	acct := newTestAccount(
		t, env, owner,
		[][]custody.Address{{signer}},
		custody.AmountRange{
			MinAmount: 0,
			MaxAmount: 1000,
			LevelIds:  []uint64{1},
			Quorums:   []uint64{1},
			Timelocks: []time.Duration{time.Hour},
		},
	)
	_, signedCh := env.engine.EventBus().Subscribe(custody.SignedEventType)
	key := proposeAmount(t, env, acct, testAddr(t, "dest"), 100, nil, 100)
	lvl, lvlErr := acct.Level(1)
	require.NoError(t, lvlErr)
	signErr := lvl.Sign(testAddr(t, "stranger"), key)
	require.ErrorIs(t, signErr, custody.ErrNotSigner)
	select {
	case evt := <-signedCh:
		t.Fatalf("unexpected event published: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
