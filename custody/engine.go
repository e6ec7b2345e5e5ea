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

package custody

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/bastion/database"
	"github.com/blinklabs-io/bastion/database/models"
	"github.com/blinklabs-io/bastion/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineConfig describes the collaborators an Engine needs. Database is
// required; everything else has a working default.
type EngineConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Dispatcher   Dispatcher
	Clock        Clock
}

// Engine hosts custody accounts and their approval levels. The database is
// the sole source of truth: account and level handles carry no state of
// their own, and every operation reads and writes through a single
// database transaction. Operations against the same account are serialized
// by a per-account mutex; operations against different accounts may run
// concurrently.
type Engine struct {
	logger       *slog.Logger
	db           *database.Database
	eventBus     *event.EventBus
	dispatcher   Dispatcher
	clock        Clock
	metrics      *engineMetrics
	gateAddress  Address
	accountLocks map[Address]*sync.Mutex
	locksMutex   sync.Mutex
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("no database provided")
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	eventBus := cfg.EventBus
	if eventBus == nil {
		eventBus = event.NewEventBus(cfg.PromRegistry, logger)
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = NewLedgerDispatcher(cfg.Database)
	}
	e := &Engine{
		logger:       logger,
		db:           cfg.Database,
		eventBus:     eventBus,
		dispatcher:   dispatcher,
		clock:        clock,
		gateAddress:  NewAddressFromCredential([]byte("bastion.gate")),
		accountLocks: make(map[Address]*sync.Mutex),
	}
	if cfg.PromRegistry != nil {
		e.metrics = newEngineMetrics(cfg.PromRegistry)
		if err := e.initPendingGauge(); err != nil {
			return nil, fmt.Errorf("count pending transactions: %w", err)
		}
	}
	return e, nil
}

// EventBus returns the bus that custody lifecycle events are published on
func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

// GateAddress returns the caller address the validation gate proposes
// under. Account.Propose rejects every other caller.
func (e *Engine) GateAddress() Address {
	return e.gateAddress
}

// Gate returns the proposal authorization entry point
func (e *Engine) Gate() *Gate {
	return &Gate{engine: e}
}

// Account returns a handle to an existing account
func (e *Engine) Account(address Address) (*Account, error) {
	acct, err := e.db.Metadata().GetAccount(address.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}
	return &Account{engine: e, address: address}, nil
}

// CreateAccount deploys a new account for an owner credential. The account
// address is derived from the owner and a per-owner creation sequence, so
// deployment is deterministic and repeatable. The account starts
// uninitialized: levels may be added with InitAddLevel until FinalizeInit
// flips the one-time latch.
func (e *Engine) CreateAccount(owner Address) (*Account, error) {
	if owner.IsZero() {
		return nil, ErrInvalidAddress
	}
	var address Address
	txn := e.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		accounts, err := e.db.Metadata().GetAccounts(txn.Metadata())
		if err != nil {
			return err
		}
		var seq uint64
		for _, existing := range accounts {
			if NewAddressFromBytes(existing.Owner) == owner {
				seq++
			}
		}
		address = AccountAddress(owner, seq)
		return e.db.Metadata().AddAccount(
			&models.Account{
				Address:     address.Bytes(),
				Owner:       owner.Bytes(),
				Seq:         seq,
				NextLevelId: 1,
			},
			txn.Metadata(),
		)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info(
		"created account",
		"component", "custody",
		"account", address.String(),
		"owner", owner.String(),
	)
	return &Account{engine: e, address: address}, nil
}

// NewAccount performs the full bootstrap in one step: deploy the account,
// create one level per supplied signer set with identities assigned in
// order starting at 1, and finalize initialization.
func (e *Engine) NewAccount(
	owner Address,
	signerSets [][]Address,
) (*Account, error) {
	acct, err := e.CreateAccount(owner)
	if err != nil {
		return nil, err
	}
	for _, signers := range signerSets {
		if _, err := acct.InitAddLevel(signers); err != nil {
			return nil, err
		}
	}
	if err := acct.FinalizeInit(); err != nil {
		return nil, err
	}
	return acct, nil
}

// opCtx carries the per-operation transaction, the time observed at the
// start of the operation, and events buffered for publication after commit.
// Every callback triggered by an operation shares its opCtx, which is what
// makes a whole call chain atomic.
type opCtx struct {
	txn    *database.Txn
	now    time.Time
	events []event.Event
}

func (c *opCtx) emit(eventType event.EventType, data any) {
	c.events = append(c.events, event.NewEvent(eventType, data))
}

// runOp executes fn atomically against an account: the per-account lock is
// held for the duration, all reads and writes go through one database
// transaction, and buffered events are published only after a successful
// commit. An error from fn rolls everything back and publishes nothing.
func (e *Engine) runOp(account Address, fn func(*opCtx) error) error {
	lock := e.accountLock(account)
	lock.Lock()
	defer lock.Unlock()
	ctx := &opCtx{now: e.clock.Now()}
	txn := e.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		ctx.txn = txn
		return fn(ctx)
	})
	if err != nil {
		return err
	}
	for _, evt := range ctx.events {
		e.eventBus.Publish(evt.Type, evt)
	}
	return nil
}

func (e *Engine) accountLock(account Address) *sync.Mutex {
	e.locksMutex.Lock()
	defer e.locksMutex.Unlock()
	lock, ok := e.accountLocks[account]
	if !ok {
		lock = &sync.Mutex{}
		e.accountLocks[account] = lock
	}
	return lock
}

func (e *Engine) initPendingGauge() error {
	accounts, err := e.db.Metadata().GetAccounts(nil)
	if err != nil {
		return err
	}
	var pending int
	for _, acct := range accounts {
		txs, err := e.db.Metadata().GetTransactions(acct.Address, nil)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			// Denied transactions left the pending population at deny time
			// but their records are never purged
			if tx.Denied {
				continue
			}
			pending++
		}
	}
	e.metrics.txsPending.Set(float64(pending))
	return nil
}

type engineMetrics struct {
	txsProposed prometheus.Counter
	txsExecuted prometheus.Counter
	txsDenied   prometheus.Counter
	txsPending  prometheus.Gauge
}

func newEngineMetrics(promRegistry prometheus.Registerer) *engineMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &engineMetrics{
		txsProposed: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "bastion_custody_txs_proposed_total",
			Help: "total transactions proposed",
		}),
		txsExecuted: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "bastion_custody_txs_executed_total",
			Help: "total transactions executed",
		}),
		txsDenied: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "bastion_custody_txs_denied_total",
			Help: "total transactions denied",
		}),
		txsPending: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "bastion_custody_txs_pending",
			Help: "transactions currently in flight",
		}),
	}
}
