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
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/bastion/database"
	"github.com/blinklabs-io/bastion/database/models"
	"github.com/blinklabs-io/bastion/event"
	"gorm.io/gorm"
)

// Account is a handle to a custody account. It carries no state of its
// own: every operation reads and writes the database within a single
// transaction, so a handle can be recreated freely and is safe to share.
type Account struct {
	engine  *Engine
	address Address
}

func (a *Account) Address() Address {
	return a.address
}

// Owner returns the owner credential the account was deployed for
func (a *Account) Owner() (Address, error) {
	acct, err := a.engine.db.Metadata().GetAccount(a.address.Bytes(), nil)
	if err != nil {
		return Address{}, err
	}
	if acct == nil {
		return Address{}, ErrAccountNotFound
	}
	return NewAddressFromBytes(acct.Owner), nil
}

// Nonce returns the replay protection counter the next proposal must be
// authorized against
func (a *Account) Nonce() (uint64, error) {
	acct, err := a.engine.db.Metadata().GetAccount(a.address.Bytes(), nil)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, ErrAccountNotFound
	}
	return acct.Nonce, nil
}

func (a *Account) loadModel(
	txn *gorm.DB,
) (*models.Account, error) {
	acct, err := a.engine.db.Metadata().GetAccount(a.address.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

func (a *Account) requireOwner(acct *models.Account, caller Address) error {
	if NewAddressFromBytes(acct.Owner) != caller {
		return ErrNotOwner
	}
	return nil
}

// levelHandle resolves a level identity against the live registry
func (a *Account) levelHandle(
	ctx *opCtx,
	levelId uint64,
) (*Level, error) {
	levels, err := a.engine.db.Metadata().GetLevels(
		a.address.Bytes(),
		ctx.txn.Metadata(),
	)
	if err != nil {
		return nil, err
	}
	for _, lvl := range levels {
		if lvl.LevelId == levelId {
			return &Level{
				engine:  a.engine,
				account: a.address,
				id:      levelId,
				address: NewAddressFromBytes(lvl.Address),
			}, nil
		}
	}
	return nil, UnknownLevelError{LevelId: levelId}
}

// Level returns a handle to one of the account's approval levels
func (a *Account) Level(levelId uint64) (*Level, error) {
	levels, err := a.engine.db.Metadata().GetLevels(a.address.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	for _, lvl := range levels {
		if lvl.LevelId == levelId {
			return &Level{
				engine:  a.engine,
				account: a.address,
				id:      levelId,
				address: NewAddressFromBytes(lvl.Address),
			}, nil
		}
	}
	return nil, UnknownLevelError{LevelId: levelId}
}

// LevelInfo pairs a level identity with its current backing address
type LevelInfo struct {
	LevelId uint64
	Address Address
}

// Levels returns the account's level registry in identity order
func (a *Account) Levels() ([]LevelInfo, error) {
	levels, err := a.engine.db.Metadata().GetLevels(a.address.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	ret := make([]LevelInfo, 0, len(levels))
	for _, lvl := range levels {
		ret = append(
			ret,
			LevelInfo{
				LevelId: lvl.LevelId,
				Address: NewAddressFromBytes(lvl.Address),
			},
		)
	}
	return ret, nil
}

// InitAddLevel creates a level during bootstrap, deriving its address from
// the account and the assigned identity. Fails once initialization has
// been finalized; after that, only the owner-only AddLevel path remains.
func (a *Account) InitAddLevel(signers []Address) (uint64, error) {
	if len(signers) == 0 {
		return 0, ErrNoSigners
	}
	var levelId uint64
	err := a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if acct.Initialized {
			return ErrInitFinalized
		}
		levelId, err = a.addLevel(
			ctx,
			acct,
			LevelAddress(a.address, acct.NextLevelId),
			signers,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return levelId, nil
}

// FinalizeInit flips the one-time initialization latch, permanently
// blocking further InitAddLevel calls
func (a *Account) FinalizeInit() error {
	return a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if acct.Initialized {
			return ErrInitFinalized
		}
		acct.Initialized = true
		return a.engine.db.Metadata().UpdateAccount(acct, ctx.txn.Metadata())
	})
}

// AddLevel registers a new approval level with the supplied backing
// address, assigning the next unused identity. Owner only.
func (a *Account) AddLevel(
	caller Address,
	address Address,
	signers ...Address,
) (uint64, error) {
	var levelId uint64
	err := a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if err := a.requireOwner(acct, caller); err != nil {
			return err
		}
		levelId, err = a.addLevel(ctx, acct, address, signers)
		return err
	})
	if err != nil {
		return 0, err
	}
	return levelId, nil
}

func (a *Account) addLevel(
	ctx *opCtx,
	acct *models.Account,
	address Address,
	signers []Address,
) (uint64, error) {
	if address.IsZero() {
		return 0, ErrInvalidAddress
	}
	levelId := acct.NextLevelId
	acct.NextLevelId++
	if err := a.engine.db.Metadata().AddLevel(
		&models.Level{
			Account: a.address.Bytes(),
			LevelId: levelId,
			Address: address.Bytes(),
		},
		ctx.txn.Metadata(),
	); err != nil {
		return 0, fmt.Errorf("add level: %w", err)
	}
	if err := a.engine.db.Metadata().UpdateAccount(
		acct,
		ctx.txn.Metadata(),
	); err != nil {
		return 0, fmt.Errorf("update account: %w", err)
	}
	ctx.emit(
		LevelAddedEventType,
		LevelAddedEvent{
			Account: a.address,
			LevelId: levelId,
			Address: address,
		},
	)
	for _, signer := range signers {
		if signer.IsZero() {
			return 0, ErrInvalidAddress
		}
		if err := a.engine.db.Metadata().AddSigner(
			&models.Signer{
				Account: a.address.Bytes(),
				LevelId: levelId,
				Address: signer.Bytes(),
			},
			ctx.txn.Metadata(),
		); err != nil {
			return 0, fmt.Errorf("add signer: %w", err)
		}
		ctx.emit(
			SignerAddedEventType,
			SignerAddedEvent{LevelId: levelId, Address: signer},
		)
	}
	return levelId, nil
}

// UpdateLevel replaces a level's backing address while preserving its
// identity, so frozen routing snapshots referencing the identity remain
// valid. Owner only.
func (a *Account) UpdateLevel(
	caller Address,
	levelId uint64,
	address Address,
) error {
	return a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if err := a.requireOwner(acct, caller); err != nil {
			return err
		}
		if address.IsZero() {
			return ErrInvalidAddress
		}
		lvl, err := a.levelHandle(ctx, levelId)
		if err != nil {
			return err
		}
		if err := a.engine.db.Metadata().UpdateLevelAddress(
			a.address.Bytes(),
			levelId,
			address.Bytes(),
			ctx.txn.Metadata(),
		); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return UnknownLevelError{LevelId: levelId}
			}
			return fmt.Errorf("update level: %w", err)
		}
		ctx.emit(
			LevelUpdatedEventType,
			LevelUpdatedEvent{
				Account:    a.address,
				LevelId:    levelId,
				OldAddress: lvl.address,
				NewAddress: address,
			},
		)
		return nil
	})
}

// AddSigner authorizes a new signer on one of the account's levels. Owner
// only; the owning-account check on the level itself is exercised by the
// internal call.
func (a *Account) AddSigner(
	caller Address,
	levelId uint64,
	signer Address,
) error {
	return a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if err := a.requireOwner(acct, caller); err != nil {
			return err
		}
		lvl, err := a.levelHandle(ctx, levelId)
		if err != nil {
			return err
		}
		return lvl.addSigner(ctx, a.address, signer)
	})
}

// RemoveSigner removes a signer from one of the account's levels. Owner
// only. Removal never empties a level's signer set.
func (a *Account) RemoveSigner(
	caller Address,
	levelId uint64,
	signer Address,
) error {
	return a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if err := a.requireOwner(acct, caller); err != nil {
			return err
		}
		lvl, err := a.levelHandle(ctx, levelId)
		if err != nil {
			return err
		}
		return lvl.removeSigner(ctx, a.address, signer)
	})
}

// ConfigureAmountRange adds a routing entry mapping an amount band to an
// ordered sequence of levels. Owner only. The new range must not overlap
// any existing range, and every referenced level identity must already be
// assigned. Returns the entry's index in the sorted active set.
func (a *Account) ConfigureAmountRange(
	caller Address,
	amountRange AmountRange,
) (int, error) {
	var index int
	err := a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if err := a.requireOwner(acct, caller); err != nil {
			return err
		}
		if err := amountRange.validate(); err != nil {
			return err
		}
		for _, levelId := range amountRange.LevelIds {
			if _, err := a.levelHandle(ctx, levelId); err != nil {
				return err
			}
		}
		existing, err := a.engine.db.Metadata().GetAmountRanges(
			a.address.Bytes(),
			ctx.txn.Metadata(),
		)
		if err != nil {
			return err
		}
		index = 0
		for _, rec := range existing {
			if amountRange.Overlaps(rangeFromModel(rec)) {
				return ErrRangeOverlap
			}
			if rec.MinAmount < amountRange.MinAmount {
				index++
			}
		}
		rec := &models.AmountRange{
			Account:   a.address.Bytes(),
			MinAmount: amountRange.MinAmount,
			MaxAmount: amountRange.MaxAmount,
		}
		for i, levelId := range amountRange.LevelIds {
			rec.Steps = append(rec.Steps, models.AmountRangeStep{
				Idx:      i,
				LevelId:  levelId,
				Quorum:   amountRange.Quorums[i],
				Timelock: int64(amountRange.Timelocks[i]),
			})
		}
		if err := a.engine.db.Metadata().AddAmountRange(
			rec,
			ctx.txn.Metadata(),
		); err != nil {
			return fmt.Errorf("add amount range: %w", err)
		}
		ctx.emit(
			RangeConfiguredEventType,
			RangeConfiguredEvent{
				Account:   a.address,
				Index:     index,
				MinAmount: amountRange.MinAmount,
				MaxAmount: amountRange.MaxAmount,
				LevelIds:  amountRange.LevelIds,
			},
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// RemoveAmountRange removes the routing entry at the given index in the
// sorted active set. Owner only. Removal preserves the order of the
// remaining entries.
func (a *Account) RemoveAmountRange(caller Address, index int) error {
	return a.engine.runOp(a.address, func(ctx *opCtx) error {
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if err := a.requireOwner(acct, caller); err != nil {
			return err
		}
		existing, err := a.engine.db.Metadata().GetAmountRanges(
			a.address.Bytes(),
			ctx.txn.Metadata(),
		)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(existing) {
			return ErrRangeIndexInvalid
		}
		rec := existing[index]
		if err := a.engine.db.Metadata().DeleteAmountRange(
			rec.ID,
			ctx.txn.Metadata(),
		); err != nil {
			return fmt.Errorf("delete amount range: %w", err)
		}
		ctx.emit(
			RangeRemovedEventType,
			RangeRemovedEvent{
				Account:   a.address,
				Index:     index,
				MinAmount: rec.MinAmount,
				MaxAmount: rec.MaxAmount,
			},
		)
		return nil
	})
}

// AmountRanges returns the active routing table sorted by minimum amount
// ascending
func (a *Account) AmountRanges() ([]AmountRange, error) {
	records, err := a.engine.db.Metadata().GetAmountRanges(
		a.address.Bytes(),
		nil,
	)
	if err != nil {
		return nil, err
	}
	ret := make([]AmountRange, 0, len(records))
	for _, rec := range records {
		ret = append(ret, rangeFromModel(rec))
	}
	return ret, nil
}

func rangeFromModel(rec models.AmountRange) AmountRange {
	ret := AmountRange{
		MinAmount: rec.MinAmount,
		MaxAmount: rec.MaxAmount,
	}
	for _, step := range rec.Steps {
		ret.LevelIds = append(ret.LevelIds, step.LevelId)
		ret.Quorums = append(ret.Quorums, step.Quorum)
		ret.Timelocks = append(ret.Timelocks, time.Duration(step.Timelock))
	}
	return ret
}

// Propose records a new transaction, freezing the routing configuration
// matched by its amount and submitting it to the first level in the
// sequence. Callable only through the validation gate; the gate is the
// sole component that verifies proposal authorization.
func (a *Account) Propose(
	caller Address,
	to Address,
	value uint64,
	data []byte,
	amount uint64,
) (TxKey, error) {
	var key TxKey
	err := a.engine.runOp(a.address, func(ctx *opCtx) error {
		if caller != a.engine.gateAddress {
			return ErrNotGate
		}
		acct, err := a.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		key, err = a.propose(ctx, acct, to, value, data, amount)
		return err
	})
	if err != nil {
		return TxKey{}, err
	}
	if a.engine.metrics != nil {
		a.engine.metrics.txsProposed.Inc()
		a.engine.metrics.txsPending.Inc()
	}
	return key, nil
}

func (a *Account) propose(
	ctx *opCtx,
	acct *models.Account,
	to Address,
	value uint64,
	data []byte,
	amount uint64,
) (TxKey, error) {
	ranges, err := a.engine.db.Metadata().GetAmountRanges(
		a.address.Bytes(),
		ctx.txn.Metadata(),
	)
	if err != nil {
		return TxKey{}, err
	}
	var matched *models.AmountRange
	for i := range ranges {
		if amount >= ranges[i].MinAmount && amount <= ranges[i].MaxAmount {
			matched = &ranges[i]
			break
		}
	}
	if matched == nil {
		return TxKey{}, NoMatchingRangeError{Amount: amount}
	}
	key, err := ComputeTxKey(a.address, to, value, data, amount, acct.Nonce)
	if err != nil {
		return TxKey{}, err
	}
	existing, err := a.engine.db.Metadata().GetTransaction(
		a.address.Bytes(),
		key.Bytes(),
		ctx.txn.Metadata(),
	)
	if err != nil {
		return TxKey{}, err
	}
	if existing != nil {
		return TxKey{}, ErrTxExists
	}
	// The nonce advances exactly once per accepted proposal, in the same
	// transaction that records it
	acct.Nonce++
	if err := a.engine.db.Metadata().UpdateAccount(
		acct,
		ctx.txn.Metadata(),
	); err != nil {
		return TxKey{}, fmt.Errorf("update account: %w", err)
	}
	// Freeze the matched range so later routing table edits never change
	// this transaction's approval requirements
	txRec := &models.Transaction{
		Account:    a.address.Bytes(),
		Key:        key.Bytes(),
		To:         to.Bytes(),
		ProposedAt: ctx.now,
		Value:      value,
		Amount:     amount,
		MinAmount:  matched.MinAmount,
		MaxAmount:  matched.MaxAmount,
	}
	for _, step := range matched.Steps {
		txRec.Steps = append(txRec.Steps, models.TransactionStep{
			Idx:      step.Idx,
			LevelId:  step.LevelId,
			Quorum:   step.Quorum,
			Timelock: step.Timelock,
		})
	}
	if err := a.engine.db.AddTransactionWithPayload(
		txRec,
		data,
		ctx.txn,
	); err != nil {
		return TxKey{}, err
	}
	first := txRec.Steps[0]
	lvl, err := a.levelHandle(ctx, first.LevelId)
	if err != nil {
		return TxKey{}, err
	}
	if err := lvl.submitTransaction(
		ctx,
		a.address,
		key,
		first.Quorum,
		time.Duration(first.Timelock),
	); err != nil {
		return TxKey{}, err
	}
	frozen := rangeFromModel(*matched)
	ctx.emit(
		ProposalRecordedEventType,
		ProposalRecordedEvent{
			Key:       key,
			Account:   a.address,
			To:        to,
			Value:     value,
			Amount:    amount,
			LevelIds:  frozen.LevelIds,
			Quorums:   frozen.Quorums,
			Timelocks: frozen.Timelocks,
		},
	)
	a.engine.logger.Info(
		"recorded proposal",
		"component", "custody",
		"account", a.address.String(),
		"tx", key.String(),
		"amount", amount,
	)
	return key, nil
}

// OnLevelApproved advances the transaction cursor after a level's approval
// becomes final. Callable only by the level instance currently expected at
// the cursor; this is a trusted internal callback, not a public entry
// point.
func (a *Account) OnLevelApproved(
	caller Address,
	key TxKey,
	levelId uint64,
) error {
	return a.engine.runOp(a.address, func(ctx *opCtx) error {
		return a.onLevelApproved(ctx, caller, key, levelId)
	})
}

func (a *Account) onLevelApproved(
	ctx *opCtx,
	caller Address,
	key TxKey,
	levelId uint64,
) error {
	txRec, current, err := a.activeStep(ctx, caller, key, levelId)
	if err != nil {
		return err
	}
	txRec.Cursor++
	if txRec.Cursor < len(txRec.Steps) {
		next := txRec.Steps[txRec.Cursor]
		nextLvl, err := a.levelHandle(ctx, next.LevelId)
		if err != nil {
			return err
		}
		if err := nextLvl.submitTransaction(
			ctx,
			a.address,
			key,
			next.Quorum,
			time.Duration(next.Timelock),
		); err != nil {
			return err
		}
	} else {
		txRec.FullyApproved = true
	}
	if err := a.engine.db.Metadata().UpdateTransaction(
		txRec,
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	ctx.emit(
		LevelCompletedEventType,
		LevelCompletedEvent{
			Key:       key,
			LevelId:   current.LevelId,
			NewCursor: txRec.Cursor,
		},
	)
	if txRec.FullyApproved {
		ctx.emit(
			ReadyForExecutionEventType,
			ReadyForExecutionEvent{Key: key},
		)
	}
	return nil
}

// OnLevelDenied marks a transaction terminally denied after a signer veto.
// Callable only by the level instance currently expected at the cursor.
func (a *Account) OnLevelDenied(
	caller Address,
	key TxKey,
	levelId uint64,
	denier Address,
) error {
	err := a.engine.runOp(a.address, func(ctx *opCtx) error {
		return a.onLevelDenied(ctx, caller, key, levelId, denier)
	})
	if err != nil {
		return err
	}
	if a.engine.metrics != nil {
		a.engine.metrics.txsDenied.Inc()
		a.engine.metrics.txsPending.Dec()
	}
	return nil
}

func (a *Account) onLevelDenied(
	ctx *opCtx,
	caller Address,
	key TxKey,
	levelId uint64,
	denier Address,
) error {
	txRec, current, err := a.activeStep(ctx, caller, key, levelId)
	if err != nil {
		return err
	}
	txRec.Denied = true
	txRec.DeniedLevelId = current.LevelId
	txRec.Denier = denier.Bytes()
	if err := a.engine.db.Metadata().UpdateTransaction(
		txRec,
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	ctx.emit(
		DeniedEventType,
		DeniedEvent{Key: key, LevelId: current.LevelId, Denier: denier},
	)
	a.engine.logger.Info(
		"denied transaction",
		"component", "custody",
		"account", a.address.String(),
		"tx", key.String(),
		"level", current.LevelId,
		"denier", denier.String(),
	)
	return nil
}

// activeStep loads a transaction and verifies that the callback comes from
// the level instance currently expected at the cursor
func (a *Account) activeStep(
	ctx *opCtx,
	caller Address,
	key TxKey,
	levelId uint64,
) (*models.Transaction, *models.TransactionStep, error) {
	txRec, err := a.engine.db.Metadata().GetTransaction(
		a.address.Bytes(),
		key.Bytes(),
		ctx.txn.Metadata(),
	)
	if err != nil {
		return nil, nil, err
	}
	if txRec == nil {
		return nil, nil, ErrTxNotFound
	}
	if txRec.Denied {
		return nil, nil, ErrAlreadyDenied
	}
	if txRec.FullyApproved || txRec.Cursor >= len(txRec.Steps) {
		return nil, nil, ErrAlreadyApproved
	}
	current := &txRec.Steps[txRec.Cursor]
	if current.LevelId != levelId {
		return nil, nil, LevelMismatchError{
			ExpectedLevelId: current.LevelId,
			GotLevelId:      levelId,
		}
	}
	lvl, err := a.levelHandle(ctx, current.LevelId)
	if err != nil {
		return nil, nil, err
	}
	if lvl.address != caller {
		return nil, nil, ErrStaleLevel
	}
	return txRec, current, nil
}

// ExecuteApproved performs final execution of a fully approved
// transaction. Permissionless. All transaction-identifying state is
// cleared and committed before the destination is called, so a re-entering
// destination finds nothing to execute. A failed destination call is
// final; the cleared state is not restored.
func (a *Account) ExecuteApproved(key TxKey) error {
	var to Address
	var value uint64
	var payload []byte
	lock := a.engine.accountLock(a.address)
	lock.Lock()
	txn := a.engine.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		txRec, err := a.engine.db.Metadata().GetTransaction(
			a.address.Bytes(),
			key.Bytes(),
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		if txRec == nil {
			return ErrTxNotFound
		}
		if txRec.Denied {
			return ErrAlreadyDenied
		}
		if !txRec.FullyApproved {
			return ErrNotFullyApproved
		}
		to = NewAddressFromBytes(txRec.To)
		value = txRec.Value
		payload, err = a.engine.db.GetTransactionPayload(
			a.address.Bytes(),
			key.Bytes(),
			txn,
		)
		if err != nil {
			return err
		}
		return a.engine.db.PurgeTransaction(txRec, txn)
	})
	lock.Unlock()
	if err != nil {
		return err
	}
	if a.engine.metrics != nil {
		a.engine.metrics.txsPending.Dec()
	}
	returnData, err := a.engine.dispatcher.Dispatch(
		a.address,
		to,
		value,
		payload,
	)
	if err != nil {
		return DispatchError{
			Destination: to,
			ReturnData:  returnData,
			Err:         err,
		}
	}
	if a.engine.metrics != nil {
		a.engine.metrics.txsExecuted.Inc()
	}
	a.engine.eventBus.Publish(
		ExecutedEventType,
		event.NewEvent(
			ExecutedEventType,
			ExecutedEvent{Key: key, To: to, Value: value},
		),
	)
	a.engine.logger.Info(
		"executed transaction",
		"component", "custody",
		"account", a.address.String(),
		"tx", key.String(),
		"to", to.String(),
		"value", value,
	)
	return nil
}
