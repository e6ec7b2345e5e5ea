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
	"time"

	"github.com/blinklabs-io/bastion/database/models"
)

// Level is a handle to one approval tier of an account. Like Account it is
// stateless; per-transaction approval records live in the database keyed
// by (account, transaction, level identity). A handle captured before the
// level's backing address was replaced fails every operation with
// ErrStaleLevel.
type Level struct {
	engine  *Engine
	account Address
	id      uint64
	address Address
}

func (l *Level) Id() uint64 {
	return l.id
}

func (l *Level) Address() Address {
	return l.address
}

// Signers returns the level's authorized signer set
func (l *Level) Signers() ([]Address, error) {
	signers, err := l.engine.db.Metadata().GetSigners(
		l.account.Bytes(),
		l.id,
		nil,
	)
	if err != nil {
		return nil, err
	}
	ret := make([]Address, 0, len(signers))
	for _, signer := range signers {
		ret = append(ret, NewAddressFromBytes(signer.Address))
	}
	return ret, nil
}

// ensureCurrent rejects operations through a handle whose backing address
// has been replaced in the registry
func (l *Level) ensureCurrent(ctx *opCtx) error {
	levels, err := l.engine.db.Metadata().GetLevels(
		l.account.Bytes(),
		ctx.txn.Metadata(),
	)
	if err != nil {
		return err
	}
	for _, lvl := range levels {
		if lvl.LevelId == l.id {
			if NewAddressFromBytes(lvl.Address) != l.address {
				return ErrStaleLevel
			}
			return nil
		}
	}
	return UnknownLevelError{LevelId: l.id}
}

func (l *Level) isSigner(ctx *opCtx, address Address) (bool, error) {
	signers, err := l.engine.db.Metadata().GetSigners(
		l.account.Bytes(),
		l.id,
		ctx.txn.Metadata(),
	)
	if err != nil {
		return false, err
	}
	for _, signer := range signers {
		if NewAddressFromBytes(signer.Address) == address {
			return true, nil
		}
	}
	return false, nil
}

func (l *Level) getApproval(
	ctx *opCtx,
	key TxKey,
) (*models.Approval, error) {
	return l.engine.db.Metadata().GetApproval(
		l.account.Bytes(),
		key.Bytes(),
		l.id,
		ctx.txn.Metadata(),
	)
}

// SubmitTransaction initializes this level's approval record for a
// transaction. Callable only by the owning account; re-submission is
// rejected, which pins the quorum and timelock for the lifetime of the
// transaction at this level.
func (l *Level) SubmitTransaction(
	caller Address,
	key TxKey,
	requiredQuorum uint64,
	timelock time.Duration,
) error {
	return l.engine.runOp(l.account, func(ctx *opCtx) error {
		return l.submitTransaction(ctx, caller, key, requiredQuorum, timelock)
	})
}

func (l *Level) submitTransaction(
	ctx *opCtx,
	caller Address,
	key TxKey,
	requiredQuorum uint64,
	timelock time.Duration,
) error {
	if caller != l.account {
		return ErrNotOwningAccount
	}
	if err := l.ensureCurrent(ctx); err != nil {
		return err
	}
	if requiredQuorum == 0 {
		return ErrZeroQuorum
	}
	existing, err := l.getApproval(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadySubmitted
	}
	if err := l.engine.db.Metadata().AddApproval(
		&models.Approval{
			Account:        l.account.Bytes(),
			Key:            key.Bytes(),
			LevelId:        l.id,
			RequiredQuorum: requiredQuorum,
			Timelock:       int64(timelock),
		},
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("add approval: %w", err)
	}
	return nil
}

// Sign records one signer's approval. Per-signer idempotent: a second call
// from the same signer fails rather than double-counting. When the count
// first reaches the required quorum, a zero timelock approves the level
// immediately and invokes the account callback within the same call;
// otherwise the timelock end is recorded exactly once and never reset.
func (l *Level) Sign(caller Address, key TxKey) error {
	return l.engine.runOp(l.account, func(ctx *opCtx) error {
		return l.sign(ctx, caller, key)
	})
}

func (l *Level) sign(ctx *opCtx, caller Address, key TxKey) error {
	if err := l.ensureCurrent(ctx); err != nil {
		return err
	}
	ok, err := l.isSigner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSigner
	}
	approval, err := l.getApproval(ctx, key)
	if err != nil {
		return err
	}
	if approval == nil {
		return ErrNotSubmitted
	}
	if approval.Denied {
		return ErrAlreadyDenied
	}
	if approval.Approved {
		return ErrAlreadyApproved
	}
	signed, err := l.engine.db.Metadata().HasApprovalSignature(
		l.account.Bytes(),
		key.Bytes(),
		l.id,
		caller.Bytes(),
		ctx.txn.Metadata(),
	)
	if err != nil {
		return err
	}
	if signed {
		return ErrAlreadySigned
	}
	if err := l.engine.db.Metadata().AddApprovalSignature(
		&models.ApprovalSignature{
			Account: l.account.Bytes(),
			Key:     key.Bytes(),
			LevelId: l.id,
			Signer:  caller.Bytes(),
		},
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("add signature: %w", err)
	}
	approval.SignatureCount++
	ctx.emit(
		SignedEventType,
		SignedEvent{
			Key:      key,
			LevelId:  l.id,
			Signer:   caller,
			Count:    approval.SignatureCount,
			Required: approval.RequiredQuorum,
		},
	)
	if approval.SignatureCount == approval.RequiredQuorum &&
		!approval.TimelockSet {
		approval.TimelockSet = true
		if approval.Timelock == 0 {
			// Zero-delay fast path: quorum approves the level within the
			// same call, no separate timelock completion
			approval.TimelockEnd = ctx.now
			approval.Approved = true
			ctx.emit(
				QuorumReachedEventType,
				QuorumReachedEvent{
					Key:         key,
					LevelId:     l.id,
					TimelockEnd: approval.TimelockEnd,
				},
			)
			ctx.emit(
				LevelApprovedEventType,
				LevelApprovedEvent{Key: key, LevelId: l.id},
			)
			if err := l.engine.db.Metadata().UpdateApproval(
				approval,
				ctx.txn.Metadata(),
			); err != nil {
				return fmt.Errorf("update approval: %w", err)
			}
			acct := &Account{engine: l.engine, address: l.account}
			return acct.onLevelApproved(ctx, l.address, key, l.id)
		}
		approval.TimelockEnd = ctx.now.Add(
			time.Duration(approval.Timelock),
		)
		ctx.emit(
			QuorumReachedEventType,
			QuorumReachedEvent{
				Key:         key,
				LevelId:     l.id,
				TimelockEnd: approval.TimelockEnd,
			},
		)
	}
	if err := l.engine.db.Metadata().UpdateApproval(
		approval,
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	return nil
}

// Deny is a single signer's unilateral, irreversible veto. It works
// regardless of quorum state, including after quorum has been reached but
// before the timelock has expired.
func (l *Level) Deny(caller Address, key TxKey) error {
	err := l.engine.runOp(l.account, func(ctx *opCtx) error {
		return l.deny(ctx, caller, key)
	})
	if err != nil {
		return err
	}
	if l.engine.metrics != nil {
		l.engine.metrics.txsDenied.Inc()
		l.engine.metrics.txsPending.Dec()
	}
	return nil
}

func (l *Level) deny(ctx *opCtx, caller Address, key TxKey) error {
	if err := l.ensureCurrent(ctx); err != nil {
		return err
	}
	ok, err := l.isSigner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSigner
	}
	approval, err := l.getApproval(ctx, key)
	if err != nil {
		return err
	}
	if approval == nil {
		return ErrNotSubmitted
	}
	if approval.Denied {
		return ErrAlreadyDenied
	}
	if approval.Approved {
		return ErrAlreadyApproved
	}
	approval.Denied = true
	if err := l.engine.db.Metadata().UpdateApproval(
		approval,
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	acct := &Account{engine: l.engine, address: l.account}
	return acct.onLevelDenied(ctx, l.address, key, l.id, caller)
}

// CompleteTimelock finalizes a level's approval once its timelock has
// expired. Permissionless so that execution is not gated on any particular
// actor being online. Waiting is purely a guard condition; there is no
// background timer.
func (l *Level) CompleteTimelock(key TxKey) error {
	return l.engine.runOp(l.account, func(ctx *opCtx) error {
		return l.completeTimelock(ctx, key)
	})
}

func (l *Level) completeTimelock(ctx *opCtx, key TxKey) error {
	if err := l.ensureCurrent(ctx); err != nil {
		return err
	}
	approval, err := l.getApproval(ctx, key)
	if err != nil {
		return err
	}
	if approval == nil {
		return ErrNotSubmitted
	}
	if approval.Denied {
		return ErrAlreadyDenied
	}
	if approval.Approved {
		return ErrAlreadyApproved
	}
	if !approval.TimelockSet ||
		approval.SignatureCount < approval.RequiredQuorum {
		return ErrQuorumNotReached
	}
	if ctx.now.Before(approval.TimelockEnd) {
		return TimelockActiveError{End: approval.TimelockEnd, Now: ctx.now}
	}
	approval.Approved = true
	if err := l.engine.db.Metadata().UpdateApproval(
		approval,
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	ctx.emit(
		LevelApprovedEventType,
		LevelApprovedEvent{Key: key, LevelId: l.id},
	)
	acct := &Account{engine: l.engine, address: l.account}
	return acct.onLevelApproved(ctx, l.address, key, l.id)
}

// AddSigner authorizes a new signer. Callable only by the owning account.
func (l *Level) AddSigner(caller Address, signer Address) error {
	return l.engine.runOp(l.account, func(ctx *opCtx) error {
		return l.addSigner(ctx, caller, signer)
	})
}

func (l *Level) addSigner(ctx *opCtx, caller Address, signer Address) error {
	if caller != l.account {
		return ErrNotOwningAccount
	}
	if err := l.ensureCurrent(ctx); err != nil {
		return err
	}
	if signer.IsZero() {
		return ErrInvalidAddress
	}
	existing, err := l.isSigner(ctx, signer)
	if err != nil {
		return err
	}
	if existing {
		return ErrSignerExists
	}
	if err := l.engine.db.Metadata().AddSigner(
		&models.Signer{
			Account: l.account.Bytes(),
			LevelId: l.id,
			Address: signer.Bytes(),
		},
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("add signer: %w", err)
	}
	ctx.emit(
		SignerAddedEventType,
		SignerAddedEvent{LevelId: l.id, Address: signer},
	)
	return nil
}

// RemoveSigner removes a signer. Callable only by the owning account.
// Removal never leaves the level with zero signers, which would make its
// quorum unreachable.
func (l *Level) RemoveSigner(caller Address, signer Address) error {
	return l.engine.runOp(l.account, func(ctx *opCtx) error {
		return l.removeSigner(ctx, caller, signer)
	})
}

func (l *Level) removeSigner(
	ctx *opCtx,
	caller Address,
	signer Address,
) error {
	if caller != l.account {
		return ErrNotOwningAccount
	}
	if err := l.ensureCurrent(ctx); err != nil {
		return err
	}
	signers, err := l.engine.db.Metadata().GetSigners(
		l.account.Bytes(),
		l.id,
		ctx.txn.Metadata(),
	)
	if err != nil {
		return err
	}
	found := false
	for _, existing := range signers {
		if NewAddressFromBytes(existing.Address) == signer {
			found = true
			break
		}
	}
	if !found {
		return ErrSignerUnknown
	}
	if len(signers) == 1 {
		return ErrLastSigner
	}
	if err := l.engine.db.Metadata().RemoveSigner(
		l.account.Bytes(),
		l.id,
		signer.Bytes(),
		ctx.txn.Metadata(),
	); err != nil {
		return fmt.Errorf("remove signer: %w", err)
	}
	ctx.emit(
		SignerRemovedEventType,
		SignerRemovedEvent{LevelId: l.id, Address: signer},
	)
	return nil
}
