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
	"time"

	"github.com/blinklabs-io/bastion/database"
)

// LevelApprovalStatus is a read-only snapshot of one level's approval
// record for a transaction
type LevelApprovalStatus struct {
	LevelId          uint64
	RequiredQuorum   uint64
	SignatureCount   uint64
	TimelockDuration time.Duration
	TimelockEnd      time.Time
	Submitted        bool
	QuorumReached    bool
	Approved         bool
	Denied           bool
}

// TransactionStatus is a read-only snapshot of an in-flight transaction:
// the recorded proposal, its frozen routing configuration, the progress
// cursor, and each routed level's approval state. Levels the cursor has
// not reached yet appear with Submitted false.
type TransactionStatus struct {
	Key           TxKey
	To            Address
	Value         uint64
	Data          []byte
	Amount        uint64
	ProposedAt    time.Time
	Config        AmountRange
	Cursor        int
	FullyApproved bool
	Denied        bool
	DeniedLevelId uint64
	Denier        Address
	Levels        []LevelApprovalStatus
}

// TransactionStatus returns a consistent snapshot of one transaction,
// reading all of its records within a single database transaction
func (a *Account) TransactionStatus(key TxKey) (*TransactionStatus, error) {
	var ret *TransactionStatus
	txn := a.engine.db.Transaction(false)
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
		payload, err := a.engine.db.GetTransactionPayload(
			a.address.Bytes(),
			key.Bytes(),
			txn,
		)
		if err != nil {
			return err
		}
		ret = &TransactionStatus{
			Key:           key,
			To:            NewAddressFromBytes(txRec.To),
			Value:         txRec.Value,
			Data:          payload,
			Amount:        txRec.Amount,
			ProposedAt:    txRec.ProposedAt,
			Cursor:        txRec.Cursor,
			FullyApproved: txRec.FullyApproved,
			Denied:        txRec.Denied,
			DeniedLevelId: txRec.DeniedLevelId,
			Config: AmountRange{
				MinAmount: txRec.MinAmount,
				MaxAmount: txRec.MaxAmount,
			},
		}
		if txRec.Denied {
			ret.Denier = NewAddressFromBytes(txRec.Denier)
		}
		for _, step := range txRec.Steps {
			ret.Config.LevelIds = append(ret.Config.LevelIds, step.LevelId)
			ret.Config.Quorums = append(ret.Config.Quorums, step.Quorum)
			ret.Config.Timelocks = append(
				ret.Config.Timelocks,
				time.Duration(step.Timelock),
			)
			levelStatus := LevelApprovalStatus{
				LevelId:          step.LevelId,
				TimelockDuration: time.Duration(step.Timelock),
			}
			approval, err := a.engine.db.Metadata().GetApproval(
				a.address.Bytes(),
				key.Bytes(),
				step.LevelId,
				txn.Metadata(),
			)
			if err != nil {
				return err
			}
			if approval != nil {
				levelStatus.Submitted = true
				levelStatus.RequiredQuorum = approval.RequiredQuorum
				levelStatus.SignatureCount = approval.SignatureCount
				levelStatus.TimelockEnd = approval.TimelockEnd
				levelStatus.QuorumReached = approval.TimelockSet
				levelStatus.Approved = approval.Approved
				levelStatus.Denied = approval.Denied
			}
			ret.Levels = append(ret.Levels, levelStatus)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// PendingTransactions returns the keys of every in-flight transaction on
// the account, including those fully approved but not yet executed. Denied
// transactions are excluded; their records remain queryable through
// TransactionStatus
func (a *Account) PendingTransactions() ([]TxKey, error) {
	records, err := a.engine.db.Metadata().GetTransactions(
		a.address.Bytes(),
		nil,
	)
	if err != nil {
		return nil, err
	}
	ret := make([]TxKey, 0, len(records))
	for _, rec := range records {
		if rec.Denied {
			continue
		}
		ret = append(ret, NewTxKeyFromBytes(rec.Key))
	}
	return ret, nil
}
