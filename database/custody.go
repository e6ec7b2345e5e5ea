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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/bastion/database/models"
	"github.com/blinklabs-io/bastion/database/plugin/blob"
)

// AddTransactionWithPayload stores a transaction record in the metadata
// store and its call payload in the blob store within a single coordinated
// transaction
func (d *Database) AddTransactionWithPayload(
	tx *models.Transaction,
	payload []byte,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.Metadata().AddTransaction(tx, txn.Metadata()); err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}
	if len(payload) > 0 {
		key := blob.PayloadBlobKey(tx.Account, tx.Key)
		if err := d.Blob().Set(txn.Blob(), key, payload); err != nil {
			return fmt.Errorf("store payload: %w", err)
		}
	}
	if owned {
		return txn.Commit()
	}
	return nil
}

// GetTransactionPayload returns a transaction's call payload, which may be
// empty for plain value transfers
func (d *Database) GetTransactionPayload(
	account []byte,
	txKey []byte,
	txn *Txn,
) ([]byte, error) {
	key := blob.PayloadBlobKey(account, txKey)
	var ret []byte
	var err error
	if txn == nil {
		ret, err = d.Blob().Get(nil, key)
	} else {
		ret, err = d.Blob().Get(txn.Blob(), key)
	}
	if err != nil {
		if errors.Is(err, blob.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ret, nil
}

// PurgeTransaction removes every trace of a transaction: the metadata
// record and its frozen steps, all approval and signature records, and the
// call payload blob. Used when reclaiming storage at execution time.
func (d *Database) PurgeTransaction(
	tx *models.Transaction,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.Metadata().DeleteApprovalSignatures(
		tx.Account,
		tx.Key,
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf("delete approval signatures: %w", err)
	}
	if err := d.Metadata().DeleteApprovals(
		tx.Account,
		tx.Key,
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf("delete approvals: %w", err)
	}
	if err := d.Metadata().DeleteTransaction(tx, txn.Metadata()); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	key := blob.PayloadBlobKey(tx.Account, tx.Key)
	if err := d.Blob().Delete(txn.Blob(), key); err != nil {
		return fmt.Errorf("delete payload: %w", err)
	}
	if owned {
		return txn.Commit()
	}
	return nil
}
