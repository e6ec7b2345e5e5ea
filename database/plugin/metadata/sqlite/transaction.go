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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/bastion/database/models"
	"gorm.io/gorm"
)

// AddTransaction adds an in-flight custody transaction and its frozen
// routing steps
func (d *MetadataStoreSqlite) AddTransaction(
	tx *models.Transaction,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Create(tx)
	return result.Error
}

// GetTransaction returns a transaction by account and key, or nil when not
// found. Frozen steps are preloaded in sequence order.
func (d *MetadataStoreSqlite) GetTransaction(
	account []byte,
	key []byte,
	txn *gorm.DB,
) (*models.Transaction, error) {
	ret := &models.Transaction{}
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx")
		}).
		First(ret, "account = ? AND key = ?", account, key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetTransactions returns all of an account's in-flight transactions
func (d *MetadataStoreSqlite) GetTransactions(
	account []byte,
	txn *gorm.DB,
) ([]models.Transaction, error) {
	var ret []models.Transaction
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx")
		}).
		Where("account = ?", account).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// UpdateTransaction persists changes to an existing transaction record
func (d *MetadataStoreSqlite) UpdateTransaction(
	tx *models.Transaction,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Omit("Steps").Save(tx)
	return result.Error
}

// DeleteTransaction removes a transaction record and its frozen steps
func (d *MetadataStoreSqlite) DeleteTransaction(
	tx *models.Transaction,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	if result := txn.
		Where("transaction_id = ?", tx.ID).
		Delete(&models.TransactionStep{}); result.Error != nil {
		return result.Error
	}
	result := txn.Delete(tx)
	return result.Error
}

// AddApproval adds a level's per-transaction approval record
func (d *MetadataStoreSqlite) AddApproval(
	approval *models.Approval,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Create(approval)
	return result.Error
}

// GetApproval returns a level's approval record for a transaction, or nil
// when the transaction was never submitted at the level
func (d *MetadataStoreSqlite) GetApproval(
	account []byte,
	key []byte,
	levelId uint64,
	txn *gorm.DB,
) (*models.Approval, error) {
	ret := &models.Approval{}
	if txn == nil {
		txn = d.DB()
	}
	result := txn.First(
		ret,
		"account = ? AND key = ? AND level_id = ?",
		account,
		key,
		levelId,
	)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// UpdateApproval persists changes to an existing approval record
func (d *MetadataStoreSqlite) UpdateApproval(
	approval *models.Approval,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Save(approval)
	return result.Error
}

// DeleteApprovals removes all of a transaction's approval records
func (d *MetadataStoreSqlite) DeleteApprovals(
	account []byte,
	key []byte,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Where("account = ? AND key = ?", account, key).
		Delete(&models.Approval{})
	return result.Error
}

// AddApprovalSignature records one signer's approval at one level. The
// unique index rejects duplicate signatures from the same signer.
func (d *MetadataStoreSqlite) AddApprovalSignature(
	sig *models.ApprovalSignature,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Create(sig)
	return result.Error
}

// HasApprovalSignature returns true when the signer has already signed the
// transaction at the level
func (d *MetadataStoreSqlite) HasApprovalSignature(
	account []byte,
	key []byte,
	levelId uint64,
	signer []byte,
	txn *gorm.DB,
) (bool, error) {
	if txn == nil {
		txn = d.DB()
	}
	var count int64
	result := txn.Model(&models.ApprovalSignature{}).
		Where(
			"account = ? AND key = ? AND level_id = ? AND signer = ?",
			account,
			key,
			levelId,
			signer,
		).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// DeleteApprovalSignatures removes all of a transaction's signature records
func (d *MetadataStoreSqlite) DeleteApprovalSignatures(
	account []byte,
	key []byte,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Where("account = ? AND key = ?", account, key).
		Delete(&models.ApprovalSignature{})
	return result.Error
}
