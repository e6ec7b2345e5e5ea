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
	"github.com/blinklabs-io/bastion/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddAmountRange adds a routing range and its steps
func (d *MetadataStoreSqlite) AddAmountRange(
	amountRange *models.AmountRange,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Create(amountRange)
	return result.Error
}

// GetAmountRanges returns an account's routing ranges sorted by minimum
// amount ascending, with steps preloaded in sequence order
func (d *MetadataStoreSqlite) GetAmountRanges(
	account []byte,
	txn *gorm.DB,
) ([]models.AmountRange, error) {
	var ret []models.AmountRange
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx")
		}).
		Where("account = ?", account).
		Order("min_amount").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// DeleteAmountRange removes a routing range and its steps
func (d *MetadataStoreSqlite) DeleteAmountRange(
	id uint,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	if result := txn.
		Where("range_id = ?", id).
		Delete(&models.AmountRangeStep{}); result.Error != nil {
		return result.Error
	}
	result := txn.
		Select(clause.Associations).
		Delete(&models.AmountRange{ID: id})
	return result.Error
}
