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
	"gorm.io/gorm/clause"
)

// GetBalance returns the ledger balance for an address. Unknown addresses
// have a zero balance.
func (d *MetadataStoreSqlite) GetBalance(
	address []byte,
	txn *gorm.DB,
) (uint64, error) {
	var tmpBalance models.Balance
	if txn == nil {
		txn = d.DB()
	}
	result := txn.First(&tmpBalance, "address = ?", address)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmpBalance.Amount, nil
}

// SetBalance sets the ledger balance for an address
func (d *MetadataStoreSqlite) SetBalance(
	address []byte,
	amount uint64,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	tmpBalance := models.Balance{
		Address: address,
		Amount:  amount,
	}
	result := txn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&tmpBalance)
	return result.Error
}
