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

// AddAccount adds a new custody account to the database
func (d *MetadataStoreSqlite) AddAccount(
	account *models.Account,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Create(account)
	return result.Error
}

// GetAccount returns an account by its address, or nil when not found
func (d *MetadataStoreSqlite) GetAccount(
	address []byte,
	txn *gorm.DB,
) (*models.Account, error) {
	ret := &models.Account{}
	if txn == nil {
		txn = d.DB()
	}
	result := txn.First(ret, "address = ?", address)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetAccounts returns all custody accounts in creation order
func (d *MetadataStoreSqlite) GetAccounts(
	txn *gorm.DB,
) ([]models.Account, error) {
	var ret []models.Account
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Order("seq").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// UpdateAccount persists changes to an existing account record
func (d *MetadataStoreSqlite) UpdateAccount(
	account *models.Account,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Save(account)
	return result.Error
}

// AddLevel registers a level identity and its backing address
func (d *MetadataStoreSqlite) AddLevel(
	level *models.Level,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Create(level)
	return result.Error
}

// GetLevels returns an account's levels ordered by identity
func (d *MetadataStoreSqlite) GetLevels(
	account []byte,
	txn *gorm.DB,
) ([]models.Level, error) {
	var ret []models.Level
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Where("account = ?", account).
		Order("level_id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// UpdateLevelAddress replaces a level's backing address, preserving its identity
func (d *MetadataStoreSqlite) UpdateLevelAddress(
	account []byte,
	levelId uint64,
	address []byte,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Model(&models.Level{}).
		Where("account = ? AND level_id = ?", account, levelId).
		Update("address", address)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddSigner adds an authorized signer to a level
func (d *MetadataStoreSqlite) AddSigner(
	signer *models.Signer,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.Create(signer)
	return result.Error
}

// RemoveSigner removes an authorized signer from a level
func (d *MetadataStoreSqlite) RemoveSigner(
	account []byte,
	levelId uint64,
	address []byte,
	txn *gorm.DB,
) error {
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Where(
			"account = ? AND level_id = ? AND address = ?",
			account,
			levelId,
			address,
		).
		Delete(&models.Signer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetSigners returns a level's authorized signers
func (d *MetadataStoreSqlite) GetSigners(
	account []byte,
	levelId uint64,
	txn *gorm.DB,
) ([]models.Signer, error) {
	var ret []models.Signer
	if txn == nil {
		txn = d.DB()
	}
	result := txn.
		Where("account = ? AND level_id = ?", account, levelId).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
