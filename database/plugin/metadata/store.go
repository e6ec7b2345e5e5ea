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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/bastion/database/models"
	"github.com/blinklabs-io/bastion/database/plugin/metadata/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(*gorm.DB, int64) error
	Transaction() *gorm.DB

	// Accounts
	AddAccount(*models.Account, *gorm.DB) error
	GetAccount(
		[]byte, // address
		*gorm.DB,
	) (*models.Account, error)
	GetAccounts(*gorm.DB) ([]models.Account, error)
	UpdateAccount(*models.Account, *gorm.DB) error

	// Levels and signers
	AddLevel(*models.Level, *gorm.DB) error
	GetLevels(
		[]byte, // account
		*gorm.DB,
	) ([]models.Level, error)
	UpdateLevelAddress(
		[]byte, // account
		uint64, // levelId
		[]byte, // address
		*gorm.DB,
	) error
	AddSigner(*models.Signer, *gorm.DB) error
	RemoveSigner(
		[]byte, // account
		uint64, // levelId
		[]byte, // address
		*gorm.DB,
	) error
	GetSigners(
		[]byte, // account
		uint64, // levelId
		*gorm.DB,
	) ([]models.Signer, error)

	// Amount ranges
	AddAmountRange(*models.AmountRange, *gorm.DB) error
	GetAmountRanges(
		[]byte, // account
		*gorm.DB,
	) ([]models.AmountRange, error)
	DeleteAmountRange(
		uint, // id
		*gorm.DB,
	) error

	// Transactions
	AddTransaction(*models.Transaction, *gorm.DB) error
	GetTransaction(
		[]byte, // account
		[]byte, // key
		*gorm.DB,
	) (*models.Transaction, error)
	GetTransactions(
		[]byte, // account
		*gorm.DB,
	) ([]models.Transaction, error)
	UpdateTransaction(*models.Transaction, *gorm.DB) error
	DeleteTransaction(*models.Transaction, *gorm.DB) error

	// Approvals
	AddApproval(*models.Approval, *gorm.DB) error
	GetApproval(
		[]byte, // account
		[]byte, // key
		uint64, // levelId
		*gorm.DB,
	) (*models.Approval, error)
	UpdateApproval(*models.Approval, *gorm.DB) error
	DeleteApprovals(
		[]byte, // account
		[]byte, // key
		*gorm.DB,
	) error
	AddApprovalSignature(*models.ApprovalSignature, *gorm.DB) error
	HasApprovalSignature(
		[]byte, // account
		[]byte, // key
		uint64, // levelId
		[]byte, // signer
		*gorm.DB,
	) (bool, error)
	DeleteApprovalSignatures(
		[]byte, // account
		[]byte, // key
		*gorm.DB,
	) error

	// Balances
	GetBalance(
		[]byte, // address
		*gorm.DB,
	) (uint64, error)
	SetBalance(
		[]byte, // address
		uint64, // amount
		*gorm.DB,
	) error
}

// New returns the metadata store selected by name
func New(
	pluginName string,
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	switch pluginName {
	case "sqlite":
		return sqlite.New(dataDir, logger, promRegistry)
	default:
		return nil, fmt.Errorf("unknown metadata plugin: %s", pluginName)
	}
}
