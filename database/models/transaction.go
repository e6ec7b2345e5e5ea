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

package models

import "time"

// Transaction is an in-flight custody proposal. MinAmount/MaxAmount and
// Steps are the frozen copy of the amount range matched at proposal time;
// later edits to the live routing table never touch them. The call payload
// itself lives in the blob store keyed by Key.
type Transaction struct {
	Account       []byte `gorm:"index:idx_tx_account_key,unique;size:28"`
	Key           []byte `gorm:"index:idx_tx_account_key,unique;size:32"`
	To            []byte `gorm:"size:28"`
	Denier        []byte `gorm:"size:28"`
	Steps         []TransactionStep `gorm:"foreignKey:TransactionID"`
	ProposedAt    time.Time
	ID            uint `gorm:"primarykey"`
	Value         uint64
	Amount        uint64
	MinAmount     uint64
	MaxAmount     uint64
	DeniedLevelId uint64
	Cursor        int
	FullyApproved bool
	Denied        bool
}

func (Transaction) TableName() string {
	return "custody_transaction"
}

// TransactionStep is one level of a transaction's frozen routing sequence.
// Timelock is stored in nanoseconds.
type TransactionStep struct {
	ID            uint `gorm:"primarykey"`
	TransactionID uint `gorm:"index"`
	Idx           int
	LevelId       uint64
	Quorum        uint64
	Timelock      int64
}

func (TransactionStep) TableName() string {
	return "custody_transaction_step"
}

// Approval is a level's per-transaction approval record. Row existence
// means the transaction was submitted at the level. Approved and Denied are
// terminal; TimelockSet distinguishes a zero TimelockEnd from "not yet
// reached quorum".
type Approval struct {
	Account        []byte `gorm:"index:idx_approval_account_key_level,unique;size:28"`
	Key            []byte `gorm:"index:idx_approval_account_key_level,unique;size:32"`
	TimelockEnd    time.Time
	ID             uint   `gorm:"primarykey"`
	LevelId        uint64 `gorm:"index:idx_approval_account_key_level,unique"`
	RequiredQuorum uint64
	SignatureCount uint64
	Timelock       int64
	TimelockSet    bool
	Approved       bool
	Denied         bool
}

func (Approval) TableName() string {
	return "approval"
}

// ApprovalSignature records one signer's approval at one level, enforcing
// per-signer idempotence through its unique index.
type ApprovalSignature struct {
	Account []byte `gorm:"index:idx_approval_sig,unique;size:28"`
	Key     []byte `gorm:"index:idx_approval_sig,unique;size:32"`
	Signer  []byte `gorm:"index:idx_approval_sig,unique;size:28"`
	ID      uint   `gorm:"primarykey"`
	LevelId uint64 `gorm:"index:idx_approval_sig,unique"`
}

func (ApprovalSignature) TableName() string {
	return "approval_signature"
}

// Balance is a ledger balance used by the built-in transfer dispatcher
type Balance struct {
	Address []byte `gorm:"uniqueIndex;size:28"`
	ID      uint   `gorm:"primarykey"`
	Amount  uint64
}

func (Balance) TableName() string {
	return "balance"
}
