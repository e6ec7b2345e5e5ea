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

// Account is a deployed custody account. NextLevelId is the next unassigned
// level identity; identities are never reused even when a level's backing
// address is replaced. Nonce is the replay protection counter advanced by
// the validation gate on each accepted proposal.
type Account struct {
	Address     []byte `gorm:"uniqueIndex;size:28"`
	Owner       []byte `gorm:"index;size:28"`
	ID          uint   `gorm:"primarykey"`
	Seq         uint64
	NextLevelId uint64
	Nonce       uint64
	Initialized bool
}

func (Account) TableName() string {
	return "account"
}

// Level maps a level identity to the address of its current backing
// instance within an account
type Level struct {
	Account []byte `gorm:"index:idx_level_account_id,unique;size:28"`
	Address []byte `gorm:"index;size:28"`
	ID      uint   `gorm:"primarykey"`
	LevelId uint64 `gorm:"index:idx_level_account_id,unique"`
}

func (Level) TableName() string {
	return "level"
}

// Signer is an authorized signer on a level. Signers are keyed by level
// identity, not level address, so a backing-instance replacement preserves
// the signer set.
type Signer struct {
	Account []byte `gorm:"index:idx_signer_account_level_addr,unique;size:28"`
	Address []byte `gorm:"index:idx_signer_account_level_addr,unique;size:28"`
	ID      uint   `gorm:"primarykey"`
	LevelId uint64 `gorm:"index:idx_signer_account_level_addr,unique"`
}

func (Signer) TableName() string {
	return "signer"
}
