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

// AmountRange is a configured routing entry. Ranges within an account are
// pairwise non-overlapping; queries order by MinAmount so the active set
// reads back sorted.
type AmountRange struct {
	Account   []byte `gorm:"index;size:28"`
	Steps     []AmountRangeStep `gorm:"foreignKey:RangeID"`
	ID        uint   `gorm:"primarykey"`
	MinAmount uint64 `gorm:"index"`
	MaxAmount uint64
}

func (AmountRange) TableName() string {
	return "amount_range"
}

// AmountRangeStep is one level of a range's routing sequence. Timelock is
// stored in nanoseconds.
type AmountRangeStep struct {
	ID       uint `gorm:"primarykey"`
	RangeID  uint `gorm:"index"`
	Idx      int
	LevelId  uint64
	Quorum   uint64
	Timelock int64
}

func (AmountRangeStep) TableName() string {
	return "amount_range_step"
}
