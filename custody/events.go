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

	"github.com/blinklabs-io/bastion/event"
)

const (
	ProposalRecordedEventType  event.EventType = "custody.proposal-recorded"
	LevelCompletedEventType    event.EventType = "custody.level-completed"
	ReadyForExecutionEventType event.EventType = "custody.ready-for-execution"
	ExecutedEventType          event.EventType = "custody.executed"
	DeniedEventType            event.EventType = "custody.denied"
	RangeConfiguredEventType   event.EventType = "custody.range-configured"
	RangeRemovedEventType      event.EventType = "custody.range-removed"
	LevelAddedEventType        event.EventType = "custody.level-added"
	LevelUpdatedEventType      event.EventType = "custody.level-updated"
	SignedEventType            event.EventType = "custody.signed"
	QuorumReachedEventType     event.EventType = "custody.quorum-reached"
	LevelApprovedEventType     event.EventType = "custody.level-approved"
	SignerAddedEventType       event.EventType = "custody.signer-added"
	SignerRemovedEventType     event.EventType = "custody.signer-removed"
)

// ProposalRecordedEvent is the only durable record of a transaction's full
// routing once it is executed and cleared, so its field set is part of the
// external contract.
type ProposalRecordedEvent struct {
	Key       TxKey
	Account   Address
	To        Address
	Value     uint64
	Amount    uint64
	LevelIds  []uint64
	Quorums   []uint64
	Timelocks []time.Duration
}

type LevelCompletedEvent struct {
	Key       TxKey
	LevelId   uint64
	NewCursor int
}

type ReadyForExecutionEvent struct {
	Key TxKey
}

type ExecutedEvent struct {
	Key   TxKey
	To    Address
	Value uint64
}

type DeniedEvent struct {
	Key     TxKey
	LevelId uint64
	Denier  Address
}

type RangeConfiguredEvent struct {
	Account   Address
	Index     int
	MinAmount uint64
	MaxAmount uint64
	LevelIds  []uint64
}

type RangeRemovedEvent struct {
	Account   Address
	Index     int
	MinAmount uint64
	MaxAmount uint64
}

type LevelAddedEvent struct {
	Account Address
	LevelId uint64
	Address Address
}

type LevelUpdatedEvent struct {
	Account    Address
	LevelId    uint64
	OldAddress Address
	NewAddress Address
}

type SignedEvent struct {
	Key      TxKey
	LevelId  uint64
	Signer   Address
	Count    uint64
	Required uint64
}

type QuorumReachedEvent struct {
	Key         TxKey
	LevelId     uint64
	TimelockEnd time.Time
}

type LevelApprovedEvent struct {
	Key     TxKey
	LevelId uint64
}

type SignerAddedEvent struct {
	LevelId uint64
	Address Address
}

type SignerRemovedEvent struct {
	LevelId uint64
	Address Address
}
