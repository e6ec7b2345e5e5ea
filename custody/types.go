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
	"encoding/binary"
	"encoding/hex"
	"slices"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	// AddressSize is the length of a credential hash in bytes
	AddressSize = 28
	// TxKeySize is the length of a transaction key in bytes
	TxKeySize = 32
)

// Address is a Blake2b-224 credential hash identifying an owner, a signer,
// a level instance, or a destination
type Address [AddressSize]byte

// NewAddressFromBytes returns an Address from raw bytes. Input shorter than
// AddressSize is left-padded with zeroes; longer input is truncated.
func NewAddressFromBytes(data []byte) Address {
	var ret Address
	if len(data) > AddressSize {
		data = data[:AddressSize]
	}
	copy(ret[AddressSize-len(data):], data)
	return ret
}

// NewAddressFromCredential hashes an arbitrary credential (e.g. a serialized
// public key) into an Address
func NewAddressFromCredential(credential []byte) Address {
	var ret Address
	h, err := blake2b.New(AddressSize, nil)
	if err != nil {
		// blake2b.New only fails on invalid digest size
		panic(err)
	}
	h.Write(credential)
	copy(ret[:], h.Sum(nil))
	return ret
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns true for the all-zero address, which is never a valid
// credential
func (a Address) IsZero() bool {
	return a == Address{}
}

// TxKey is the Blake2b-256 hash uniquely identifying a proposed transaction
type TxKey [TxKeySize]byte

func NewTxKeyFromBytes(data []byte) TxKey {
	var ret TxKey
	if len(data) > TxKeySize {
		data = data[:TxKeySize]
	}
	copy(ret[TxKeySize-len(data):], data)
	return ret
}

func (k TxKey) String() string {
	return hex.EncodeToString(k[:])
}

func (k TxKey) Bytes() []byte {
	return k[:]
}

// AmountRange maps an inclusive [MinAmount, MaxAmount] band to the ordered
// sequence of levels a matching transaction must pass through, along with
// each level's required quorum and timelock. The three sequences are
// parallel and must have equal length.
type AmountRange struct {
	MinAmount uint64
	MaxAmount uint64
	LevelIds  []uint64
	Quorums   []uint64
	Timelocks []time.Duration
}

// Contains returns true when the amount falls within the range's inclusive
// bounds
func (r AmountRange) Contains(amount uint64) bool {
	return amount >= r.MinAmount && amount <= r.MaxAmount
}

// Overlaps returns true when the two ranges share any amount
func (r AmountRange) Overlaps(other AmountRange) bool {
	return r.MinAmount <= other.MaxAmount && other.MinAmount <= r.MaxAmount
}

// Copy returns a deep copy of the range. Proposal snapshots use this to
// freeze the routing configuration against later owner edits.
func (r AmountRange) Copy() AmountRange {
	return AmountRange{
		MinAmount: r.MinAmount,
		MaxAmount: r.MaxAmount,
		LevelIds:  slices.Clone(r.LevelIds),
		Quorums:   slices.Clone(r.Quorums),
		Timelocks: slices.Clone(r.Timelocks),
	}
}

func (r AmountRange) validate() error {
	if r.MinAmount > r.MaxAmount {
		return ErrRangeBounds
	}
	if len(r.LevelIds) != len(r.Quorums) ||
		len(r.LevelIds) != len(r.Timelocks) {
		return ErrRangeLengthMismatch
	}
	if len(r.LevelIds) == 0 {
		return ErrRangeEmpty
	}
	for _, quorum := range r.Quorums {
		if quorum == 0 {
			return ErrZeroQuorum
		}
	}
	return nil
}

// Clock provides the engine's notion of current time. The production clock
// is the system clock; tests substitute a manually-advanced one to exercise
// timelock boundaries deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by the system wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// levelAddressSalt domain-separates level address derivation from other
// Blake2b uses
const levelAddressSalt = "bastion.level"

// LevelAddress derives the deterministic address for a level from its
// owning account and identity. Derivation is stable so that a rebuilt node
// assigns the same addresses.
func LevelAddress(account Address, levelId uint64) Address {
	buf := make([]byte, 0, len(levelAddressSalt)+AddressSize+8)
	buf = append(buf, []byte(levelAddressSalt)...)
	buf = append(buf, account.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, levelId)
	return NewAddressFromCredential(buf)
}

// accountAddressSalt domain-separates account address derivation
const accountAddressSalt = "bastion.account"

// AccountAddress derives the deterministic address for an account from its
// owner credential and a creation sequence number.
func AccountAddress(owner Address, seq uint64) Address {
	buf := make([]byte, 0, len(accountAddressSalt)+AddressSize+8)
	buf = append(buf, []byte(accountAddressSalt)...)
	buf = append(buf, owner.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, seq)
	return NewAddressFromCredential(buf)
}
