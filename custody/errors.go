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
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Authorization errors. These always hard-fail before any state mutation.
var (
	ErrNotOwner         = errors.New("caller is not the account owner")
	ErrNotSigner        = errors.New("caller is not an authorized signer")
	ErrNotOwningAccount = errors.New("caller is not the owning account")
	ErrNotGate          = errors.New("caller is not the validation gate")
)

// Configuration errors. These are rejected during validation, before any
// range or level state is touched.
var (
	ErrInvalidAddress      = errors.New("invalid zero address")
	ErrRangeBounds         = errors.New("range minimum exceeds maximum")
	ErrRangeLengthMismatch = errors.New(
		"level, quorum, and timelock sequences must have equal length",
	)
	ErrRangeEmpty        = errors.New("range must reference at least one level")
	ErrRangeOverlap      = errors.New("range overlaps an existing range")
	ErrRangeIndexInvalid = errors.New("range index out of bounds")
	ErrZeroQuorum        = errors.New("level quorum must be at least one")
	ErrInitFinalized     = errors.New("account initialization already finalized")
	ErrSignerExists      = errors.New("address is already a signer")
	ErrNoSigners         = errors.New("level requires at least one signer")
	ErrSignerUnknown     = errors.New("address is not a signer")
	ErrLastSigner        = errors.New("cannot remove the last signer")
)

// State-conflict errors. Operating on an already-terminal or not-yet-submitted
// record is rejected rather than silently ignored.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrStaleLevel       = errors.New("level instance has been replaced")
	ErrAlreadySubmitted = errors.New("transaction already submitted at level")
	ErrNotSubmitted     = errors.New("transaction not submitted at level")
	ErrAlreadyApproved  = errors.New("transaction already approved at level")
	ErrAlreadyDenied    = errors.New("transaction already denied")
	ErrAlreadySigned    = errors.New("signer already signed at level")
	ErrQuorumNotReached = errors.New("level quorum not yet reached")
	ErrNotFullyApproved = errors.New("transaction not fully approved")
	ErrTxNotFound       = errors.New("transaction not found")
	ErrTxExists         = errors.New("transaction already proposed")
)

// UnknownLevelError is returned when a configured range references a level
// identity that was never assigned, or an operation names a level the
// account does not know about.
type UnknownLevelError struct {
	LevelId uint64
}

func (e UnknownLevelError) Error() string {
	return fmt.Sprintf("unknown level id %d", e.LevelId)
}

// NoMatchingRangeError is returned at proposal time when the requested
// amount falls in a gap between configured ranges. A gap is a valid and
// expected failure mode, not a configuration defect.
type NoMatchingRangeError struct {
	Amount uint64
}

func (e NoMatchingRangeError) Error() string {
	return fmt.Sprintf("no amount range matches amount %d", e.Amount)
}

// LevelMismatchError is returned when a level callback arrives from an
// address other than the level currently expected for the transaction.
type LevelMismatchError struct {
	ExpectedLevelId uint64
	GotLevelId      uint64
}

func (e LevelMismatchError) Error() string {
	return fmt.Sprintf(
		"level mismatch: expected level %d, got level %d",
		e.ExpectedLevelId,
		e.GotLevelId,
	)
}

// TimelockActiveError is returned from completing a timelock before the
// recorded end time has been reached.
type TimelockActiveError struct {
	End time.Time
	Now time.Time
}

func (e TimelockActiveError) Error() string {
	return fmt.Sprintf(
		"timelock active until %s (now %s)",
		e.End.UTC().Format(time.RFC3339),
		e.Now.UTC().Format(time.RFC3339),
	)
}

// DispatchError is returned when the destination call performed during
// execution fails. The transaction's persistent state has already been
// cleared when this error is returned; a failed execution is final.
type DispatchError struct {
	Destination Address
	ReturnData  []byte
	Err         error
}

func (e DispatchError) Error() string {
	if len(e.ReturnData) > 0 {
		return fmt.Sprintf(
			"destination call to %s failed: %s (return data %s)",
			e.Destination,
			e.Err,
			hex.EncodeToString(e.ReturnData),
		)
	}
	return fmt.Sprintf(
		"destination call to %s failed: %s",
		e.Destination,
		e.Err,
	)
}

func (e DispatchError) Unwrap() error {
	return e.Err
}
