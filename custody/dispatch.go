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
	"errors"
	"fmt"

	"github.com/blinklabs-io/bastion/database"
)

// Dispatcher performs the external call at the end of a transaction's
// life. It is invoked only after the transaction's persistent state has
// been cleared and committed, so a re-entering destination finds nothing
// left to execute. Return data, when present, is surfaced verbatim inside
// DispatchError on failure.
type Dispatcher interface {
	Dispatch(
		from Address,
		to Address,
		value uint64,
		data []byte,
	) ([]byte, error)
}

// DispatchFunc adapts a plain function to the Dispatcher interface
type DispatchFunc func(
	from Address,
	to Address,
	value uint64,
	data []byte,
) ([]byte, error)

func (f DispatchFunc) Dispatch(
	from Address,
	to Address,
	value uint64,
	data []byte,
) ([]byte, error) {
	return f(from, to, value, data)
}

var ErrInsufficientFunds = errors.New("insufficient funds")

// LedgerDispatcher is the default Dispatcher. It settles value transfers
// against the balance table in the metadata store and ignores the call
// payload.
type LedgerDispatcher struct {
	db *database.Database
}

func NewLedgerDispatcher(db *database.Database) *LedgerDispatcher {
	return &LedgerDispatcher{db: db}
}

func (d *LedgerDispatcher) Dispatch(
	from Address,
	to Address,
	value uint64,
	data []byte,
) ([]byte, error) {
	if value == 0 {
		return nil, nil
	}
	txn := d.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		fromBalance, err := d.db.Metadata().GetBalance(
			from.Bytes(),
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		if fromBalance < value {
			return ErrInsufficientFunds
		}
		toBalance, err := d.db.Metadata().GetBalance(
			to.Bytes(),
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		if err := d.db.Metadata().SetBalance(
			from.Bytes(),
			fromBalance-value,
			txn.Metadata(),
		); err != nil {
			return fmt.Errorf("debit %s: %w", from, err)
		}
		if err := d.db.Metadata().SetBalance(
			to.Bytes(),
			toBalance+value,
			txn.Metadata(),
		); err != nil {
			return fmt.Errorf("credit %s: %w", to, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// Credit adds funds to an address, outside of any custody flow. Used to
// seed balances.
func (d *LedgerDispatcher) Credit(address Address, amount uint64) error {
	txn := d.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		balance, err := d.db.Metadata().GetBalance(
			address.Bytes(),
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		return d.db.Metadata().SetBalance(
			address.Bytes(),
			balance+amount,
			txn.Metadata(),
		)
	})
}

// Balance returns an address's current ledger balance
func (d *LedgerDispatcher) Balance(address Address) (uint64, error) {
	return d.db.Metadata().GetBalance(address.Bytes(), nil)
}
