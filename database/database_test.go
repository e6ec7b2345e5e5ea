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

package database_test

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/bastion/database"
	"github.com/blinklabs-io/bastion/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(seed byte) []byte {
	addr := make([]byte, 28)
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

func testTxKey(seed byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = seed
	}
	return key
}

func TestNewInMemory(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	assert.Equal(t, "", db.DataDir())
	assert.NotNil(t, db.Blob())
	assert.NotNil(t, db.Metadata())
	assert.NotNil(t, db.Logger())
}

func TestNewUnknownMetadataPlugin(t *testing.T) {
	_, err := database.New(&database.Config{
		MetadataPlugin: "bogus",
	})
	require.Error(t, err)
}

func TestTxnCommit(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	owner := testAddress(0x01)
	account := testAddress(0x02)

	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.Metadata().AddAccount(
			&models.Account{
				Address:     account,
				Owner:       owner,
				NextLevelId: 1,
			},
			txn.Metadata(),
		)
	})
	require.NoError(t, err)

	// Committed row is visible outside the transaction
	ret, err := db.Metadata().GetAccount(account, nil)
	require.NoError(t, err)
	require.NotNil(t, ret)
	assert.Equal(t, owner, ret.Owner)
	assert.Equal(t, uint64(1), ret.NextLevelId)
}

func TestTxnRollback(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	account := testAddress(0x03)

	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := db.Metadata().AddAccount(
			&models.Account{
				Address:     account,
				Owner:       testAddress(0x04),
				NextLevelId: 1,
			},
			txn.Metadata(),
		); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	// Rolled back row is not visible
	ret, err := db.Metadata().GetAccount(account, nil)
	require.NoError(t, err)
	assert.Nil(t, ret)
}

func TestTxnCommitIdempotent(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	txn := db.Transaction(true)
	require.NoError(t, txn.Commit())
	// Repeated commit/rollback on a finished transaction is a no-op
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Rollback())
}

func TestCommitTimestampStamping(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.Metadata().AddAccount(
			&models.Account{
				Address:     testAddress(0x05),
				Owner:       testAddress(0x06),
				NextLevelId: 1,
			},
			txn.Metadata(),
		)
	})
	require.NoError(t, err)

	// Both stores are stamped with the same timestamp on commit
	metadataTimestamp, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Greater(t, metadataTimestamp, int64(0))
	blobTimestamp, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, metadataTimestamp, blobTimestamp)
}

func TestReadOnlyTxnDoesNotStamp(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	before, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)

	txn := db.Transaction(false)
	err = txn.Do(func(txn *database.Txn) error {
		_, err := db.Metadata().GetAccounts(txn.Metadata())
		return err
	})
	require.NoError(t, err)

	after, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTransactionWithPayloadRoundTrip(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	account := testAddress(0x07)
	key := testTxKey(0x08)
	payload := []byte("call data payload")

	tx := &models.Transaction{
		Account: account,
		Key:     key,
		To:      testAddress(0x09),
		Value:   1234,
		Amount:  1234,
		Steps: []models.TransactionStep{
			{Idx: 0, LevelId: 1, Quorum: 2, Timelock: 3600},
		},
	}
	err = db.AddTransactionWithPayload(tx, payload, nil)
	require.NoError(t, err)

	// Metadata record with frozen steps
	ret, err := db.Metadata().GetTransaction(account, key, nil)
	require.NoError(t, err)
	require.NotNil(t, ret)
	assert.Equal(t, uint64(1234), ret.Value)
	require.Len(t, ret.Steps, 1)
	assert.Equal(t, uint64(2), ret.Steps[0].Quorum)

	// Payload blob
	retPayload, err := db.GetTransactionPayload(account, key, nil)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, retPayload))
}

func TestGetTransactionPayloadMissing(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	// A transaction without call data has no payload blob
	payload, err := db.GetTransactionPayload(
		testAddress(0x0a),
		testTxKey(0x0b),
		nil,
	)
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestPurgeTransaction(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	account := testAddress(0x0c)
	key := testTxKey(0x0d)

	tx := &models.Transaction{
		Account: account,
		Key:     key,
		To:      testAddress(0x0e),
		Value:   500,
		Amount:  500,
		Steps: []models.TransactionStep{
			{Idx: 0, LevelId: 1, Quorum: 1, Timelock: 0},
		},
	}
	err = db.AddTransactionWithPayload(tx, []byte("payload"), nil)
	require.NoError(t, err)

	// Add approval state that purge must also remove
	err = db.Metadata().AddApproval(
		&models.Approval{
			Account:        account,
			Key:            key,
			LevelId:        1,
			RequiredQuorum: 1,
		},
		nil,
	)
	require.NoError(t, err)
	err = db.Metadata().AddApprovalSignature(
		&models.ApprovalSignature{
			Account: account,
			Key:     key,
			LevelId: 1,
			Signer:  testAddress(0x0f),
		},
		nil,
	)
	require.NoError(t, err)

	ret, err := db.Metadata().GetTransaction(account, key, nil)
	require.NoError(t, err)
	require.NotNil(t, ret)

	err = db.PurgeTransaction(ret, nil)
	require.NoError(t, err)

	// Everything is gone
	ret, err = db.Metadata().GetTransaction(account, key, nil)
	require.NoError(t, err)
	assert.Nil(t, ret)
	approval, err := db.Metadata().GetApproval(account, key, 1, nil)
	require.NoError(t, err)
	assert.Nil(t, approval)
	hasSig, err := db.Metadata().HasApprovalSignature(
		account,
		key,
		1,
		testAddress(0x0f),
		nil,
	)
	require.NoError(t, err)
	assert.False(t, hasSig)
	payload, err := db.GetTransactionPayload(account, key, nil)
	require.NoError(t, err)
	assert.Nil(t, payload)
}
