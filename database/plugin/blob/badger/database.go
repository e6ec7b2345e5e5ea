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

package badger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	commitTimestampBlobKey = "metadata_commit_timestamp"

	gcInterval       = 5 * time.Minute
	gcDiscardRatio   = 0.5
	blockCacheSize   = 268435456 // 256MB
	valueLogFileSize = 1073741823
)

// ErrKeyNotFound is returned when the requested key does not exist
var ErrKeyNotFound = errors.New("blob key not found")

// BlobStoreBadger is a BadgerDB-backed blob store. An empty data directory
// selects an in-memory database, which is useful for testing.
type BlobStoreBadger struct {
	db           *badger.DB
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	dataDir      string
	gcStopCh     chan struct{}
	gcWg         sync.WaitGroup
}

// New creates a BadgerDB blob store under dataDir, or in memory when
// dataDir is empty
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreBadger, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var opts badger.Options
	if dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		blobDir := filepath.Join(dataDir, "blob")
		opts = badger.DefaultOptions(blobDir).
			WithBlockCacheSize(blockCacheSize).
			WithValueLogFileSize(valueLogFileSize)
	}
	opts = opts.WithLogger(newBadgerLogger(logger))
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	b := &BlobStoreBadger{
		db:           db,
		logger:       logger,
		promRegistry: promRegistry,
		dataDir:      dataDir,
		gcStopCh:     make(chan struct{}),
	}
	// Run GC periodically for on-disk databases
	if dataDir != "" {
		b.gcWg.Add(1)
		go b.gcLoop()
	}
	return b, nil
}

func (b *BlobStoreBadger) gcLoop() {
	defer b.gcWg.Done()
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.gcStopCh:
			return
		case <-ticker.C:
			// RunValueLogGC returns an error when there was nothing to collect
			if err := b.db.RunValueLogGC(gcDiscardRatio); err != nil &&
				!errors.Is(err, badger.ErrNoRewrite) {
				b.logger.Warn(
					"blob store GC failed",
					"component", "database",
					"error", err,
				)
			}
		}
	}
}

func (b *BlobStoreBadger) Close() error {
	close(b.gcStopCh)
	b.gcWg.Wait()
	return b.db.Close()
}

// NewTransaction starts a new BadgerDB transaction
func (b *BlobStoreBadger) NewTransaction(readWrite bool) *badger.Txn {
	return b.db.NewTransaction(readWrite)
}

// Get returns the value for a key within the given transaction. A nil
// transaction uses a throwaway read transaction.
func (b *BlobStoreBadger) Get(txn *badger.Txn, key []byte) ([]byte, error) {
	if txn == nil {
		txn = b.db.NewTransaction(false)
		defer txn.Discard()
	}
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a value for a key within the given transaction
func (b *BlobStoreBadger) Set(txn *badger.Txn, key []byte, value []byte) error {
	if txn == nil {
		return b.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, value)
		})
	}
	return txn.Set(key, value)
}

// Delete removes a key within the given transaction. Deleting a missing key
// is not an error.
func (b *BlobStoreBadger) Delete(txn *badger.Txn, key []byte) error {
	if txn == nil {
		return b.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
	}
	return txn.Delete(key)
}

func (b *BlobStoreBadger) GetCommitTimestamp() (int64, error) {
	val, err := b.Get(nil, []byte(commitTimestampBlobKey))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return new(big.Int).SetBytes(val).Int64(), nil
}

func (b *BlobStoreBadger) SetCommitTimestamp(
	txn *badger.Txn,
	timestamp int64,
) error {
	tmpTimestamp := new(big.Int).SetInt64(timestamp)
	return b.Set(txn, []byte(commitTimestampBlobKey), tmpTimestamp.Bytes())
}
