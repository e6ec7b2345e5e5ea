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

package blob

import (
	"fmt"
	"log/slog"

	badgerimpl "github.com/blinklabs-io/bastion/database/plugin/blob/badger"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrKeyNotFound is returned when the requested blob does not exist
var ErrKeyNotFound = badgerimpl.ErrKeyNotFound

// BlobStore is the interface for storing opaque payloads, such as proposed
// call data, keyed by transaction key
type BlobStore interface {
	Close() error
	NewTransaction(readWrite bool) *badger.Txn

	Get(txn *badger.Txn, key []byte) ([]byte, error)
	Set(txn *badger.Txn, key []byte, value []byte) error
	Delete(txn *badger.Txn, key []byte) error

	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(txn *badger.Txn, timestamp int64) error
}

// New returns the blob store selected by name
func New(
	pluginName string,
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (BlobStore, error) {
	switch pluginName {
	case "badger":
		store, err := badgerimpl.New(dataDir, logger, promRegistry)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob plugin: %s", pluginName)
	}
}

const payloadKeyPrefix = "p"

// PayloadBlobKey builds the blob key for a proposal's call payload
func PayloadBlobKey(account []byte, txKey []byte) []byte {
	key := []byte(payloadKeyPrefix)
	key = append(key, account...)
	key = append(key, txKey...)
	return key
}
