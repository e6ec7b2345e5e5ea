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

package custody_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/bastion/custody"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressDerivationDeterminism(t *testing.T) {
	owner := custody.NewAddressFromCredential([]byte("owner credential"))
	assert.Equal(
		t,
		custody.AccountAddress(owner, 0),
		custody.AccountAddress(owner, 0),
	)
	assert.NotEqual(
		t,
		custody.AccountAddress(owner, 0),
		custody.AccountAddress(owner, 1),
	)
	account := custody.AccountAddress(owner, 0)
	assert.Equal(
		t,
		custody.LevelAddress(account, 1),
		custody.LevelAddress(account, 1),
	)
	assert.NotEqual(
		t,
		custody.LevelAddress(account, 1),
		custody.LevelAddress(account, 2),
	)
	// Account and level derivations are domain separated
	assert.NotEqual(
		t,
		custody.AccountAddress(owner, 1),
		custody.LevelAddress(owner, 1),
	)
}

func TestComputeTxKey(t *testing.T) {
	account := custody.NewAddressFromCredential([]byte("account"))
	to := custody.NewAddressFromCredential([]byte("destination"))
	key1, err := custody.ComputeTxKey(account, to, 100, []byte{0x01}, 100, 0)
	require.NoError(t, err)
	key2, err := custody.ComputeTxKey(account, to, 100, []byte{0x01}, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
	// Re-proposal with identical fields under an incremented nonce yields a
	// distinct key
	key3, err := custody.ComputeTxKey(account, to, 100, []byte{0x01}, 100, 1)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)
	// Every field participates in the key
	key4, err := custody.ComputeTxKey(account, to, 100, []byte{0x02}, 100, 0)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key4)
	key5, err := custody.ComputeTxKey(account, to, 101, []byte{0x01}, 100, 0)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key5)
}

func TestProposalHashDomainSeparation(t *testing.T) {
	account := custody.NewAddressFromCredential([]byte("account"))
	to := custody.NewAddressFromCredential([]byte("destination"))
	key, err := custody.ComputeTxKey(account, to, 100, nil, 100, 0)
	require.NoError(t, err)
	hash, err := custody.ProposalHash(account, to, 100, nil, 100, 0)
	require.NoError(t, err)
	assert.NotEqual(t, key.Bytes(), hash)
}

func TestAmountRangeContains(t *testing.T) {
	r := custody.AmountRange{MinAmount: 100, MaxAmount: 200}
	testDefs := []struct {
		amount   uint64
		expected bool
	}{
		{99, false},
		{100, true},
		{150, true},
		{200, true},
		{201, false},
	}
	for _, testDef := range testDefs {
		assert.Equal(
			t,
			testDef.expected,
			r.Contains(testDef.amount),
			"amount %d",
			testDef.amount,
		)
	}
}

func TestAmountRangeOverlaps(t *testing.T) {
	r := custody.AmountRange{MinAmount: 100, MaxAmount: 200}
	testDefs := []struct {
		min      uint64
		max      uint64
		expected bool
	}{
		{0, 99, false},
		{0, 100, true},
		{150, 160, true},
		{200, 300, true},
		{201, 300, false},
	}
	for _, testDef := range testDefs {
		other := custody.AmountRange{
			MinAmount: testDef.min,
			MaxAmount: testDef.max,
		}
		assert.Equal(
			t,
			testDef.expected,
			r.Overlaps(other),
			"range [%d, %d]",
			testDef.min,
			testDef.max,
		)
	}
}

func TestAmountRangeCopyIsolation(t *testing.T) {
	orig := custody.AmountRange{
		MinAmount: 0,
		MaxAmount: 100,
		LevelIds:  []uint64{1, 2},
		Quorums:   []uint64{2, 1},
		Timelocks: []time.Duration{time.Hour, 0},
	}
	copied := orig.Copy()
	copied.LevelIds[0] = 99
	copied.Quorums[0] = 99
	assert.Equal(t, uint64(1), orig.LevelIds[0])
	assert.Equal(t, uint64(2), orig.Quorums[0])
}
