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
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// proposalBody is the canonical form hashed into a transaction key and
// signed by the account owner. Field order is fixed by the CBOR array
// encoding so that every implementation derives identical keys.
type proposalBody struct {
	_       struct{} `cbor:",toarray"`
	Account []byte
	To      []byte
	Value   uint64
	Data    []byte
	Amount  uint64
	Nonce   uint64
}

var canonicalEncMode cbor.EncMode

func init() {
	var err error
	canonicalEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func encodeProposalBody(
	account Address,
	to Address,
	value uint64,
	data []byte,
	amount uint64,
	nonce uint64,
) ([]byte, error) {
	body := proposalBody{
		Account: account.Bytes(),
		To:      to.Bytes(),
		Value:   value,
		Data:    data,
		Amount:  amount,
		Nonce:   nonce,
	}
	ret, err := canonicalEncMode.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode proposal body: %w", err)
	}
	return ret, nil
}

// ComputeTxKey derives the collision-resistant key for a proposal. The
// account nonce is part of the preimage, so re-proposing identical fields
// under an incremented nonce yields a distinct key.
func ComputeTxKey(
	account Address,
	to Address,
	value uint64,
	data []byte,
	amount uint64,
	nonce uint64,
) (TxKey, error) {
	var ret TxKey
	encoded, err := encodeProposalBody(account, to, value, data, amount, nonce)
	if err != nil {
		return ret, err
	}
	ret = TxKey(blake2b.Sum256(encoded))
	return ret, nil
}

// ProposalHash is the canonical hash the owner signs to authorize a
// proposal. It is derived over the same fields as the transaction key but
// domain-separated, so a signature over one can never be replayed as the
// other.
func ProposalHash(
	account Address,
	to Address,
	value uint64,
	data []byte,
	amount uint64,
	nonce uint64,
) ([]byte, error) {
	encoded, err := encodeProposalBody(account, to, value, data, amount, nonce)
	if err != nil {
		return nil, err
	}
	h, err := blake2b.New256([]byte("bastion.proposal.auth"))
	if err != nil {
		return nil, fmt.Errorf("create hasher: %w", err)
	}
	h.Write(encoded)
	return h.Sum(nil), nil
}
