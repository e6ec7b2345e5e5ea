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

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// GateCode is the validation gate's authorization result
type GateCode int

const (
	GateCodeValid GateCode = iota
	GateCodeInvalid
)

func (c GateCode) String() string {
	switch c {
	case GateCodeValid:
		return "valid"
	case GateCodeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ProposalRequest is a structured authorization request for a new
// proposal. PublicKey is the owner's compressed secp256k1 public key,
// whose credential hash must match the account's owner address. Signature
// is a DER-encoded ECDSA signature over the canonical proposal hash, which
// commits to every other field including the replay nonce.
type ProposalRequest struct {
	Account   Address
	To        Address
	Value     uint64
	Data      []byte
	Amount    uint64
	Nonce     uint64
	PublicKey []byte
	Signature []byte
}

// AuthorizeProposal builds a fully signed ProposalRequest with the owner's
// private key
func AuthorizeProposal(
	privKey *btcec.PrivateKey,
	account Address,
	to Address,
	value uint64,
	data []byte,
	amount uint64,
	nonce uint64,
) (ProposalRequest, error) {
	hash, err := ProposalHash(account, to, value, data, amount, nonce)
	if err != nil {
		return ProposalRequest{}, err
	}
	sig := ecdsa.Sign(privKey, hash)
	return ProposalRequest{
		Account:   account,
		To:        to,
		Value:     value,
		Data:      data,
		Amount:    amount,
		Nonce:     nonce,
		PublicKey: privKey.PubKey().SerializeCompressed(),
		Signature: sig.Serialize(),
	}, nil
}

// errGateInvalid marks an authorization failure internally so the
// operation rolls back and Submit can translate it into a soft-fail code
var errGateInvalid = errors.New("proposal authorization invalid")

// Gate is the signature-check entry point that authorizes proposals. An
// authorization failure is a soft fail: Submit returns GateCodeInvalid
// with a nil error, and the caller is expected to discard the request
// rather than halt. The replay nonce advances exactly once, inside the
// same transaction that records the proposal.
type Gate struct {
	engine *Engine
}

// Submit verifies a proposal request and, when valid, records the
// proposal. The returned code is meaningful only when the error is nil: a
// non-nil error means the request could not be processed at all (unknown
// account, no matching amount range, storage failure), not that the
// authorization was judged invalid.
func (g *Gate) Submit(req ProposalRequest) (GateCode, TxKey, error) {
	var key TxKey
	acct := &Account{engine: g.engine, address: req.Account}
	err := g.engine.runOp(req.Account, func(ctx *opCtx) error {
		acctRec, err := acct.loadModel(ctx.txn.Metadata())
		if err != nil {
			return err
		}
		if req.Nonce != acctRec.Nonce {
			return errGateInvalid
		}
		if NewAddressFromCredential(req.PublicKey) !=
			NewAddressFromBytes(acctRec.Owner) {
			return errGateInvalid
		}
		hash, err := ProposalHash(
			req.Account,
			req.To,
			req.Value,
			req.Data,
			req.Amount,
			req.Nonce,
		)
		if err != nil {
			return err
		}
		pubKey, err := btcec.ParsePubKey(req.PublicKey)
		if err != nil {
			return errGateInvalid
		}
		sig, err := ecdsa.ParseDERSignature(req.Signature)
		if err != nil {
			return errGateInvalid
		}
		if !sig.Verify(hash, pubKey) {
			return errGateInvalid
		}
		key, err = acct.propose(
			ctx,
			acctRec,
			req.To,
			req.Value,
			req.Data,
			req.Amount,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, errGateInvalid) {
			g.engine.logger.Debug(
				"rejected proposal authorization",
				"component", "custody",
				"account", req.Account.String(),
			)
			return GateCodeInvalid, TxKey{}, nil
		}
		return GateCodeInvalid, TxKey{}, err
	}
	if g.engine.metrics != nil {
		g.engine.metrics.txsProposed.Inc()
		g.engine.metrics.txsPending.Inc()
	}
	return GateCodeValid, key, nil
}
