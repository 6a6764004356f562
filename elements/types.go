/*
This file contains the chain value types the coin store works with.

Outputs on a confidential-asset chain carry either an explicit asset/value or
a 33-byte commitment that hides it. The encodings follow the usual
prefix-byte layout:

  - asset:  0x00 null | 0x01 + 32-byte id | 0x0a/0x0b + 32-byte commitment
  - value:  0x00 null | 0x01 + 8-byte big-endian amount | 0x08/0x09 + 32-byte commitment
  - nonce:  0x00 null | 33-byte compressed public key
*/
package elements

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	AssetIDLen    = 32
	CommitmentLen = 33
	NonceLen      = 33

	prefixNull     byte = 0x00
	prefixExplicit byte = 0x01
)

var (
	ErrInvalidAssetID    = errors.New("invalid asset id")
	ErrInvalidCommitment = errors.New("invalid commitment")
)

// AssetID identifies an issued asset.
type AssetID [AssetIDLen]byte

func (a AssetID) String() string {
	return hex.EncodeToString(a[:])
}

// AssetIDFromHex parses a 64-character hex string (no 0x prefix).
func AssetIDFromHex(s string) (AssetID, error) {
	var id AssetID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidAssetID, err)
	}
	if len(b) != AssetIDLen {
		return id, fmt.Errorf("%w: length=%d", ErrInvalidAssetID, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// OutPoint references one output of a transaction.
type OutPoint struct {
	Txid chainhash.Hash
	Vout uint32
}

func NewOutPoint(txid chainhash.Hash, vout uint32) OutPoint {
	return OutPoint{Txid: txid, Vout: vout}
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Txid, o.Vout)
}

// Asset is the asset field of an output, explicit or committed.
type Asset struct {
	explicit   *AssetID
	commitment []byte
}

func ExplicitAsset(id AssetID) Asset {
	return Asset{explicit: &id}
}

// AssetCommitment wraps a 33-byte asset generator commitment.
func AssetCommitment(c []byte) (Asset, error) {
	if len(c) != CommitmentLen || (c[0] != 0x0a && c[0] != 0x0b) {
		return Asset{}, fmt.Errorf("%w: asset prefix or length", ErrInvalidCommitment)
	}
	return Asset{commitment: append([]byte(nil), c...)}, nil
}

func (a Asset) Explicit() (AssetID, bool) {
	if a.explicit == nil {
		return AssetID{}, false
	}
	return *a.explicit, true
}

func (a Asset) Commitment() []byte {
	return a.commitment
}

func (a Asset) IsNull() bool {
	return a.explicit == nil && a.commitment == nil
}

func (a Asset) IsConfidential() bool {
	return a.commitment != nil
}

// Value is the amount field of an output, explicit or committed.
type Value struct {
	explicit   *uint64
	commitment []byte
}

func ExplicitValue(v uint64) Value {
	return Value{explicit: &v}
}

// ValueCommitment wraps a 33-byte Pedersen value commitment.
func ValueCommitment(c []byte) (Value, error) {
	if len(c) != CommitmentLen || (c[0] != 0x08 && c[0] != 0x09) {
		return Value{}, fmt.Errorf("%w: value prefix or length", ErrInvalidCommitment)
	}
	return Value{commitment: append([]byte(nil), c...)}, nil
}

func (v Value) Explicit() (uint64, bool) {
	if v.explicit == nil {
		return 0, false
	}
	return *v.explicit, true
}

func (v Value) Commitment() []byte {
	return v.commitment
}

func (v Value) IsNull() bool {
	return v.explicit == nil && v.commitment == nil
}

func (v Value) IsConfidential() bool {
	return v.commitment != nil
}

// TxOutWitness holds the proofs attached to a confidential output.
// It is serialized separately from the output itself.
type TxOutWitness struct {
	SurjectionProof []byte
	RangeProof      []byte
}

func (w *TxOutWitness) IsEmpty() bool {
	return len(w.SurjectionProof) == 0 && len(w.RangeProof) == 0
}

// TxOut is a transaction output.
type TxOut struct {
	Asset        Asset
	Value        Value
	Nonce        []byte // nil or 33-byte ephemeral public key
	ScriptPubKey []byte
	Witness      TxOutWitness
}

// IsFee reports whether the output is an explicit fee output (empty script).
func (o *TxOut) IsFee() bool {
	_, assetOk := o.Asset.Explicit()
	_, valueOk := o.Value.Explicit()
	return len(o.ScriptPubKey) == 0 && assetOk && valueOk
}

func (o *TxOut) IsConfidential() bool {
	return o.Asset.IsConfidential() || o.Value.IsConfidential()
}

// AssetIssuance is the issuance payload an input may carry.
type AssetIssuance struct {
	BlindingNonce [32]byte
	AssetEntropy  [32]byte // contract hash for a new issuance, entropy for a reissuance
	Amount        Value
	InflationKeys Value
}

func (i *AssetIssuance) IsNull() bool {
	return i.Amount.IsNull() && i.InflationKeys.IsNull()
}

// TxIn is a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	ScriptSig        []byte
	Sequence         uint32
	Issuance         *AssetIssuance
}

func (in *TxIn) HasIssuance() bool {
	return in.Issuance != nil && !in.Issuance.IsNull()
}

// IsNewIssuance reports whether the input issues a brand-new asset. A
// reissuance always carries a non-zero blinding nonce.
func (in *TxIn) IsNewIssuance() bool {
	return in.HasIssuance() && in.Issuance.BlindingNonce == [32]byte{}
}

// Transaction is a confidential-asset transaction. Input witnesses are not
// modelled since the store never verifies signatures.
type Transaction struct {
	Version  uint32
	Inputs   []*TxIn
	Outputs  []*TxOut
	LockTime uint32
}

// TxHash returns the transaction id: double SHA-256 of the serialization
// without witnesses.
func (tx *Transaction) TxHash() chainhash.Hash {
	return chainhash.DoubleHashH(tx.serialize(false))
}
