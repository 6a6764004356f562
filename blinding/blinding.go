/*
Package blinding reveals (and, for wallets and tests, produces) confidential
outputs.

A blinded output commits to its asset and value:

	asset commitment = 0x0a || H_asset(asset_id, abf)
	value commitment = 0x08 || H_value(value, vbf, asset commitment)

and carries the opening (asset_id, abf, value, vbf) in its range proof,
encrypted under a key shared between the sender's ephemeral nonce key and the
receiver's blinding key (ECDH). Unblinding decrypts the opening and checks
it against both commitments.
*/
package blinding

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/TEENet-io/coin-store/elements"
)

const (
	KeyLen = 32

	openingLen = elements.AssetIDLen + 32 + 8 + 32
)

var (
	ErrUnblind    = errors.New("unblind failed")
	ErrInvalidKey = errors.New("invalid blinding key")

	tagAssetCommitment = []byte("coinstore/asset-commitment")
	tagValueCommitment = []byte("coinstore/value-commitment")
	tagSharedKey       = []byte("coinstore/blinding-key")
)

// Secrets are the openings of a confidential output. Spending the output
// requires all of them, not only the value.
type Secrets struct {
	Asset               elements.AssetID
	AssetBlindingFactor [32]byte
	Value               uint64
	ValueBlindingFactor [32]byte
}

// Unblinder reveals the secrets of a serialized confidential output.
type Unblinder interface {
	Unblind(serializedOutput, serializedWitness []byte, key *btcec.PrivateKey) (*Secrets, error)
}

// ECDHUnblinder is the default Unblinder.
type ECDHUnblinder struct{}

func (ECDHUnblinder) Unblind(serializedOutput, serializedWitness []byte, key *btcec.PrivateKey) (*Secrets, error) {
	if key == nil {
		return nil, ErrInvalidKey
	}

	out, err := elements.DeserializeTxOut(serializedOutput)
	if err != nil {
		return nil, fmt.Errorf("%w: output: %v", ErrUnblind, err)
	}
	witness, err := elements.DeserializeTxOutWitness(serializedWitness)
	if err != nil {
		return nil, fmt.Errorf("%w: witness: %v", ErrUnblind, err)
	}
	out.Witness = *witness

	return UnblindTxOut(out, key)
}

// UnblindTxOut reveals the secrets of out with the receiver's blinding key.
func UnblindTxOut(out *elements.TxOut, key *btcec.PrivateKey) (*Secrets, error) {
	assetCommitment := out.Asset.Commitment()
	valueCommitment := out.Value.Commitment()
	if assetCommitment == nil || valueCommitment == nil {
		return nil, fmt.Errorf("%w: output is not fully blinded", ErrUnblind)
	}
	if len(out.Nonce) != elements.NonceLen {
		return nil, fmt.Errorf("%w: missing nonce", ErrUnblind)
	}
	nonce, err := btcec.ParsePubKey(out.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrUnblind, err)
	}

	aead, err := chacha20poly1305.New(sharedKey(key, nonce))
	if err != nil {
		return nil, err
	}
	opening, err := aead.Open(nil, make([]byte, aead.NonceSize()), out.Witness.RangeProof, commitmentsAD(assetCommitment, valueCommitment))
	if err != nil {
		return nil, fmt.Errorf("%w: range proof does not open with this key", ErrUnblind)
	}
	if len(opening) != openingLen {
		return nil, fmt.Errorf("%w: opening length %d", ErrUnblind, len(opening))
	}

	secrets := &Secrets{}
	copy(secrets.Asset[:], opening[:32])
	copy(secrets.AssetBlindingFactor[:], opening[32:64])
	secrets.Value = binary.BigEndian.Uint64(opening[64:72])
	copy(secrets.ValueBlindingFactor[:], opening[72:])

	expectedAsset := assetCommitmentOf(secrets.Asset, secrets.AssetBlindingFactor)
	if string(expectedAsset) != string(assetCommitment) {
		return nil, fmt.Errorf("%w: asset commitment mismatch", ErrUnblind)
	}
	if string(valueCommitmentOf(secrets.Value, secrets.ValueBlindingFactor, expectedAsset)) != string(valueCommitment) {
		return nil, fmt.Errorf("%w: value commitment mismatch", ErrUnblind)
	}
	return secrets, nil
}

// Blind builds a confidential output paying value of asset to script, readable
// by the holder of the private half of blindingPubKey. ephemeral is the sender's
// one-time nonce key.
func Blind(secrets *Secrets, script []byte, blindingPubKey *btcec.PublicKey, ephemeral *btcec.PrivateKey) (*elements.TxOut, error) {
	if blindingPubKey == nil || ephemeral == nil {
		return nil, ErrInvalidKey
	}

	assetCommitment := assetCommitmentOf(secrets.Asset, secrets.AssetBlindingFactor)
	valueCommitment := valueCommitmentOf(secrets.Value, secrets.ValueBlindingFactor, assetCommitment)

	opening := make([]byte, 0, openingLen)
	opening = append(opening, secrets.Asset[:]...)
	opening = append(opening, secrets.AssetBlindingFactor[:]...)
	opening = binary.BigEndian.AppendUint64(opening, secrets.Value)
	opening = append(opening, secrets.ValueBlindingFactor[:]...)

	aead, err := chacha20poly1305.New(sharedKey(ephemeral, blindingPubKey))
	if err != nil {
		return nil, err
	}
	rangeProof := aead.Seal(nil, make([]byte, aead.NonceSize()), opening, commitmentsAD(assetCommitment, valueCommitment))

	asset, err := elements.AssetCommitment(assetCommitment)
	if err != nil {
		return nil, err
	}
	value, err := elements.ValueCommitment(valueCommitment)
	if err != nil {
		return nil, err
	}

	return &elements.TxOut{
		Asset:        asset,
		Value:        value,
		Nonce:        ephemeral.PubKey().SerializeCompressed(),
		ScriptPubKey: script,
		Witness:      elements.TxOutWitness{RangeProof: rangeProof},
	}, nil
}

// ParseKey decodes a 32-byte blinding secret.
func ParseKey(b []byte) (*btcec.PrivateKey, error) {
	if len(b) != KeyLen {
		return nil, fmt.Errorf("%w: length=%d", ErrInvalidKey, len(b))
	}
	key, _ := btcec.PrivKeyFromBytes(b)
	return key, nil
}

// KeyBytes encodes a blinding secret as stored on disk.
func KeyBytes(key *btcec.PrivateKey) []byte {
	return key.Serialize()
}

func sharedKey(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	h := chainhash.TaggedHash(tagSharedKey, btcec.GenerateSharedSecret(priv, pub))
	return h[:]
}

func assetCommitmentOf(asset elements.AssetID, abf [32]byte) []byte {
	h := chainhash.TaggedHash(tagAssetCommitment, asset[:], abf[:])
	return append([]byte{0x0a}, h[:]...)
}

func valueCommitmentOf(value uint64, vbf [32]byte, assetCommitment []byte) []byte {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], value)
	h := chainhash.TaggedHash(tagValueCommitment, v[:], vbf[:], assetCommitment)
	return append([]byte{0x08}, h[:]...)
}

func commitmentsAD(assetCommitment, valueCommitment []byte) []byte {
	ad := make([]byte, 0, len(assetCommitment)+len(valueCommitment))
	ad = append(ad, assetCommitment...)
	return append(ad, valueCommitment...)
}
