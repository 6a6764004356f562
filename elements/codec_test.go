package elements

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confidentialTxOut(t *testing.T) *TxOut {
	assetCommitment := append([]byte{0x0a}, bytes.Repeat([]byte{0x11}, 32)...)
	valueCommitment := append([]byte{0x08}, bytes.Repeat([]byte{0x22}, 32)...)
	nonce := append([]byte{0x02}, bytes.Repeat([]byte{0x33}, 32)...)

	asset, err := AssetCommitment(assetCommitment)
	require.NoError(t, err)
	value, err := ValueCommitment(valueCommitment)
	require.NoError(t, err)

	return &TxOut{
		Asset:        asset,
		Value:        value,
		Nonce:        nonce,
		ScriptPubKey: []byte{0x51, 0x20, 0x01},
		Witness: TxOutWitness{
			SurjectionProof: []byte{0xaa},
			RangeProof:      bytes.Repeat([]byte{0xbb}, 120),
		},
	}
}

func TestTxOutSerializeExcludesWitness(t *testing.T) {
	out := confidentialTxOut(t)

	decoded, err := DeserializeTxOut(out.Serialize())
	require.NoError(t, err)
	assert.True(t, decoded.IsConfidential())
	assert.True(t, decoded.Witness.IsEmpty())
	assert.Equal(t, out.Asset.Commitment(), decoded.Asset.Commitment())
	assert.Equal(t, out.Value.Commitment(), decoded.Value.Commitment())
	assert.Equal(t, out.Nonce, decoded.Nonce)
	assert.Equal(t, out.ScriptPubKey, decoded.ScriptPubKey)

	witness, err := DeserializeTxOutWitness(out.Witness.Serialize())
	require.NoError(t, err)
	assert.Equal(t, out.Witness, *witness)
}

func TestDeserializeTxOutRejectsGarbage(t *testing.T) {
	_, err := DeserializeTxOut([]byte{0x07})
	assert.ErrorIs(t, err, ErrMalformed)

	out := &TxOut{Asset: ExplicitAsset(AssetID{1}), Value: ExplicitValue(5), ScriptPubKey: []byte{0x51}}
	_, err = DeserializeTxOut(append(out.Serialize(), 0x00))
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestInvalidCommitmentPrefix(t *testing.T) {
	_, err := AssetCommitment(append([]byte{0x08}, make([]byte, 32)...))
	assert.ErrorIs(t, err, ErrInvalidCommitment)

	_, err = ValueCommitment(make([]byte, 20))
	assert.ErrorIs(t, err, ErrInvalidCommitment)
}

func TestTransactionRoundTripKeepsTxid(t *testing.T) {
	tx := &Transaction{
		Version: 2,
		Inputs: []*TxIn{
			{
				PreviousOutPoint: NewOutPoint(chainhash.Hash{9}, 3),
				Sequence:         0xfffffffe,
				Issuance: &AssetIssuance{
					AssetEntropy:  [32]byte{7},
					Amount:        ExplicitValue(1000),
					InflationKeys: ExplicitValue(1),
				},
			},
			{PreviousOutPoint: NewOutPoint(chainhash.Hash{8}, 0), Sequence: 0xffffffff},
		},
		Outputs: []*TxOut{
			confidentialTxOut(t),
			{Asset: ExplicitAsset(AssetID{1}), Value: ExplicitValue(500), ScriptPubKey: []byte{0x51}},
			{Asset: ExplicitAsset(AssetID{1}), Value: ExplicitValue(20)},
		},
		LockTime: 77,
	}

	decoded, err := DeserializeTransaction(tx.Serialize())
	require.NoError(t, err)
	assert.Equal(t, tx.TxHash(), decoded.TxHash())
	assert.Equal(t, tx.Serialize(), decoded.Serialize())

	require.Len(t, decoded.Inputs, 2)
	assert.True(t, decoded.Inputs[0].IsNewIssuance())
	assert.Equal(t, uint32(3), decoded.Inputs[0].PreviousOutPoint.Vout)
	assert.False(t, decoded.Inputs[1].HasIssuance())

	require.Len(t, decoded.Outputs, 3)
	assert.Equal(t, tx.Outputs[0].Witness, decoded.Outputs[0].Witness)
	assert.True(t, decoded.Outputs[2].IsFee())
	assert.False(t, decoded.Outputs[1].IsFee())
}

func TestTxHashIgnoresWitness(t *testing.T) {
	out := confidentialTxOut(t)
	tx := &Transaction{Version: 2, Outputs: []*TxOut{out}}
	before := tx.TxHash()

	out.Witness.RangeProof = []byte{0x01}
	assert.Equal(t, before, tx.TxHash())
}

func TestIssuanceDerivation(t *testing.T) {
	prevout := NewOutPoint(chainhash.Hash{1}, 0)
	entropy := GenerateAssetEntropy(prevout, [32]byte{})

	assert.Equal(t, entropy, GenerateAssetEntropy(prevout, [32]byte{}))
	assert.NotEqual(t, entropy, GenerateAssetEntropy(NewOutPoint(chainhash.Hash{1}, 1), [32]byte{}))

	asset := AssetIDFromEntropy(entropy)
	explicitToken := ReissuanceTokenFromEntropy(entropy, false)
	blindedToken := ReissuanceTokenFromEntropy(entropy, true)
	assert.NotEqual(t, asset, explicitToken)
	assert.NotEqual(t, explicitToken, blindedToken)
}

func TestAssetIDFromHex(t *testing.T) {
	id := AssetID{0xde, 0xad}
	parsed, err := AssetIDFromHex(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = AssetIDFromHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidAssetID)
}
