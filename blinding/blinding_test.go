package blinding

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEENet-io/coin-store/elements"
)

func newKey(t *testing.T) *btcec.PrivateKey {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

func testSecrets() *Secrets {
	return &Secrets{
		Asset:               elements.AssetID{1, 2, 3},
		AssetBlindingFactor: [32]byte{4},
		Value:               123456,
		ValueBlindingFactor: [32]byte{5},
	}
}

func TestBlindUnblindRoundTrip(t *testing.T) {
	receiver := newKey(t)
	secrets := testSecrets()

	out, err := Blind(secrets, []byte{0x51}, receiver.PubKey(), newKey(t))
	require.NoError(t, err)
	assert.True(t, out.IsConfidential())
	_, explicit := out.Value.Explicit()
	assert.False(t, explicit)

	got, err := ECDHUnblinder{}.Unblind(out.Serialize(), out.Witness.Serialize(), receiver)
	require.NoError(t, err)
	assert.Equal(t, secrets, got)
}

func TestUnblindWithWrongKeyFails(t *testing.T) {
	out, err := Blind(testSecrets(), []byte{0x51}, newKey(t).PubKey(), newKey(t))
	require.NoError(t, err)

	_, err = ECDHUnblinder{}.Unblind(out.Serialize(), out.Witness.Serialize(), newKey(t))
	assert.ErrorIs(t, err, ErrUnblind)
}

func TestUnblindDetectsTamperedCommitment(t *testing.T) {
	receiver := newKey(t)
	out, err := Blind(testSecrets(), []byte{0x51}, receiver.PubKey(), newKey(t))
	require.NoError(t, err)

	forged, err := Blind(&Secrets{Asset: elements.AssetID{9}, Value: 1}, []byte{0x51}, receiver.PubKey(), newKey(t))
	require.NoError(t, err)
	out.Value = forged.Value

	_, err = UnblindTxOut(out, receiver)
	assert.ErrorIs(t, err, ErrUnblind)
}

func TestUnblindExplicitOutputFails(t *testing.T) {
	out := &elements.TxOut{
		Asset:        elements.ExplicitAsset(elements.AssetID{1}),
		Value:        elements.ExplicitValue(10),
		ScriptPubKey: []byte{0x51},
	}
	_, err := ECDHUnblinder{}.Unblind(out.Serialize(), out.Witness.Serialize(), newKey(t))
	assert.ErrorIs(t, err, ErrUnblind)
}

func TestParseKey(t *testing.T) {
	key := newKey(t)
	parsed, err := ParseKey(KeyBytes(key))
	require.NoError(t, err)
	assert.True(t, key.PubKey().IsEqual(parsed.PubKey()))

	_, err = ParseKey([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidKey)
}
