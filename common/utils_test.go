package common

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
)

func TestDecodeHex(t *testing.T) {
	b, err := DecodeHex("0x0a0B")
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, b)

	b, err = DecodeHex("0a0b")
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, b)

	_, err = DecodeHex("0a0")
	assert.Error(t, err)
	_, err = DecodeHex("zz")
	assert.Error(t, err)

	r := RandBytes32()
	b32, err := DecodeHex32(hexutil.Encode(r[:]))
	assert.NoError(t, err)
	assert.Equal(t, r, b32)

	_, err = DecodeHex32("0a0b")
	assert.ErrorIs(t, err, ErrNot32Bytes)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "0123...cdef", Shorten("0x0123456789abcdef", 4))
	assert.Equal(t, "0123", Shorten("0x0123", 4))
}

func TestParseNetwork(t *testing.T) {
	p, err := ParseNetwork("regtest")
	assert.NoError(t, err)
	assert.Equal(t, chaincfg.RegressionNetParams.Name, p.Name)

	p, err = ParseNetwork("")
	assert.NoError(t, err)
	assert.Equal(t, chaincfg.MainNetParams.Name, p.Name)

	_, err = ParseNetwork("moon")
	assert.Error(t, err)
}
