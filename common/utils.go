package common

import (
	"crypto/rand"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrNot32Bytes = errors.New("expect 32 bytes")

// Trim 0x or 0X prefix off the string.
func Trim0xPrefix(str string) string {
	s := strings.TrimPrefix(str, "0x")
	return strings.TrimPrefix(s, "0X")
}

// DecodeHex decodes a hex string with or without 0x prefix. Unlike the
// lenient helpers it rejects odd lengths and non-hex characters.
func DecodeHex(hexStr string) ([]byte, error) {
	return hexutil.Decode("0x" + Trim0xPrefix(hexStr))
}

// DecodeHex32 decodes a hex string holding exactly 32 bytes.
func DecodeHex32(hexStr string) ([32]byte, error) {
	var b32 [32]byte
	b, err := DecodeHex(hexStr)
	if err != nil {
		return b32, err
	}
	if len(b) != 32 {
		return b32, ErrNot32Bytes
	}
	copy(b32[:], b)
	return b32, nil
}

// RandBytes32 generates [32]byte with random values
func RandBytes32() [32]byte {
	var b [32]byte
	n, err := rand.Read(b[:])

	if err != nil {
		return [32]byte{}
	}
	if n != 32 {
		return [32]byte{}
	}

	return b
}

// Shorten shortens a hex string so that both sides have n characters and
// the rest is replaced with "..."
func Shorten(hexStr string, n int) string {
	str := Trim0xPrefix(hexStr)

	if len(str) <= n*2 {
		return str
	}
	return str[:n] + "..." + str[len(str)-n:]
}
