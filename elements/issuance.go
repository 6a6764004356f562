package elements

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// GenerateAssetEntropy derives the entropy of a new issuance from the outpoint
// spent by the issuing input and the issuer's contract hash.
func GenerateAssetEntropy(prevout OutPoint, contractHash [32]byte) [32]byte {
	outpointHash := chainhash.DoubleHashH(serializeOutPoint(prevout))
	return merkleNode(outpointHash[:], contractHash[:])
}

// AssetIDFromEntropy computes the id of the asset issued with entropy.
func AssetIDFromEntropy(entropy [32]byte) AssetID {
	var zero [32]byte
	return AssetID(merkleNode(entropy[:], zero[:]))
}

// ReissuanceTokenFromEntropy computes the id of the reissuance token. The
// token id depends on whether the issuance amount was blinded.
func ReissuanceTokenFromEntropy(entropy [32]byte, confidential bool) AssetID {
	var leaf [32]byte
	if confidential {
		leaf[0] = 2
	} else {
		leaf[0] = 1
	}
	return AssetID(merkleNode(entropy[:], leaf[:]))
}

func merkleNode(left, right []byte) [32]byte {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	buf = append(buf, right...)
	return chainhash.HashH(buf)
}
