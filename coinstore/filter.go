package coinstore

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/TEENet-io/coin-store/elements"
)

// Filter selects stored outputs. The zero value matches every unspent output.
type Filter struct {
	AssetID      *elements.AssetID
	ScriptPubKey []byte

	// RequiredValue makes the query stop as soon as the selected outputs
	// reach the value, unless Limit is set.
	RequiredValue *uint64
	Limit         int

	IncludeSpent   bool
	IncludeEntropy bool

	Derivation     string
	SourceHash     *[32]byte
	CommitmentRoot *chainhash.Hash
	TokenTag       string
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) WithAsset(id elements.AssetID) *Filter {
	f.AssetID = &id
	return f
}

func (f *Filter) WithScriptPubKey(script []byte) *Filter {
	f.ScriptPubKey = script
	return f
}

func (f *Filter) WithRequiredValue(v uint64) *Filter {
	f.RequiredValue = &v
	return f
}

func (f *Filter) WithLimit(n int) *Filter {
	f.Limit = n
	return f
}

func (f *Filter) WithSpent() *Filter {
	f.IncludeSpent = true
	return f
}

func (f *Filter) WithEntropy() *Filter {
	f.IncludeEntropy = true
	return f
}

func (f *Filter) WithDerivation(derivation string) *Filter {
	f.Derivation = derivation
	return f
}

// WithSource matches outputs of any instance of the contract source.
func (f *Filter) WithSource(source string) *Filter {
	h := HashSource(source)
	f.SourceHash = &h
	return f
}

func (f *Filter) WithCommitmentRoot(root chainhash.Hash) *Filter {
	f.CommitmentRoot = &root
	return f
}

// WithTokenTag matches outputs holding a token asset registered under tag.
func (f *Filter) WithTokenTag(tag string) *Filter {
	f.TokenTag = tag
	return f
}

// HashSource is the SHA-256 of a contract source, its key in contract_sources.
func HashSource(source string) [32]byte {
	return chainhash.HashH([]byte(source))
}
