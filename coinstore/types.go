package coinstore

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/TEENet-io/coin-store/blinding"
	"github.com/TEENet-io/coin-store/elements"
	"github.com/TEENet-io/coin-store/program"
)

// Entry is a stored output with its resolved asset and value.
type Entry struct {
	OutPoint       elements.OutPoint
	TxOut          *elements.TxOut
	Asset          elements.AssetID
	Value          uint64
	IsConfidential bool
	IsSpent        bool

	// Secrets is set for confidential outputs only.
	Secrets *blinding.Secrets

	// Entropy is set when requested and the asset (or its reissuance token)
	// was issued by a transaction the store ingested.
	Entropy *IssuanceEntropy

	// Contract is set when the filter selected outputs through a contract.
	Contract *ContractInfo
}

type ResultStatus int

const (
	ResultEmpty ResultStatus = iota
	ResultInsufficientValue
	ResultFound
)

func (s ResultStatus) String() string {
	switch s {
	case ResultEmpty:
		return "empty"
	case ResultInsufficientValue:
		return "insufficient_value"
	case ResultFound:
		return "found"
	default:
		return "unknown"
	}
}

// QueryResult is the outcome of one filter. Entries are ordered by value,
// largest first.
type QueryResult struct {
	Status  ResultStatus
	Entries []*Entry
	Total   uint64
}

// IssuanceEntropy is recorded for every new issuance the store ingests.
type IssuanceEntropy struct {
	AssetID        elements.AssetID
	TokenID        elements.AssetID
	IsConfidential bool
	Entropy        [32]byte
}

// ContractInfo describes a registered contract instance. Program is only set
// on query entries.
type ContractInfo struct {
	Derivation     string
	ScriptPubKey   []byte
	CommitmentRoot chainhash.Hash
	SourceHash     [32]byte
	Source         string
	Arguments      program.Arguments
	Metadata       []byte
	Program        *program.Program
}

type TokenInfo struct {
	AssetID    elements.AssetID
	Derivation string
	Tag        string
}

// IngestReport summarizes one InsertTransaction call.
type IngestReport struct {
	Txid      chainhash.Hash
	Spent     int
	Inserted  int
	Skipped   int
	Entropies int
}
