package reporter

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/TEENet-io/coin-store/coinstore"
	"github.com/TEENet-io/coin-store/common"
	"github.com/TEENet-io/coin-store/elements"
)

// FilterJSON is the wire form of coinstore.Filter. Byte fields are hex.
type FilterJSON struct {
	Asset          string  `json:"asset,omitempty"`
	ScriptPubKey   string  `json:"script_pubkey,omitempty"`
	RequiredValue  *uint64 `json:"required_value,omitempty"`
	Limit          int     `json:"limit,omitempty"`
	IncludeSpent   bool    `json:"include_spent,omitempty"`
	IncludeEntropy bool    `json:"include_entropy,omitempty"`
	Derivation     string  `json:"derivation,omitempty"`
	Source         string  `json:"source,omitempty"`
	CommitmentRoot string  `json:"commitment_root,omitempty"`
	TokenTag       string  `json:"token_tag,omitempty"`
}

type QueryRequest struct {
	Filters []FilterJSON `json:"filters"`
}

type EntryJSON struct {
	Txid           string `json:"txid"`
	Vout           uint32 `json:"vout"`
	Asset          string `json:"asset"`
	Value          uint64 `json:"value"`
	ScriptPubKey   string `json:"script_pubkey"`
	IsConfidential bool   `json:"is_confidential"`
	IsSpent        bool   `json:"is_spent"`
	Entropy        string `json:"entropy,omitempty"`
	Derivation     string `json:"derivation,omitempty"`
}

type ResultJSON struct {
	Status  string      `json:"status"`
	Total   uint64      `json:"total"`
	Entries []EntryJSON `json:"entries"`
}

type ContractJSON struct {
	Derivation     string            `json:"derivation"`
	ScriptPubKey   string            `json:"script_pubkey"`
	CommitmentRoot string            `json:"commitment_root"`
	Arguments      map[string]string `json:"arguments"`
	Metadata       string            `json:"metadata,omitempty"`
}

type TokenJSON struct {
	Asset      string `json:"asset"`
	Derivation string `json:"derivation"`
	Tag        string `json:"tag"`
}

func (fj *FilterJSON) toFilter() (*coinstore.Filter, error) {
	f := coinstore.NewFilter()

	if fj.Asset != "" {
		id, err := elements.AssetIDFromHex(common.Trim0xPrefix(fj.Asset))
		if err != nil {
			return nil, err
		}
		f.WithAsset(id)
	}
	if fj.ScriptPubKey != "" {
		script, err := common.DecodeHex(fj.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("script_pubkey: %w", err)
		}
		f.WithScriptPubKey(script)
	}
	if fj.RequiredValue != nil {
		f.WithRequiredValue(*fj.RequiredValue)
	}
	if fj.Limit < 0 {
		return nil, fmt.Errorf("negative limit %d", fj.Limit)
	}
	f.WithLimit(fj.Limit)
	f.IncludeSpent = fj.IncludeSpent
	f.IncludeEntropy = fj.IncludeEntropy
	f.WithDerivation(fj.Derivation)
	if fj.Source != "" {
		f.WithSource(fj.Source)
	}
	if fj.CommitmentRoot != "" {
		root, err := common.DecodeHex32(fj.CommitmentRoot)
		if err != nil {
			return nil, fmt.Errorf("commitment_root: %w", err)
		}
		f.WithCommitmentRoot(chainhash.Hash(root))
	}
	f.WithTokenTag(fj.TokenTag)
	return f, nil
}

func newResultJSON(r *coinstore.QueryResult) ResultJSON {
	rj := ResultJSON{
		Status:  r.Status.String(),
		Total:   r.Total,
		Entries: make([]EntryJSON, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		ej := EntryJSON{
			Txid:           e.OutPoint.Txid.String(),
			Vout:           e.OutPoint.Vout,
			Asset:          e.Asset.String(),
			Value:          e.Value,
			ScriptPubKey:   hex.EncodeToString(e.TxOut.ScriptPubKey),
			IsConfidential: e.IsConfidential,
			IsSpent:        e.IsSpent,
		}
		if e.Entropy != nil {
			ej.Entropy = hex.EncodeToString(e.Entropy.Entropy[:])
		}
		if e.Contract != nil {
			ej.Derivation = e.Contract.Derivation
		}
		rj.Entries = append(rj.Entries, ej)
	}
	return rj
}

func newContractJSON(info *coinstore.ContractInfo) ContractJSON {
	cj := ContractJSON{
		Derivation:     info.Derivation,
		ScriptPubKey:   hex.EncodeToString(info.ScriptPubKey),
		CommitmentRoot: hex.EncodeToString(info.CommitmentRoot[:]),
		Arguments:      info.Arguments,
	}
	if info.Metadata != nil {
		cj.Metadata = hex.EncodeToString(info.Metadata)
	}
	return cj
}

func newTokenJSON(t *coinstore.TokenInfo) TokenJSON {
	return TokenJSON{
		Asset:      t.AssetID.String(),
		Derivation: t.Derivation,
		Tag:        t.Tag,
	}
}
