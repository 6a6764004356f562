package coinstore

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/TEENet-io/coin-store/blinding"
	"github.com/TEENet-io/coin-store/elements"
)

// resolvedOutput is an output ready to be written: everything that needs CPU
// work has been done.
type resolvedOutput struct {
	outpoint     elements.OutPoint
	script       []byte
	asset        elements.AssetID
	value        uint64
	confidential bool
	serialized   []byte
	witness      []byte
	blindingKey  []byte
}

func (r *resolvedOutput) insertArgs() []interface{} {
	return []interface{}{
		r.outpoint.Txid[:], r.outpoint.Vout, r.script, r.asset[:],
		int64(r.value), r.confidential, r.serialized, r.witness,
	}
}

// resolveOutput reveals the asset and value of out. Confidential outputs need
// their blinding key and witness.
func (s *Store) resolveOutput(op elements.OutPoint, out *elements.TxOut, key *btcec.PrivateKey) (*resolvedOutput, error) {
	r := &resolvedOutput{
		outpoint:     op,
		script:       out.ScriptPubKey,
		confidential: out.IsConfidential(),
		serialized:   out.Serialize(),
	}
	if r.script == nil {
		r.script = []byte{}
	}
	if !out.Witness.IsEmpty() {
		r.witness = out.Witness.Serialize()
	}

	if r.confidential {
		if key == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingBlinderKey, op)
		}
		if r.witness == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingWitness, op)
		}
		secrets, err := s.cfg.Unblinder.Unblind(r.serialized, r.witness, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		r.asset = secrets.Asset
		r.value = secrets.Value
		r.blindingKey = blinding.KeyBytes(key)
	} else {
		asset, assetOk := out.Asset.Explicit()
		value, valueOk := out.Value.Explicit()
		if !assetOk || !valueOk {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOutput, op)
		}
		r.asset = asset
		r.value = value
	}

	if r.value > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %s value=%d", ErrValueOutOfRange, op, r.value)
	}
	return r, nil
}
