package coinstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/coin-store/database"
	"github.com/TEENet-io/coin-store/elements"
)

const insertEntropy = `INSERT OR IGNORE INTO asset_entropy (asset_id, token_id, is_confidential, entropy) VALUES (?, ?, ?, ?)`

// InsertTransaction records a transaction the wallet is involved in: spent
// prevouts are flagged, new issuances get their entropy recorded and every
// readable output is stored. keys maps output indexes to blinding keys.
//
// Confidential outputs without a key, or whose key does not open them, belong
// to other parties and are skipped. Known outpoints are ignored, so the call
// can be repeated.
func (s *Store) InsertTransaction(ctx context.Context, tx *elements.Transaction, keys map[uint32]*btcec.PrivateKey) (*IngestReport, error) {
	report := &IngestReport{Txid: tx.TxHash()}

	entropies := issuanceEntropies(tx)

	outputs := make([]*resolvedOutput, 0, len(tx.Outputs))
	for i, out := range tx.Outputs {
		if out.IsFee() {
			continue
		}

		op := elements.NewOutPoint(report.Txid, uint32(i))
		r, err := s.resolveOutput(op, out, keys[uint32(i)])
		if err != nil {
			reason := ""
			switch {
			case errors.Is(err, ErrMissingBlinderKey):
				reason = "missing_key"
			case errors.Is(err, ErrMissingWitness):
				reason = "missing_witness"
			case errors.Is(err, ErrUnblind):
				reason = "unblind"
			default:
				return nil, err
			}
			report.Skipped++
			prometheusSkipped.WithLabelValues(reason).Inc()
			logger.WithFields(logger.Fields{
				"outpoint": op.String(),
				"reason":   reason,
			}).Debug("skipped output")
			continue
		}
		outputs = append(outputs, r)
	}

	err := database.WithTx(ctx, s.db, func(dbTx *sql.Tx) error {
		report.Spent, report.Inserted, report.Entropies = 0, 0, 0

		for _, in := range tx.Inputs {
			flipped, err := s.markAsSpent(ctx, dbTx, in.PreviousOutPoint)
			if err != nil {
				return err
			}
			if flipped {
				report.Spent++
			}
		}

		if len(entropies) > 0 {
			stmt, err := s.stmtCache.PrepareTx(ctx, dbTx, insertEntropy)
			if err != nil {
				return err
			}
			for _, e := range entropies {
				res, err := stmt.ExecContext(ctx, e.AssetID[:], e.TokenID[:], e.IsConfidential, e.Entropy[:])
				if err != nil {
					return err
				}
				if n, _ := res.RowsAffected(); n > 0 {
					report.Entropies++
				}
			}
		}

		if len(outputs) > 0 {
			stmt, err := s.stmtCache.PrepareTx(ctx, dbTx, insertUtxoOrIgnore)
			if err != nil {
				return err
			}
			for _, r := range outputs {
				res, err := stmt.ExecContext(ctx, r.insertArgs()...)
				if err != nil {
					return err
				}
				if n, _ := res.RowsAffected(); n == 0 {
					continue
				}
				if err := s.insertBlinderKey(ctx, dbTx, r); err != nil {
					return err
				}
				report.Inserted++
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheusInserted.Add(float64(report.Inserted))
	logger.WithFields(logger.Fields{
		"txid":      report.Txid.String(),
		"spent":     report.Spent,
		"inserted":  report.Inserted,
		"skipped":   report.Skipped,
		"entropies": report.Entropies,
	}).Debug("ingested transaction")

	return report, nil
}

// issuanceEntropies derives the entropy of every new issuance in tx.
// Reissuances reuse the entropy recorded by the original issuance.
func issuanceEntropies(tx *elements.Transaction) []*IssuanceEntropy {
	var list []*IssuanceEntropy
	for _, in := range tx.Inputs {
		if !in.IsNewIssuance() {
			continue
		}
		entropy := elements.GenerateAssetEntropy(in.PreviousOutPoint, in.Issuance.AssetEntropy)
		confidential := in.Issuance.Amount.IsConfidential()
		list = append(list, &IssuanceEntropy{
			AssetID:        elements.AssetIDFromEntropy(entropy),
			TokenID:        elements.ReissuanceTokenFromEntropy(entropy, confidential),
			IsConfidential: confidential,
			Entropy:        entropy,
		})
	}
	return list
}
