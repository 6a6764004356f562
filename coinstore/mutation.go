package coinstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/coin-store/database"
	"github.com/TEENet-io/coin-store/elements"
)

const (
	queryUtxoExists = `SELECT 1 FROM utxos WHERE txid = ? AND vout = ?`

	insertUtxo = `INSERT INTO utxos (txid, vout, script_pubkey, asset_id, value, is_confidential, serialized, serialized_witness)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertUtxoOrIgnore = `INSERT OR IGNORE INTO utxos (txid, vout, script_pubkey, asset_id, value, is_confidential, serialized, serialized_witness)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertBlinderKey = `INSERT OR IGNORE INTO blinder_keys (txid, vout, blinding_key) VALUES (?, ?, ?)`

	updateSpent = `UPDATE utxos SET is_spent = 1 WHERE txid = ? AND vout = ? AND is_spent = 0`

	queryUnspentOutpoints = `SELECT txid, vout FROM utxos WHERE is_spent = 0 ORDER BY txid ASC, vout ASC`
)

// Insert stores a single output. key is required for confidential outputs
// and ignored for explicit ones. It fails with ErrUtxoAlreadyExists if the
// outpoint is known.
func (s *Store) Insert(ctx context.Context, op elements.OutPoint, out *elements.TxOut, key *btcec.PrivateKey) error {
	r, err := s.resolveOutput(op, out, key)
	if err != nil {
		return err
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		exists, err := s.utxoExists(ctx, tx, op)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrUtxoAlreadyExists, op)
		}

		stmt, err := s.stmtCache.PrepareTx(ctx, tx, insertUtxo)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.insertArgs()...); err != nil {
			if isPrimaryKeyViolation(err) {
				return fmt.Errorf("%w: %s", ErrUtxoAlreadyExists, op)
			}
			return err
		}

		return s.insertBlinderKey(ctx, tx, r)
	})
	if err != nil {
		return err
	}

	prometheusInserted.Inc()
	return nil
}

// MarkAsSpent flags the output as spent. It returns true only if an unspent
// output was flipped.
func (s *Store) MarkAsSpent(ctx context.Context, op elements.OutPoint) (bool, error) {
	var flipped bool
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		flipped, err = s.markAsSpent(ctx, tx, op)
		return err
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}

func (s *Store) ListUnspentOutpoints(ctx context.Context) ([]elements.OutPoint, error) {
	stmt, err := s.stmtCache.Prepare(ctx, queryUnspentOutpoints)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []elements.OutPoint
	for rows.Next() {
		var (
			txid []byte
			vout uint32
		)
		if err := rows.Scan(&txid, &vout); err != nil {
			return nil, err
		}
		h, err := elements.HashFromBytes(txid)
		if err != nil {
			return nil, fmt.Errorf("%w: txid: %v", ErrCorrupted, err)
		}
		ops = append(ops, elements.NewOutPoint(h, vout))
	}
	return ops, rows.Err()
}

func (s *Store) utxoExists(ctx context.Context, tx *sql.Tx, op elements.OutPoint) (bool, error) {
	stmt, err := s.stmtCache.PrepareTx(ctx, tx, queryUtxoExists)
	if err != nil {
		return false, err
	}

	var one int
	if err := stmt.QueryRowContext(ctx, op.Txid[:], op.Vout).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) markAsSpent(ctx context.Context, tx *sql.Tx, op elements.OutPoint) (bool, error) {
	stmt, err := s.stmtCache.PrepareTx(ctx, tx, updateSpent)
	if err != nil {
		return false, err
	}

	res, err := stmt.ExecContext(ctx, op.Txid[:], op.Vout)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		prometheusSpent.Inc()
		logger.WithField("outpoint", op.String()).Debug("marked output as spent")
	}
	return n > 0, nil
}

func (s *Store) insertBlinderKey(ctx context.Context, tx *sql.Tx, r *resolvedOutput) error {
	if r.blindingKey == nil {
		return nil
	}

	stmt, err := s.stmtCache.PrepareTx(ctx, tx, insertBlinderKey)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, r.outpoint.Txid[:], r.outpoint.Vout, r.blindingKey)
	return err
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
