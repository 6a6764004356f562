package coinstore

import (
	"context"
	"database/sql"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/coin-store/database"
	"github.com/TEENet-io/coin-store/elements"
	"github.com/TEENet-io/coin-store/program"
)

const (
	insertContractSource = `INSERT OR IGNORE INTO contract_sources (source_hash, source) VALUES (?, ?)`
	insertContract       = `INSERT INTO contracts (script_pubkey, derivation, commitment_root, source_hash, arguments, metadata)
	VALUES (?, ?, ?, ?, ?, ?)`

	selectContractInfo = `SELECT c.derivation, c.script_pubkey, c.commitment_root, c.source_hash, s.source, c.arguments, c.metadata
	FROM contracts c INNER JOIN contract_sources s ON s.source_hash = c.source_hash`

	queryContractByScript  = selectContractInfo + ` WHERE c.script_pubkey = ?`
	queryContractsBySource = selectContractInfo + ` WHERE c.source_hash = ? ORDER BY c.derivation ASC`

	queryContractMetadata  = `SELECT metadata FROM contracts WHERE derivation = ?`
	updateContractMetadata = `UPDATE contracts SET metadata = ? WHERE derivation = ?`
	queryContractExists    = `SELECT 1 FROM contracts WHERE derivation = ?`

	queryTrackedScripts = `SELECT script_pubkey FROM contracts ORDER BY script_pubkey ASC`

	insertContractToken = `INSERT OR REPLACE INTO contract_tokens (derivation, asset_id, tag) VALUES (?, ?, ?)`
	queryTokenByAsset   = `SELECT derivation, asset_id, tag FROM contract_tokens WHERE asset_id = ? ORDER BY derivation ASC LIMIT 1`
	queryTokensByTag    = `SELECT derivation, asset_id, tag FROM contract_tokens WHERE tag = ? ORDER BY asset_id ASC, derivation ASC`
)

// AddContract registers one instance of a contract. The program is compiled
// and the derivation checked against its commitment root before anything is
// written. The source text is stored once however many instances share it.
func (s *Store) AddContract(ctx context.Context, source string, args program.Arguments, derivation string, metadata []byte) (*ContractInfo, error) {
	encoded, err := args.Encode()
	if err != nil {
		return nil, err
	}

	prog, err := program.NewContext(s.cfg.Compiler, s.programs).Program(source, encoded)
	if err != nil {
		return nil, err
	}

	d, err := program.ParseDerivation(derivation, s.cfg.Params)
	if err != nil {
		return nil, err
	}
	if err := d.Verify(prog, s.cfg.Params); err != nil {
		return nil, err
	}
	script, err := d.ScriptPubKey()
	if err != nil {
		return nil, err
	}

	info := &ContractInfo{
		Derivation:     d.String(),
		ScriptPubKey:   script,
		CommitmentRoot: prog.CommitmentRoot(),
		SourceHash:     HashSource(source),
		Source:         source,
		Arguments:      args,
		Metadata:       metadata,
		Program:        prog,
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := s.stmtCache.PrepareTx(ctx, tx, insertContractSource)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, info.SourceHash[:], []byte(source)); err != nil {
			return err
		}

		stmt, err = s.stmtCache.PrepareTx(ctx, tx, insertContract)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, script, info.Derivation, info.CommitmentRoot[:], info.SourceHash[:], encoded, metadata)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrContractAlreadyExists, info.Derivation)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"derivation":      info.Derivation,
		"commitment_root": info.CommitmentRoot.String(),
	}).Debug("added contract")

	return info, nil
}

// GetContractMetadata returns the metadata of the instance. ok is false when
// the derivation is unknown; metadata may be nil for a known instance.
func (s *Store) GetContractMetadata(ctx context.Context, derivation string) ([]byte, bool, error) {
	stmt, err := s.stmtCache.Prepare(ctx, queryContractMetadata)
	if err != nil {
		return nil, false, err
	}

	var metadata []byte
	if err := stmt.QueryRowContext(ctx, derivation).Scan(&metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return metadata, true, nil
}

func (s *Store) UpdateContractMetadata(ctx context.Context, derivation string, metadata []byte) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := s.stmtCache.PrepareTx(ctx, tx, updateContractMetadata)
		if err != nil {
			return err
		}
		res, err := stmt.ExecContext(ctx, metadata, derivation)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrContractNotFound, derivation)
		}
		return nil
	})
}

// GetContractByScriptPubKey resolves an inbound output to its contract.
func (s *Store) GetContractByScriptPubKey(ctx context.Context, script []byte) (*ContractInfo, bool, error) {
	stmt, err := s.stmtCache.Prepare(ctx, queryContractByScript)
	if err != nil {
		return nil, false, err
	}

	rows, err := stmt.QueryContext(ctx, script)
	if err != nil {
		return nil, false, err
	}
	infos, err := scanContracts(rows)
	if err != nil {
		return nil, false, err
	}
	if len(infos) == 0 {
		return nil, false, nil
	}
	return infos[0], true, nil
}

// ListContractsBySource lists every instance of the source.
func (s *Store) ListContractsBySource(ctx context.Context, source string) ([]*ContractInfo, error) {
	stmt, err := s.stmtCache.Prepare(ctx, queryContractsBySource)
	if err != nil {
		return nil, err
	}

	h := HashSource(source)
	rows, err := stmt.QueryContext(ctx, h[:])
	if err != nil {
		return nil, err
	}
	return scanContracts(rows)
}

// ListTrackedScriptPubKeys returns the scripts of all registered contracts,
// the set a chain watcher has to follow.
func (s *Store) ListTrackedScriptPubKeys(ctx context.Context) ([][]byte, error) {
	stmt, err := s.stmtCache.Prepare(ctx, queryTrackedScripts)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scripts [][]byte
	for rows.Next() {
		var script []byte
		if err := rows.Scan(&script); err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}
	return scripts, rows.Err()
}

// InsertContractToken tags asset as a token of the instance. A later call for
// the same pair replaces the tag.
func (s *Store) InsertContractToken(ctx context.Context, derivation string, asset elements.AssetID, tag string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := s.stmtCache.PrepareTx(ctx, tx, queryContractExists)
		if err != nil {
			return err
		}
		var one int
		if err := stmt.QueryRowContext(ctx, derivation).Scan(&one); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("%w: %s", ErrContractNotFound, derivation)
			}
			return err
		}

		stmt, err = s.stmtCache.PrepareTx(ctx, tx, insertContractToken)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, derivation, asset[:], tag)
		return err
	})
}

// GetContractByToken resolves a token asset to the instance it belongs to.
func (s *Store) GetContractByToken(ctx context.Context, asset elements.AssetID) (*TokenInfo, bool, error) {
	stmt, err := s.stmtCache.Prepare(ctx, queryTokenByAsset)
	if err != nil {
		return nil, false, err
	}

	rows, err := stmt.QueryContext(ctx, asset[:])
	if err != nil {
		return nil, false, err
	}
	tokens, err := scanTokens(rows)
	if err != nil {
		return nil, false, err
	}
	if len(tokens) == 0 {
		return nil, false, nil
	}
	return tokens[0], true, nil
}

func (s *Store) ListTokensByTag(ctx context.Context, tag string) ([]*TokenInfo, error) {
	stmt, err := s.stmtCache.Prepare(ctx, queryTokensByTag)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, tag)
	if err != nil {
		return nil, err
	}
	return scanTokens(rows)
}

func scanContracts(rows *sql.Rows) ([]*ContractInfo, error) {
	defer rows.Close()

	var infos []*ContractInfo
	for rows.Next() {
		var (
			derivation                                            string
			script, root, sourceHash, source, arguments, metadata []byte
		)
		if err := rows.Scan(&derivation, &script, &root, &sourceHash, &source, &arguments, &metadata); err != nil {
			return nil, err
		}
		info, err := newContractInfo(derivation, script, root, sourceHash, source, arguments, metadata)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func scanTokens(rows *sql.Rows) ([]*TokenInfo, error) {
	defer rows.Close()

	var tokens []*TokenInfo
	for rows.Next() {
		var (
			t     TokenInfo
			asset []byte
		)
		if err := rows.Scan(&t.Derivation, &asset, &t.Tag); err != nil {
			return nil, err
		}
		if len(asset) != elements.AssetIDLen {
			return nil, fmt.Errorf("%w: token asset id", ErrCorrupted)
		}
		copy(t.AssetID[:], asset)
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func newContractInfo(derivation string, script, root, sourceHash, source, arguments, metadata []byte) (*ContractInfo, error) {
	if len(root) != 32 || len(sourceHash) != 32 {
		return nil, fmt.Errorf("%w: contract %s hashes", ErrCorrupted, derivation)
	}
	args, err := program.DecodeArguments(arguments)
	if err != nil {
		return nil, fmt.Errorf("%w: contract %s arguments: %v", ErrCorrupted, derivation, err)
	}

	info := &ContractInfo{
		Derivation:   derivation,
		ScriptPubKey: script,
		Source:       string(source),
		Arguments:    args,
		Metadata:     metadata,
	}
	copy(info.CommitmentRoot[:], root)
	copy(info.SourceHash[:], sourceHash)
	return info, nil
}
