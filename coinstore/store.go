package coinstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/coin-store/database"
	"github.com/TEENet-io/coin-store/program"
)

// Store is the persistent coin set. It is safe for concurrent use by the
// goroutines of one process; one process owns a store file.
type Store struct {
	cfg       *Config
	db        *sql.DB
	stmtCache *database.StmtCache
	programs  *program.Cache
}

// Exists reports whether a store file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Create initializes a new store. It fails with ErrAlreadyExists if the file
// already holds any table.
func Create(ctx context.Context, cfg *Config) (*Store, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(ctx, cfg.DbFilePath, true)
	if err != nil {
		return nil, err
	}

	// any table, ours or not, means the file belongs to someone
	n, err := countUserTables(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if n > 0 {
		db.Close()
		return nil, fmt.Errorf("%w: %s holds %d tables", ErrAlreadyExists, cfg.DbFilePath, n)
	}

	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, schema)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"path":    cfg.DbFilePath,
		"network": cfg.Params.Name,
	}).Info("created coin store")

	return newStore(cfg, db), nil
}

// Open opens an existing store. It fails with ErrNotFound if the file is
// missing and ErrNotInitialized if the file has no complete schema.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	if !Exists(cfg.DbFilePath) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cfg.DbFilePath)
	}

	db, err := database.OpenSQLite(ctx, cfg.DbFilePath, false)
	if err != nil {
		return nil, err
	}

	n, err := countTables(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if n != len(tableNames) {
		db.Close()
		return nil, fmt.Errorf("%w: found %d of %d tables", ErrNotInitialized, n, len(tableNames))
	}

	logger.WithFields(logger.Fields{
		"path":    cfg.DbFilePath,
		"network": cfg.Params.Name,
	}).Info("opened coin store")

	return newStore(cfg, db), nil
}

func newStore(cfg *Config, db *sql.DB) *Store {
	initPrometheusMetrics()

	return &Store{
		cfg:       cfg,
		db:        db,
		stmtCache: database.NewStmtCache(db),
		programs:  program.NewCache(cfg.ProgramCacheSize),
	}
}

func (s *Store) Config() *Config {
	return s.cfg
}

func (s *Store) Close() error {
	s.stmtCache.Clear()
	return s.db.Close()
}

func countTables(ctx context.Context, db *sql.DB) (int, error) {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN (?` +
		strings.Repeat(", ?", len(tableNames)-1) + `)`

	args := make([]interface{}, len(tableNames))
	for i, name := range tableNames {
		args[i] = name
	}

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func countUserTables(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
