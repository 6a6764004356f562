package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStmtCache(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), true)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)

	sc := NewStmtCache(db)
	defer sc.Clear()

	query := `INSERT INTO kv (key, value) VALUES (?, ?)`
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sc.Prepare(ctx, query)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, sc.Len())

	_, err = sc.Prepare(ctx, `SELECT nothing FROM nowhere`)
	assert.Error(t, err)
	assert.Equal(t, 1, sc.Len())

	sc.Clear()
	assert.Equal(t, 0, sc.Len())
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), true)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)
	sc := NewStmtCache(db)
	defer sc.Clear()

	insert := `INSERT INTO kv (key, value) VALUES (?, ?)`
	count := func() int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
		return n
	}

	errBoom := errors.New("boom")
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := sc.PrepareTx(ctx, tx, insert)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, "a", "1"); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, count())

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := sc.PrepareTx(ctx, tx, insert)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, "a", "1")
		return err
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, count())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "missing.db"), false)
	assert.Error(t, err)
}
