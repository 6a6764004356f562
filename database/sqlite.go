package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

const DriverName = "sqlite3"

// SQLiteDSN builds the data source name for a store file. The file is opened
// in WAL mode with a busy timeout and write transactions take the database
// lock up front. With create=false a missing file is an error.
func SQLiteDSN(path string, create bool) string {
	mode := "rw"
	if create {
		mode = "rwc"
	}

	q := url.Values{}
	q.Set("mode", mode)
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	q.Set("_txlock", "immediate")
	return fmt.Sprintf("file:%s?%s", path, q.Encode())
}

// OpenSQLite opens the file and checks the connection.
func OpenSQLite(ctx context.Context, path string, create bool) (*sql.DB, error) {
	db, err := sql.Open(DriverName, SQLiteDSN(path, create))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
