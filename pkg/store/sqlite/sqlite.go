// Package sqlite opens the SQLite-backed invocation store.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/de-tools/cost-notifier/pkg/store/invocation"
	_ "github.com/mattn/go-sqlite3"
)

// Open creates a SQLite connection and makes sure the schema exists.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	stmts := []string{
		"PRAGMA synchronous = NORMAL",
		invocation.Schema,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}

	return db, nil
}

func NewStore(path string) (invocation.Store, *sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	s, err := invocation.NewSQLStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db, nil
}
