package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/de-tools/cost-notifier/pkg/store/invocation"
	"github.com/marcboeker/go-duckdb/v2"
)

const PublishedAtIndex = `
	CREATE INDEX IF NOT EXISTS invocation_records_published_at ON invocation_records (published_at);
`

var bootQueries = []string{
	invocation.Schema,
	PublishedAtIndex,
}

type Settings struct {
	DbPath  string
	Threads int
}

func NewDB(settings Settings) (*sql.DB, error) {
	threads := settings.Threads
	if threads <= 0 {
		threads = 1
	}

	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=%d", settings.DbPath, threads), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			if _, err := exec.ExecContext(context.Background(), query, nil); err != nil {
				return fmt.Errorf("boot query: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(c), nil
}

// NewStore opens the database and returns the invocation store over it.
func NewStore(settings Settings) (invocation.Store, *sql.DB, error) {
	db, err := NewDB(settings)
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
