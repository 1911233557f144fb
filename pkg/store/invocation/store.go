package invocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/cost-notifier/pkg/adapters"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/models/store"
)

// Schema creates the table shared by the SQL backends. Period bounds and
// timestamps are stored as text so DuckDB and SQLite read them back alike.
const Schema = `
	CREATE TABLE IF NOT EXISTS invocation_records (
		period_key VARCHAR NOT NULL PRIMARY KEY,
		period_start VARCHAR NOT NULL,
		period_end VARCHAR NOT NULL,
		published_at VARCHAR NOT NULL,
		invocation_id VARCHAR NOT NULL,
		message_id VARCHAR
	);
`

// Store remembers which reporting periods were already published.
type Store interface {
	// GetRecord returns nil without error when the period was never recorded.
	GetRecord(ctx context.Context, periodKey string) (*domain.InvocationRecord, error)
	// PutRecordIfAbsent reports false when a record for the key already exists.
	PutRecordIfAbsent(ctx context.Context, record domain.InvocationRecord) (bool, error)
}

type sqlStore struct {
	db *sql.DB
}

// NewSQLStore works against any database/sql driver that understands
// `?` placeholders and ON CONFLICT DO NOTHING.
func NewSQLStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) GetRecord(ctx context.Context, periodKey string) (*domain.InvocationRecord, error) {
	query := `
		SELECT period_key, period_start, period_end, published_at, invocation_id, message_id
		FROM invocation_records
		WHERE period_key = ?`

	var (
		rec         store.InvocationRecord
		publishedAt string
		messageID   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, periodKey).Scan(
		&rec.PeriodKey,
		&rec.PeriodStart,
		&rec.PeriodEnd,
		&publishedAt,
		&rec.InvocationID,
		&messageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query invocation record: %w", err)
	}

	rec.PublishedAt, err = time.Parse(time.RFC3339Nano, publishedAt)
	if err != nil {
		return nil, fmt.Errorf("parse published_at %q: %w", publishedAt, err)
	}
	rec.MessageID = messageID.String

	out, err := adapters.MapStoreInvocationToDomain(rec)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sqlStore) PutRecordIfAbsent(ctx context.Context, record domain.InvocationRecord) (bool, error) {
	rec := adapters.MapDomainInvocationToStore(record)
	query := `
		INSERT INTO invocation_records (
			period_key, period_start, period_end, published_at, invocation_id, message_id
		) VALUES (
			?, ?, ?, ?, ?, ?
		)
		ON CONFLICT (period_key) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		rec.PeriodKey,
		rec.PeriodStart,
		rec.PeriodEnd,
		rec.PublishedAt.Format(time.RFC3339Nano),
		rec.InvocationID,
		nullable(rec.MessageID),
	)
	if err != nil {
		return false, fmt.Errorf("insert invocation record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
