package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_PersistsAcrossReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "duckdb-test-*")
	require.NoError(t, err)

	defer func() {
		err := os.RemoveAll(tmpDir)
		if err != nil {
			t.Errorf("failed to cleanup test directory: %v", err)
		}
	}()

	settings := Settings{DbPath: filepath.Join(tmpDir, "test.db")}
	ctx := context.Background()
	rec := domain.InvocationRecord{
		PeriodKey:    "2024-02-01_2024-03-01",
		PeriodStart:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PublishedAt:  time.Date(2024, 3, 31, 0, 0, 5, 0, time.UTC),
		InvocationID: "inv-1",
		MessageID:    "msg-1",
	}

	s, db, err := NewStore(settings)
	require.NoError(t, err)

	ok, err := s.PutRecordIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)

	rec2 := rec
	rec2.InvocationID = "inv-2"
	ok, err = s.PutRecordIfAbsent(ctx, rec2)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, db.Close())

	s, db, err = NewStore(settings)
	require.NoError(t, err)
	defer db.Close()

	got, err := s.GetRecord(ctx, rec.PeriodKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)

	missing, err := s.GetRecord(ctx, "2024-03-01_2024-04-01")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNewDB_InMemory(t *testing.T) {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM invocation_records").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
