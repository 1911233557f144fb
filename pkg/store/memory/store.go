// Package memory keeps invocation records in process memory. Records do not
// survive a restart, so it only deduplicates within a single long-running
// process or a test.
package memory

import (
	"context"
	"sync"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/store/invocation"
)

type Store struct {
	mu      sync.Mutex
	records map[string]domain.InvocationRecord
}

var _ invocation.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{records: make(map[string]domain.InvocationRecord)}
}

func (s *Store) GetRecord(ctx context.Context, periodKey string) (*domain.InvocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[periodKey]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) PutRecordIfAbsent(ctx context.Context, record domain.InvocationRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.PeriodKey]; ok {
		return false, nil
	}
	s.records[record.PeriodKey] = record
	return true, nil
}

// Len is the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
