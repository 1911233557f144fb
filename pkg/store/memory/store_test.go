package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutRecordIfAbsent_Concurrent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.PutRecordIfAbsent(ctx, domain.InvocationRecord{PeriodKey: "k"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, s.Len())
}

func TestStore_GetRecord(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	got, err := s.GetRecord(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.PutRecordIfAbsent(ctx, domain.InvocationRecord{PeriodKey: "k", InvocationID: "a"})
	require.NoError(t, err)

	got, err = s.GetRecord(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.InvocationID)
}
