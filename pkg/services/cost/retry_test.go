package cost

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu    sync.Mutex
	kinds []domain.ErrorKind
}

func (c *countingRecorder) RecordFetchAttempt(kind domain.ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, kind)
}

type scriptedSource struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int) (domain.UsageAmount, error)
}

func (s *scriptedSource) GetUsage(ctx context.Context, _ domain.ReportingPeriod) (domain.UsageAmount, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(ctx, call)
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func testPeriod(t *testing.T) domain.ReportingPeriod {
	p, err := domain.NewReportingPeriod(
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return p
}

func TestRetrying_TransientExhaustsExactlyMaxAttempts(t *testing.T) {
	src := &scriptedSource{fn: func(context.Context, int) (domain.UsageAmount, error) {
		return domain.UsageAmount{}, domain.TransientSourceError("get cost", errors.New("throttled"))
	}}
	recorder := &countingRecorder{}
	r, err := NewRetrying(src, fastRetry(3), recorder)
	require.NoError(t, err)

	_, err = r.GetUsage(context.Background(), testPeriod(t))

	require.Error(t, err)
	assert.Equal(t, domain.KindTransientSource, domain.KindOf(err))
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Equal(t, 3, src.Calls())
	assert.Len(t, recorder.kinds, 3)
}

func TestRetrying_PermanentFailsWithoutRetry(t *testing.T) {
	src := &scriptedSource{fn: func(context.Context, int) (domain.UsageAmount, error) {
		return domain.UsageAmount{}, domain.PermanentSourceError("get cost", errors.New("access denied"))
	}}
	r, err := NewRetrying(src, fastRetry(5), nil)
	require.NoError(t, err)

	_, err = r.GetUsage(context.Background(), testPeriod(t))

	require.Error(t, err)
	assert.Equal(t, domain.KindPermanentSource, domain.KindOf(err))
	assert.Equal(t, 1, src.Calls())
}

func TestRetrying_RecoversAfterTransientFailure(t *testing.T) {
	want := domain.UsageAmount{Currency: "USD", Total: decimal.RequireFromString("123.45")}
	src := &scriptedSource{fn: func(_ context.Context, call int) (domain.UsageAmount, error) {
		if call == 1 {
			return domain.UsageAmount{}, errors.New("connection reset")
		}
		return want, nil
	}}
	recorder := &countingRecorder{}
	r, err := NewRetrying(src, fastRetry(3), recorder)
	require.NoError(t, err)

	got, err := r.GetUsage(context.Background(), testPeriod(t))

	require.NoError(t, err)
	assert.True(t, want.Total.Equal(got.Total))
	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, []domain.ErrorKind{domain.KindTransientSource, ""}, recorder.kinds)
}

func TestRetrying_ZeroUsageIsValid(t *testing.T) {
	src := &scriptedSource{fn: func(context.Context, int) (domain.UsageAmount, error) {
		return domain.UsageAmount{Currency: "USD", Total: decimal.Zero}, nil
	}}
	r, err := NewRetrying(src, fastRetry(3), nil)
	require.NoError(t, err)

	got, err := r.GetUsage(context.Background(), testPeriod(t))

	require.NoError(t, err)
	assert.True(t, got.Total.IsZero())
	assert.Equal(t, 1, src.Calls())
}

func TestRetrying_OuterDeadlineDuringAttempt(t *testing.T) {
	src := &scriptedSource{fn: func(ctx context.Context, _ int) (domain.UsageAmount, error) {
		<-ctx.Done()
		return domain.UsageAmount{}, ctx.Err()
	}}
	r, err := NewRetrying(src, fastRetry(5), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = r.GetUsage(ctx, testPeriod(t))

	require.Error(t, err)
	assert.Equal(t, domain.KindDeadlineExceeded, domain.KindOf(err))
	assert.Equal(t, 1, src.Calls())
}

func TestRetrying_OuterDeadlineDuringBackoff(t *testing.T) {
	src := &scriptedSource{fn: func(context.Context, int) (domain.UsageAmount, error) {
		return domain.UsageAmount{}, domain.TransientSourceError("get cost", errors.New("503"))
	}}
	r, err := NewRetrying(src, RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = r.GetUsage(ctx, testPeriod(t))

	require.Error(t, err)
	assert.Equal(t, domain.KindDeadlineExceeded, domain.KindOf(err))
	assert.Equal(t, 1, src.Calls())
}

func TestRetrying_AttemptTimeoutIsTransient(t *testing.T) {
	src := &scriptedSource{fn: func(ctx context.Context, _ int) (domain.UsageAmount, error) {
		<-ctx.Done()
		return domain.UsageAmount{}, ctx.Err()
	}}
	cfg := fastRetry(2)
	cfg.AttemptTimeout = 5 * time.Millisecond
	r, err := NewRetrying(src, cfg, nil)
	require.NoError(t, err)

	_, err = r.GetUsage(context.Background(), testPeriod(t))

	require.Error(t, err)
	assert.Equal(t, domain.KindTransientSource, domain.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, src.Calls())
}

func TestNewRetrying_Validation(t *testing.T) {
	src := SourceFunc(func(context.Context, domain.ReportingPeriod) (domain.UsageAmount, error) {
		return domain.UsageAmount{}, nil
	})

	_, err := NewRetrying(nil, fastRetry(1), nil)
	assert.Error(t, err)

	_, err = NewRetrying(src, RetryConfig{MaxAttempts: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, nil)
	assert.Error(t, err)

	_, err = NewRetrying(src, RetryConfig{MaxAttempts: 1, BaseDelay: 0, MaxDelay: time.Millisecond}, nil)
	assert.Error(t, err)

	_, err = NewRetrying(src, RetryConfig{MaxAttempts: 1, BaseDelay: time.Second, MaxDelay: time.Millisecond}, nil)
	assert.Error(t, err)
}
