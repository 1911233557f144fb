package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportingPeriod(t *testing.T) {
	t.Run("truncates time of day", func(t *testing.T) {
		p, err := NewReportingPeriod(
			time.Date(2024, 2, 1, 13, 45, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC),
		)
		require.NoError(t, err)
		assert.Equal(t, "2024-02-01_2024-03-01", p.Key())
		assert.Equal(t, 29, p.Days())
		assert.Equal(t, "[2024-02-01, 2024-03-01)", p.String())
	})

	t.Run("rejects empty range", func(t *testing.T) {
		day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewReportingPeriod(day, day.Add(3*time.Hour))
		assert.Error(t, err)
	})
}

func TestUsageAmount_Validate(t *testing.T) {
	assert.NoError(t, UsageAmount{Currency: "USD", Total: decimal.Zero}.Validate())
	assert.Error(t, UsageAmount{Total: decimal.Zero}.Validate())
	assert.Error(t, UsageAmount{Currency: "USD", Total: decimal.NewFromInt(-1)}.Validate())
}

func TestKindOf(t *testing.T) {
	base := SinkPublishError("publish", errors.New("boom"))
	wrapped := fmt.Errorf("invocation failed: %w", base)

	assert.Equal(t, KindSinkPublish, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindSinkPublish))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))

	timeout := DeadlineExceeded("fetch", context.DeadlineExceeded)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Equal(t, "deadline_exceeded: fetch: context deadline exceeded", timeout.Error())
}
