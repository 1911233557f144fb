package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-tools/cost-notifier/pkg/clock"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/services/config"
	"github.com/de-tools/cost-notifier/pkg/services/cost"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Setenv("COST_NOTIFIER_SINK_TYPE", "stdout")
	t.Setenv("COST_NOTIFIER_STORE_TYPE", "sqlite")
	t.Setenv("COST_NOTIFIER_STORE_PATH", filepath.Join(t.TempDir(), "records.db"))
	t.Setenv("COST_NOTIFIER_RETRY_BASE_DELAY", "1ms")
	t.Setenv("COST_NOTIFIER_RETRY_MAX_DELAY", "2ms")

	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func fixedSource() cost.Source {
	return cost.SourceFunc(func(context.Context, domain.ReportingPeriod) (domain.UsageAmount, error) {
		return domain.UsageAmount{
			Currency: "USD",
			Total:    decimal.RequireFromString("123.45"),
			Services: []domain.ServiceCost{
				{Service: "Amazon EC2", Amount: decimal.RequireFromString("100")},
				{Service: "Amazon S3", Amount: decimal.RequireFromString("23.45")},
			},
		}, nil
	})
}

func TestApp_RunsEndToEndWithSQLiteStore(t *testing.T) {
	var out bytes.Buffer
	ctx := zerolog.Nop().WithContext(context.Background())

	a, err := New(ctx, Options{
		Config: testConfig(t),
		Clock:  clock.NewFixed(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)),
		Output: &out,
		Source: fixedSource(),
	})
	require.NoError(t, err)
	defer a.Close()

	first, err := a.Job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePublished, first.Outcome)
	assert.Contains(t, out.String(), "Total: 123.45 USD")
	assert.Contains(t, out.String(), "Amazon EC2")

	second, err := a.Job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkippedDuplicate, second.Outcome)

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestApp_DryRunNeverRecords(t *testing.T) {
	var out bytes.Buffer
	ctx := context.Background()

	a, err := New(ctx, Options{
		Config: testConfig(t),
		Clock:  clock.NewFixed(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)),
		Output: &out,
		Source: fixedSource(),
		DryRun: true,
	})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePublished, res.Outcome)
	assert.Nil(t, a.db)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	logger := NewLogger("nonsense", &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
