package cost

import (
	"context"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
)

// Source queries a billing API for the aggregate cost of a period. Returned
// errors should be *domain.Error values of kind transient_source or
// permanent_source; anything else is treated as transient.
type Source interface {
	GetUsage(ctx context.Context, period domain.ReportingPeriod) (domain.UsageAmount, error)
}

// AttemptRecorder observes every fetch attempt. kind is empty on success.
type AttemptRecorder interface {
	RecordFetchAttempt(kind domain.ErrorKind)
}

type SourceFunc func(ctx context.Context, period domain.ReportingPeriod) (domain.UsageAmount, error)

func (f SourceFunc) GetUsage(ctx context.Context, period domain.ReportingPeriod) (domain.UsageAmount, error) {
	return f(ctx, period)
}
