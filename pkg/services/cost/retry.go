package cost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/rs/zerolog"
)

const fetchOp = "fetch usage"

type RetryConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    4,
		BaseDelay:      time.Second,
		MaxDelay:       15 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("retry base delay must be positive, got %s", c.BaseDelay)
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("retry max delay (%s) must not be below base delay (%s)", c.MaxDelay, c.BaseDelay)
	}
	if c.AttemptTimeout < 0 {
		return fmt.Errorf("attempt timeout must not be negative, got %s", c.AttemptTimeout)
	}
	return nil
}

// Retrying wraps a Source with bounded exponential backoff. Only transient
// source errors are retried.
type Retrying struct {
	source   Source
	config   RetryConfig
	recorder AttemptRecorder
}

func NewRetrying(source Source, config RetryConfig, recorder AttemptRecorder) (*Retrying, error) {
	if source == nil {
		return nil, fmt.Errorf("usage source is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Retrying{source: source, config: config, recorder: recorder}, nil
}

func (r *Retrying) GetUsage(ctx context.Context, period domain.ReportingPeriod) (domain.UsageAmount, error) {
	logger := zerolog.Ctx(ctx)

	var (
		usage    domain.UsageAmount
		attempts int
	)

	operation := func() error {
		attempts++
		amount, err := r.attempt(ctx, period)
		if err == nil {
			usage = amount
			r.record("")
			return nil
		}

		if ctx.Err() != nil {
			r.record(domain.KindDeadlineExceeded)
			return backoff.Permanent(domain.DeadlineExceeded(fetchOp, ctx.Err()))
		}

		err = classify(err)
		r.record(domain.KindOf(err))
		if domain.IsKind(err, domain.KindTransientSource) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().
			Err(err).
			Int("attempt", attempts).
			Int("max_attempts", r.config.MaxAttempts).
			Dur("backoff", wait).
			Msg("usage fetch failed, retrying")
	}

	err := backoff.RetryNotify(operation, r.policy(ctx), notify)
	if err == nil {
		return usage, nil
	}

	switch kind := domain.KindOf(err); {
	case kind == domain.KindTransientSource:
		return domain.UsageAmount{}, domain.TransientSourceError(fetchOp,
			fmt.Errorf("giving up after %d attempts: %w", attempts, err))
	case kind == domain.KindUnknown && ctx.Err() != nil:
		// context ended while waiting between attempts
		return domain.UsageAmount{}, domain.DeadlineExceeded(fetchOp, err)
	default:
		return domain.UsageAmount{}, err
	}
}

func (r *Retrying) attempt(ctx context.Context, period domain.ReportingPeriod) (domain.UsageAmount, error) {
	if r.config.AttemptTimeout <= 0 {
		return r.source.GetUsage(ctx, period)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
	defer cancel()
	return r.source.GetUsage(attemptCtx, period)
}

func (r *Retrying) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.BaseDelay
	b.MaxInterval = r.config.MaxDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.config.MaxAttempts-1)), ctx)
}

func (r *Retrying) record(kind domain.ErrorKind) {
	if r.recorder != nil {
		r.recorder.RecordFetchAttempt(kind)
	}
}

// classify maps unclassified errors onto the source taxonomy. A timed out
// attempt is transient; the outer context is checked by the caller.
func classify(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TransientSourceError(fetchOp, fmt.Errorf("attempt timed out: %w", err))
	}
	return domain.TransientSourceError(fetchOp, err)
}
