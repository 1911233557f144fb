// Package job runs one cost reporting pass: compute the period, fetch usage,
// format the message and publish it through the idempotency guard.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cost-notifier/pkg/clock"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/services/cost"
	"github.com/de-tools/cost-notifier/pkg/services/period"
	"github.com/de-tools/cost-notifier/pkg/services/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	computeOp       = "compute period"
	fetchOp         = "fetch usage"
	fetchPreviousOp = "fetch previous usage"
	formatOp        = "format report"
)

// Recorder observes finished invocations.
type Recorder interface {
	RecordInvocation(result domain.InvocationResult, elapsed time.Duration, finishedAt time.Time)
}

type Dependencies struct {
	Clock      clock.Clock
	Calculator *period.Calculator
	Source     cost.Source
	Formatter  *report.Formatter
	Guard      *Guard
	Recorder   Recorder
	// Deadline bounds a whole invocation. Zero disables it.
	Deadline time.Duration
	// ComparePrevious adds the total of the preceding period to the report.
	ComparePrevious bool
}

type Job struct {
	clock      clock.Clock
	calculator *period.Calculator
	source     cost.Source
	formatter  *report.Formatter
	guard      *Guard
	recorder   Recorder
	deadline   time.Duration
	compare    bool
	newID      func() string
}

func New(deps Dependencies) (*Job, error) {
	switch {
	case deps.Calculator == nil:
		return nil, fmt.Errorf("period calculator is nil")
	case deps.Source == nil:
		return nil, fmt.Errorf("usage source is nil")
	case deps.Formatter == nil:
		return nil, fmt.Errorf("formatter is nil")
	case deps.Guard == nil:
		return nil, fmt.Errorf("guard is nil")
	case deps.Deadline < 0:
		return nil, fmt.Errorf("deadline must not be negative")
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Job{
		clock:      clk,
		calculator: deps.Calculator,
		source:     deps.Source,
		formatter:  deps.Formatter,
		guard:      deps.Guard,
		recorder:   deps.Recorder,
		deadline:   deps.Deadline,
		compare:    deps.ComparePrevious,
		newID:      uuid.NewString,
	}, nil
}

// Period returns the period the next invocation would report on.
func (j *Job) Period() (domain.ReportingPeriod, error) {
	return j.calculator.Compute(j.clock.Now())
}

// Run performs one invocation. The returned error equals result.Err.
func (j *Job) Run(ctx context.Context) (domain.InvocationResult, error) {
	started := j.clock.Now()
	result := domain.InvocationResult{
		InvocationID: j.newID(),
		State:        domain.StateIdle,
	}

	if j.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.deadline)
		defer cancel()
	}

	logger := zerolog.Ctx(ctx).With().Str("invocation_id", result.InvocationID).Logger()
	ctx = logger.WithContext(ctx)

	j.run(ctx, &result, started)

	finished := j.clock.Now()
	if j.recorder != nil {
		j.recorder.RecordInvocation(result, finished.Sub(started), finished)
	}

	event := zerolog.Ctx(ctx).Info()
	if result.Err != nil {
		event = zerolog.Ctx(ctx).Error().Err(result.Err).Str("error_kind", string(domain.KindOf(result.Err)))
	}
	event.
		Str("period_key", result.PeriodKey).
		Str("outcome", string(result.Outcome)).
		Str("message_id", result.MessageID).
		Dur("elapsed", finished.Sub(started)).
		Msg("invocation finished")

	return result, result.Err
}

func (j *Job) run(ctx context.Context, result *domain.InvocationResult, now time.Time) {
	j.transition(ctx, result, domain.StateComputingPeriod)
	p, err := j.calculator.Compute(now)
	if err != nil {
		j.fail(ctx, result, domain.PermanentSourceError(computeOp, err))
		return
	}
	result.PeriodKey = p.Key()

	logger := zerolog.Ctx(ctx).With().Str("period_key", result.PeriodKey).Logger()
	ctx = logger.WithContext(ctx)

	j.transition(ctx, result, domain.StateFetching)
	usage, err := j.fetch(ctx, p, fetchOp)
	if err != nil {
		j.fail(ctx, result, err)
		return
	}

	var previous *domain.PeriodTotal
	if j.compare {
		previous, err = j.fetchPrevious(ctx, p)
		if err != nil {
			j.fail(ctx, result, err)
			return
		}
	}

	j.transition(ctx, result, domain.StateFormatting)
	msg, err := j.formatter.Format(p, usage, previous, j.clock.Now())
	if err != nil {
		j.fail(ctx, result, domain.PermanentSourceError(formatOp, err))
		return
	}
	result.Message = &msg

	j.transition(ctx, result, domain.StateCheckingIdempotency)
	outcome, messageID, err := j.guard.Publish(ctx, msg, result.InvocationID)
	result.MessageID = messageID
	if err != nil {
		j.fail(ctx, result, err)
		return
	}

	result.Outcome = outcome
	if outcome == domain.OutcomeSkippedDuplicate {
		j.transition(ctx, result, domain.StateSkippedDuplicate)
		return
	}
	// the guard entered publishing before calling the sink
	result.State = domain.StatePublishing
	j.transition(ctx, result, domain.StateDone)
}

// fetch reads usage for p. Errors the source left unclassified count as
// transient source failures of op.
func (j *Job) fetch(ctx context.Context, p domain.ReportingPeriod, op string) (domain.UsageAmount, error) {
	usage, err := j.source.GetUsage(ctx, p)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.TransientSourceError(op, err)
		}
		return domain.UsageAmount{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.UsageAmount{}, domain.DeadlineExceeded(op, err)
	}
	return usage, nil
}

func (j *Job) fetchPrevious(ctx context.Context, current domain.ReportingPeriod) (*domain.PeriodTotal, error) {
	p, err := j.calculator.Previous(current)
	if err != nil {
		return nil, domain.PermanentSourceError(computeOp, err)
	}
	usage, err := j.fetch(ctx, p, fetchPreviousOp)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("previous_period_key", p.Key()).
		Str("previous_total", usage.Total.String()).
		Msg("fetched previous period")
	return &domain.PeriodTotal{Period: p, Amount: usage}, nil
}

func (j *Job) transition(ctx context.Context, result *domain.InvocationResult, state domain.InvocationState) {
	zerolog.Ctx(ctx).Debug().
		Str("from", string(result.State)).
		Str("state", string(state)).
		Msg("state transition")
	result.State = state
}

func (j *Job) fail(ctx context.Context, result *domain.InvocationResult, err error) {
	result.Outcome = domain.OutcomeFailed
	result.Err = err
	j.transition(ctx, result, domain.StateFailed)
}
