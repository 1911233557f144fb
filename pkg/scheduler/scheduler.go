// Package scheduler fires the report job from a local cron schedule, for
// deployments that do not use an external trigger.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cost-notifier/pkg/clock"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Runner interface {
	Run(ctx context.Context) (domain.InvocationResult, error)
}

// TriggerFilter decides whether the job should run on the given day.
type TriggerFilter interface {
	IsTriggerDate(now time.Time) bool
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	filter TriggerFilter
	clock  clock.Clock
	logger zerolog.Logger
}

// New parses a standard five-field cron spec evaluated in UTC.
func New(spec string, runner Runner, filter TriggerFilter, clk clock.Clock, logger zerolog.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is nil")
	}
	if clk == nil {
		clk = clock.Real{}
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		runner: runner,
		filter: filter,
		clock:  clk,
		logger: logger,
	}
	if _, err := s.cron.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(s)); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run implements cron.Job.
func (s *Scheduler) Run() {
	s.Fire(context.Background())
}

// Fire runs the job once if today is a trigger date. It reports whether the
// job ran.
func (s *Scheduler) Fire(ctx context.Context) bool {
	now := s.clock.Now()
	if s.filter != nil && !s.filter.IsTriggerDate(now) {
		s.logger.Debug().Time("now", now).Msg("not a trigger date, skipping")
		return false
	}

	ctx = s.logger.WithContext(ctx)
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled invocation failed")
	}
	return true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running invocation to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
