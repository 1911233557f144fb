// Package app assembles the report job and its collaborators from
// configuration. It is shared by the CLI, the HTTP server and the Lambda
// handler.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/de-tools/cost-notifier/pkg/clock"
	"github.com/de-tools/cost-notifier/pkg/metrics"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/services/config"
	"github.com/de-tools/cost-notifier/pkg/services/cost"
	"github.com/de-tools/cost-notifier/pkg/services/cost/aws_ce"
	"github.com/de-tools/cost-notifier/pkg/services/job"
	"github.com/de-tools/cost-notifier/pkg/services/period"
	"github.com/de-tools/cost-notifier/pkg/services/report"
	"github.com/de-tools/cost-notifier/pkg/sink"
	"github.com/de-tools/cost-notifier/pkg/sink/sns"
	"github.com/de-tools/cost-notifier/pkg/sink/terminal"
	"github.com/de-tools/cost-notifier/pkg/store/duckdb"
	"github.com/de-tools/cost-notifier/pkg/store/dynamodb"
	"github.com/de-tools/cost-notifier/pkg/store/invocation"
	"github.com/de-tools/cost-notifier/pkg/store/memory"
	"github.com/de-tools/cost-notifier/pkg/store/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Options struct {
	Config *config.Config
	Clock  clock.Clock
	// Output receives reports from the stdout sink.
	Output io.Writer
	// DryRun prints the report and keeps records in memory.
	DryRun bool
	// Source replaces the Cost Explorer source when set.
	Source cost.Source
	// AWSConfig skips credential resolution when set.
	AWSConfig *aws.Config
	Registry  *prometheus.Registry
}

type App struct {
	Job        *job.Job
	Calculator *period.Calculator
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Clock      clock.Clock

	db *sql.DB
}

// NewLogger builds the process logger at the configured level.
func NewLogger(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, domain.NewError(domain.KindConfiguration, "build app", fmt.Errorf("config is nil"))
	}
	logger := zerolog.Ctx(ctx)

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	cadence, err := period.ParseCadence(cfg.Cadence)
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "parse cadence", err)
	}
	calculator := period.NewCalculator(cadence)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collector := metrics.NewWithRegistry(reg)

	a := &App{
		Calculator: calculator,
		Metrics:    collector,
		Registry:   reg,
		Clock:      clk,
	}

	awsCfg := opts.AWSConfig
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			awsCfg, err = aws_ce.LoadConfig(ctx, cfg.Source.Profile, cfg.Source.Region)
			if err != nil {
				return aws.Config{}, err
			}
		}
		return *awsCfg, nil
	}

	source := opts.Source
	if source == nil {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		source = aws_ce.NewSourceFromConfig(c, cfg.Source.Region, aws_ce.Options{
			Metric:   cfg.Source.Metric,
			Currency: cfg.Source.Currency,
		})
	}
	retrying, err := cost.NewRetrying(source, cfg.RetryConfig(), collector)
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "build retry policy", err)
	}

	formatter, err := report.NewFormatter(report.Options{
		Title:       cfg.Report.Title,
		TopServices: cfg.Report.TopServices,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "build formatter", err)
	}

	out, err := a.buildSink(ctx, cfg, opts, loadAWS)
	if err != nil {
		return nil, err
	}
	store, err := a.buildStore(cfg, opts.DryRun, loadAWS)
	if err != nil {
		return nil, err
	}

	guard, err := job.NewGuard(store, out, clk)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Job, err = job.New(job.Dependencies{
		Clock:      clk,
		Calculator: calculator,
		Source:     retrying,
		Formatter:  formatter,
		Guard:      guard,
		Recorder:   collector,
		Deadline:   cfg.Invocation.Deadline,
		// previous totals go through the same retrying source
		ComparePrevious: cfg.Report.ComparePrevious,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug().
		Str("cadence", cadence.String()).
		Str("sink", cfg.Sink.Type).
		Str("store", cfg.Store.Type).
		Bool("dry_run", opts.DryRun).
		Msg("report job configured")
	return a, nil
}

func (a *App) buildSink(
	ctx context.Context,
	cfg *config.Config,
	opts Options,
	loadAWS func() (aws.Config, error),
) (sink.Sink, error) {
	if opts.DryRun || cfg.Sink.Type == config.SinkStdout {
		return terminal.NewReporter(opts.Output), nil
	}

	c, err := loadAWS()
	if err != nil {
		return nil, err
	}

	topicARN := cfg.Sink.Endpoint
	if topicARN == "" {
		topicARN, err = sns.ResolveTopicARN(ctx, ssm.NewFromConfig(c), cfg.Sink.EndpointParameter)
		if err != nil {
			return nil, domain.NewError(domain.KindConfiguration, "resolve topic", err)
		}
	}
	return sns.NewPublisher(sns.NewClient(c), topicARN)
}

func (a *App) buildStore(
	cfg *config.Config,
	dryRun bool,
	loadAWS func() (aws.Config, error),
) (invocation.Store, error) {
	if dryRun {
		return memory.NewStore(), nil
	}

	switch cfg.Store.Type {
	case config.StoreMemory:
		return memory.NewStore(), nil
	case config.StoreDuckDB:
		s, db, err := duckdb.NewStore(duckdb.Settings{DbPath: cfg.Store.Path})
		if err != nil {
			return nil, domain.IdempotencyStoreError("open duckdb", err)
		}
		a.db = db
		return s, nil
	case config.StoreSQLite:
		s, db, err := sqlite.NewStore(cfg.Store.Path)
		if err != nil {
			return nil, domain.IdempotencyStoreError("open sqlite", err)
		}
		a.db = db
		return s, nil
	case config.StoreDynamoDB:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return dynamodb.NewStore(dynamodb.NewClient(c), cfg.Store.Table)
	default:
		return nil, domain.NewError(domain.KindConfiguration, "build store",
			fmt.Errorf("unknown store type %q", cfg.Store.Type))
	}
}

// Close releases the local database, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
