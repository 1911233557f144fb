package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/de-tools/cost-notifier/pkg/adapters"
	"github.com/de-tools/cost-notifier/pkg/clock"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/runtime/app"
	"github.com/de-tools/cost-notifier/pkg/scheduler"
	"github.com/de-tools/cost-notifier/pkg/server"
	"github.com/de-tools/cost-notifier/pkg/services/config"
	"github.com/de-tools/cost-notifier/pkg/services/period"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	output  io.Writer
	logOut  io.Writer
	build   func(ctx context.Context, opts app.Options) (*app.App, error)
	rootCmd *cobra.Command

	cfgPath string
	now     string
	dryRun  bool
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
	// LogOutput receives structured logs, stderr by default.
	LogOutput io.Writer
	// Build overrides app assembly in tests.
	Build func(ctx context.Context, opts app.Options) (*app.App, error)
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Build == nil {
		opts.Build = app.New
	}

	cli := &CLI{
		output: opts.Output,
		logOut: opts.LogOutput,
		build:  opts.Build,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) ExecuteContext(ctx context.Context, args ...string) error {
	if args != nil {
		cli.rootCmd.SetArgs(args)
	}
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cost-notifier",
		Short:         "Report AWS billing usage once per period",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.output)

	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&cli.now, "now", "", "override the current date (YYYY-MM-DD or RFC3339)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run one reporting pass",
		Args:  cobra.NoArgs,
		RunE:  cli.runReport,
	}
	run.Flags().BoolVar(&cli.dryRun, "dry-run", false, "print the report instead of publishing it")

	cmd.AddCommand(run)
	cmd.AddCommand(&cobra.Command{
		Use:   "period",
		Short: "Print the period the next run would report on",
		Args:  cobra.NoArgs,
		RunE:  cli.printPeriod,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the local schedule",
		Args:  cobra.NoArgs,
		RunE:  cli.serve,
	})

	return cmd
}

func (cli *CLI) setup(cmd *cobra.Command) (context.Context, *config.Config, clock.Clock, error) {
	// a missing .env file is not an error
	_ = godotenv.Load()

	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := app.NewLogger(cfg.Log.Level, cli.logOut)
	ctx := logger.WithContext(cmd.Context())

	clk, err := parseNow(cli.now)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctx, cfg, clk, nil
}

func (cli *CLI) runReport(cmd *cobra.Command, _ []string) error {
	ctx, cfg, clk, err := cli.setup(cmd)
	if err != nil {
		return err
	}

	a, err := cli.build(ctx, app.Options{
		Config: cfg,
		Clock:  clk,
		Output: cli.output,
		DryRun: cli.dryRun,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	result, runErr := a.Job.Run(ctx)

	enc := json.NewEncoder(cli.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(adapters.MapDomainResultToAPI(result)); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return runErr
}

func (cli *CLI) printPeriod(cmd *cobra.Command, _ []string) error {
	_, cfg, clk, err := cli.setup(cmd)
	if err != nil {
		return err
	}

	cadence, err := period.ParseCadence(cfg.Cadence)
	if err != nil {
		return err
	}
	p, err := period.NewCalculator(cadence).Compute(clk.Now())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cli.output)
	enc.SetIndent("", "  ")
	return enc.Encode(adapters.MapDomainPeriodToAPI(p))
}

func (cli *CLI) serve(cmd *cobra.Command, _ []string) error {
	ctx, cfg, clk, err := cli.setup(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := cli.build(ctx, app.Options{Config: cfg, Clock: clk, Output: cli.output})
	if err != nil {
		return err
	}
	defer a.Close()

	logger := zerolog.Ctx(ctx)
	sched, err := scheduler.New(cfg.Server.Schedule, a.Job, a.Calculator, clk, *logger)
	if err != nil {
		return domain.NewError(domain.KindConfiguration, "schedule", err)
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Invocation.Deadline)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	web := server.NewWebAPI(server.Config{
		Addr: cfg.Server.Addr,
		Dependencies: server.Dependencies{
			Runner:   a.Job,
			Gatherer: a.Registry,
			Logger:   *logger,
		},
	})
	return web.Start(ctx)
}

func parseNow(value string) (clock.Clock, error) {
	if value == "" {
		return clock.Real{}, nil
	}
	for _, layout := range []string{domain.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return clock.NewFixed(t.UTC()), nil
		}
	}
	return nil, domain.NewError(domain.KindConfiguration, "parse --now",
		fmt.Errorf("%q is neither YYYY-MM-DD nor RFC3339", value))
}
