package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/de-tools/cost-notifier/pkg/runtime/app"
	"github.com/de-tools/cost-notifier/pkg/services/config"
	"github.com/rs/zerolog"
)

type handler struct {
	app      *app.App
	logger   zerolog.Logger
	deadline time.Duration
}

func (h *handler) Handle(ctx context.Context, event events.CloudWatchEvent) error {
	logger := h.logger.With().Str("event_id", event.ID).Logger()
	ctx = logger.WithContext(ctx)

	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= h.deadline {
		logger.Warn().
			Dur("remaining", time.Until(dl)).
			Dur("invocation_deadline", h.deadline).
			Msg("function timeout is not longer than the invocation deadline")
	}

	// the error fails the invocation so the platform alerts on it
	_, err := h.app.Job.Run(ctx)
	return err
}

func main() {
	cfg, err := config.Load(os.Getenv("COST_NOTIFIER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Log.Level, os.Stdout)
	ctx := logger.WithContext(context.Background())

	a, err := app.New(ctx, app.Options{Config: cfg})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize report job")
	}

	h := &handler{app: a, logger: logger, deadline: cfg.Invocation.Deadline}
	lambda.Start(h.Handle)
}
