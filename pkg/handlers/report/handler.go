package report

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/de-tools/cost-notifier/pkg/adapters"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/rs/zerolog"
)

type Runner interface {
	Run(ctx context.Context) (domain.InvocationResult, error)
	Period() (domain.ReportingPeriod, error)
}

type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// RunReport triggers one invocation and reports its result. Published and
// skipped invocations both answer 200.
func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	result, err := h.runner.Run(ctx)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(err))
	if err := json.NewEncoder(w).Encode(adapters.MapDomainResultToAPI(result)); err != nil {
		logger.Error().
			Err(err).
			Str("invocation_id", result.InvocationID).
			Msg("failed to encode invocation result")
	}
}

func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	p, err := h.runner.Period()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(adapters.MapDomainPeriodToAPI(p)); err != nil {
		logger.Error().
			Err(err).
			Msg("failed to encode period")
	}
}

// StatusFor maps an invocation error onto an HTTP status.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch domain.KindOf(err) {
	case domain.KindTransientSource, domain.KindIdempotencyStore:
		return http.StatusServiceUnavailable
	case domain.KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	case domain.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
