package job

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cost-notifier/pkg/clock"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/sink"
	"github.com/de-tools/cost-notifier/pkg/store/invocation"
	"github.com/rs/zerolog"
)

const (
	checkOp   = "check invocation record"
	publishOp = "publish report"
	recordOp  = "write invocation record"

	// recordTimeout bounds the record write, which runs after the sink acked
	// and so ignores the invocation deadline.
	recordTimeout = 10 * time.Second
)

// Guard publishes a report at most once per period key. Two invocations that
// both pass the check before either records can still both publish; the
// conditional write keeps the stored record unique.
type Guard struct {
	store invocation.Store
	sink  sink.Sink
	clock clock.Clock
}

func NewGuard(store invocation.Store, out sink.Sink, clk clock.Clock) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("invocation store is nil")
	}
	if out == nil {
		return nil, fmt.Errorf("sink is nil")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Guard{store: store, sink: out, clock: clk}, nil
}

// Publish returns the outcome and the sink message ID. A store failure before
// publishing fails closed.
func (g *Guard) Publish(ctx context.Context, msg domain.ReportMessage, invocationID string) (domain.Outcome, string, error) {
	logger := zerolog.Ctx(ctx)
	key := msg.PeriodKey()

	existing, err := g.store.GetRecord(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return domain.OutcomeFailed, "", domain.DeadlineExceeded(checkOp, ctx.Err())
		}
		return domain.OutcomeFailed, "", domain.IdempotencyStoreError(checkOp, err)
	}
	if existing != nil {
		logger.Info().
			Str("published_by", existing.InvocationID).
			Time("published_at", existing.PublishedAt).
			Msg("period already reported, skipping")
		return domain.OutcomeSkippedDuplicate, existing.MessageID, nil
	}

	if err := ctx.Err(); err != nil {
		return domain.OutcomeFailed, "", domain.DeadlineExceeded(publishOp, err)
	}

	logger.Debug().
		Str("from", string(domain.StateCheckingIdempotency)).
		Str("state", string(domain.StatePublishing)).
		Msg("state transition")
	messageID, err := g.sink.Publish(ctx, msg)
	if err != nil {
		if domain.KindOf(err) != domain.KindSinkPublish {
			err = domain.SinkPublishError(publishOp, err)
		}
		return domain.OutcomeFailed, "", err
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	inserted, err := g.store.PutRecordIfAbsent(writeCtx, domain.InvocationRecord{
		PeriodKey:    key,
		PeriodStart:  msg.Period.Start,
		PeriodEnd:    msg.Period.End,
		PublishedAt:  g.clock.Now(),
		InvocationID: invocationID,
		MessageID:    messageID,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("message_id", messageID).
			Msg("report delivered but invocation record was not written")
		return domain.OutcomeFailed, messageID, domain.IdempotencyStoreError(recordOp, err)
	}
	if !inserted {
		logger.Warn().
			Str("message_id", messageID).
			Msg("concurrent invocation recorded the period first")
	}

	return domain.OutcomePublished, messageID, nil
}
