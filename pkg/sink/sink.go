// Package sink defines where formatted cost reports are delivered.
package sink

import (
	"context"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
)

// Sink delivers a report and returns the downstream message ID as ack.
// Implementations must not retry on their own.
type Sink interface {
	Publish(ctx context.Context, msg domain.ReportMessage) (string, error)
}
