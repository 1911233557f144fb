package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/sink"
	"github.com/google/uuid"
)

const publishOp = "terminal publish"

var reportTemplate = template.Must(template.New("report").Parse(`
{{.Title}}
{{.Text}}
`))

// Reporter writes report messages to the console instead of a notification channel.
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

var _ sink.Sink = (*Reporter)(nil)

// Publish renders the message and returns a locally generated message ID.
func (r *Reporter) Publish(ctx context.Context, msg domain.ReportMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.SinkPublishError(publishOp, err)
	}
	if err := reportTemplate.Execute(r.writer, msg); err != nil {
		return "", domain.SinkPublishError(publishOp, fmt.Errorf("failed to render report: %w", err))
	}
	return "stdout-" + uuid.NewString(), nil
}
