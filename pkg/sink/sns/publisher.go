package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/sink"
	"github.com/rs/zerolog"
)

const (
	publishOp = "sns publish"

	// SNS rejects subjects longer than 100 characters
	maxSubjectLen = 100
)

type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notification is the AWS Chatbot custom notification schema.
type Notification struct {
	Version  string               `json:"version"`
	Source   string               `json:"source"`
	ID       string               `json:"id,omitempty"`
	Content  NotificationContent  `json:"content"`
	Metadata NotificationMetadata `json:"metadata,omitempty"`
}

type NotificationContent struct {
	TextType    string `json:"textType,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type NotificationMetadata struct {
	Summary  string `json:"summary,omitempty"`
	ThreadID string `json:"threadId,omitempty"`
}

type publisher struct {
	client   API
	topicARN string
}

func NewPublisher(client API, topicARN string) (sink.Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("sns client is nil")
	}
	if topicARN == "" {
		return nil, fmt.Errorf("sns topic ARN is required")
	}
	return &publisher{client: client, topicARN: topicARN}, nil
}

// NewClient builds an SNS client that never retries publishes by itself.
func NewClient(cfg aws.Config) *sns.Client {
	return sns.NewFromConfig(cfg, func(o *sns.Options) {
		o.Retryer = aws.NopRetryer{}
	})
}

func (p *publisher) Publish(ctx context.Context, msg domain.ReportMessage) (string, error) {
	body, err := json.Marshal(BuildNotification(msg))
	if err != nil {
		return "", domain.SinkPublishError(publishOp, fmt.Errorf("marshal notification: %w", err))
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject(msg)),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return "", domain.SinkPublishError(publishOp, err)
	}

	messageID := aws.ToString(out.MessageId)
	zerolog.Ctx(ctx).Info().
		Str("topic_arn", p.topicARN).
		Str("message_id", messageID).
		Msg("report published to sns")
	return messageID, nil
}

func BuildNotification(msg domain.ReportMessage) Notification {
	return Notification{
		Version: "1.0",
		Source:  "custom",
		ID:      msg.PeriodKey(),
		Content: NotificationContent{
			TextType:    "client-markdown",
			Title:       msg.Title,
			Description: msg.Text,
		},
		Metadata: NotificationMetadata{
			Summary:  subject(msg),
			ThreadID: "cost-report",
		},
	}
}

func subject(msg domain.ReportMessage) string {
	s := fmt.Sprintf("%s %s", msg.Title, msg.Period.String())
	if len(s) > maxSubjectLen {
		n := maxSubjectLen
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return s
}
