package store

import "time"

// InvocationRecord is the persisted form of domain.InvocationRecord. Period
// bounds are kept as YYYY-MM-DD strings so every backend stores them alike.
type InvocationRecord struct {
	PeriodKey    string    `dynamodbav:"period_key"`
	PeriodStart  string    `dynamodbav:"period_start"`
	PeriodEnd    string    `dynamodbav:"period_end"`
	PublishedAt  time.Time `dynamodbav:"published_at"`
	InvocationID string    `dynamodbav:"invocation_id"`
	MessageID    string    `dynamodbav:"message_id,omitempty"`
}
