package domain

import "time"

type Outcome string

const (
	OutcomePublished        Outcome = "published"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	OutcomeFailed           Outcome = "failed"
)

type InvocationState string

const (
	StateIdle                InvocationState = "idle"
	StateComputingPeriod     InvocationState = "computing_period"
	StateFetching            InvocationState = "fetching"
	StateFormatting          InvocationState = "formatting"
	StateCheckingIdempotency InvocationState = "checking_idempotency"
	StatePublishing          InvocationState = "publishing"
	StateDone                InvocationState = "done"
	StateSkippedDuplicate    InvocationState = "skipped_duplicate"
	StateFailed              InvocationState = "failed"
)

// InvocationRecord marks a period as reported. It is written at most once per
// period key.
type InvocationRecord struct {
	PeriodKey    string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	PublishedAt  time.Time
	InvocationID string
	MessageID    string
}

type InvocationResult struct {
	InvocationID string
	PeriodKey    string
	Outcome      Outcome
	State        InvocationState
	Message      *ReportMessage
	MessageID    string
	Err          error
}
