package api

import "time"

type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Key   string `json:"key"`
	Days  int    `json:"days"`
}

type Report struct {
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Total       string    `json:"total"`
	Currency    string    `json:"currency"`
	GeneratedAt time.Time `json:"generated_at"`
}

type InvocationResult struct {
	InvocationID string  `json:"invocation_id"`
	PeriodKey    string  `json:"period_key,omitempty"`
	Outcome      string  `json:"outcome"`
	State        string  `json:"state"`
	MessageID    string  `json:"message_id,omitempty"`
	Report       *Report `json:"report,omitempty"`
	Error        string  `json:"error,omitempty"`
	ErrorKind    string  `json:"error_kind,omitempty"`
}
