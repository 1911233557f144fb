package domain

import "time"

// PeriodTotal is the usage of an earlier period shown next to the current one.
type PeriodTotal struct {
	Period ReportingPeriod
	Amount UsageAmount
}

// ReportMessage is the formatted report for one invocation. It is built once
// by the formatter and never mutated afterwards.
type ReportMessage struct {
	Period      ReportingPeriod
	Amount      UsageAmount
	Previous    *PeriodTotal
	GeneratedAt time.Time
	Title       string
	Text        string
}

func (m ReportMessage) PeriodKey() string {
	return m.Period.Key()
}
