package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ReportingPeriod is the half-open date range [Start, End) a report covers.
// Both bounds are calendar dates at UTC midnight.
type ReportingPeriod struct {
	Start time.Time
	End   time.Time
}

func NewReportingPeriod(start, end time.Time) (ReportingPeriod, error) {
	p := ReportingPeriod{Start: TruncateDate(start), End: TruncateDate(end)}
	if !p.Start.Before(p.End) {
		return ReportingPeriod{}, fmt.Errorf("invalid period: start (%s) must be before end (%s)",
			p.Start.Format(DateLayout),
			p.End.Format(DateLayout))
	}
	return p, nil
}

// Key is the deterministic identifier used to deduplicate publishes.
func (p ReportingPeriod) Key() string {
	return p.Start.Format(DateLayout) + "_" + p.End.Format(DateLayout)
}

// Days returns the number of calendar days in the period.
func (p ReportingPeriod) Days() int {
	return int(p.End.Sub(p.Start).Hours() / 24)
}

func (p ReportingPeriod) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format(DateLayout), p.End.Format(DateLayout))
}

// TruncateDate drops the time-of-day component, interpreting t in UTC.
func TruncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
