// Package period computes the reporting window for an invocation.
//
// Days-of-month cadences clamp to the last day of shorter months: a day 30
// trigger fires on February 28 (29 in leap years). The period reported at a
// trigger date T is month-to-date, [first day of the month containing T-1, T),
// so a trigger on the 1st reports the whole previous month.
package period

import (
	"fmt"
	"time"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
)

type Calculator struct {
	cadence Cadence
}

func NewCalculator(cadence Cadence) *Calculator {
	return &Calculator{cadence: cadence}
}

func (c *Calculator) Cadence() Cadence {
	return c.cadence
}

// Compute returns the period to report on at now. Invocations that fire late
// map to the same period as the trigger date they belong to.
func (c *Calculator) Compute(now time.Time) (domain.ReportingPeriod, error) {
	today := domain.TruncateDate(now)

	switch c.cadence.Kind {
	case CadenceMonthly:
		end := firstOfMonth(today)
		return domain.NewReportingPeriod(end.AddDate(0, -1, 0), end)
	case CadenceWeekly:
		end := c.lastWeekday(today)
		return domain.NewReportingPeriod(end.AddDate(0, 0, -7), end)
	case CadenceDaysOfMonth:
		end, err := c.lastTriggerDay(today)
		if err != nil {
			return domain.ReportingPeriod{}, err
		}
		return domain.NewReportingPeriod(firstOfMonth(end.AddDate(0, 0, -1)), end)
	default:
		return domain.ReportingPeriod{}, fmt.Errorf("unsupported cadence %q", c.cadence.Kind)
	}
}

// IsTriggerDate reports whether now falls on a day the cadence fires.
func (c *Calculator) IsTriggerDate(now time.Time) bool {
	today := domain.TruncateDate(now)

	switch c.cadence.Kind {
	case CadenceMonthly:
		return today.Day() == 1
	case CadenceWeekly:
		return today.Weekday() == c.cadence.Weekday
	case CadenceDaysOfMonth:
		last, err := c.lastTriggerDay(today)
		return err == nil && last.Equal(today)
	default:
		return false
	}
}

// Previous returns the period compared against p in the report: the calendar
// month before p for monthly and days-of-month cadences, the preceding seven
// days for weekly ones.
func (c *Calculator) Previous(p domain.ReportingPeriod) (domain.ReportingPeriod, error) {
	switch c.cadence.Kind {
	case CadenceWeekly:
		return domain.NewReportingPeriod(p.Start.AddDate(0, 0, -7), p.Start)
	case CadenceMonthly, CadenceDaysOfMonth:
		start := firstOfMonth(p.Start)
		if start.Equal(p.Start) {
			start = start.AddDate(0, -1, 0)
		}
		return domain.NewReportingPeriod(start, p.Start)
	default:
		return domain.ReportingPeriod{}, fmt.Errorf("unsupported cadence %q", c.cadence.Kind)
	}
}

func (c *Calculator) lastWeekday(today time.Time) time.Time {
	back := (int(today.Weekday()) - int(c.cadence.Weekday) + 7) % 7
	return today.AddDate(0, 0, -back)
}

// lastTriggerDay returns the latest clamped trigger date on or before today.
func (c *Calculator) lastTriggerDay(today time.Time) (time.Time, error) {
	if len(c.cadence.Days) == 0 {
		return time.Time{}, fmt.Errorf("days cadence has no days configured")
	}

	month := firstOfMonth(today)
	for i := 0; i < 2; i++ {
		var best time.Time
		for _, d := range c.cadence.Days {
			candidate := clampDay(month, d)
			if !candidate.After(today) && candidate.After(best) {
				best = candidate
			}
		}
		if !best.IsZero() {
			return best, nil
		}
		month = month.AddDate(0, -1, 0)
	}
	return time.Time{}, fmt.Errorf("no trigger day found before %s", today.Format(domain.DateLayout))
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func daysIn(month time.Time) int {
	return firstOfMonth(month).AddDate(0, 1, -1).Day()
}

func clampDay(month time.Time, day int) time.Time {
	if n := daysIn(month); day > n {
		day = n
	}
	return time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
}
