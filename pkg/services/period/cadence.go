package period

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type CadenceKind string

const (
	CadenceMonthly     CadenceKind = "monthly"
	CadenceWeekly      CadenceKind = "weekly"
	CadenceDaysOfMonth CadenceKind = "days"
)

// Cadence describes which calendar days trigger a reporting pass.
type Cadence struct {
	Kind    CadenceKind
	Weekday time.Weekday // weekly only
	Days    []int        // days only, sorted and unique, 1..31
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseCadence accepts "monthly", "weekly[:<weekday>]" and "days:<d1,d2,...>".
func ParseCadence(rule string) (Cadence, error) {
	rule = strings.ToLower(strings.TrimSpace(rule))
	kind, arg, _ := strings.Cut(rule, ":")

	switch CadenceKind(kind) {
	case CadenceMonthly:
		if arg != "" {
			return Cadence{}, fmt.Errorf("monthly cadence takes no argument, got %q", arg)
		}
		return Cadence{Kind: CadenceMonthly}, nil
	case CadenceWeekly:
		if arg == "" {
			return Cadence{Kind: CadenceWeekly, Weekday: time.Monday}, nil
		}
		wd, ok := weekdays[arg]
		if !ok {
			return Cadence{}, fmt.Errorf("unknown weekday %q", arg)
		}
		return Cadence{Kind: CadenceWeekly, Weekday: wd}, nil
	case CadenceDaysOfMonth:
		days, err := parseDays(arg)
		if err != nil {
			return Cadence{}, err
		}
		return Cadence{Kind: CadenceDaysOfMonth, Days: days}, nil
	default:
		return Cadence{}, fmt.Errorf("unsupported cadence rule %q", rule)
	}
}

func parseDays(arg string) ([]int, error) {
	if arg == "" {
		return nil, fmt.Errorf("days cadence requires at least one day of month")
	}

	seen := make(map[int]struct{})
	var days []int
	for _, part := range strings.Split(arg, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid day of month %q: %w", part, err)
		}
		if d < 1 || d > 31 {
			return nil, fmt.Errorf("day of month out of range: %d", d)
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

func (c Cadence) String() string {
	switch c.Kind {
	case CadenceWeekly:
		return fmt.Sprintf("weekly:%s", strings.ToLower(c.Weekday.String()))
	case CadenceDaysOfMonth:
		parts := make([]string, 0, len(c.Days))
		for _, d := range c.Days {
			parts = append(parts, strconv.Itoa(d))
		}
		return "days:" + strings.Join(parts, ",")
	default:
		return string(c.Kind)
	}
}
