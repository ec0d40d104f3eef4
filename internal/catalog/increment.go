package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ncanimate/internal/daterange"
)

// Unit is a calendar unit for a TimeIncrement.
type Unit string

const (
	UnitHour  Unit = "hour"
	UnitDay   Unit = "day"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
	// UnitAll is a single increment spanning all time.
	UnitAll Unit = "all"
)

// TimeIncrement is a calendar-aligned step such as "hourly" or "3 hour".
type TimeIncrement struct {
	Count int
	Unit  Unit
}

// ParseTimeIncrement accepts hourly, daily, monthly, yearly, all, or
// "<count> <unit>" with unit hour, day, month or year.
func ParseTimeIncrement(value string) (TimeIncrement, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "hourly":
		return TimeIncrement{Count: 1, Unit: UnitHour}, nil
	case "daily":
		return TimeIncrement{Count: 1, Unit: UnitDay}, nil
	case "monthly":
		return TimeIncrement{Count: 1, Unit: UnitMonth}, nil
	case "yearly":
		return TimeIncrement{Count: 1, Unit: UnitYear}, nil
	case "all", "all_time":
		return TimeIncrement{Count: 1, Unit: UnitAll}, nil
	}
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return TimeIncrement{}, fmt.Errorf("time increment %q: expected <count> <unit>", value)
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count <= 0 {
		return TimeIncrement{}, fmt.Errorf("time increment %q: invalid count", value)
	}
	unit := Unit(strings.TrimSuffix(fields[1], "s"))
	switch unit {
	case UnitHour, UnitDay, UnitMonth, UnitYear:
	default:
		return TimeIncrement{}, fmt.Errorf("time increment %q: unknown unit", value)
	}
	return TimeIncrement{Count: count, Unit: unit}, nil
}

func (i *TimeIncrement) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeIncrement(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i TimeIncrement) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// IsZero reports whether the increment was never set.
func (i TimeIncrement) IsZero() bool {
	return i.Unit == ""
}

func (i TimeIncrement) String() string {
	if i.IsZero() {
		return ""
	}
	if i.Unit == UnitAll {
		return "all"
	}
	if i.Count <= 1 {
		return i.Label()
	}
	return fmt.Sprintf("%d %s", i.Count, i.Unit)
}

// Label is the token used in output file names.
func (i TimeIncrement) Label() string {
	var base string
	switch i.Unit {
	case UnitHour:
		base = "hourly"
	case UnitDay:
		base = "daily"
	case UnitMonth:
		base = "monthly"
	case UnitYear:
		base = "yearly"
	case UnitAll:
		return "all"
	default:
		return "unknown"
	}
	if i.Count > 1 {
		return strconv.Itoa(i.Count) + base
	}
	return base
}

// DateLayout formats the start of an increment in file names.
func (i TimeIncrement) DateLayout() string {
	switch i.Unit {
	case UnitHour:
		return "2006-01-02_15h04"
	case UnitDay:
		return "2006-01-02"
	case UnitMonth:
		return "2006-01"
	case UnitYear:
		return "2006"
	default:
		return ""
	}
}

// Truncate aligns t (UTC) to the start of the increment containing it.
func (i TimeIncrement) Truncate(t time.Time) time.Time {
	t = t.UTC()
	count := max(i.Count, 1)
	switch i.Unit {
	case UnitHour:
		h := t.Truncate(time.Hour)
		return h.Add(-time.Duration(h.Hour()%count) * time.Hour)
	case UnitDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case UnitMonth:
		m := int(t.Month()) - 1
		return time.Date(t.Year(), time.Month(m-m%count+1), 1, 0, 0, 0, 0, time.UTC)
	case UnitYear:
		return time.Date(t.Year()-t.Year()%count, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// Next returns the start of the following increment.
func (i TimeIncrement) Next(t time.Time) time.Time {
	count := max(i.Count, 1)
	switch i.Unit {
	case UnitHour:
		return t.Add(time.Duration(count) * time.Hour)
	case UnitDay:
		return t.AddDate(0, 0, count)
	case UnitMonth:
		return t.AddDate(0, count, 0)
	case UnitYear:
		return t.AddDate(count, 0, 0)
	default:
		return time.Time{}
	}
}

// Partition splits span into consecutive calendar-aligned increments that
// intersect it. UnitAll yields AllTime; an unbounded span yields nothing for
// the calendar units.
func (i TimeIncrement) Partition(span daterange.Range) []daterange.Range {
	if i.Unit == UnitAll {
		return []daterange.Range{daterange.AllTime}
	}
	if i.IsZero() || span.Start.IsZero() || span.End.IsZero() {
		return nil
	}
	var out []daterange.Range
	for start := i.Truncate(span.Start); start.Before(span.End); {
		end := i.Next(start)
		out = append(out, daterange.New(start, end))
		start = end
	}
	return out
}
