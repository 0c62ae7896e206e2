package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date wire and display format.
const DateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar days. Start and End are
// midnight UTC values carrying only the date.
type DateRange struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// NewDateRange keeps only the calendar dates of start and end, as seen in
// their own locations.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: dateOf(start), End: dateOf(end)}
}

// ParseDateRange parses two YYYY-MM-DD strings.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("dashboard: invalid start date %q", start)
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("dashboard: invalid end date %q", end)
	}
	rng := DateRange{Start: s, End: e}
	if !rng.Valid() {
		return DateRange{}, ErrInvalidRange
	}
	return rng, nil
}

// Valid reports start <= end. Equal dates are a one-day range.
func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Days is the number of calendar days covered, or 0 for an invalid range.
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether the calendar date d is inside the range.
func (r DateRange) Contains(d time.Time) bool {
	d = dateOf(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) StartString() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndString() string   { return r.End.Format(DateLayout) }

func (r DateRange) String() string {
	return r.StartString() + ".." + r.EndString()
}

// MarshalJSON renders the range as {"start":"YYYY-MM-DD","end":"YYYY-MM-DD"}.
func (r DateRange) MarshalJSON() ([]byte, error) {
	return []byte(`{"start":"` + r.StartString() + `","end":"` + r.EndString() + `"}`), nil
}

// TrailingDays is the range of n days ending on today's date.
func TrailingDays(today time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	end := dateOf(today)
	return DateRange{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// QuickRange resolves the shortcut buttons: "today", "mtd" (month to date)
// or a number of trailing days such as "7" or "90".
func QuickRange(mode string, today time.Time) (DateRange, error) {
	end := dateOf(today)
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "today":
		return DateRange{Start: end, End: end}, nil
	case "mtd":
		return DateRange{Start: time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC), End: end}, nil
	}
	days, err := strconv.Atoi(strings.TrimSpace(mode))
	if err != nil || days < 1 {
		return DateRange{}, fmt.Errorf("dashboard: unknown range %q", mode)
	}
	return TrailingDays(today, days), nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
