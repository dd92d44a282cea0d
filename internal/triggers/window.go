package triggers

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// DateLayout is the only accepted input format for form dates
const DateLayout = "2006-01-02"

// Representable range for last change timestamps. Anything outside it cannot
// be rendered as a spreadsheet date.
var (
	minLastChange = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxLastChange = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// FormatError is returned for malformed date input
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s %q: use YYYY-MM-DD", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid date %q: use YYYY-MM-DD", e.Value)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ToEpoch parses a YYYY-MM-DD date in loc and returns epoch seconds at the
// start of that day. With endOfDayInclusive the bound moves 24 hours forward
// so the whole day is covered.
func ToEpoch(date string, endOfDayInclusive bool, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return 0, &FormatError{Value: date, Err: err}
	}
	if endOfDayInclusive {
		t = t.Add(24 * time.Hour)
	}
	return t.Unix(), nil
}

// FormatDate renders epoch seconds as a YYYY-MM-DD date in loc
func FormatDate(epoch int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(epoch, 0).In(loc).Format(DateLayout)
}

// Window is an inclusive [Start, End] range in epoch seconds. A nil bound
// imposes no constraint on that side.
type Window struct {
	Start *int64
	End   *int64
}

// Contains reports whether ts falls inside the window
func (w Window) Contains(ts int64) bool {
	if w.Start != nil && ts < *w.Start {
		return false
	}
	if w.End != nil && ts > *w.End {
		return false
	}
	return true
}

// IsZero reports whether neither bound is set
func (w Window) IsZero() bool {
	return w.Start == nil && w.End == nil
}

// WindowFromCriteria builds the time window for a query. A due date takes
// precedence over start/end and bounds the window from above only.
func WindowFromCriteria(c Criteria, loc *time.Location) (Window, error) {
	var w Window

	if due := strings.TrimSpace(c.DueDate); due != "" {
		end, err := ToEpoch(due, true, loc)
		if err != nil {
			return Window{}, &FormatError{Field: "due date", Value: due, Err: err}
		}
		w.End = &end
		return w, nil
	}

	if start := strings.TrimSpace(c.StartDate); start != "" {
		ts, err := ToEpoch(start, false, loc)
		if err != nil {
			return Window{}, &FormatError{Field: "start date", Value: start, Err: err}
		}
		w.Start = &ts
	}
	if end := strings.TrimSpace(c.EndDate); end != "" {
		ts, err := ToEpoch(end, true, loc)
		if err != nil {
			return Window{}, &FormatError{Field: "end date", Value: end, Err: err}
		}
		w.End = &ts
	}
	return w, nil
}

// SkipNotice describes a trigger dropped because its timestamp was unusable
type SkipNotice struct {
	TriggerID   string
	Description string
	LastChange  string
	Reason      string
}

func (s SkipNotice) String() string {
	return fmt.Sprintf("trigger %s (%s): %s", s.TriggerID, s.Description, s.Reason)
}

// FilterByWindow keeps triggers whose last change falls inside w, in input
// order. Triggers with an unparsable or out-of-range last change are skipped
// and reported, never fatal.
func FilterByWindow(list []Trigger, w Window, logger *log.Logger) ([]Trigger, []SkipNotice) {
	kept := make([]Trigger, 0, len(list))
	var skipped []SkipNotice

	for _, t := range list {
		ts, err := t.LastChangeUnix()
		if err != nil {
			skipped = append(skipped, skipNotice(t, fmt.Sprintf("unparsable last change %q", t.LastChange), logger))
			continue
		}
		if ts < minLastChange || ts > maxLastChange {
			skipped = append(skipped, skipNotice(t, fmt.Sprintf("last change %d out of range", ts), logger))
			continue
		}
		if !w.Contains(ts) {
			continue
		}
		kept = append(kept, t)
	}

	return kept, skipped
}

func skipNotice(t Trigger, reason string, logger *log.Logger) SkipNotice {
	n := SkipNotice{
		TriggerID:   t.ID,
		Description: t.Description,
		LastChange:  t.LastChange,
		Reason:      reason,
	}
	if logger != nil {
		logger.Printf("Error converting timestamp for %s", n)
	}
	return n
}
