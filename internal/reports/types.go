package reports

import (
	"errors"
	"fmt"
	"time"

	"github.com/akmatori/zabbix-reports/internal/triggers"
)

// Kind selects the report layout
type Kind string

const (
	KindTriggers Kind = "triggers"
	KindEmails   Kind = "emails"
)

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTriggers, KindEmails:
		return Kind(s), nil
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown report kind %q", s)}
}

// Phase is a step of an export
type Phase int

const (
	PhaseValidating Phase = iota
	PhaseLoggingIn
	PhaseFetching
	PhaseFiltering
	PhaseExporting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseLoggingIn:
		return "logging in"
	case PhaseFetching:
		return "fetching"
	case PhaseFiltering:
		return "filtering"
	case PhaseExporting:
		return "exporting"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Request carries the captured form values of one operation
type Request struct {
	Kind     Kind
	Server   string
	User     string
	Password string
	Criteria triggers.Criteria
	// OutputPath is overwritten without confirmation. Empty means a
	// generated name in the working directory.
	OutputPath string
}

// WarningKind classifies non-fatal outcomes
type WarningKind string

const (
	WarningNoTriggers       WarningKind = "no_triggers"
	WarningMissingEmail     WarningKind = "missing_email"
	WarningSkippedTimestamp WarningKind = "skipped_timestamp"
	WarningSettingsNotSaved WarningKind = "settings_not_saved"
)

// Warning is reported to the operator without aborting
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return w.Message
}

// Result of a finished export
type Result struct {
	RunID string
	Kind  Kind
	// OutputPath is empty when nothing was written
	OutputPath string
	Fetched    int
	Exported   int
	Problems   int
	Skipped    []triggers.SkipNotice
	// Emails maps user ids to addresses, emails reports only
	Emails   map[string]string
	Warnings []Warning
	Duration time.Duration
}

// HasWarning reports whether a warning of kind k was raised
func (r *Result) HasWarning(k WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// EmailLookup is the id -> address list of a user lookup
type EmailLookup struct {
	Users    []triggers.User
	Warnings []Warning
}

// ValidationError reports a missing or malformed request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrBusy is returned while another operation of the same Service runs
var ErrBusy = errors.New("another export is already in progress")
