package triggers

import (
	"strconv"
	"strings"
)

// State is the current value of a Zabbix trigger
type State int

const (
	StateOK      State = 0
	StateProblem State = 1
)

// ParseState converts the "value" field returned by trigger.get
func ParseState(value string) State {
	if strings.TrimSpace(value) == "1" {
		return StateProblem
	}
	return StateOK
}

// String returns the label used in exported sheets
func (s State) String() string {
	if s == StateProblem {
		return "PROBLEM"
	}
	return "OK"
}

// Trigger is a Zabbix trigger as returned by trigger.get
type Trigger struct {
	ID          string
	Description string
	// LastChange is the raw "lastchange" epoch string from the API
	LastChange string
	Priority   int
	Value      State
	Hosts      []string
	UserID     string
}

// LastChangeUnix parses LastChange into epoch seconds
func (t Trigger) LastChangeUnix() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(t.LastChange), 10, 64)
}

// IsProblem reports whether the trigger is in problem state
func (t Trigger) IsProblem() bool {
	return t.Value == StateProblem
}

// HostList joins host names for a single spreadsheet cell
func (t Trigger) HostList() string {
	return strings.Join(t.Hosts, ", ")
}

// User is a Zabbix user reduced to what the reports need
type User struct {
	ID       string
	Username string
	Email    string
}

// PriorityLabel returns a human-readable severity label
func PriorityLabel(priority int) string {
	switch priority {
	case 5:
		return "Disaster"
	case 4:
		return "High"
	case 3:
		return "Average"
	case 2:
		return "Warning"
	case 1:
		return "Information"
	case 0:
		return "Not classified"
	default:
		return "Unknown"
	}
}
