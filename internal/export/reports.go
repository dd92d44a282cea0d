package export

import (
	"time"

	"github.com/akmatori/zabbix-reports/internal/triggers"
)

// Header rows of the two report kinds
var (
	TriggerHeader = []string{"Description", "Last Change", "Priority", "Value", "Hosts"}
	EmailHeader   = []string{"Trigger ID", "Description", "Value", "User Email"}
)

// problemRow reports whether the value cell at col holds the problem label
func problemRow(col int) func(row []interface{}) bool {
	return func(row []interface{}) bool {
		if col >= len(row) {
			return false
		}
		s, ok := row[col].(string)
		return ok && s == triggers.StateProblem.String()
	}
}

// TriggerSheet lays out triggers as Description, Last Change, Priority,
// Value, Hosts. Triggers with an unparsable last change get an empty cell.
func TriggerSheet(list []triggers.Trigger, loc *time.Location) Sheet {
	if loc == nil {
		loc = time.Local
	}

	rows := make([][]interface{}, 0, len(list))
	for _, t := range list {
		var lastChange interface{} = ""
		if ts, err := t.LastChangeUnix(); err == nil {
			lastChange = time.Unix(ts, 0).In(loc)
		}
		rows = append(rows, []interface{}{
			t.Description,
			lastChange,
			triggers.PriorityLabel(t.Priority),
			t.Value.String(),
			t.HostList(),
		})
	}

	return Sheet{
		Name:            "Triggers",
		Header:          TriggerHeader,
		Rows:            rows,
		Highlight:       problemRow(3),
		HighlightColumn: 3,
	}
}

// EmailSheet lays out triggers as Trigger ID, Description, Value, User Email.
// emails maps user ids to addresses; triggers without a known address get an
// empty email cell.
func EmailSheet(list []triggers.Trigger, emails map[string]string) Sheet {
	rows := make([][]interface{}, 0, len(list))
	for _, t := range list {
		rows = append(rows, []interface{}{
			t.ID,
			t.Description,
			t.Value.String(),
			emails[t.UserID],
		})
	}

	return Sheet{
		Name:            "Emails",
		Header:          EmailHeader,
		Rows:            rows,
		Highlight:       problemRow(2),
		HighlightColumn: 2,
	}
}
