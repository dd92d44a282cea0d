package triggers

import "strings"

// Criteria holds the operator's filter input
type Criteria struct {
	Group              string
	Host               string
	StartDate          string
	EndDate            string
	DueDate            string
	ErrorsOnly         bool
	UserIDs            []string
	// UserIDsText is the id list as the operator typed it
	UserIDsText        string
	FetchAllAttributes bool
}

// BuildFilter assembles the trigger.get filter dictionary. Empty criteria are
// left out entirely rather than sent as wildcards.
func BuildFilter(c Criteria) map[string]interface{} {
	filter := make(map[string]interface{})

	if group := strings.TrimSpace(c.Group); group != "" {
		filter["group"] = group
	}
	if host := strings.TrimSpace(c.Host); host != "" {
		filter["host"] = host
	}
	if c.ErrorsOnly {
		filter["value"] = int(StateProblem)
	}

	return filter
}

// ParseUserIDs splits a comma-joined id list. Blanks and duplicates are
// dropped, order is kept.
func ParseUserIDs(raw string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// JoinUserIDs is the inverse of ParseUserIDs
func JoinUserIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// UserIDsInput returns the id list as entered, or the joined parsed ids when
// no text was captured
func (c Criteria) UserIDsInput() string {
	if c.UserIDsText != "" {
		return c.UserIDsText
	}
	return JoinUserIDs(c.UserIDs)
}
