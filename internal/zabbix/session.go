package zabbix

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/akmatori/zabbix-reports/internal/triggers"
)

// UserTag is the trigger tag that links a trigger to a Zabbix user id
const UserTag = "userid"

// Session is an authenticated connection. Sessions are not shared between
// export operations.
type Session struct {
	client  *Client
	apiURL  string
	token   string
	version APIVersion
	users   *userCache

	mu        sync.Mutex
	loggedOut bool
}

// Version returns the API version negotiated at login
func (s *Session) Version() APIVersion {
	return s.version
}

func (s *Session) request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	// Authorization header is accepted from 6.4, the auth field is gone in 7.2
	bearer := s.version.AtLeast(6, 4)
	return s.client.call(ctx, s.apiURL, method, params, s.token, bearer)
}

// flexString accepts both JSON strings and numbers
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

type triggerDTO struct {
	TriggerID   flexString `json:"triggerid"`
	Description string     `json:"description"`
	LastChange  flexString `json:"lastchange"`
	Priority    flexString `json:"priority"`
	Value       flexString `json:"value"`
	Hosts       []struct {
		HostID flexString `json:"hostid"`
		Host   string     `json:"host"`
	} `json:"hosts"`
	Tags []struct {
		Tag   string `json:"tag"`
		Value string `json:"value"`
	} `json:"tags"`
}

func (d triggerDTO) toTrigger() triggers.Trigger {
	t := triggers.Trigger{
		ID:          string(d.TriggerID),
		Description: d.Description,
		LastChange:  string(d.LastChange),
		Value:       triggers.ParseState(string(d.Value)),
	}

	// Unknown priorities stay at -1 so they render as "Unknown"
	t.Priority = -1
	if p, err := strconv.Atoi(strings.TrimSpace(string(d.Priority))); err == nil {
		t.Priority = p
	}

	for _, h := range d.Hosts {
		t.Hosts = append(t.Hosts, h.Host)
	}
	for _, tag := range d.Tags {
		if strings.EqualFold(tag.Tag, UserTag) && strings.TrimSpace(tag.Value) != "" {
			t.UserID = strings.TrimSpace(tag.Value)
			break
		}
	}
	return t
}

// TriggerParams builds trigger.get parameters around an assembled filter
// dictionary (see triggers.BuildFilter)
func TriggerParams(filter map[string]interface{}) map[string]interface{} {
	if filter == nil {
		filter = map[string]interface{}{}
	}
	return map[string]interface{}{
		"output":            []string{"triggerid", "description", "lastchange", "priority", "value"},
		"selectHosts":       []string{"host"},
		"selectTags":        "extend",
		"filter":            filter,
		"expandDescription": 1,
		"monitored":         1,
	}
}

// Triggers runs trigger.get with the given filter dictionary
func (s *Session) Triggers(ctx context.Context, filter map[string]interface{}) ([]triggers.Trigger, error) {
	result, err := s.request(ctx, "trigger.get", TriggerParams(filter))
	if err != nil {
		return nil, fmt.Errorf("error fetching triggers: %w", err)
	}

	var dtos []triggerDTO
	if err := json.Unmarshal(result, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse triggers: %w", err)
	}

	list := make([]triggers.Trigger, 0, len(dtos))
	for _, d := range dtos {
		list = append(list, d.toTrigger())
	}
	return list, nil
}

type userDTO struct {
	UserID   flexString `json:"userid"`
	Username string     `json:"username"`
	Alias    string     `json:"alias"`
	Medias   []struct {
		SendTo json.RawMessage `json:"sendto"`
	} `json:"medias"`
}

func (d userDTO) toUser() triggers.User {
	u := triggers.User{
		ID:       string(d.UserID),
		Username: d.Username,
	}
	if u.Username == "" {
		u.Username = d.Alias
	}
	for _, m := range d.Medias {
		if email := emailFromSendTo(m.SendTo); email != "" {
			u.Email = email
			break
		}
	}
	return u
}

// emailFromSendTo handles "sendto" as either a string or a list of strings
func emailFromSendTo(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.Contains(single, "@") {
			return strings.TrimSpace(single)
		}
		return ""
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, s := range many {
			if strings.Contains(s, "@") {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// UserParams builds user.get parameters
func UserParams(ids []string, fullAttributes bool) map[string]interface{} {
	params := map[string]interface{}{
		"userids":      ids,
		"selectMedias": []string{"sendto"},
	}
	if fullAttributes {
		params["output"] = "extend"
	} else {
		params["output"] = []string{"userid", "username"}
	}
	return params
}

// Users looks up users by id. Ids already resolved in this session are
// served from memory. Unknown ids are absent from the returned map.
func (s *Session) Users(ctx context.Context, ids []string, fullAttributes bool) (map[string]triggers.User, error) {
	found, missing := s.users.lookup(ids)
	if len(missing) == 0 {
		return found, nil
	}

	sort.Strings(missing)
	params := UserParams(missing, fullAttributes)
	if !fullAttributes && !s.version.AtLeast(5, 4) {
		params["output"] = []string{"userid", "alias"}
	}

	result, err := s.request(ctx, "user.get", params)
	if err != nil {
		return nil, fmt.Errorf("error fetching users: %w", err)
	}

	var dtos []userDTO
	if err := json.Unmarshal(result, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}

	fetched := make([]triggers.User, 0, len(dtos))
	for _, d := range dtos {
		u := d.toUser()
		fetched = append(fetched, u)
		found[u.ID] = u
	}
	s.users.store(missing, fetched)

	return found, nil
}

// Logout ends the session. Failures are logged and otherwise ignored.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	if s.loggedOut {
		s.mu.Unlock()
		return
	}
	s.loggedOut = true
	s.mu.Unlock()

	if _, err := s.request(ctx, "user.logout", []string{}); err != nil {
		s.client.logger.Printf("Warning: logout from %s failed: %v", s.apiURL, err)
		return
	}
	s.client.logger.Printf("Logged out from %s", s.apiURL)
}
