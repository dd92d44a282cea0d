package testhelpers

import (
	"strconv"
	"time"
)

// ========================================
// Trigger Builder
// ========================================

// TriggerFixture builds a trigger.get result object
type TriggerFixture struct {
	id          string
	description string
	lastChange  string
	priority    string
	value       string
	hosts       []string
	tags        map[string]string
}

// NewTriggerFixture creates a trigger with sensible defaults
func NewTriggerFixture(id string) *TriggerFixture {
	return &TriggerFixture{
		id:          id,
		description: "Trigger " + id,
		lastChange:  strconv.FormatInt(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).Unix(), 10),
		priority:    "3",
		value:       "0",
		hosts:       []string{"host-" + id},
		tags:        map[string]string{},
	}
}

// WithDescription sets the expanded description
func (b *TriggerFixture) WithDescription(desc string) *TriggerFixture {
	b.description = desc
	return b
}

// WithLastChange sets the last change time
func (b *TriggerFixture) WithLastChange(t time.Time) *TriggerFixture {
	b.lastChange = strconv.FormatInt(t.Unix(), 10)
	return b
}

// WithRawLastChange sets the raw lastchange string, used for broken data
func (b *TriggerFixture) WithRawLastChange(raw string) *TriggerFixture {
	b.lastChange = raw
	return b
}

// WithPriority sets the priority (0-5)
func (b *TriggerFixture) WithPriority(p int) *TriggerFixture {
	b.priority = strconv.Itoa(p)
	return b
}

// Problem marks the trigger as being in problem state
func (b *TriggerFixture) Problem() *TriggerFixture {
	b.value = "1"
	return b
}

// WithHosts replaces the trigger hosts
func (b *TriggerFixture) WithHosts(hosts ...string) *TriggerFixture {
	b.hosts = hosts
	return b
}

// WithUser links the trigger to a user through the userid tag
func (b *TriggerFixture) WithUser(userID string) *TriggerFixture {
	b.tags["userid"] = userID
	return b
}

// Build returns the JSON object
func (b *TriggerFixture) Build() map[string]interface{} {
	hosts := make([]map[string]string, 0, len(b.hosts))
	for i, h := range b.hosts {
		hosts = append(hosts, map[string]string{
			"hostid": strconv.Itoa(10000 + i),
			"host":   h,
		})
	}
	tags := make([]map[string]string, 0, len(b.tags))
	for k, v := range b.tags {
		tags = append(tags, map[string]string{"tag": k, "value": v})
	}
	return map[string]interface{}{
		"triggerid":   b.id,
		"description": b.description,
		"lastchange":  b.lastChange,
		"priority":    b.priority,
		"value":       b.value,
		"hosts":       hosts,
		"tags":        tags,
	}
}

// ========================================
// User Builder
// ========================================

// UserFixture builds a user.get result object
type UserFixture struct {
	id       string
	username string
	sendTo   []interface{}
}

// NewUserFixture creates a user without media
func NewUserFixture(id, username string) *UserFixture {
	return &UserFixture{id: id, username: username}
}

// WithEmail adds an email media
func (b *UserFixture) WithEmail(email string) *UserFixture {
	b.sendTo = append(b.sendTo, email)
	return b
}

// WithMediaList adds a media whose sendto is a list, as older servers return
func (b *UserFixture) WithMediaList(addresses ...string) *UserFixture {
	b.sendTo = append(b.sendTo, addresses)
	return b
}

// Build returns the JSON object
func (b *UserFixture) Build() map[string]interface{} {
	medias := make([]map[string]interface{}, 0, len(b.sendTo))
	for _, s := range b.sendTo {
		medias = append(medias, map[string]interface{}{"sendto": s})
	}
	return map[string]interface{}{
		"userid":   b.id,
		"username": b.username,
		"medias":   medias,
	}
}
