package zabbix

import (
	"sync"

	"github.com/akmatori/zabbix-reports/internal/triggers"
)

// userCache holds users resolved during one session. Ids the server did not
// know are remembered too so they are not requested again.
type userCache struct {
	mu      sync.RWMutex
	entries map[string]triggers.User
	unknown map[string]bool
}

func newUserCache() *userCache {
	return &userCache{
		entries: make(map[string]triggers.User),
		unknown: make(map[string]bool),
	}
}

// lookup splits ids into cached users and ids that still need a request
func (c *userCache) lookup(ids []string) (map[string]triggers.User, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found := make(map[string]triggers.User)
	var missing []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if u, ok := c.entries[id]; ok {
			found[id] = u
			continue
		}
		if c.unknown[id] {
			continue
		}
		missing = append(missing, id)
	}
	return found, missing
}

// store records fetched users; requested ids not among them become unknown
func (c *userCache) store(requested []string, fetched []triggers.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range fetched {
		c.entries[u.ID] = u
	}
	for _, id := range requested {
		if _, ok := c.entries[id]; !ok {
			c.unknown[id] = true
		}
	}
}

// Len returns the number of resolved users
func (c *userCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
