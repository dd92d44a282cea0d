package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ========================================
// Fake Slack server
// ========================================

// SlackMessage is one chat.postMessage call received by FakeSlack
type SlackMessage struct {
	Channel string
	Text    string
	Token   string
}

// FakeSlack answers chat.postMessage like the Slack Web API
type FakeSlack struct {
	Server *httptest.Server
	// Fail makes every call answer {"ok": false}
	Fail bool

	mu       sync.Mutex
	messages []SlackMessage
}

// NewFakeSlack starts a fake Slack API closed at test end
func NewFakeSlack(t *testing.T) *FakeSlack {
	t.Helper()
	f := &FakeSlack{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// APIURL returns the base URL to pass to slack.OptionAPIURL
func (f *FakeSlack) APIURL() string {
	return f.Server.URL + "/api/"
}

// Messages returns the received messages
func (f *FakeSlack) Messages() []SlackMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SlackMessage(nil), f.messages...)
}

func (f *FakeSlack) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path != "/api/chat.postMessage" {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "unknown_method"})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if f.Fail {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "channel_not_found"})
		return
	}

	token := r.FormValue("token")
	if auth := r.Header.Get("Authorization"); len(auth) > len("Bearer ") {
		token = auth[len("Bearer "):]
	}

	f.mu.Lock()
	f.messages = append(f.messages, SlackMessage{
		Channel: r.FormValue("channel"),
		Text:    r.FormValue("text"),
		Token:   token,
	})
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":      true,
		"channel": r.FormValue("channel"),
		"ts":      "1700000000.000100",
	})
}
