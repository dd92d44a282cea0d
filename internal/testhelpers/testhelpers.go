// Package testhelpers provides reusable testing utilities for zabbix-reports.
//
// This package contains:
// - A fake Zabbix JSON-RPC server
// - Trigger and user fixture builders
// - A fake Slack API server
// - Assertion helpers
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ========================================
// Fake Zabbix server
// ========================================

// RecordedCall is one JSON-RPC call received by FakeZabbix
type RecordedCall struct {
	Method string
	Params json.RawMessage
	// Auth is the "auth" request field, Bearer the Authorization header token
	Auth   string
	Bearer string
}

// FakeZabbix is an httptest server answering the Zabbix API methods used by
// the reports
type FakeZabbix struct {
	T      *testing.T
	Server *httptest.Server

	Version  string
	Username string
	Password string
	Token    string

	FailLogout  bool
	FailTrigger bool

	mu       sync.Mutex
	triggers []map[string]interface{}
	users    []map[string]interface{}
	calls    []RecordedCall
}

// NewFakeZabbix starts a fake server that is closed when the test ends
func NewFakeZabbix(t *testing.T) *FakeZabbix {
	t.Helper()
	f := &FakeZabbix{
		T:        t,
		Version:  "6.0.0",
		Username: "Admin",
		Password: "zabbix",
		Token:    "0424bd59b807674191e7d77572075f33",
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server base URL (without /api_jsonrpc.php)
func (f *FakeZabbix) URL() string {
	return f.Server.URL
}

// WithVersion sets the version answered to apiinfo.version
func (f *FakeZabbix) WithVersion(v string) *FakeZabbix {
	f.Version = v
	return f
}

// WithTriggers adds trigger fixtures returned by trigger.get
func (f *FakeZabbix) WithTriggers(triggers ...*TriggerFixture) *FakeZabbix {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tr := range triggers {
		f.triggers = append(f.triggers, tr.Build())
	}
	return f
}

// WithUsers adds user fixtures returned by user.get
func (f *FakeZabbix) WithUsers(users ...*UserFixture) *FakeZabbix {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range users {
		f.users = append(f.users, u.Build())
	}
	return f
}

// Calls returns recorded calls for method, or every call when method is empty
func (f *FakeZabbix) Calls(method string) []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []RecordedCall
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// DecodeParams decodes the params of call into v
func (f *FakeZabbix) DecodeParams(call RecordedCall, v interface{}) {
	f.T.Helper()
	if err := json.Unmarshal(call.Params, v); err != nil {
		f.T.Fatalf("failed to decode %s params: %v", call.Method, err)
	}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Auth    string          `json:"auth"`
	ID      uint64          `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (f *FakeZabbix) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api_jsonrpc.php" {
		http.NotFound(w, r)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	call := RecordedCall{
		Method: req.Method,
		Params: req.Params,
		Auth:   req.Auth,
		Bearer: strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	var result interface{}
	var rerr *rpcError

	switch req.Method {
	case "apiinfo.version":
		result = f.Version
	case "user.login":
		result, rerr = f.login(req.Params)
	case "trigger.get":
		if rerr = f.checkAuth(call); rerr == nil {
			if f.FailTrigger {
				rerr = &rpcError{Code: -32500, Message: "Application error.", Data: "SQL statement execution has failed."}
			} else {
				f.mu.Lock()
				result = f.triggers
				f.mu.Unlock()
			}
		}
	case "user.get":
		if rerr = f.checkAuth(call); rerr == nil {
			result = f.userGet(req.Params)
		}
	case "user.logout":
		if rerr = f.checkAuth(call); rerr == nil {
			if f.FailLogout {
				rerr = &rpcError{Code: -32500, Message: "Application error.", Data: "Session terminated."}
			} else {
				result = true
			}
		}
	default:
		rerr = &rpcError{Code: -32601, Message: "Method not found.", Data: "Incorrect API \"" + req.Method + "\"."}
	}

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		if result == nil {
			result = []interface{}{}
		}
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *FakeZabbix) login(raw json.RawMessage) (interface{}, *rpcError) {
	var params map[string]string
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcError{Code: -32602, Message: "Invalid params."}
	}
	user, ok := params["username"]
	if !ok {
		user = params["user"]
	}
	if user != f.Username || params["password"] != f.Password {
		return nil, &rpcError{Code: -32602, Message: "Invalid params.", Data: "Incorrect user name or password or account is temporarily blocked."}
	}
	return f.Token, nil
}

func (f *FakeZabbix) checkAuth(call RecordedCall) *rpcError {
	if call.Auth == f.Token || call.Bearer == f.Token {
		return nil
	}
	return &rpcError{Code: -32602, Message: "Invalid params.", Data: "Not authorised."}
}

func (f *FakeZabbix) userGet(raw json.RawMessage) []map[string]interface{} {
	var params struct {
		UserIDs []string `json:"userids"`
	}
	_ = json.Unmarshal(raw, &params)

	wanted := make(map[string]bool)
	for _, id := range params.UserIDs {
		wanted[id] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := []map[string]interface{}{}
	for _, u := range f.users {
		if id, _ := u["userid"].(string); len(wanted) == 0 || wanted[id] {
			out = append(out, u)
		}
	}
	return out
}
