package zabbix

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/akmatori/zabbix-reports/internal/testhelpers"
	"github.com/akmatori/zabbix-reports/internal/triggers"
)

func newTestClient() *Client {
	logger := log.New(os.Stdout, "test: ", log.LstdFlags)
	return NewClient(Config{Timeout: 5 * time.Second, VerifySSL: true}, logger)
}

func TestAPIURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://zabbix.example.com", "https://zabbix.example.com/api_jsonrpc.php"},
		{"https://zabbix.example.com/", "https://zabbix.example.com/api_jsonrpc.php"},
		{"https://zabbix.example.com/zabbix/api_jsonrpc.php", "https://zabbix.example.com/zabbix/api_jsonrpc.php"},
		{" http://10.0.0.1/zabbix ", "http://10.0.0.1/zabbix/api_jsonrpc.php"},
	}
	for _, tt := range tests {
		if got := APIURL(tt.in); got != tt.want {
			t.Errorf("APIURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAPIVersion(t *testing.T) {
	v, err := ParseAPIVersion("6.4.12")
	if err != nil {
		t.Fatalf("ParseAPIVersion returned error: %v", err)
	}
	if v.Major != 6 || v.Minor != 4 {
		t.Errorf("Expected 6.4, got %s", v)
	}
	if !v.AtLeast(5, 4) || !v.AtLeast(6, 4) || v.AtLeast(6, 5) || v.AtLeast(7, 0) {
		t.Errorf("Unexpected AtLeast results for %s", v)
	}

	for _, bad := range []string{"", "7", "x.y", "6.x"} {
		if _, err := ParseAPIVersion(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: -32602, Message: "Invalid params.", Data: "Not authorised."}
	want := "Zabbix API error: Invalid params. (code: -32602, data: Not authorised.)"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestJSONRPCRequest_NoAuth(t *testing.T) {
	req := JSONRPCRequest{JSONRPC: "2.0", Method: "user.login", Params: map[string]string{"username": "Admin"}, ID: 1}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, ok := decoded["auth"]; ok {
		t.Error("Expected auth to be omitted")
	}
}

func TestLogin_Success(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t)
	client := newTestClient()

	session, err := client.Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.token != fake.Token {
		t.Errorf("Expected token %s, got %s", fake.Token, session.token)
	}
	if session.Version() != (APIVersion{Major: 6, Minor: 0}) {
		t.Errorf("Expected API 6.0, got %s", session.Version())
	}

	logins := fake.Calls("user.login")
	if len(logins) != 1 {
		t.Fatalf("Expected 1 login call, got %d", len(logins))
	}
	var params map[string]string
	fake.DecodeParams(logins[0], &params)
	if params["username"] != "Admin" {
		t.Errorf("Expected username param, got %v", params)
	}
}

func TestLogin_LegacyUserParam(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t).WithVersion("5.0.30")
	client := newTestClient()

	if _, err := client.Login(context.Background(), fake.URL(), "Admin", "zabbix"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	var params map[string]string
	fake.DecodeParams(fake.Calls("user.login")[0], &params)
	if _, ok := params["username"]; ok {
		t.Error("Expected legacy servers to receive 'user', not 'username'")
	}
	if params["user"] != "Admin" {
		t.Errorf("Expected user param, got %v", params)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t)
	client := newTestClient()

	_, err := client.Login(context.Background(), fake.URL(), "Admin", "wrong")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthError, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Expected wrapped *APIError, got %v", err)
	}
}

func TestLogin_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient().Login(context.Background(), url, "Admin", "zabbix")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthError for connection failure, got %v", err)
	}
}

func TestLogin_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient().Login(context.Background(), server.URL, "Admin", "zabbix")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthError, got %v", err)
	}
}

func TestTriggers_ParsesResult(t *testing.T) {
	changed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := testhelpers.NewFakeZabbix(t).WithTriggers(
		testhelpers.NewTriggerFixture("100").
			WithDescription("CPU load is too high on db-01").
			WithLastChange(changed).
			WithPriority(4).
			Problem().
			WithHosts("db-01", "db-02").
			WithUser("7"),
		testhelpers.NewTriggerFixture("101"),
	)

	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	list, err := session.Triggers(context.Background(), map[string]interface{}{"host": "db-01"})
	if err != nil {
		t.Fatalf("Triggers returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 triggers, got %d", len(list))
	}

	first := list[0]
	if first.ID != "100" || first.Description != "CPU load is too high on db-01" {
		t.Errorf("Unexpected trigger %+v", first)
	}
	if ts, _ := first.LastChangeUnix(); ts != changed.Unix() {
		t.Errorf("Expected last change %d, got %d", changed.Unix(), ts)
	}
	if first.Priority != 4 || !first.IsProblem() {
		t.Errorf("Expected priority 4 in problem state, got %d / %s", first.Priority, first.Value)
	}
	if !reflect.DeepEqual(first.Hosts, []string{"db-01", "db-02"}) {
		t.Errorf("Unexpected hosts %v", first.Hosts)
	}
	if first.UserID != "7" {
		t.Errorf("Expected user id 7, got %q", first.UserID)
	}
	if list[1].UserID != "" || list[1].IsProblem() {
		t.Errorf("Unexpected second trigger %+v", list[1])
	}
}

func TestTriggers_RequestShape(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t)
	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	filter := triggers.BuildFilter(triggers.Criteria{Group: "Linux servers", ErrorsOnly: true})
	if _, err := session.Triggers(context.Background(), filter); err != nil {
		t.Fatalf("Triggers returned error: %v", err)
	}

	calls := fake.Calls("trigger.get")
	if len(calls) != 1 {
		t.Fatalf("Expected 1 trigger.get call, got %d", len(calls))
	}
	if calls[0].Auth != fake.Token {
		t.Errorf("Expected auth field on 6.0, got %q", calls[0].Auth)
	}

	var params map[string]interface{}
	fake.DecodeParams(calls[0], &params)

	sent, _ := params["filter"].(map[string]interface{})
	want := map[string]interface{}{"group": "Linux servers", "value": float64(1)}
	if !reflect.DeepEqual(sent, want) {
		t.Errorf("Expected filter %v, got %v", want, sent)
	}
	if params["expandDescription"] != float64(1) || params["monitored"] != float64(1) {
		t.Errorf("Expected expandDescription and monitored, got %v", params)
	}
}

func TestTriggers_EmptyFilterSentAsEmptyObject(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t)
	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := session.Triggers(context.Background(), nil); err != nil {
		t.Fatalf("Triggers returned error: %v", err)
	}

	var params map[string]json.RawMessage
	fake.DecodeParams(fake.Calls("trigger.get")[0], &params)
	if string(params["filter"]) != "{}" {
		t.Errorf("Expected empty filter object, got %s", params["filter"])
	}
}

func TestTriggers_BearerOnNewServers(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t).WithVersion("7.0.0")
	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := session.Triggers(context.Background(), nil); err != nil {
		t.Fatalf("Triggers returned error: %v", err)
	}

	call := fake.Calls("trigger.get")[0]
	if call.Auth != "" {
		t.Errorf("Expected no auth field on 7.0, got %q", call.Auth)
	}
	if call.Bearer != fake.Token {
		t.Errorf("Expected bearer token, got %q", call.Bearer)
	}
}

func TestTriggers_APIError(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t)
	fake.FailTrigger = true
	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	_, err = session.Triggers(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
}

func TestUsers_EmailsAndCache(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t).WithUsers(
		testhelpers.NewUserFixture("1", "alice").WithEmail("alice@example.com"),
		testhelpers.NewUserFixture("2", "bob").WithEmail("+15550100").WithMediaList("bob@example.com"),
		testhelpers.NewUserFixture("3", "carol"),
	)
	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	users, err := session.Users(context.Background(), []string{"1", "2", "3", "99"}, false)
	if err != nil {
		t.Fatalf("Users returned error: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("Expected 3 users, got %d", len(users))
	}
	if users["1"].Email != "alice@example.com" {
		t.Errorf("Unexpected email for 1: %q", users["1"].Email)
	}
	if users["2"].Email != "bob@example.com" {
		t.Errorf("Unexpected email for 2: %q", users["2"].Email)
	}
	if users["3"].Email != "" {
		t.Errorf("Expected no email for 3, got %q", users["3"].Email)
	}

	// Second lookup is served from the session cache, unknown ids included
	again, err := session.Users(context.Background(), []string{"2", "99"}, false)
	if err != nil {
		t.Fatalf("Users returned error: %v", err)
	}
	if len(again) != 1 || again["2"].Username != "bob" {
		t.Errorf("Unexpected cached result %v", again)
	}
	if n := len(fake.Calls("user.get")); n != 1 {
		t.Errorf("Expected 1 user.get call, got %d", n)
	}
	if session.users.Len() != 3 {
		t.Errorf("Expected 3 cached users, got %d", session.users.Len())
	}
}

func TestUsers_OutputModes(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t)
	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if _, err := session.Users(context.Background(), []string{"5"}, true); err != nil {
		t.Fatalf("Users returned error: %v", err)
	}

	var params map[string]interface{}
	fake.DecodeParams(fake.Calls("user.get")[0], &params)
	if params["output"] != "extend" {
		t.Errorf("Expected output extend, got %v", params["output"])
	}

	basic := UserParams([]string{"5"}, false)
	if !reflect.DeepEqual(basic["output"], []string{"userid", "username"}) {
		t.Errorf("Unexpected basic output %v", basic["output"])
	}
}

func TestLogout_BestEffort(t *testing.T) {
	fake := testhelpers.NewFakeZabbix(t)
	fake.FailLogout = true
	session, err := newTestClient().Login(context.Background(), fake.URL(), "Admin", "zabbix")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	session.Logout(context.Background())
	session.Logout(context.Background())

	if n := len(fake.Calls("user.logout")); n != 1 {
		t.Errorf("Expected a single logout call, got %d", n)
	}
}

func TestRateLimiter_Configured(t *testing.T) {
	client := NewClient(Config{RateLimit: 5, RateBurst: 0}, nil)
	if client.limiter == nil {
		t.Fatal("Expected limiter to be configured")
	}
	if client.limiter.Burst() != 1 {
		t.Errorf("Expected burst 1, got %d", client.limiter.Burst())
	}
	if NewClient(Config{}, nil).limiter != nil {
		t.Error("Expected no limiter when rate is zero")
	}
}

func TestFlexString(t *testing.T) {
	var dto triggerDTO
	if err := json.Unmarshal([]byte(`{"triggerid": 13, "lastchange": 1700000000, "priority": "2", "value": 1}`), &dto); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	tr := dto.toTrigger()
	if tr.ID != "13" || tr.LastChange != "1700000000" || tr.Priority != 2 || !tr.IsProblem() {
		t.Errorf("Unexpected trigger %+v", tr)
	}
}
