package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/akmatori/zabbix-reports/internal/reports"
	"github.com/akmatori/zabbix-reports/internal/settings"
)

func TestForm_FillKeepsExplicitFlags(t *testing.T) {
	f := &form{}
	c := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	f.bind(c)

	if err := c.Flags().Parse([]string{"--host", "web-02", "--errors-only=false"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	f.fill(c, settings.Record{
		Server:     "https://zabbix.example.com",
		User:       "Admin",
		Host:       "web-01",
		ErrorsOnly: true,
		UserIDs:    "1,2",
	})

	if f.Host != "web-02" {
		t.Errorf("Expected explicit host kept, got %q", f.Host)
	}
	if f.ErrorsOnly {
		t.Error("Expected explicit --errors-only=false kept")
	}
	if f.Server != "https://zabbix.example.com" || f.User != "Admin" || f.UserIDs != "1,2" {
		t.Errorf("Expected stored values for unset flags, got %+v", f)
	}
}

func TestForm_Request(t *testing.T) {
	f := &form{
		Server:   " https://z ",
		User:     "Admin",
		Password: " secret ",
		Group:    "Linux",
		DueDate:  "2024-01-31",
		UserIDs:  "3, 1,3",
		Output:   "out.xlsx",
	}
	req := f.request(reports.KindEmails)

	if req.Server != " https://z " {
		t.Errorf("Expected server as entered, got %q", req.Server)
	}
	if req.Password != " secret " {
		t.Errorf("Expected password untouched, got %q", req.Password)
	}
	if len(req.Criteria.UserIDs) != 2 || req.Criteria.UserIDs[0] != "3" {
		t.Errorf("Expected user ids [3 1], got %v", req.Criteria.UserIDs)
	}
	if req.Criteria.UserIDsText != "3, 1,3" {
		t.Errorf("Expected user id text as entered, got %q", req.Criteria.UserIDsText)
	}
	if req.Kind != reports.KindEmails || req.OutputPath != "out.xlsx" || req.Criteria.DueDate != "2024-01-31" {
		t.Errorf("Unexpected request %+v", req)
	}
}

func TestPrompter_AllFields(t *testing.T) {
	f := &form{Group: "old group", Host: "old host", ErrorsOnly: true}
	input := strings.Join([]string{
		"https://zabbix.example.com", // server
		"Admin",                      // user
		"zabbix",                     // password
		"",                           // group kept
		"-",                          // host cleared
		"2024-01-01",                 // start date
		"",                           // end date
		"",                           // due date
		"4,5",                        // user ids
		"n",                          // errors only
		"yes",                        // fetch all attributes
	}, "\n") + "\n"

	var out bytes.Buffer
	p := newPrompter(strings.NewReader(input), &out)
	if err := p.promptAll(f); err != nil {
		t.Fatalf("promptAll returned error: %v", err)
	}

	if f.Server != "https://zabbix.example.com" || f.User != "Admin" || f.Password != "zabbix" {
		t.Errorf("Unexpected connection fields %+v", f)
	}
	if f.Group != "old group" {
		t.Errorf("Expected group kept, got %q", f.Group)
	}
	if f.Host != "" {
		t.Errorf("Expected host cleared, got %q", f.Host)
	}
	if f.StartDate != "2024-01-01" || f.UserIDs != "4,5" {
		t.Errorf("Unexpected criteria %+v", f)
	}
	if f.ErrorsOnly || !f.FetchAllAttributes {
		t.Errorf("Unexpected flags errors_only=%v fetch_all=%v", f.ErrorsOnly, f.FetchAllAttributes)
	}
	if !strings.Contains(out.String(), "Group [old group]: ") || !strings.Contains(out.String(), "Errors only [Y/n]: ") {
		t.Errorf("Unexpected prompts %q", out.String())
	}
}

func TestPrompter_MasksStoredPassword(t *testing.T) {
	f := &form{Password: "hunter2"}
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("\n"), &out)

	if err := p.promptAll(f, "password"); err != nil {
		t.Fatalf("promptAll returned error: %v", err)
	}
	if f.Password != "hunter2" {
		t.Errorf("Expected password kept, got %q", f.Password)
	}
	if strings.Contains(out.String(), "hunter2") {
		t.Errorf("Expected masked prompt, got %q", out.String())
	}
}

func TestPrompter_EOF(t *testing.T) {
	f := &form{}
	p := newPrompter(strings.NewReader("https://z"), &bytes.Buffer{})

	// last line without newline is accepted, the next prompt fails
	err := p.promptAll(f, "server", "user")
	if err == nil {
		t.Fatal("Expected error when input ends")
	}
	if f.Server != "https://z" {
		t.Errorf("Expected server read before EOF, got %q", f.Server)
	}
}
