package reports

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/akmatori/zabbix-reports/internal/database"
	"github.com/akmatori/zabbix-reports/internal/export"
	"github.com/akmatori/zabbix-reports/internal/notify"
	"github.com/akmatori/zabbix-reports/internal/settings"
	"github.com/akmatori/zabbix-reports/internal/triggers"
	"github.com/akmatori/zabbix-reports/internal/utils"
	"github.com/akmatori/zabbix-reports/internal/zabbix"
)

// SettingsSaver persists the form values of a successful operation
type SettingsSaver interface {
	Save(rec settings.Record) error
}

// HistoryRecorder stores finished runs
type HistoryRecorder interface {
	RecordRun(ctx context.Context, run *database.ExportRun) error
}

// Notifier announces written reports
type Notifier interface {
	NotifyExport(ctx context.Context, s notify.Summary) error
}

// Options wires the optional collaborators of a Service. Nil fields are
// skipped.
type Options struct {
	Settings SettingsSaver
	History  HistoryRecorder
	Notifier Notifier
	// Location for date windows and spreadsheet timestamps, time.Local if nil
	Location *time.Location
	Logger   *log.Logger
	// Observer receives every phase transition
	Observer func(Phase)
}

// Service runs exports against a Zabbix server, one at a time
type Service struct {
	client   *zabbix.Client
	settings SettingsSaver
	history  HistoryRecorder
	notifier Notifier
	location *time.Location
	logger   *log.Logger
	observer func(Phase)
	sem      *semaphore.Weighted
	now      func() time.Time
}

// NewService creates a Service
func NewService(client *zabbix.Client, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		client:   client,
		settings: opts.Settings,
		history:  opts.History,
		notifier: opts.Notifier,
		location: opts.Location,
		logger:   opts.Logger,
		observer: opts.Observer,
		sem:      semaphore.NewWeighted(1),
		now:      time.Now,
	}
}

func (s *Service) enter(p Phase) {
	if s.observer != nil {
		s.observer(p)
	}
}

// run is the bookkeeping of one Export call
type run struct {
	req      Request
	window   triggers.Window
	started  time.Time
	result   *Result
	recorded bool
}

// Export fetches triggers matching req, filters them by the date window and
// writes the spreadsheet of req.Kind. When nothing matches no file is
// written and the result carries a no_triggers warning.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	if !s.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.sem.Release(1)

	s.enter(PhaseValidating)
	r, err := s.prepare(req)
	if err != nil {
		s.enter(PhaseFailed)
		return nil, err
	}

	result, err := s.export(ctx, r)
	if err != nil {
		s.enter(PhaseFailed)
		s.record(ctx, r, err)
		return nil, err
	}

	s.saveSettings(r)
	s.record(ctx, r, nil)
	s.notify(ctx, r)

	s.enter(PhaseDone)
	return result, nil
}

func (s *Service) prepare(req Request) (*run, error) {
	if err := validateConnection(req); err != nil {
		return nil, err
	}
	if _, err := ParseKind(string(req.Kind)); err != nil {
		return nil, err
	}

	window, err := triggers.WindowFromCriteria(req.Criteria, s.location)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if strings.TrimSpace(req.OutputPath) == "" {
		req.OutputPath = utils.ReportFilename(string(req.Kind), strings.TrimSpace(req.Server), now)
	}
	if filepath.Ext(req.OutputPath) == "" {
		req.OutputPath += ".xlsx"
	}

	return &run{
		req:     req,
		window:  window,
		started: now,
		result:  &Result{Kind: req.Kind},
	}, nil
}

func validateConnection(req Request) error {
	switch {
	case strings.TrimSpace(req.Server) == "":
		return &ValidationError{Field: "server", Message: "Please enter Zabbix URL, username, and password."}
	case strings.TrimSpace(req.User) == "":
		return &ValidationError{Field: "user", Message: "Please enter Zabbix URL, username, and password."}
	case req.Password == "":
		return &ValidationError{Field: "password", Message: "Please enter Zabbix URL, username, and password."}
	}
	return nil
}

func (s *Service) export(ctx context.Context, r *run) (*Result, error) {
	s.enter(PhaseLoggingIn)
	session, err := s.client.Login(ctx, strings.TrimSpace(r.req.Server), strings.TrimSpace(r.req.User), r.req.Password)
	if err != nil {
		return nil, err
	}
	defer session.Logout(context.WithoutCancel(ctx))

	s.enter(PhaseFetching)
	fetched, err := session.Triggers(ctx, triggers.BuildFilter(r.req.Criteria))
	if err != nil {
		return nil, err
	}
	r.result.Fetched = len(fetched)

	s.enter(PhaseFiltering)
	kept, skipped := triggers.FilterByWindow(fetched, r.window, s.logger)
	r.result.Skipped = skipped
	for _, n := range skipped {
		r.result.Warnings = append(r.result.Warnings, Warning{
			Kind:    WarningSkippedTimestamp,
			Message: "Skipped " + n.String(),
		})
	}

	if r.req.Kind == KindEmails {
		kept = scopeToUsers(kept, r.req.Criteria.UserIDs)
	}

	if len(kept) == 0 {
		r.result.Warnings = append(r.result.Warnings, Warning{
			Kind:    WarningNoTriggers,
			Message: "No triggers found matching the criteria.",
		})
		r.result.Duration = s.now().Sub(r.started)
		return r.result, nil
	}

	var sheet export.Sheet
	switch r.req.Kind {
	case KindEmails:
		emails, warnings, err := s.lookupEmails(ctx, session, userIDsOf(kept), r.req.Criteria.FetchAllAttributes)
		if err != nil {
			return nil, err
		}
		r.result.Emails = emails
		r.result.Warnings = append(r.result.Warnings, warnings...)
		sheet = export.EmailSheet(kept, emails)
	default:
		sheet = export.TriggerSheet(kept, s.location)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.enter(PhaseExporting)
	if err := export.WriteSpreadsheet(r.req.OutputPath, sheet); err != nil {
		return nil, err
	}
	s.logger.Printf("Wrote %s to %s", utils.Plural(len(kept), "trigger"), r.req.OutputPath)

	r.result.OutputPath = r.req.OutputPath
	r.result.Exported = len(kept)
	for _, t := range kept {
		if t.IsProblem() {
			r.result.Problems++
		}
	}
	r.result.Duration = s.now().Sub(r.started)
	return r.result, nil
}

// scopeToUsers keeps the triggers assigned to one of ids. An empty id list
// keeps everything.
func scopeToUsers(list []triggers.Trigger, ids []string) []triggers.Trigger {
	if len(ids) == 0 {
		return list
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	scoped := make([]triggers.Trigger, 0, len(list))
	for _, t := range list {
		if wanted[t.UserID] {
			scoped = append(scoped, t)
		}
	}
	return scoped
}

// userIDsOf returns the distinct user ids referenced by list, sorted
func userIDsOf(list []triggers.Trigger) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range list {
		if t.UserID == "" || seen[t.UserID] {
			continue
		}
		seen[t.UserID] = true
		ids = append(ids, t.UserID)
	}
	sort.Strings(ids)
	return ids
}

// lookupEmails resolves ids to addresses. Ids without a usable address are
// reported as missing_email warnings and left out of the map.
func (s *Service) lookupEmails(ctx context.Context, session *zabbix.Session, ids []string, full bool) (map[string]string, []Warning, error) {
	emails := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return emails, nil, nil
	}

	users, err := session.Users(ctx, ids, full)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	for _, id := range ids {
		u, ok := users[id]
		switch {
		case !ok:
			warnings = append(warnings, Warning{Kind: WarningMissingEmail, Message: fmt.Sprintf("User %s not found", id)})
		case u.Email == "":
			warnings = append(warnings, Warning{Kind: WarningMissingEmail, Message: fmt.Sprintf("No email for user %s (%s)", id, u.Username)})
		default:
			emails[id] = u.Email
		}
	}
	return emails, warnings, nil
}

// FetchEmails looks up the addresses of req.Criteria.UserIDs, in the order
// given
func (s *Service) FetchEmails(ctx context.Context, req Request) (*EmailLookup, error) {
	if !s.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.sem.Release(1)

	s.enter(PhaseValidating)
	if err := validateConnection(req); err != nil {
		s.enter(PhaseFailed)
		return nil, err
	}
	ids := req.Criteria.UserIDs
	if len(ids) == 0 {
		s.enter(PhaseFailed)
		return nil, &ValidationError{Field: "user_ids", Message: "Please enter at least one user ID."}
	}

	s.enter(PhaseLoggingIn)
	session, err := s.client.Login(ctx, strings.TrimSpace(req.Server), strings.TrimSpace(req.User), req.Password)
	if err != nil {
		s.enter(PhaseFailed)
		return nil, err
	}
	defer session.Logout(context.WithoutCancel(ctx))

	s.enter(PhaseFetching)
	users, err := session.Users(ctx, ids, req.Criteria.FetchAllAttributes)
	if err != nil {
		s.enter(PhaseFailed)
		return nil, err
	}

	lookup := &EmailLookup{}
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			lookup.Warnings = append(lookup.Warnings, Warning{Kind: WarningMissingEmail, Message: fmt.Sprintf("User %s not found", id)})
			continue
		}
		if u.Email == "" {
			lookup.Warnings = append(lookup.Warnings, Warning{Kind: WarningMissingEmail, Message: fmt.Sprintf("No email for user %s (%s)", id, u.Username)})
		}
		lookup.Users = append(lookup.Users, u)
	}

	s.saveSettings(&run{req: req, result: &Result{}})
	s.enter(PhaseDone)
	return lookup, nil
}

// RecordFromRequest converts the form values into a settings record
func RecordFromRequest(req Request) settings.Record {
	c := req.Criteria
	return settings.Record{
		Version:            settings.CurrentVersion,
		Server:             req.Server,
		User:               req.User,
		Password:           req.Password,
		Group:              c.Group,
		Host:               c.Host,
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		DueDate:            c.DueDate,
		ErrorsOnly:         c.ErrorsOnly,
		UserIDs:            c.UserIDsInput(),
		FetchAllAttributes: c.FetchAllAttributes,
	}
}

// RequestFromRecord is the inverse of RecordFromRequest
func RequestFromRecord(kind Kind, rec settings.Record) Request {
	return Request{
		Kind:     kind,
		Server:   rec.Server,
		User:     rec.User,
		Password: rec.Password,
		Criteria: rec.Criteria(),
	}
}

func (s *Service) saveSettings(r *run) {
	if s.settings == nil {
		return
	}
	if err := s.settings.Save(RecordFromRequest(r.req)); err != nil {
		s.logger.Printf("Warning: failed to save settings: %v", err)
		r.result.Warnings = append(r.result.Warnings, Warning{
			Kind:    WarningSettingsNotSaved,
			Message: fmt.Sprintf("Settings were not saved: %v", err),
		})
	}
}

func (s *Service) record(ctx context.Context, r *run, runErr error) {
	if s.history == nil || r.recorded {
		return
	}
	r.recorded = true

	finished := s.now()
	entry := &database.ExportRun{
		Kind:        string(r.req.Kind),
		Server:      strings.TrimSpace(r.req.Server),
		User:        strings.TrimSpace(r.req.User),
		Criteria:    criteriaJSON(r.req.Criteria),
		OutputPath:  r.result.OutputPath,
		Status:      database.RunStatusCompleted,
		Fetched:     r.result.Fetched,
		Exported:    r.result.Exported,
		Problems:    r.result.Problems,
		Skipped:     len(r.result.Skipped),
		Warnings:    len(r.result.Warnings),
		DurationMs:  finished.Sub(r.started).Milliseconds(),
		StartedAt:   r.started,
		CompletedAt: &finished,
	}
	switch {
	case runErr != nil:
		entry.Status = database.RunStatusFailed
		entry.Error = runErr.Error()
	case r.result.HasWarning(WarningNoTriggers):
		entry.Status = database.RunStatusNoTriggers
	}

	if err := s.history.RecordRun(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Printf("Warning: failed to record export history: %v", err)
		return
	}
	r.result.RunID = entry.UUID
}

func (s *Service) notify(ctx context.Context, r *run) {
	if s.notifier == nil || r.result.OutputPath == "" {
		return
	}

	warnings := make([]string, 0, len(r.result.Warnings))
	for _, w := range r.result.Warnings {
		warnings = append(warnings, w.Message)
	}
	summary := notify.Summary{
		Kind:       string(r.req.Kind),
		Server:     strings.TrimSpace(r.req.Server),
		OutputPath: r.result.OutputPath,
		Exported:   r.result.Exported,
		Problems:   r.result.Problems,
		Skipped:    len(r.result.Skipped),
		Warnings:   warnings,
		Duration:   r.result.Duration,
	}
	if err := s.notifier.NotifyExport(ctx, summary); err != nil {
		s.logger.Printf("Warning: export notification failed: %v", err)
	}
}

func criteriaJSON(c triggers.Criteria) database.JSONB {
	j := database.JSONB{
		"errors_only":          c.ErrorsOnly,
		"fetch_all_attributes": c.FetchAllAttributes,
	}
	for key, value := range map[string]string{
		"group":      c.Group,
		"host":       c.Host,
		"start_date": c.StartDate,
		"end_date":   c.EndDate,
		"due_date":   c.DueDate,
		"user_ids":   triggers.JoinUserIDs(c.UserIDs),
	} {
		if value != "" {
			j[key] = value
		}
	}
	return j
}
