package settings

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/akmatori/zabbix-reports/internal/triggers"
)

// CurrentVersion is the schema version written by Save
const CurrentVersion = 1

// Record is the persisted form state: server, credentials and the last used
// filter criteria
type Record struct {
	Version            int    `yaml:"version"`
	Server             string `yaml:"server"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Group              string `yaml:"group"`
	Host               string `yaml:"host"`
	StartDate          string `yaml:"start_date"`
	EndDate            string `yaml:"end_date"`
	DueDate            string `yaml:"due_date"`
	ErrorsOnly         bool   `yaml:"errors_only"`
	UserIDs            string `yaml:"user_ids"`
	FetchAllAttributes bool   `yaml:"fetch_all_attributes"`
}

// Criteria converts the stored filter fields
func (r Record) Criteria() triggers.Criteria {
	return triggers.Criteria{
		Group:              r.Group,
		Host:               r.Host,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		DueDate:            r.DueDate,
		ErrorsOnly:         r.ErrorsOnly,
		UserIDs:            triggers.ParseUserIDs(r.UserIDs),
		UserIDsText:        r.UserIDs,
		FetchAllAttributes: r.FetchAllAttributes,
	}
}

// Masked returns a copy safe to print
func (r Record) Masked() Record {
	if r.Password != "" {
		r.Password = "********"
	}
	return r
}

// Store loads and saves a Record at a fixed path
type Store struct {
	path   string
	sealer *Sealer
	logger *log.Logger
}

// NewStore creates a store. sealer may be nil, in which case the password is
// kept in plain text.
func NewStore(path string, sealer *Sealer, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{path: path, sealer: sealer, logger: logger}
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. A missing, unreadable or corrupt file yields
// an empty record; only the caller's form defaults are lost.
func (s *Store) Load() (Record, error) {
	empty := Record{Version: CurrentVersion}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Printf("Warning: could not read settings %s: %v", s.path, err)
		}
		return empty, nil
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		s.logger.Printf("Warning: ignoring corrupt settings %s: %v", s.path, err)
		return empty, nil
	}
	if rec.Version == 0 {
		rec.Version = CurrentVersion
	}
	if rec.Version > CurrentVersion {
		s.logger.Printf("Warning: ignoring settings %s with unsupported version %d", s.path, rec.Version)
		return empty, nil
	}

	if IsSealed(rec.Password) {
		if s.sealer == nil {
			s.logger.Printf("Warning: settings password is sealed but no passphrase is configured")
			rec.Password = ""
		} else if plain, err := s.sealer.Open(rec.Password); err != nil {
			s.logger.Printf("Warning: could not unseal settings password: %v", err)
			rec.Password = ""
		} else {
			rec.Password = plain
		}
	}

	return rec, nil
}

// Save overwrites the settings file with rec
func (s *Store) Save(rec Record) error {
	rec.Version = CurrentVersion

	if s.sealer != nil && rec.Password != "" {
		sealed, err := s.sealer.Seal(rec.Password)
		if err != nil {
			return fmt.Errorf("failed to seal password: %w", err)
		}
		rec.Password = sealed
	}

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", s.path, err)
	}
	return nil
}

// trimKey normalizes legacy text keys, "Start Date " -> "start date"
func trimKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
