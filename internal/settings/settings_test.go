package settings

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fullRecord() Record {
	return Record{
		Version:            CurrentVersion,
		Server:             "https://zabbix.example.com",
		User:               "Admin",
		Password:           "p=ss word",
		Group:              "",
		Host:               "  web-01 ",
		StartDate:          "2024-01-01",
		EndDate:            "",
		DueDate:            "2024-02-01",
		ErrorsOnly:         true,
		UserIDs:            "1, 2,3",
		FetchAllAttributes: true,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewStore(path, nil, nil)

	want := fullRecord()
	if err := store.Save(want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewStore(path, nil, nil)

	if err := store.Save(fullRecord()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	second := Record{Server: "https://other.example.com"}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, _ := store.Load()
	if got.Server != second.Server || got.User != "" || got.ErrorsOnly {
		t.Errorf("Expected only the second record, got %+v", got)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	if err := NewStore(path, nil, nil).Save(fullRecord()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected mode 0600, got %o", perm)
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.yaml"), nil, nil)
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if got != (Record{Version: CurrentVersion}) {
		t.Errorf("Expected empty record, got %+v", got)
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0600); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	var buf bytes.Buffer
	store := NewStore(path, nil, log.New(&buf, "", 0))
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Expected no error for corrupt file, got %v", err)
	}
	if got.Server != "" {
		t.Errorf("Expected empty record, got %+v", got)
	}
	if !strings.Contains(buf.String(), "Warning: ignoring corrupt settings") {
		t.Errorf("Expected corrupt warning in log, got %q", buf.String())
	}
}

func TestStore_LoadFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("version: 9\nserver: https://x\n"), 0600); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	got, _ := NewStore(path, nil, nil).Load()
	if got.Server != "" {
		t.Errorf("Expected unsupported version to be ignored, got %+v", got)
	}
}

func TestStore_SealedPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewStore(path, NewSealer("correct horse"), nil)

	want := fullRecord()
	if err := store.Save(want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if strings.Contains(string(data), want.Password) {
		t.Error("Expected password not to be stored in plain text")
	}
	if !strings.Contains(string(data), sealedPrefix) {
		t.Error("Expected sealed password marker in file")
	}

	got, _ := store.Load()
	if got.Password != want.Password {
		t.Errorf("Expected password %q, got %q", want.Password, got.Password)
	}

	// Wrong passphrase drops only the password
	var buf bytes.Buffer
	other := NewStore(path, NewSealer("wrong"), log.New(&buf, "", 0))
	got, _ = other.Load()
	if got.Password != "" || got.Server != want.Server {
		t.Errorf("Expected server kept and password cleared, got %+v", got)
	}
	if !strings.Contains(buf.String(), "could not unseal") {
		t.Errorf("Expected unseal warning, got %q", buf.String())
	}

	// No passphrase at all
	got, _ = NewStore(path, nil, nil).Load()
	if got.Password != "" {
		t.Errorf("Expected password cleared without passphrase, got %q", got.Password)
	}
}

func TestSealer(t *testing.T) {
	if NewSealer("") != nil {
		t.Error("Expected nil sealer for empty passphrase")
	}

	s := NewSealer("pass")
	a, err := s.Seal("secret")
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	b, _ := s.Seal("secret")
	if a == b {
		t.Error("Expected distinct ciphertexts for repeated seals")
	}

	plain, err := s.Open(a)
	if err != nil || plain != "secret" {
		t.Errorf("Expected secret, got %q (err %v)", plain, err)
	}

	if _, err := s.Open("secret"); err == nil {
		t.Error("Expected error opening unsealed value")
	}
	if _, err := s.Open(sealedPrefix + "AAAA"); err == nil {
		t.Error("Expected error opening short value")
	}
}

func TestRecord_Criteria(t *testing.T) {
	c := fullRecord().Criteria()
	if c.Host != "  web-01 " || c.DueDate != "2024-02-01" || !c.ErrorsOnly || !c.FetchAllAttributes {
		t.Errorf("Unexpected criteria %+v", c)
	}
	if len(c.UserIDs) != 3 || c.UserIDs[0] != "1" || c.UserIDs[2] != "3" {
		t.Errorf("Expected user ids [1 2 3], got %v", c.UserIDs)
	}
}

func TestRecord_Masked(t *testing.T) {
	if got := fullRecord().Masked().Password; got != "********" {
		t.Errorf("Expected masked password, got %q", got)
	}
	if got := (Record{}).Masked().Password; got != "" {
		t.Errorf("Expected empty password to stay empty, got %q", got)
	}
}
