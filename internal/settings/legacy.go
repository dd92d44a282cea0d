package settings

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// legacyJSON is the settings object written by the email export tool
type legacyJSON struct {
	Server             string          `json:"server"`
	User               string          `json:"user"`
	Password           string          `json:"password"`
	GroupID            string          `json:"group_id"`
	ServerName         string          `json:"server_name"`
	DueDate            string          `json:"due_date"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	ErrorsOnly         bool            `json:"errors_only"`
	UserIDs            json.RawMessage `json:"user_ids"`
	FetchAllAttributes bool            `json:"fetch_all_attributes"`
}

// ImportLegacy reads a settings file of either older format: a JSON object,
// or newline separated Key=Value pairs (URL, User, Password, Group, Host,
// Start Date, End Date)
func ImportLegacy(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return parseLegacyJSON(trimmed)
	}
	return parseLegacyText(data)
}

func parseLegacyJSON(data []byte) (Record, error) {
	var legacy legacyJSON
	if err := json.Unmarshal(data, &legacy); err != nil {
		return Record{}, fmt.Errorf("failed to parse JSON settings: %w", err)
	}

	rec := Record{
		Version:            CurrentVersion,
		Server:             legacy.Server,
		User:               legacy.User,
		Password:           legacy.Password,
		Group:              legacy.GroupID,
		Host:               legacy.ServerName,
		StartDate:          legacy.StartDate,
		EndDate:            legacy.EndDate,
		DueDate:            legacy.DueDate,
		ErrorsOnly:         legacy.ErrorsOnly,
		FetchAllAttributes: legacy.FetchAllAttributes,
	}

	// user_ids is normally a comma-joined string, accept a list too
	if len(legacy.UserIDs) > 0 {
		var joined string
		var list []string
		switch {
		case json.Unmarshal(legacy.UserIDs, &joined) == nil:
			rec.UserIDs = joined
		case json.Unmarshal(legacy.UserIDs, &list) == nil:
			rec.UserIDs = strings.Join(list, ",")
		}
	}
	return rec, nil
}

func parseLegacyText(data []byte) (Record, error) {
	rec := Record{Version: CurrentVersion}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Record{}, fmt.Errorf("line %d: expected Key=Value", lineNo)
		}

		switch trimKey(key) {
		case "url":
			rec.Server = value
		case "user":
			rec.User = value
		case "password":
			rec.Password = value
		case "group":
			rec.Group = value
		case "host":
			rec.Host = value
		case "start date":
			rec.StartDate = value
		case "end date":
			rec.EndDate = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read text settings: %w", err)
	}
	return rec, nil
}
