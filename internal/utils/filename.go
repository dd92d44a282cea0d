package utils

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

const maxFilenameLength = 255

// SanitizeFilename strips path separators and control characters from a
// single file name
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}

	filename = strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_").Replace(filename)

	var sanitized strings.Builder
	for _, r := range filename {
		if unicode.IsPrint(r) && r != '\t' {
			sanitized.WriteRune(r)
		}
	}
	filename = sanitized.String()

	if len(filename) > maxFilenameLength {
		ext := ""
		if idx := strings.LastIndex(filename, "."); idx > 0 {
			ext = filename[idx:]
			filename = filename[:idx]
		}
		if maxBase := maxFilenameLength - len(ext); maxBase > 0 {
			filename = filename[:maxBase] + ext
		} else {
			filename = filename[:maxFilenameLength]
		}
	}

	if strings.Trim(filename, "_. ") == "" {
		return "", fmt.Errorf("filename is empty after sanitization")
	}
	return filename, nil
}

// ReportFilename suggests an output name such as
// "triggers_zabbix.example.com_20240115-103000.xlsx"
func ReportFilename(kind, server string, at time.Time) string {
	host := server
	if u, err := url.Parse(server); err == nil && u.Host != "" {
		host = u.Hostname()
	}

	name := kind
	if host != "" {
		name += "_" + host
	}
	name += "_" + at.Format("20060102-150405") + ".xlsx"

	if clean, err := SanitizeFilename(name); err == nil {
		return clean
	}
	return kind + ".xlsx"
}
