package testhelpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ========================================
// Assertion Helpers
// ========================================

// AssertEqual checks that two comparable values are equal
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertError checks that an error occurred
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

// AssertNoError checks that no error occurred
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// AssertContains checks if string contains substring
func AssertContains(t *testing.T, s, substr string, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to contain %q", msg, s, substr)
	}
}

// AssertSliceLen checks slice length
func AssertSliceLen[T any](t *testing.T, slice []T, expectedLen int, msg string) {
	t.Helper()
	if len(slice) != expectedLen {
		t.Errorf("%s: expected length %d, got %d", msg, expectedLen, len(slice))
	}
}

// AssertMapKeyValue checks that a map holds key with the expected value
func AssertMapKeyValue[K, V comparable](t *testing.T, m map[K]V, key K, expectedValue V, msg string) {
	t.Helper()
	v, ok := m[key]
	if !ok {
		t.Errorf("%s: key %v not found", msg, key)
		return
	}
	if v != expectedValue {
		t.Errorf("%s: key %v expected %v, got %v", msg, key, expectedValue, v)
	}
}

// ========================================
// File Helpers
// ========================================

// WriteTestFile writes content to dir/filename and returns the path
func WriteTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ReadTestFile returns the content of path
func ReadTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// AssertFileExists checks that path exists
func AssertFileExists(t *testing.T, path string, msg string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("%s: expected file %s to exist: %v", msg, path, err)
	}
}

// AssertFileNotExists checks that path does not exist
func AssertFileNotExists(t *testing.T, path string, msg string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("%s: expected file %s to not exist", msg, path)
	}
}
