package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB is a custom type for JSON columns
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return errors.New("type assertion to []byte failed")
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// RunStatus represents how an export ended
type RunStatus string

const (
	RunStatusCompleted  RunStatus = "completed"
	RunStatusNoTriggers RunStatus = "no_triggers"
	RunStatusFailed     RunStatus = "failed"
)

// ExportRun is one finished export
type ExportRun struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UUID        string     `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Kind        string     `gorm:"type:varchar(32);not null;index" json:"kind"`
	Server      string     `gorm:"type:varchar(512);index" json:"server"`
	User        string     `gorm:"type:varchar(255)" json:"user"`
	Criteria    JSONB      `gorm:"type:jsonb" json:"criteria"`
	OutputPath  string     `gorm:"type:text" json:"output_path"`
	Status      RunStatus  `gorm:"type:varchar(32);not null;default:'completed'" json:"status"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	Fetched     int        `json:"fetched"`
	Exported    int        `json:"exported"`
	Problems    int        `json:"problems"`
	Skipped     int        `json:"skipped"`
	Warnings    int        `json:"warnings"`
	DurationMs  int64      `json:"duration_ms"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BeforeCreate hook to set UUID and StartedAt
func (r *ExportRun) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	return nil
}

// TableName overrides for explicit table naming
func (ExportRun) TableName() string {
	return "export_runs"
}
