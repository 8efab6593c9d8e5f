package models

import (
	"time"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// GenerationRun is the audit record for one upload-to-quiz pipeline run. It
// holds run metadata only; questions and recorded answers are never persisted.
type GenerationRun struct {
	ID              string         `json:"id" db:"id"`
	UserID          string         `json:"user_id" db:"user_id"`
	Filename        string         `json:"filename" db:"filename"`
	FileSize        int64          `json:"file_size" db:"file_size"`
	Format          DocumentFormat `json:"format" db:"format"`
	RequestedCount  int            `json:"requested_count" db:"requested_count"`
	Status          RunStatus      `json:"status" db:"status"`
	Model           string         `json:"model" db:"model"`
	ContentChars    int            `json:"content_chars" db:"content_chars"`
	Truncated       bool           `json:"truncated" db:"truncated"`
	QuestionsParsed int            `json:"questions_parsed" db:"questions_parsed"`
	BlocksDropped   int            `json:"blocks_dropped" db:"blocks_dropped"`
	RawKey          *string        `json:"-" db:"raw_key"`
	ErrorMessage    *string        `json:"error_message,omitempty" db:"error_message"`
	DurationMs      *int64         `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// RunCompletion carries the fields written when a pipeline run succeeds.
// RawKey is nil when archiving the raw output failed.
type RunCompletion struct {
	Model           string
	ContentChars    int
	Truncated       bool
	QuestionsParsed int
	BlocksDropped   int
	RawKey          *string
	DurationMs      int64
}
