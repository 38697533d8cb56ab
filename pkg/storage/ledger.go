package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UsageRecord is one row of token accounting: a single generation request
// attributed to a caller and model.
type UsageRecord struct {
	RequestID    string    `json:"request_id"`
	Caller       string    `json:"caller,omitempty"`
	Model        string    `json:"model"`
	PromptTokens int       `json:"prompt_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	Streamed     bool      `json:"streamed"`
	CreatedAt    time.Time `json:"created_at"`
}

// ModelTotals aggregates usage per model.
type ModelTotals struct {
	Model        string `json:"model"`
	Requests     int64  `json:"requests"`
	PromptTokens int64  `json:"prompt_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// UsageLedger persists token accounting. Implementations fill the record's
// Caller from the context when the caller set an identity; records with no
// identity are kept unattributed.
type UsageLedger interface {
	// Record persists one usage record.
	Record(ctx context.Context, rec *UsageRecord) error

	// Recent returns up to limit records, newest first, scoped to the
	// caller identity in the context when one is present.
	Recent(ctx context.Context, limit int) ([]*UsageRecord, error)

	// TotalsByModel aggregates all records per model.
	TotalsByModel(ctx context.Context) ([]ModelTotals, error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the ledger.
	Close() error
}
