package entity

import (
	"time"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// LedgerEntry represents a ledger row for data transfer between layers.
type LedgerEntry struct {
	URL           string                 `json:"url"`
	Status        constants.LedgerStatus `json:"status"`
	Idx           *int64                 `json:"idx,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	ErrorClass    string                 `json:"error_class,omitempty"`
	Retryable     bool                   `json:"retryable"`
	Attempts      int                    `json:"attempt_count"`
	NextAttemptAt time.Time              `json:"next_attempt_at,omitzero"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Succeeded reports whether the URL already has a committed row.
func (e LedgerEntry) Succeeded() bool {
	return e.Status == constants.LedgerStatusSucceeded
}

// PermanentlyFailed reports whether the URL must not be retried.
func (e LedgerEntry) PermanentlyFailed() bool {
	return e.Status == constants.LedgerStatusFailed && !e.Retryable
}

// Failure is an attempt outcome recorded against a URL.
type Failure struct {
	Reason        string
	ErrorClass    string
	Retryable     bool
	NextAttemptAt time.Time
}
