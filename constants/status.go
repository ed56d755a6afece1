package constants

// LedgerStatus is the canonical status for rows in ledger_entries.
type LedgerStatus string

// Stable values (store these exact strings in DB).
const (
	LedgerStatusPending    LedgerStatus = "pending"
	LedgerStatusInProgress LedgerStatus = "in_progress"
	LedgerStatusSucceeded  LedgerStatus = "succeeded"
	LedgerStatusFailed     LedgerStatus = "failed" // terminal for the attempt; Retryable decides the next run
)

// Valid reports whether s is one of the stored status values.
func (s LedgerStatus) Valid() bool {
	switch s {
	case LedgerStatusPending, LedgerStatusInProgress, LedgerStatusSucceeded, LedgerStatusFailed:
		return true
	}
	return false
}
