package model

import "time"

// ProcessedStatus records how a prior run left an invoice. Used by the
// idempotency check before a new run starts.
type ProcessedStatus string

// Processed-invoice statuses.
const (
	ProcessedCompleted ProcessedStatus = "completed"
	ProcessedFailed    ProcessedStatus = "failed"
	ProcessedReview    ProcessedStatus = "review"
)

// RunRecord is one row of the processing log: the terminal outcome of a
// single pipeline run plus a serialized state snapshot for auditing.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	ID         string
	InvoiceID  string
	Action     Action
	Error      string
	StateJSON  string
	Confidence int
}

// Correction records an invoice rewrite performed by the contact
// resolver's replace-invoice fallback. The ID doubles as the idempotency
// key written before the replacement create.
type Correction struct {
	CreatedAt     time.Time
	ID            string
	InvoiceID     string
	ReplacementID string
	Kind          string
	Detail        string
}

// Correction kinds.
const (
	CorrectionUpdate  = "update"
	CorrectionReplace = "replace"
)
