package model

import "time"

// Action is the terminal outcome chosen by the confidence gate.
type Action string

// Gate actions.
const (
	ActionAutoBook   Action = "auto_book"
	ActionFlagReview Action = "flag_review"
	ActionAlertUser  Action = "alert_user"
)

// Stage identifies a pipeline stage.
type Stage string

// Pipeline stages in execution order.
const (
	StageDetect            Stage = "detect"
	StageCheckCompleteness Stage = "check_completeness"
	StageExtractDocument   Stage = "extract_document"
	StageResolveContact    Stage = "resolve_contact"
	StageValidate          Stage = "validate"
	StageClassify          Stage = "classify"
	StageMatchTransaction  Stage = "match_transaction"
	StageGate              Stage = "gate"
	StageAutoBook          Stage = "auto_book"
	StageAlert             Stage = "alert"
	StageEnd               Stage = "end"
)

// WorkflowState is the accumulator passed through the pipeline. It is
// created fresh per run and discarded after the terminal stage persists
// its effects; durability comes only from the platform and the store.
type WorkflowState struct {
	StartedAt        time.Time
	FinishedAt       time.Time
	Invoice          *Invoice
	Extraction       *Extraction
	Contact          *Contact
	Category         *Category
	Transaction      *Transaction
	ContactMatch     *Decision
	Validation       *Decision
	Classification   *Decision
	TransactionMatch *Decision
	RunID            string
	Err              string
	Stage            Stage
	Action           Action
	Confidence       int
	IsNewContact     bool
}

// StateUpdate is a partial update produced by one stage. Nil fields are
// left untouched when applied; last non-nil value wins.
type StateUpdate struct {
	Invoice          *Invoice
	Extraction       *Extraction
	Contact          *Contact
	Category         *Category
	Transaction      *Transaction
	ContactMatch     *Decision
	Validation       *Decision
	Classification   *Decision
	TransactionMatch *Decision
	Err              string
	IsNewContact     bool
}

// Apply merges a stage's partial update into the state. IsNewContact is
// monotonic: once set within a run it is never cleared.
func (s *WorkflowState) Apply(u StateUpdate) {
	if u.Invoice != nil {
		s.Invoice = u.Invoice
	}
	if u.Extraction != nil {
		s.Extraction = u.Extraction
	}
	if u.Contact != nil {
		s.Contact = u.Contact
	}
	if u.Category != nil {
		s.Category = u.Category
	}
	if u.Transaction != nil {
		s.Transaction = u.Transaction
	}
	if u.ContactMatch != nil {
		s.ContactMatch = u.ContactMatch
	}
	if u.Validation != nil {
		s.Validation = u.Validation
	}
	if u.Classification != nil {
		s.Classification = u.Classification
	}
	if u.TransactionMatch != nil {
		s.TransactionMatch = u.TransactionMatch
	}
	if u.Err != "" {
		s.Err = u.Err
	}
	if u.IsNewContact {
		s.IsNewContact = true
	}
}

// Decisions returns the judgment records present on the state, in stage
// order. Absent decisions are skipped.
func (s *WorkflowState) Decisions() []Decision {
	var out []Decision
	for _, d := range []*Decision{s.ContactMatch, s.Validation, s.Classification, s.TransactionMatch} {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// ReviewReasons collects the human-readable reasons the run needs review.
func (s *WorkflowState) ReviewReasons() []string {
	var reasons []string
	if s.Err != "" {
		reasons = append(reasons, "error: "+s.Err)
	}
	if s.IsNewContact {
		reasons = append(reasons, "contact was newly created")
	}
	for name, d := range map[string]*Decision{
		"contact match":     s.ContactMatch,
		"validation":        s.Validation,
		"classification":    s.Classification,
		"transaction match": s.TransactionMatch,
	} {
		if d != nil && d.RequiresReview {
			reasons = append(reasons, name+" flagged for review: "+d.Reasoning)
		}
	}
	return reasons
}
