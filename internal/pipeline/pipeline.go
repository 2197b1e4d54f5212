// Package pipeline drives one invoice through the processing state
// machine: detect, complete, extract, resolve, judge, gate, and finally
// book or alert. Stages communicate only through the shared workflow
// state; errors are recorded on the state and acted on at the gate, not
// where they occur.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dekker/factuurstroom/internal/document"
	"github.com/dekker/factuurstroom/internal/gate"
	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/notify"
	"github.com/dekker/factuurstroom/internal/platform"
	"github.com/dekker/factuurstroom/internal/service"
)

// Stage collaborators, narrowed for testability.
type (
	documentFetcher interface {
		Fetch(ctx context.Context, inv *model.Invoice) *document.Document
	}
	extractor interface {
		Extract(ctx context.Context, doc *document.Document) *model.Extraction
		Enrich(inv *model.Invoice, ext *model.Extraction) platform.InvoiceUpdate
	}
	contactResolver interface {
		Resolve(ctx context.Context, inv *model.Invoice, ext *model.Extraction, fields platform.InvoiceUpdate) model.StateUpdate
	}
	validator interface {
		Validate(ctx context.Context, inv *model.Invoice) model.StateUpdate
	}
	classifier interface {
		Classify(ctx context.Context, inv *model.Invoice, ext *model.Extraction, supplierName string) model.StateUpdate
	}
	transactionMatcher interface {
		Match(ctx context.Context, inv *model.Invoice, supplierName string) model.StateUpdate
	}
	dispatcher interface {
		Dispatch(ctx context.Context, summary notify.Summary)
	}
)

// Pipeline processes one invoice per run.
type Pipeline struct {
	platform   platform.Client
	store      service.Storage
	fetcher    documentFetcher
	extractor  extractor
	resolver   contactResolver
	validator  validator
	classifier classifier
	matcher    transactionMatcher
	notify     dispatcher
	thresholds gate.Thresholds
	logger     *slog.Logger
}

// New assembles a pipeline from its stage collaborators.
func New(
	p platform.Client,
	store service.Storage,
	fetcher documentFetcher,
	ext extractor,
	resolver contactResolver,
	v validator,
	c classifier,
	m transactionMatcher,
	notifier dispatcher,
	thresholds gate.Thresholds,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		platform:   p,
		store:      store,
		fetcher:    fetcher,
		extractor:  ext,
		resolver:   resolver,
		validator:  v,
		classifier: c,
		matcher:    m,
		notify:     notifier,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Run drives the state machine from Detect to End and returns the final
// workflow state. The run itself only fails on persistence errors in the
// terminal stages; everything upstream degrades into the state's error
// field and ends in an alert.
func (p *Pipeline) Run(ctx context.Context) (*model.WorkflowState, error) {
	state := &model.WorkflowState{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Stage:     model.StageDetect,
	}
	p.logger.Info("run started", "run_id", state.RunID)

	// Pending platform field writes produced by extraction, consumed by
	// the contact resolver's writeback.
	var pendingFields platform.InvoiceUpdate

	for state.Stage != model.StageEnd {
		switch state.Stage {
		case model.StageDetect:
			p.detect(ctx, state)
			if state.Err != "" || state.Invoice == nil {
				state.Stage = model.StageAlert
			} else {
				state.Stage = model.StageCheckCompleteness
			}

		case model.StageCheckCompleteness:
			if state.Err != "" || state.Invoice == nil {
				state.Stage = model.StageAlert
				continue
			}
			missing := state.Invoice.MissingFields()
			p.logger.Info("completeness checked",
				"run_id", state.RunID, "invoice_id", state.Invoice.ID, "missing", missing)
			if len(missing) > 0 {
				state.Stage = model.StageExtractDocument
			} else {
				state.Stage = model.StageResolveContact
			}

		case model.StageExtractDocument:
			doc := p.fetcher.Fetch(ctx, state.Invoice)
			ext := p.extractor.Extract(ctx, doc)
			pendingFields = p.extractor.Enrich(state.Invoice, ext)
			state.Apply(model.StateUpdate{
				Extraction: ext,
				Invoice:    pendingFields.ApplyTo(state.Invoice),
			})
			state.Stage = model.StageResolveContact

		case model.StageResolveContact:
			state.Apply(p.resolver.Resolve(ctx, state.Invoice, state.Extraction, pendingFields))
			state.Stage = model.StageValidate

		case model.StageValidate:
			state.Apply(p.validator.Validate(ctx, state.Invoice))
			state.Stage = model.StageClassify

		case model.StageClassify:
			state.Apply(p.classifier.Classify(ctx, state.Invoice, state.Extraction, supplierName(state)))
			state.Stage = model.StageMatchTransaction

		case model.StageMatchTransaction:
			state.Apply(p.matcher.Match(ctx, state.Invoice, supplierName(state)))
			state.Stage = model.StageGate

		case model.StageGate:
			action, confidence := gate.Decide(state, p.thresholds)
			state.Action = action
			state.Confidence = confidence
			p.logger.Info("gate decided",
				"run_id", state.RunID, "action", action, "confidence", confidence, "error", state.Err)
			if state.Err == "" && action == model.ActionAutoBook {
				state.Stage = model.StageAutoBook
			} else {
				state.Stage = model.StageAlert
			}

		case model.StageAutoBook:
			if !p.book(ctx, state) {
				state.Stage = model.StageAlert
				continue
			}
			if err := p.finish(ctx, state, model.ProcessedCompleted); err != nil {
				return state, err
			}
			state.Stage = model.StageEnd

		case model.StageAlert:
			if err := p.alert(ctx, state); err != nil {
				return state, err
			}
			state.Stage = model.StageEnd
		}
	}

	return state, nil
}

// detect finds the next unprocessed invoice. Finding none is the normal
// "nothing to do" outcome, not an error.
func (p *Pipeline) detect(ctx context.Context, state *model.WorkflowState) {
	invoices, err := p.platform.ListOpenInvoices(ctx)
	if err != nil {
		state.Err = "listing open invoices: " + err.Error()
		return
	}

	for i := range invoices {
		if !invoices[i].Processable() {
			continue
		}
		status, err := p.store.GetProcessedStatus(ctx, invoices[i].ID)
		if err != nil {
			state.Err = "checking processed status: " + err.Error()
			return
		}
		if status != "" {
			continue
		}
		inv := invoices[i]
		state.Invoice = &inv
		p.logger.Info("invoice detected", "run_id", state.RunID, "invoice_id", inv.ID, "status", inv.Status)
		return
	}

	p.logger.Info("no unprocessed invoices", "run_id", state.RunID)
}

// book writes the final resolved fields to the invoice. A failed write
// records the error and reports false; the caller falls through to the
// alert path so the failure reaches a human.
func (p *Pipeline) book(ctx context.Context, state *model.WorkflowState) bool {
	update := finalUpdate(state)
	if update.IsEmpty() {
		return true
	}
	if err := p.platform.UpdateInvoice(ctx, state.Invoice.ID, update); err != nil {
		state.Err = "booking invoice: " + err.Error()
		p.logger.Error("booking write failed",
			"run_id", state.RunID, "invoice_id", state.Invoice.ID, "error", err)
		return false
	}
	return true
}

// alert logs the run, marks the invoice processed when there is one, and
// notifies the configured channels. Entering with no invoice at all is
// the normal empty-queue exit and stays silent.
func (p *Pipeline) alert(ctx context.Context, state *model.WorkflowState) error {
	if state.Action == "" {
		state.Action = model.ActionAlertUser
	}

	if state.Invoice == nil && state.Err == "" {
		state.FinishedAt = time.Now()
		return p.saveRun(ctx, state)
	}

	status := model.ProcessedReview
	if state.Err != "" {
		status = model.ProcessedFailed
	}
	if err := p.finish(ctx, state, status); err != nil {
		return err
	}

	summary := notify.Summary{
		RunID:      state.RunID,
		Action:     state.Action,
		Confidence: state.Confidence,
		Reasons:    state.ReviewReasons(),
		Err:        state.Err,
	}
	if state.Invoice != nil {
		summary.InvoiceID = state.Invoice.ID
	}
	p.notify.Dispatch(ctx, summary)
	return nil
}

// finish stamps the end time, persists the run record and the processed
// mark.
func (p *Pipeline) finish(ctx context.Context, state *model.WorkflowState, status model.ProcessedStatus) error {
	state.FinishedAt = time.Now()
	if err := p.saveRun(ctx, state); err != nil {
		return err
	}
	if state.Invoice == nil {
		return nil
	}
	if err := p.store.MarkProcessed(ctx, state.Invoice.ID, status); err != nil {
		return fmt.Errorf("marking invoice processed: %w", err)
	}
	p.logger.Info("run finished",
		"run_id", state.RunID, "invoice_id", state.Invoice.ID,
		"action", state.Action, "status", status, "confidence", state.Confidence)
	return nil
}

func (p *Pipeline) saveRun(ctx context.Context, state *model.WorkflowState) error {
	record := &model.RunRecord{
		ID:         state.RunID,
		Action:     state.Action,
		Error:      state.Err,
		Confidence: state.Confidence,
		StartedAt:  state.StartedAt,
		FinishedAt: state.FinishedAt,
	}
	if state.Invoice != nil {
		record.InvoiceID = state.Invoice.ID
	}
	if snapshot, err := json.Marshal(state); err == nil {
		record.StateJSON = string(snapshot)
	}
	return p.store.SaveRun(ctx, record)
}

// finalUpdate collects the resolved fields to write at booking time: the
// contact link plus the amounts, date and reference the projection ended
// up with. The resolver may already have written some of these; writing
// the same values again is harmless.
func finalUpdate(state *model.WorkflowState) platform.InvoiceUpdate {
	var update platform.InvoiceUpdate
	inv := state.Invoice

	if state.Contact != nil {
		id := state.Contact.ID
		update.ContactID = &id
	}
	if inv.AmountExcl != 0 {
		v := inv.AmountExcl
		update.AmountExcl = &v
	}
	if inv.AmountIncl != 0 {
		v := inv.AmountIncl
		update.AmountIncl = &v
	}
	if inv.TaxAmount != 0 {
		v := inv.TaxAmount
		update.TaxAmount = &v
	}
	if !inv.Date.IsZero() {
		d := inv.Date
		update.Date = &d
	}
	if inv.Reference != "" {
		ref := inv.Reference
		update.Reference = &ref
	}
	return update
}

// supplierName picks the best known supplier name for the judgment
// stages: the resolved contact first, then the extraction.
func supplierName(state *model.WorkflowState) string {
	if state.Contact != nil && state.Contact.Name != "" {
		return state.Contact.Name
	}
	if state.Extraction != nil {
		return state.Extraction.SupplierName
	}
	return ""
}
