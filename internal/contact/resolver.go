// Package contact resolves a supplier to a business contact on the
// bookkeeping platform and writes resolved data back to the invoice. The
// writeback has its own fallback chain because the platform rejects
// updates to invoices in their initial lifecycle state.
package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/platform"
	"github.com/dekker/factuurstroom/internal/service"
)

// Matching and writeback thresholds.
const (
	exactMatchConfidence     = 95
	substringMatchConfidence = 75
	reuseThreshold           = 80
	writebackThreshold       = 70

	// fallbackConfidence is used when the matching model is unavailable.
	fallbackConfidence = 25
)

const matchPromptTemplate = `You are matching a supplier that sent an
invoice to one of the existing business contacts below.

Supplier hint: %q

Existing contacts:
%s

Respond with a single JSON object, nothing else:
{"matched_id": "contact id or empty string if none matches", "confidence": 0, "reasoning": "one sentence"}

confidence is an integer from 0 to 100. Match only when the supplier is
clearly the same business as the contact.`

// Resolver finds or creates the contact behind an invoice.
type Resolver struct {
	platform platform.Client
	llm      llm.Client
	store    service.Storage
	logger   *slog.Logger
}

// NewResolver creates a contact resolver.
func NewResolver(p platform.Client, client llm.Client, store service.Storage, logger *slog.Logger) *Resolver {
	return &Resolver{platform: p, llm: client, store: store, logger: logger}
}

type matchWire struct {
	MatchedID  string `json:"matched_id"`
	Reasoning  string `json:"reasoning"`
	Confidence int    `json:"confidence"`
}

// Resolve matches the supplier to a contact, creating one when no match
// is confident enough, and writes contact plus extracted fields back to
// the invoice when the extraction is trustworthy. fields carries the
// pending field writes produced by extraction; it is empty when the
// invoice was already complete. The returned update may carry a new
// Invoice when the writeback had to replace the original.
func (r *Resolver) Resolve(ctx context.Context, inv *model.Invoice, ext *model.Extraction, fields platform.InvoiceUpdate) model.StateUpdate {
	if ext == nil {
		ext = &model.Extraction{}
	}

	var update model.StateUpdate

	contact, decision, err := r.match(ctx, inv, ext)
	if err != nil {
		update.Err = err.Error()
	}

	// A match below the reuse threshold is not trusted, whichever
	// strategy produced it; a new contact is created instead.
	if contact != nil && decision.Confidence < reuseThreshold {
		contact = nil
	}

	if contact == nil {
		if hint := supplierHint(ext, inv); hint != "" {
			created, createErr := r.createContact(ctx, hint, ext)
			if createErr != nil {
				update.Err = appendErr(update.Err, createErr.Error())
				decision.RequiresReview = true
			} else {
				contact = created
				update.IsNewContact = true
				decision.Reasoning = decision.Reasoning + "; created new contact " + created.Name
			}
		} else {
			decision.RequiresReview = true
		}
	}

	if contact != nil && ext.Confidence >= writebackThreshold {
		enriched, wbErr := r.writeback(ctx, inv, contact.ID, fields)
		if wbErr != nil {
			update.Err = appendErr(update.Err, wbErr.Error())
		}
		if enriched != nil {
			update.Invoice = enriched
		}
	}

	update.Contact = contact
	update.ContactMatch = &decision
	return update
}

// appendErr chains stage error messages so a later failure does not
// discard an earlier cause.
func appendErr(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "; " + next
}

// match applies the matching policy in order: existing link, exact name,
// bidirectional substring, then the language model.
func (r *Resolver) match(ctx context.Context, inv *model.Invoice, ext *model.Extraction) (*model.Contact, model.Decision, error) {
	contacts, err := r.platform.ListContacts(ctx)
	if err != nil {
		return nil, model.Decision{
			Confidence:     0,
			Reasoning:      "could not list contacts",
			RequiresReview: true,
		}, fmt.Errorf("listing contacts: %w", err)
	}

	if inv.ContactID != "" {
		for i := range contacts {
			if contacts[i].ID == inv.ContactID {
				return &contacts[i], model.Decision{
					Confidence: 100,
					Reasoning:  "invoice already linked to contact " + contacts[i].Name,
				}, nil
			}
		}
	}

	hint := supplierHint(ext, inv)
	if hint != "" {
		for i := range contacts {
			if strings.EqualFold(contacts[i].Name, hint) {
				return &contacts[i], model.Decision{
					Confidence: exactMatchConfidence,
					Reasoning:  "exact name match with contact " + contacts[i].Name,
				}, nil
			}
		}
		lowerHint := strings.ToLower(hint)
		for i := range contacts {
			lowerName := strings.ToLower(contacts[i].Name)
			if lowerName == "" {
				continue
			}
			if strings.Contains(lowerName, lowerHint) || strings.Contains(lowerHint, lowerName) {
				return &contacts[i], model.Decision{
					Confidence: substringMatchConfidence,
					Reasoning:  fmt.Sprintf("name %q contains or is contained in contact %q", hint, contacts[i].Name),
				}, nil
			}
		}
	}

	return r.matchWithModel(ctx, hint, contacts)
}

func (r *Resolver) matchWithModel(ctx context.Context, hint string, contacts []model.Contact) (*model.Contact, model.Decision, error) {
	if hint == "" {
		hint = "unknown"
	}

	var list strings.Builder
	for _, c := range contacts {
		fmt.Fprintf(&list, "- id=%s name=%q\n", c.ID, c.Name)
	}

	raw, err := r.llm.Complete(ctx, fmt.Sprintf(matchPromptTemplate, hint, list.String()))
	if err != nil {
		r.logger.Warn("contact matching model call failed", "error", err)
		return nil, conservativeDecision(err), nil
	}

	obj, err := llm.FirstJSONObject(raw)
	if err != nil {
		return nil, conservativeDecision(err), nil
	}
	var wire matchWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, conservativeDecision(err), nil
	}

	decision := model.Decision{
		Confidence: model.ClampConfidence(wire.Confidence),
		Reasoning:  wire.Reasoning,
	}
	if wire.MatchedID == "" {
		return nil, decision, nil
	}
	for i := range contacts {
		if contacts[i].ID == wire.MatchedID {
			return &contacts[i], decision, nil
		}
	}

	// The model invented an id; treat as no match.
	decision.Confidence = 0
	decision.Reasoning = "model returned unknown contact id " + wire.MatchedID
	return nil, decision, nil
}

func conservativeDecision(err error) model.Decision {
	return model.Decision{
		Confidence:     fallbackConfidence,
		Reasoning:      "contact matching model unavailable: " + err.Error(),
		RequiresReview: true,
	}
}

func (r *Resolver) createContact(ctx context.Context, hint string, ext *model.Extraction) (*model.Contact, error) {
	created, err := r.platform.CreateContact(ctx, &model.Contact{
		Name:  hint,
		VATID: ext.SupplierVAT,
		IBAN:  ext.SupplierIBAN,
	})
	if err != nil {
		return nil, fmt.Errorf("creating contact %q: %w", hint, err)
	}
	r.logger.Info("created new contact", "contact_id", created.ID, "name", created.Name)
	return created, nil
}

// writeback writes the contact link and the pending extracted fields to
// the invoice. The platform rejects some updates while an invoice is in
// its initial state, so the write is split in two steps, and when
// rejection persists the invoice is replaced outright.
func (r *Resolver) writeback(ctx context.Context, inv *model.Invoice, contactID string, fields platform.InvoiceUpdate) (*model.Invoice, error) {
	contactUpdate := platform.InvoiceUpdate{ContactID: &contactID}

	if err := r.platform.UpdateInvoice(ctx, inv.ID, contactUpdate); err != nil {
		if errors.Is(err, common.ErrStateConflict) {
			return r.replaceInvoice(ctx, inv, contactID, fields)
		}
		return nil, fmt.Errorf("updating invoice contact: %w", err)
	}

	if !fields.IsEmpty() {
		if err := r.platform.UpdateInvoice(ctx, inv.ID, fields); err != nil {
			if errors.Is(err, common.ErrStateConflict) {
				return r.replaceInvoice(ctx, inv, contactID, fields)
			}
			return nil, fmt.Errorf("updating invoice fields: %w", err)
		}
	}

	return enrichedProjection(inv, contactID, fields), nil
}

// replaceInvoice is the last-resort writeback: create a corrected copy,
// then delete the original. A correction row with a fresh uuid is
// persisted before the create so a crash between the two writes leaves a
// visible trace instead of a silent duplicate.
func (r *Resolver) replaceInvoice(ctx context.Context, inv *model.Invoice, contactID string, fields platform.InvoiceUpdate) (*model.Invoice, error) {
	correction := &model.Correction{
		ID:        uuid.NewString(),
		InvoiceID: inv.ID,
		Kind:      model.CorrectionReplace,
		Detail:    "invoice rejected updates in its current state",
	}
	if err := r.store.SaveCorrection(ctx, correction); err != nil {
		return nil, fmt.Errorf("recording correction intent: %w", err)
	}

	replacement := enrichedProjection(inv, contactID, fields)
	replacement.ID = ""
	replacement.Status = model.InvoiceStatusDraft

	newID, err := r.platform.CreateInvoice(ctx, replacement)
	if err != nil {
		return nil, fmt.Errorf("creating replacement invoice: %w", err)
	}
	replacement.ID = newID

	correction.ReplacementID = newID
	if err := r.store.SaveCorrection(ctx, correction); err != nil {
		r.logger.Warn("could not record replacement id", "correction_id", correction.ID, "error", err)
	}

	if err := r.platform.DeleteInvoice(ctx, inv.ID); err != nil {
		// The replacement exists but the original could not be removed.
		// Mark the original processed so it is never picked up again and
		// leave the duplicate for a human.
		r.logger.Warn("could not delete replaced invoice", "invoice_id", inv.ID, "error", err)
		if markErr := r.store.MarkProcessed(ctx, inv.ID, model.ProcessedReview); markErr != nil {
			r.logger.Error("could not mark replaced invoice processed", "invoice_id", inv.ID, "error", markErr)
		}
	}

	r.logger.Info("replaced invoice", "invoice_id", inv.ID, "replacement_id", newID)
	return replacement, nil
}

// enrichedProjection returns a copy of the invoice with the contact link
// and pending field writes applied.
func enrichedProjection(inv *model.Invoice, contactID string, fields platform.InvoiceUpdate) *model.Invoice {
	out := fields.ApplyTo(inv)
	out.ContactID = contactID
	return out
}
