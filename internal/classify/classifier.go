// Package classify assigns an invoice to a ledger category. A learned
// supplier→category memory feeds the model a hint and is updated when a
// classification lands with high confidence.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/platform"
	"github.com/dekker/factuurstroom/internal/service"
)

const (
	// hintAgreementBoost is added when the model independently picks the
	// remembered category.
	hintAgreementBoost = 10
	// memoryThreshold is the confidence needed to write the mapping back.
	memoryThreshold = 80
)

const classifyPromptTemplate = `You are booking a supplier invoice to a
ledger category ("kostenpost").

Supplier: %s
Invoice description: %s

Available categories:
%s
%s
Respond with a single JSON object, nothing else:
{"category_id": "id from the list", "confidence": 0, "reasoning": "one sentence"}

confidence is an integer from 0 to 100.`

// Classifier selects a ledger category for an invoice.
type Classifier struct {
	platform platform.Client
	llm      llm.Client
	store    service.Storage
	logger   *slog.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(p platform.Client, client llm.Client, store service.Storage, logger *slog.Logger) *Classifier {
	return &Classifier{platform: p, llm: client, store: store, logger: logger}
}

type classifyWire struct {
	CategoryID string `json:"category_id"`
	Reasoning  string `json:"reasoning"`
	Confidence int    `json:"confidence"`
}

// Classify picks a category for the invoice. supplierName may be empty
// when neither extraction nor contact resolution produced one.
func (c *Classifier) Classify(ctx context.Context, inv *model.Invoice, ext *model.Extraction, supplierName string) model.StateUpdate {
	var update model.StateUpdate

	categories, err := c.platform.ListCategories(ctx)
	if err != nil {
		update.Err = fmt.Errorf("listing categories: %w", err).Error()
		update.Classification = &model.Decision{
			Reasoning:      "could not list ledger categories",
			RequiresReview: true,
		}
		return update
	}
	if len(categories) == 0 {
		update.Classification = &model.Decision{
			Reasoning:      "platform returned no ledger categories",
			RequiresReview: true,
		}
		return update
	}

	hint := c.lookupHint(ctx, supplierName)

	wire, err := c.invokeModel(ctx, inv, ext, supplierName, categories, hint)
	if err != nil {
		update.Err = err.Error()
		update.Classification = &model.Decision{
			Reasoning:      "classification model unavailable: " + err.Error(),
			RequiresReview: true,
		}
		return update
	}

	category := findCategory(categories, wire.CategoryID)
	decision := model.Decision{
		Confidence: model.ClampConfidence(wire.Confidence),
		Reasoning:  wire.Reasoning,
	}
	if category == nil {
		decision.Confidence = 0
		decision.Reasoning = "model returned unknown category id " + wire.CategoryID
		decision.RequiresReview = true
		update.Classification = &decision
		return update
	}

	if hint != nil && hint.CategoryID == category.ID {
		decision.Confidence = model.ClampConfidence(decision.Confidence + hintAgreementBoost)
		decision.Reasoning = decision.Reasoning + "; agrees with remembered category"
	}

	if decision.Confidence >= memoryThreshold && supplierName != "" {
		c.remember(ctx, supplierName, ext, category, decision.Confidence)
	}

	update.Category = category
	update.Classification = &decision
	return update
}

// lookupHint reads the supplier→category memory. A miss is normal.
func (c *Classifier) lookupHint(ctx context.Context, supplierName string) *model.SupplierMapping {
	if supplierName == "" {
		return nil
	}
	mapping, err := c.store.GetMapping(ctx, supplierName)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			c.logger.Warn("mapping lookup failed", "supplier", supplierName, "error", err)
		}
		return nil
	}
	return mapping
}

func (c *Classifier) invokeModel(ctx context.Context, inv *model.Invoice, ext *model.Extraction, supplierName string, categories []model.Category, hint *model.SupplierMapping) (*classifyWire, error) {
	var list strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&list, "- id=%s name=%q type=%s\n", cat.ID, cat.Name, cat.Type)
	}

	hintLine := ""
	if hint != nil {
		hintLine = fmt.Sprintf("\nThis supplier was previously booked to %q (id=%s, used %d times).\n",
			hint.CategoryName, hint.CategoryID, hint.UseCount)
	}

	if supplierName == "" {
		supplierName = "unknown"
	}
	raw, err := c.llm.Complete(ctx, fmt.Sprintf(classifyPromptTemplate,
		supplierName, invoiceText(inv, ext), list.String(), hintLine))
	if err != nil {
		return nil, fmt.Errorf("classification model: %w", err)
	}

	obj, err := llm.FirstJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("classification response: %w", err)
	}
	var wire classifyWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, fmt.Errorf("decoding classification response: %w", err)
	}
	return &wire, nil
}

// remember upserts the supplier→category memory.
func (c *Classifier) remember(ctx context.Context, supplierName string, ext *model.Extraction, category *model.Category, confidence int) {
	mapping := &model.SupplierMapping{
		SupplierName: supplierName,
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Confidence:   confidence,
	}
	if ext != nil {
		mapping.SupplierIBAN = ext.SupplierIBAN
		mapping.SupplierVAT = ext.SupplierVAT
	}
	if err := c.store.SaveMapping(ctx, mapping); err != nil {
		c.logger.Warn("could not save supplier mapping", "supplier", supplierName, "error", err)
	}
}

func findCategory(categories []model.Category, id string) *model.Category {
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i]
		}
	}
	return nil
}

// invoiceText assembles whatever descriptive text exists for the prompt.
func invoiceText(inv *model.Invoice, ext *model.Extraction) string {
	var parts []string
	if ext != nil && ext.Description != "" {
		parts = append(parts, ext.Description)
	}
	if inv.Reference != "" {
		parts = append(parts, "reference: "+inv.Reference)
	}
	if inv.Notes != "" {
		parts = append(parts, "notes: "+inv.Notes)
	}
	if len(parts) == 0 {
		return "no description available"
	}
	return strings.Join(parts, "; ")
}
