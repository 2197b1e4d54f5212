// Package llm provides clients for language-model providers. Prompts in
// this application always request a single JSON object; callers extract it
// from the raw completion with FirstJSONObject.
package llm

import (
	"bytes"
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a text-only prompt and returns the raw completion.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteVision sends a prompt together with a binary document
	// (PDF or image) and returns the raw completion.
	CompleteVision(ctx context.Context, prompt string, doc Document) (string, error)
}

// Document is a binary document submitted to a vision-capable model.
type Document struct {
	MediaType string
	Data      []byte
}

// Config holds configuration for LLM clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	RateLimit   int
	Timeout     time.Duration
}

// Known document signatures.
var (
	pdfMagic  = []byte("%PDF-")
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// DetectMediaType sniffs the leading bytes of a document and returns its
// media type, or the empty string when the signature is not recognized.
func DetectMediaType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return "application/pdf"
	case bytes.HasPrefix(data, pngMagic):
		return "image/png"
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg"
	default:
		return ""
	}
}
