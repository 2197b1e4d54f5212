package contact

import (
	"strings"

	"github.com/dekker/factuurstroom/internal/model"
)

// boilerplate tokens that appear in invoice filenames and references but
// never in a supplier's name.
var boilerplateTokens = map[string]bool{
	"invoice":   true,
	"factuur":   true,
	"receipt":   true,
	"bon":       true,
	"nota":      true,
	"rekening":  true,
	"kwitantie": true,
	"scan":      true,
	"copy":      true,
	"kopie":     true,
}

var fileExtensions = []string{".pdf", ".png", ".jpg", ".jpeg"}

// supplierHint returns the best available supplier-name hint: the
// extracted supplier name when present, otherwise a cleaned-up guess from
// the attachment filename or the invoice reference.
func supplierHint(ext *model.Extraction, inv *model.Invoice) string {
	if ext != nil && ext.SupplierName != "" {
		return ext.SupplierName
	}
	for _, att := range inv.Attachments {
		if hint := cleanHint(att.Filename); hint != "" {
			return hint
		}
	}
	return cleanHint(inv.Reference)
}

// cleanHint strips invoice boilerplate, numbers and file extensions from
// a raw string, leaving the tokens that could plausibly be a name.
func cleanHint(raw string) string {
	s := strings.ToLower(raw)
	for _, ext := range fileExtensions {
		s = strings.TrimSuffix(s, ext)
	}
	s = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(s)

	var kept []string
	for _, token := range strings.Fields(s) {
		if boilerplateTokens[token] || containsDigit(token) {
			continue
		}
		kept = append(kept, token)
	}

	hint := strings.Join(kept, " ")
	if len(hint) < 3 {
		return ""
	}
	return hint
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
