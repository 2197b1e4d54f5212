package model

import "time"

// Transaction represents a bank transaction on the platform. Amount is in
// signed minor-currency units; negative for outgoing payments.
type Transaction struct {
	Date        time.Time
	ID          string
	Description string
	AccountID   string
	ContactID   string
	InvoiceID   string
	Amount      int64
}
