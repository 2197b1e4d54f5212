package model

// Contact represents a business relation on the bookkeeping platform.
type Contact struct {
	ID    string
	Name  string
	VATID string
	IBAN  string
	Email string
	City  string
}
