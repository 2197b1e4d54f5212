package model

import "time"

// SupplierMapping is a learned supplier→category association. The
// classifier reads it as a hint before calling the model and upserts it
// when a classification lands with high confidence.
type SupplierMapping struct {
	LastUpdated  time.Time
	SupplierName string
	SupplierIBAN string
	SupplierVAT  string
	CategoryID   string
	CategoryName string
	Confidence   int
	UseCount     int
}
