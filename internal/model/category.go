package model

// CategoryType indicates whether a ledger category covers costs or revenue.
type CategoryType string

// Category types as reported by the platform.
const (
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeIncome  CategoryType = "income"
)

// Category represents a ledger category ("kostenpost") an invoice is
// booked against. Read-only reference data supplied by the platform.
type Category struct {
	ID   string
	Name string
	Type CategoryType
}
