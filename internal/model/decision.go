package model

// Decision is the outcome of a single judgment stage: how confident the
// stage is in its result, why, and whether a human should look at it.
// Immutable once produced.
type Decision struct {
	Reasoning      string
	Confidence     int
	RequiresReview bool
}

// ClampConfidence bounds a confidence value to the 0-100 scale.
func ClampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
