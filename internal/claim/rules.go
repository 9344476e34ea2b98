package claim

import "github.com/shopspring/decimal"

// Default review thresholds
const (
	DefaultConfidenceThreshold = 85
	DefaultAmountTolerance     = "0.01"
)

// Rules holds the business thresholds used when assembling a claim
type Rules struct {
	// ConfidenceThreshold is the extraction confidence below which a bill needs review
	ConfidenceThreshold int
	// AmountTolerance is how far two amounts may drift and still be considered the same
	AmountTolerance decimal.Decimal
}

// DefaultRules returns the standard thresholds: 85% confidence, 0.01 currency units
func DefaultRules() Rules {
	return Rules{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		AmountTolerance:     decimal.RequireFromString(DefaultAmountTolerance),
	}
}

// NeedsReview reports whether a confidence score is too low to trust
func (r Rules) NeedsReview(confidence int) bool {
	return confidence < r.ConfidenceThreshold
}

// AmountChanged reports whether the manual and extracted amounts differ by more than the tolerance
func (r Rules) AmountChanged(manual, extracted decimal.Decimal) bool {
	return manual.Sub(extracted).Abs().GreaterThan(r.AmountTolerance)
}

// SameAmount reports whether two amounts are strictly within the tolerance of each other
func (r Rules) SameAmount(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(r.AmountTolerance)
}
