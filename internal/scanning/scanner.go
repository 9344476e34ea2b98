package scanning

import (
	"context"

	"github.com/shopspring/decimal"
)

// Media is a single document handed to a vision model
type Media struct {
	Data     []byte
	MIMEType string
}

// Model defines the interface for vision-capable generative models
type Model interface {
	// Generate sends the prompt and media to the model and returns its raw text answer
	Generate(ctx context.Context, prompt string, media Media) (string, error)
	// Close closes the model client and releases resources
	Close() error
}

// Outcome tags how an extraction was produced
type Outcome int

const (
	// OutcomeStructured means the model answered with a usable JSON object
	OutcomeStructured Outcome = iota
	// OutcomeFallback means the answer was not JSON and fields were salvaged from text
	OutcomeFallback
	// OutcomeFailure means nothing could be extracted
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStructured:
		return "structured"
	case OutcomeFallback:
		return "fallback"
	case OutcomeFailure:
		return "failure"
	}
	return "unknown"
}

// Field names reported by BillData.Defaulted
const (
	FieldTransactionCategory = "transaction_category"
	FieldPurpose             = "purpose"
	FieldCurrency            = "currency"
	FieldProduct             = "product"
	FieldAmount              = "amount"
	FieldConfidenceScore     = "confidence_score"
)

// BillData contains the fields extracted from a single bill
type BillData struct {
	BillNumber          *string         `json:"bill_number"`
	BillDate            *string         `json:"bill_date"` // ISO 8601 when the model complies
	VendorName          *string         `json:"vendor_name"`
	TransactionCategory string          `json:"transaction_category"`
	Purpose             string          `json:"purpose"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	Product             string          `json:"product"`
	ClusterLocation     *string         `json:"cluster_location"`
	ConfidenceScore     int             `json:"confidence_score"`

	defaulted map[string]bool
}

// Defaulted reports whether field was filled with a default rather than read from the model
func (b BillData) Defaulted(field string) bool {
	return b.defaulted[field]
}

func (b *BillData) markDefaulted(field string) {
	if b.defaulted == nil {
		b.defaulted = make(map[string]bool)
	}
	b.defaulted[field] = true
}

// Extraction is the tagged result of reading a bill
type Extraction struct {
	Outcome Outcome
	Bill    BillData
	// Reason explains a fallback or failure
	Reason string
}

// newDefaultBill returns a bill with every defaultable field defaulted
func newDefaultBill(purpose string, confidence int) BillData {
	b := BillData{
		TransactionCategory: "Other",
		Purpose:             purpose,
		Amount:              decimal.Zero,
		Currency:            "INR",
		Product:             "General",
		ConfidenceScore:     confidence,
	}
	for _, f := range []string{FieldTransactionCategory, FieldPurpose, FieldCurrency, FieldProduct, FieldAmount, FieldConfidenceScore} {
		b.markDefaulted(f)
	}
	return b
}

// failure builds the sentinel extraction returned when a bill cannot be read.
// Its purpose carries the failure description and is not treated as a default.
func failure(purpose string, confidence int) Extraction {
	bill := newDefaultBill(purpose, confidence)
	delete(bill.defaulted, FieldPurpose)
	return Extraction{
		Outcome: OutcomeFailure,
		Bill:    bill,
		Reason:  purpose,
	}
}
