package scanning

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	defaultPurpose       = "Bill processing"
	defaultConfidence    = 50
	fallbackConfidence   = 30
	processingConfidence = 25
)

var (
	// fenceTagLine is a language tag ending the opening fence line, e.g. "JSON\n"
	fenceTagLine = regexp.MustCompile(`^[A-Za-z][\w+.-]*[ \t]*\r?\n`)
	// fenceTagInline is a tag glued to the body, e.g. "json{"
	fenceTagInline = regexp.MustCompile(`^[A-Za-z][\w+.-]*([{\[])`)
)

// stripCodeFence removes a markdown code fence, with any language tag, wrapped around the model output
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if loc := fenceTagLine.FindStringIndex(text); loc != nil {
			text = text[loc[1]:]
		} else {
			text = fenceTagInline.ReplaceAllString(text, "$1")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// Normalize turns raw model text into an Extraction.
// Text that is not JSON is salvaged with regular expressions; JSON that is not an object is a failure.
func Normalize(text string) Extraction {
	body := stripCodeFence(text)

	if !json.Valid([]byte(body)) {
		return salvage(body)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return failure(fmt.Sprintf("Processing error: %v", err), processingConfidence)
	}
	if fields == nil {
		return failure("Processing error: model returned null", processingConfidence)
	}

	return Extraction{
		Outcome: OutcomeStructured,
		Bill:    billFromFields(fields),
	}
}

func billFromFields(fields map[string]any) BillData {
	var bill BillData

	bill.BillNumber = optionalString(fields["bill_number"])
	bill.BillDate = optionalString(fields["bill_date"])
	bill.VendorName = optionalString(fields["vendor_name"])
	bill.ClusterLocation = optionalString(fields["cluster_location"])

	bill.TransactionCategory = stringOr(&bill, fields, FieldTransactionCategory, "Other")
	bill.Purpose = stringOr(&bill, fields, FieldPurpose, defaultPurpose)
	bill.Currency = stringOr(&bill, fields, FieldCurrency, "INR")
	bill.Product = stringOr(&bill, fields, FieldProduct, "General")

	amount, ok := coerceDecimal(fields[FieldAmount])
	if !ok || amount.IsZero() {
		bill.markDefaulted(FieldAmount)
		amount = decimal.Zero
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	bill.Amount = amount

	confidence, ok := coerceConfidence(fields[FieldConfidenceScore])
	if !ok {
		bill.markDefaulted(FieldConfidenceScore)
		confidence = defaultConfidence
	}
	bill.ConfidenceScore = confidence

	return bill
}

// optionalString passes non-empty strings through verbatim and formats numbers; everything else is null
func optionalString(v any) *string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	}
	return nil
}

func stringOr(bill *BillData, fields map[string]any, key, def string) string {
	if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	bill.markDefaulted(key)
	return def
}

// coerceDecimal accepts JSON numbers and numeric strings such as "1,250.00"
func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(t), ",", ""))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// coerceConfidence reads a score from a number or numeric string such as "88.6" or "90%".
// Zero and unreadable values report false; anything else is clamped to 0..100 and truncated.
func coerceConfidence(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || f == 0 {
		return 0, false
	}
	return int(math.Max(0, math.Min(100, f))), true
}
