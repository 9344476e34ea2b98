package scanning

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const currencySymbols = `(?:₹|Rs\.?|INR|\$|€|£)`

// Patterns are tried in order and the first match wins
var (
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(currencySymbols + `\s*(\d[\d,]*(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)(?:amount|total|sum|price)\s*:?\s*` + currencySymbols + `?\s*(\d[\d,]*(?:\.\d+)?)`),
		regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*` + currencySymbols),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{4})\b`),
		regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{2})\b`),
	}
)

// salvage pulls an amount and a date out of free text. It never fails; anything it
// cannot read keeps its default.
func salvage(text string) Extraction {
	bill := newDefaultBill(defaultPurpose, fallbackConfidence)

	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			bill.Amount = amount
			delete(bill.defaulted, FieldAmount)
		}
		break
	}

	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			date := m[1]
			bill.BillDate = &date
			break
		}
	}

	return Extraction{
		Outcome: OutcomeFallback,
		Bill:    bill,
		Reason:  "model response was not valid JSON",
	}
}
