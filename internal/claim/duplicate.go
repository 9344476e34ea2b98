package claim

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// DuplicateChecker looks for a bill that was already claimed
type DuplicateChecker struct {
	store Store
	rules Rules
}

// NewDuplicateChecker creates a DuplicateChecker over store
func NewDuplicateChecker(store Store, rules Rules) *DuplicateChecker {
	return &DuplicateChecker{store: store, rules: rules}
}

// Check reports whether any stored bill has the same bill number and vendor name
// (exact match) and an amount within the tolerance. Missing inputs never match.
func (d *DuplicateChecker) Check(ctx context.Context, billNumber, vendorName string, amount decimal.Decimal) bool {
	if billNumber == "" || vendorName == "" || amount.IsZero() {
		return false
	}

	claims, err := d.store.List(ctx, ListOptions{})
	if err != nil {
		slog.Warn("Duplicate check skipped, could not list claims", "error", err)
		return false
	}

	for _, c := range claims {
		for _, b := range c.Bills {
			if b.BillNumber == nil || *b.BillNumber != billNumber {
				continue
			}
			if b.VendorName == nil || *b.VendorName != vendorName {
				continue
			}
			if d.rules.SameAmount(b.Amount, amount) {
				return true
			}
		}
	}
	return false
}
