package claim

import (
	"strings"

	"github.com/shopspring/decimal"
)

const defaultPaymentMode = "Bank Transfer"

// Form is a parsed claim submission
type Form struct {
	OwnerEmail string
	Employee   EmployeeDetails
	Claim      ClaimDetails

	NoBill           bool
	ManualAmount     decimal.Decimal
	HasManualAmount  bool
	ManualBillNumber string
	Comments         string
}

// ParseForm reads submitted form fields. Malformed amounts become zero rather than errors.
func ParseForm(fields map[string]string) Form {
	get := func(key string) string {
		return strings.TrimSpace(fields[key])
	}

	paymentMode := get("payment_mode")
	if paymentMode == "" {
		paymentMode = defaultPaymentMode
	}

	form := Form{
		OwnerEmail: get("user_email"),
		Employee: EmployeeDetails{
			FormFilledBy:  get("employee_name"),
			Department:    get("department"),
			HOD:           get("hod"),
			HODEmail:      get("hod_email"),
			CCEmails:      splitList(get("cc_emails")),
			AdditionalCC:  splitList(get("additional_cc")),
			ModeOfPayment: paymentMode,
		},
		Claim: ClaimDetails{
			TransactionCategory: get("transaction_category"),
			Purpose:             get("purpose"),
			Product:             get("product"),
			Cluster:             get("cluster"),
			Remarks:             get("remarks"),
			PeopleInvolved:      splitList(get("people_involved")),
		},
		NoBill:           get("bill_type") == BillTypeNoBill,
		ManualBillNumber: get("manual_bill_number"),
		Comments:         get("comments"),
	}

	if raw := get("manual_amount"); raw != "" {
		form.HasManualAmount = true
		form.ManualAmount = parseAmount(raw)
	}

	return form
}

// parseAmount coerces user input such as "1,250.50" to a non-negative decimal, zero on failure
func parseAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// splitList splits a comma separated field, dropping blanks
func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
