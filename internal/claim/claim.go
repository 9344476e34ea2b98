package claim

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalStatus is the review state of a single bill
type ApprovalStatus string

const (
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalNeedsReview ApprovalStatus = "needs_review"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
)

// OverallStatus is the review state of a whole claim, derived from its bills
type OverallStatus string

const (
	StatusPending           OverallStatus = "pending"
	StatusApproved          OverallStatus = "approved"
	StatusPartiallyApproved OverallStatus = "partially_approved"
	StatusRejected          OverallStatus = "rejected"
)

// Bill types
const (
	BillTypeUpload = "upload"
	BillTypeNoBill = "no_bill"
)

// BillRecord is one bill inside a claim
type BillRecord struct {
	BillNumber          *string         `json:"bill_number" bson:"bill_number"`
	BillDate            *string         `json:"bill_date" bson:"bill_date"`
	VendorName          *string         `json:"vendor_name" bson:"vendor_name"`
	TransactionCategory string          `json:"transaction_category" bson:"transaction_category"`
	Purpose             string          `json:"purpose" bson:"purpose"`
	Amount              decimal.Decimal `json:"amount" bson:"amount"`
	Currency            string          `json:"currency" bson:"currency"`
	Product             string          `json:"product" bson:"product"`
	ClusterLocation     *string         `json:"cluster_location" bson:"cluster_location"`
	ConfidenceScore     int             `json:"confidence_score" bson:"confidence_score"`
	NeedsReview         bool            `json:"needs_review" bson:"needs_review"`
	ChangeFlag          bool            `json:"change_flag" bson:"change_flag"`
	DuplicateDetected   bool            `json:"duplicate_detected" bson:"duplicate_detected"`
	ApprovalStatus      ApprovalStatus  `json:"approval_status" bson:"approval_status"`
	RejectionReason     *string         `json:"rejection_reason" bson:"rejection_reason"`

	BillType   string `json:"bill_type" bson:"bill_type"`
	Comments   string `json:"comments,omitempty" bson:"comments,omitempty"`
	Extraction string `json:"extraction,omitempty" bson:"extraction,omitempty"` // structured, fallback or failure
	FileName   string `json:"file_name,omitempty" bson:"file_name,omitempty"`
	FileKey    string `json:"file_key,omitempty" bson:"file_key,omitempty"` // object storage key
	FileURL    string `json:"file_url,omitempty" bson:"file_url,omitempty"`
}

// EmployeeDetails identifies who filed the claim and who approves it
type EmployeeDetails struct {
	FormFilledBy  string   `json:"form_filled_by" bson:"form_filled_by"`
	Department    string   `json:"department" bson:"department"`
	HOD           string   `json:"hod" bson:"hod"`
	HODEmail      string   `json:"hod_email" bson:"hod_email"`
	CCEmails      []string `json:"cc_emails" bson:"cc_emails"`
	AdditionalCC  []string `json:"additional_cc" bson:"additional_cc"`
	ModeOfPayment string   `json:"mode_of_payment" bson:"mode_of_payment"`
}

// ClaimDetails are the claim-level defaults the bills fall back to
type ClaimDetails struct {
	TransactionCategory string   `json:"transaction_category" bson:"transaction_category"`
	Purpose             string   `json:"purpose" bson:"purpose"`
	Product             string   `json:"product" bson:"product"`
	Cluster             string   `json:"cluster" bson:"cluster"`
	Remarks             string   `json:"remarks" bson:"remarks"`
	PeopleInvolved      []string `json:"people_involved" bson:"people_involved"`
}

// ClaimRecord is a submitted reimbursement claim
type ClaimRecord struct {
	ID              string          `json:"id" bson:"_id"`
	OwnerEmail      string          `json:"owner_email,omitempty" bson:"owner_email,omitempty"`
	EmployeeDetails EmployeeDetails `json:"employee_details" bson:"employee_details"`
	ClaimDetails    ClaimDetails    `json:"claim_details" bson:"claim_details"`
	Bills           []BillRecord    `json:"bills" bson:"bills"`
	OverallStatus   OverallStatus   `json:"overall_status" bson:"overall_status"`
	Timestamp       time.Time       `json:"timestamp" bson:"timestamp"`
}

// ApprovalFor returns the initial approval status implied by a bill's review flags
func ApprovalFor(b BillRecord) ApprovalStatus {
	if b.NeedsReview || b.ChangeFlag || b.DuplicateDetected {
		return ApprovalNeedsReview
	}
	return ApprovalPending
}

// DeriveOverallStatus computes a claim's status from its bills.
// Approved if every bill is approved, partially approved if only some are,
// rejected if every bill is rejected, pending otherwise (including no bills).
func DeriveOverallStatus(bills []BillRecord) OverallStatus {
	if len(bills) == 0 {
		return StatusPending
	}

	approved, rejected := 0, 0
	for _, b := range bills {
		switch b.ApprovalStatus {
		case ApprovalApproved:
			approved++
		case ApprovalRejected:
			rejected++
		}
	}

	switch {
	case approved == len(bills):
		return StatusApproved
	case approved > 0:
		return StatusPartiallyApproved
	case rejected == len(bills):
		return StatusRejected
	}
	return StatusPending
}
