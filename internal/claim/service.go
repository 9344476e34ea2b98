package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/reimburse-flow/internal/scanning"
)

const maxIDAttempts = 10

// BillExtractor reads a single bill file
type BillExtractor interface {
	ExtractBill(ctx context.Context, data []byte, filename string) scanning.Extraction
}

// IDGenerator generates claim IDs from the submission time and a sequence number
type IDGenerator interface {
	Generate(now time.Time, seq int) string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs like CLM_20240315_101500_001
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate(now time.Time, seq int) string {
	return fmt.Sprintf("CLM_%s_%03d", now.Format("20060102_150405"), seq)
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Upload is a bill file received with a claim
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service assembles, stores and retrieves claims
type Service struct {
	store       Store
	extractor   BillExtractor
	storage     ObjectStorage
	duplicates  *DuplicateChecker
	rules       Rules
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default rules, ID generator and time source
func NewService(store Store, extractor BillExtractor, storage ObjectStorage) *Service {
	return NewServiceWithRules(store, extractor, storage, DefaultRules())
}

// NewServiceWithRules creates a new Service with custom review thresholds
func NewServiceWithRules(store Store, extractor BillExtractor, storage ObjectStorage, rules Rules) *Service {
	return NewServiceWithDeps(store, extractor, storage, rules, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies
func NewServiceWithDeps(store Store, extractor BillExtractor, storage ObjectStorage, rules Rules, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		extractor:   extractor,
		storage:     storage,
		duplicates:  NewDuplicateChecker(store, rules),
		rules:       rules,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Phones produce very long names
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "bill"
	}

	return base + ext
}

// SubmitClaim assembles a claim from form fields and bill uploads and stores it.
// Extraction problems lower confidence on the affected bill; only a store failure is an error.
func (s *Service) SubmitClaim(ctx context.Context, fields map[string]string, uploads []Upload) (*ClaimRecord, error) {
	form := ParseForm(fields)
	now := s.timeSource.Now().Truncate(time.Millisecond)

	var bills []BillRecord
	if form.NoBill {
		bills = append(bills, s.noBillRecord(form, now))
	} else {
		for _, u := range uploads {
			bills = append(bills, s.processUpload(ctx, form, u, now))
		}
	}
	if bills == nil {
		bills = []BillRecord{}
	}

	claim := &ClaimRecord{
		OwnerEmail:      form.OwnerEmail,
		EmployeeDetails: form.Employee,
		ClaimDetails:    form.Claim,
		Bills:           bills,
		OverallStatus:   DeriveOverallStatus(bills),
		Timestamp:       now,
	}

	if err := s.appendWithID(ctx, claim, now); err != nil {
		slog.Error("Failed to save claim", "error", err, "bills", len(bills))
		s.deleteFiles(ctx, bills)
		return nil, fmt.Errorf("saving claim: %w", err)
	}

	slog.Info("Claim submitted",
		"id", claim.ID,
		"bills", len(bills),
		"overall_status", claim.OverallStatus,
	)
	return claim, nil
}

// appendWithID numbers the claim after the stored claim count, moving to the next
// sequence number when that id is already taken
func (s *Service) appendWithID(ctx context.Context, claim *ClaimRecord, now time.Time) error {
	existing, err := s.store.List(ctx, ListOptions{})
	if err != nil {
		return fmt.Errorf("listing claims: %w", err)
	}
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[c.ID] = true
	}

	seq := len(existing) + 1
	for i := 0; i < len(existing)+maxIDAttempts; i, seq = i+1, seq+1 {
		id := s.idGenerator.Generate(now, seq)
		if taken[id] {
			continue
		}

		claim.ID = id
		err := s.store.Append(ctx, claim)
		if errors.Is(err, ErrDuplicateID) {
			taken[id] = true
			continue
		}
		return err
	}
	return fmt.Errorf("%w: no free id for sequence %d", ErrDuplicateID, seq)
}

// noBillRecord builds the single bill of a claim submitted without a receipt
func (s *Service) noBillRecord(form Form, now time.Time) BillRecord {
	billNumber := "NO-BILL"
	vendor := "N/A"
	date := now.Format("2006-01-02")

	return BillRecord{
		BillNumber:          &billNumber,
		BillDate:            &date,
		VendorName:          &vendor,
		TransactionCategory: form.Claim.TransactionCategory,
		Purpose:             form.Claim.Purpose,
		Amount:              form.ManualAmount,
		Currency:            "INR",
		Product:             form.Claim.Product,
		ClusterLocation:     optional(form.Claim.Cluster),
		NeedsReview:         true,
		ApprovalStatus:      ApprovalNeedsReview,
		BillType:            BillTypeNoBill,
		Comments:            form.Comments,
	}
}

// processUpload stores the file and turns its extraction into a bill record
func (s *Service) processUpload(ctx context.Context, form Form, u Upload, now time.Time) BillRecord {
	var key, url string
	if s.storage != nil {
		key = uuid.NewString() + "_" + sanitizeFilename(u.Filename)
		var err error
		url, err = s.storage.Put(ctx, key, u.ContentType, u.Data)
		if err != nil {
			slog.Warn("Failed to store bill file", "filename", u.Filename, "error", err)
			key, url = "", ""
		}
	}

	extraction := s.extractor.ExtractBill(ctx, u.Data, u.Filename)
	if extraction.Outcome != scanning.OutcomeStructured {
		slog.Warn("Bill extraction degraded",
			"filename", u.Filename,
			"outcome", extraction.Outcome.String(),
			"reason", extraction.Reason,
		)
	}

	bill := s.billFromExtraction(ctx, extraction, form, now)
	bill.FileName = u.Filename
	bill.FileKey = key
	bill.FileURL = url
	return bill
}

// billFromExtraction applies claim-level fallbacks and review rules to an extraction
func (s *Service) billFromExtraction(ctx context.Context, extraction scanning.Extraction, form Form, now time.Time) BillRecord {
	data := extraction.Bill

	pick := func(field, extracted, claimLevel string) string {
		if data.Defaulted(field) && claimLevel != "" {
			return claimLevel
		}
		return extracted
	}

	date := data.BillDate
	if date == nil {
		today := now.Format("2006-01-02")
		date = &today
	}

	location := data.ClusterLocation
	if location == nil {
		location = optional(form.Claim.Cluster)
	}

	bill := BillRecord{
		BillNumber:          data.BillNumber,
		BillDate:            date,
		VendorName:          data.VendorName,
		TransactionCategory: pick(scanning.FieldTransactionCategory, data.TransactionCategory, form.Claim.TransactionCategory),
		Purpose:             pick(scanning.FieldPurpose, data.Purpose, form.Claim.Purpose),
		Amount:              data.Amount,
		Currency:            data.Currency,
		Product:             pick(scanning.FieldProduct, data.Product, form.Claim.Product),
		ClusterLocation:     location,
		ConfidenceScore:     data.ConfidenceScore,
		BillType:            BillTypeUpload,
		Extraction:          extraction.Outcome.String(),
	}

	bill.NeedsReview = s.rules.NeedsReview(data.ConfidenceScore)
	bill.ChangeFlag = s.changed(form, data)
	bill.DuplicateDetected = s.duplicates.Check(ctx, deref(data.BillNumber), deref(data.VendorName), data.Amount)
	bill.ApprovalStatus = ApprovalFor(bill)
	return bill
}

// changed reports whether the manually entered amount or bill number disagrees with the extraction
func (s *Service) changed(form Form, data scanning.BillData) bool {
	if form.HasManualAmount && s.rules.AmountChanged(form.ManualAmount, data.Amount) {
		return true
	}
	if form.ManualBillNumber != "" && deref(data.BillNumber) != form.ManualBillNumber {
		return true
	}
	return false
}

// ExtractBill reads a single bill without storing anything
func (s *Service) ExtractBill(ctx context.Context, data []byte, filename string) BillRecord {
	extraction := s.extractor.ExtractBill(ctx, data, filename)
	bill := s.billFromExtraction(ctx, extraction, Form{}, s.timeSource.Now())
	bill.FileName = filename
	return bill
}

// ListClaims returns stored claims, optionally only those of one owner
func (s *Service) ListClaims(ctx context.Context, ownerEmail string) ([]*ClaimRecord, error) {
	claims, err := s.store.List(ctx, ListOptions{OwnerEmail: ownerEmail})
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	return claims, nil
}

// GetClaim retrieves a claim by ID
func (s *Service) GetClaim(ctx context.Context, id string) (*ClaimRecord, error) {
	claim, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return claim, nil
}

// DeleteClaim removes a claim and its stored bill files
func (s *Service) DeleteClaim(ctx context.Context, id string) error {
	claim, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("getting claim for deletion: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting claim: %w", err)
	}

	s.deleteFiles(ctx, claim.Bills)
	return nil
}

// GetBillFile retrieves a stored bill file by its storage key
func (s *Service) GetBillFile(ctx context.Context, key string) ([]byte, error) {
	if s.storage == nil {
		return nil, errors.New("no object storage configured")
	}
	data, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("getting bill file: %w", err)
	}
	return data, nil
}

// deleteFiles removes stored bill files, logging failures
func (s *Service) deleteFiles(ctx context.Context, bills []BillRecord) {
	if s.storage == nil {
		return
	}
	for _, b := range bills {
		if b.FileKey == "" {
			continue
		}
		if err := s.storage.Delete(ctx, b.FileKey); err != nil {
			slog.Warn("Failed to delete file", "key", b.FileKey, "error", err)
		}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
