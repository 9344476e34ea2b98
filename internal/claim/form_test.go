package claim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("ParseForm", func() {
	var (
		fields map[string]string
		form   Form
	)

	BeforeEach(func() {
		fields = map[string]string{
			"user_email":      " asha@example.com ",
			"employee_name":   "Asha",
			"hod_email":       "lead@example.com",
			"cc_emails":       "a@example.com, ,b@example.com",
			"people_involved": "Asha,Ravi",
		}
	})

	JustBeforeEach(func() {
		form = ParseForm(fields)
	})

	It("should trim fields", func() {
		Expect(form.OwnerEmail).To(Equal("asha@example.com"))
	})

	It("should split lists and drop blanks", func() {
		Expect(form.Employee.CCEmails).To(Equal([]string{"a@example.com", "b@example.com"}))
		Expect(form.Employee.AdditionalCC).To(BeEmpty())
		Expect(form.Claim.PeopleInvolved).To(Equal([]string{"Asha", "Ravi"}))
	})

	It("should default the payment mode", func() {
		Expect(form.Employee.ModeOfPayment).To(Equal("Bank Transfer"))
	})

	It("should not report a manual amount when none was given", func() {
		Expect(form.HasManualAmount).To(BeFalse())
		Expect(form.NoBill).To(BeFalse())
	})

	When("a manual amount is given", func() {
		BeforeEach(func() {
			fields["manual_amount"] = "1,250.50"
		})

		It("should accept thousands separators", func() {
			Expect(form.HasManualAmount).To(BeTrue())
			Expect(form.ManualAmount).To(BeComparableTo(decimal.RequireFromString("1250.50")))
		})
	})

	DescribeTable("coercing bad amounts to zero",
		func(raw string) {
			fields["manual_amount"] = raw
			Expect(ParseForm(fields).ManualAmount.IsZero()).To(BeTrue())
		},
		Entry("words", "lots"),
		Entry("negative", "-20"),
		Entry("two points", "1.2.3"),
	)

	When("the bill type is no_bill", func() {
		BeforeEach(func() {
			fields["bill_type"] = "no_bill"
		})

		It("should mark the form", func() {
			Expect(form.NoBill).To(BeTrue())
		})
	})
})
