package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("salvage", func() {
	DescribeTable("amounts",
		func(text string, expected string) {
			result := salvage(text)
			Expect(result.Bill.Amount).To(BeComparableTo(decimal.RequireFromString(expected)))
		},
		Entry("rupee symbol prefix", "Total: ₹1,250.00 Date: 2024-03-15", "1250.00"),
		Entry("dollar prefix", "paid $42.75 at the counter", "42.75"),
		Entry("Rs. prefix", "Rs. 300 only", "300"),
		Entry("label without symbol", "Grand total 1,899.50", "1899.50"),
		Entry("label with colon", "AMOUNT: 75", "75"),
		Entry("symbol suffix", "charged 450 € on card", "450"),
		Entry("symbol prefix wins over label", "price 10 then ₹99", "99"),
		Entry("nothing found", "no numbers here", "0"),
	)

	DescribeTable("dates",
		func(text string, expected string) {
			result := salvage(text)
			Expect(result.Bill.BillDate).To(HaveValue(Equal(expected)))
		},
		Entry("ISO date", "Total: ₹1,250.00 Date: 2024-03-15", "2024-03-15"),
		Entry("day first with dashes", "Dated 15-03-2024", "15-03-2024"),
		Entry("day first with slashes", "on 15/03/2024", "15/03/2024"),
		Entry("two-digit year", "15/03/24", "15/03/24"),
		Entry("ISO preferred over others", "15/03/24 and 2024-03-16", "2024-03-16"),
		Entry("not validated", "2024-99-99", "2024-99-99"),
	)

	It("should leave the date null when none is found", func() {
		Expect(salvage("Total ₹5").Bill.BillDate).To(BeNil())
	})

	It("should use a fixed confidence of 30", func() {
		Expect(salvage("anything").Bill.ConfidenceScore).To(Equal(30))
	})

	It("should default the descriptive fields", func() {
		bill := salvage("₹10").Bill
		Expect(bill.TransactionCategory).To(Equal("Other"))
		Expect(bill.Product).To(Equal("General"))
		Expect(bill.Currency).To(Equal("INR"))
		Expect(bill.VendorName).To(BeNil())
		Expect(bill.BillNumber).To(BeNil())
	})

	It("should report the fallback outcome", func() {
		Expect(salvage("").Outcome).To(Equal(OutcomeFallback))
	})
})
