package claim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Rules", func() {
	var rules Rules

	BeforeEach(func() {
		rules = DefaultRules()
	})

	Describe("NeedsReview", func() {
		It("should flag scores below 85", func() {
			Expect(rules.NeedsReview(84)).To(BeTrue())
			Expect(rules.NeedsReview(85)).To(BeFalse())
		})

		It("should honour a custom threshold", func() {
			rules.ConfidenceThreshold = 50
			Expect(rules.NeedsReview(60)).To(BeFalse())
		})
	})

	Describe("AmountChanged", func() {
		d := decimal.RequireFromString

		It("should ignore differences within the tolerance", func() {
			Expect(rules.AmountChanged(d("500.00"), d("500.01"))).To(BeFalse())
		})

		It("should flag larger differences", func() {
			Expect(rules.AmountChanged(d("500.00"), d("499.00"))).To(BeTrue())
			Expect(rules.AmountChanged(d("500.00"), d("500.011"))).To(BeTrue())
		})
	})

	Describe("SameAmount", func() {
		d := decimal.RequireFromString

		It("should match strictly within the tolerance", func() {
			Expect(rules.SameAmount(d("100.00"), d("100.005"))).To(BeTrue())
			Expect(rules.SameAmount(d("100.00"), d("99.995"))).To(BeTrue())
		})

		It("should not match at the tolerance", func() {
			Expect(rules.SameAmount(d("100.00"), d("100.01"))).To(BeFalse())
		})
	})
})
