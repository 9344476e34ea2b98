package scanning

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockModel is a mock implementation of Model
type mockModel struct {
	responses []string
	errs      []error
	calls     []Media
	prompts   []string
}

func (m *mockModel) Generate(ctx context.Context, prompt string, media Media) (string, error) {
	i := len(m.calls)
	m.calls = append(m.calls, media)
	m.prompts = append(m.prompts, prompt)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return `{"amount": 1, "confidence_score": 99}`, nil
}

func (m *mockModel) Close() error {
	return nil
}

// mockStrategy is a mock implementation of PageStrategy
type mockStrategy struct {
	name     string
	media    Media
	err      error
	prepared int
}

func (m *mockStrategy) Name() string { return m.name }

func (m *mockStrategy) Prepare(pdfData []byte) (Media, error) {
	m.prepared++
	if m.err != nil {
		return Media{}, m.err
	}
	return m.media, nil
}

func samplePNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Extractor", func() {
	var (
		model      *mockModel
		first      *mockStrategy
		second     *mockStrategy
		third      *mockStrategy
		extractor  *Extractor
		data       []byte
		filename   string
		extraction Extraction
	)

	BeforeEach(func() {
		model = &mockModel{}
		first = &mockStrategy{name: "first", media: Media{Data: []byte("one"), MIMEType: "image/png"}}
		second = &mockStrategy{name: "second", media: Media{Data: []byte("two"), MIMEType: "image/png"}}
		third = &mockStrategy{name: "third", media: Media{Data: []byte("three"), MIMEType: "application/pdf"}}
		extractor = NewExtractorWithStrategies(model, []PageStrategy{first, second, third})
	})

	JustBeforeEach(func() {
		extraction = extractor.ExtractBill(context.Background(), data, filename)
	})

	Describe("images", func() {
		BeforeEach(func() {
			data = samplePNG()
			filename = "bill.png"
			model.responses = []string{"```json\n{\"amount\": 120.5, \"confidence_score\": 92}\n```"}
		})

		It("should send a PNG with the extraction prompt", func() {
			Expect(model.calls).To(HaveLen(1))
			Expect(model.calls[0].MIMEType).To(Equal("image/png"))
			Expect(model.prompts[0]).To(ContainSubstring("bill_number"))
		})

		It("should return the normalized response", func() {
			Expect(extraction.Outcome).To(Equal(OutcomeStructured))
			Expect(extraction.Bill.ConfidenceScore).To(Equal(92))
		})

		It("should not touch the PDF strategies", func() {
			Expect(first.prepared).To(BeZero())
		})

		When("the model fails", func() {
			BeforeEach(func() {
				model.errs = []error{errors.New("model unavailable")}
			})

			It("should return a failure with zero confidence", func() {
				Expect(extraction.Outcome).To(Equal(OutcomeFailure))
				Expect(extraction.Bill.ConfidenceScore).To(BeZero())
				Expect(extraction.Bill.TransactionCategory).To(Equal("Other"))
				Expect(extraction.Bill.Purpose).To(ContainSubstring("model unavailable"))
			})
		})

		When("the bytes are not an image", func() {
			BeforeEach(func() {
				data = []byte("definitely not an image")
				filename = "bill.jpg"
			})

			It("should report an image processing error", func() {
				Expect(extraction.Outcome).To(Equal(OutcomeFailure))
				Expect(extraction.Bill.Purpose).To(HavePrefix("Image processing error"))
				Expect(extraction.Bill.ConfidenceScore).To(BeZero())
			})

			It("should not call the model", func() {
				Expect(model.calls).To(BeEmpty())
			})
		})
	})

	Describe("PDFs", func() {
		BeforeEach(func() {
			data = []byte("%PDF-1.4 fake")
			filename = "bill.pdf"
		})

		When("the first strategy works", func() {
			It("should use it", func() {
				Expect(model.calls).To(HaveLen(1))
				Expect(string(model.calls[0].Data)).To(Equal("one"))
				Expect(second.prepared).To(BeZero())
			})
		})

		When("the first strategy cannot prepare the PDF", func() {
			BeforeEach(func() {
				first.err = errors.New("mupdf missing")
			})

			It("should fall through to the next one", func() {
				Expect(model.calls).To(HaveLen(1))
				Expect(string(model.calls[0].Data)).To(Equal("two"))
			})
		})

		When("the model rejects the first two", func() {
			BeforeEach(func() {
				model.errs = []error{errors.New("bad image"), errors.New("bad image")}
			})

			It("should submit the PDF directly", func() {
				Expect(model.calls).To(HaveLen(3))
				Expect(model.calls[2].MIMEType).To(Equal("application/pdf"))
				Expect(extraction.Outcome).To(Equal(OutcomeStructured))
			})
		})

		When("every strategy fails", func() {
			BeforeEach(func() {
				first.err = errors.New("mupdf missing")
				second.err = errors.New("no images")
				model.errs = []error{errors.New("pdf rejected")}
			})

			It("should return a failure describing the PDF problem", func() {
				Expect(extraction.Outcome).To(Equal(OutcomeFailure))
				Expect(extraction.Bill.Purpose).To(HavePrefix("PDF processing failed"))
				Expect(extraction.Bill.ConfidenceScore).To(BeZero())
				Expect(extraction.Bill.Amount.IsZero()).To(BeTrue())
				Expect(extraction.Bill.BillNumber).To(BeNil())
			})
		})

		When("the filename has no extension but the bytes are a PDF", func() {
			BeforeEach(func() {
				filename = ""
			})

			It("should still take the PDF path", func() {
				Expect(first.prepared).To(Equal(1))
			})
		})
	})
})
