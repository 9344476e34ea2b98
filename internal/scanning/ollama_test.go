package scanning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		ghttpServer *ghttp.Server
		model       *Ollama
		media       Media
		result      string
		err         error
	)

	BeforeEach(func() {
		ghttpServer = ghttp.NewServer()
		model, err = NewOllama(ghttpServer.URL()+"/", "llava:13b")
		Expect(err).NotTo(HaveOccurred())
		media = Media{Data: []byte{0x89, 'P', 'N', 'G', 1, 2, 3}, MIMEType: "image/png"}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	JustBeforeEach(func() {
		result, err = model.Generate(context.Background(), "read this bill", media)
	})

	When("the server answers", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())

					var req ollamaChatRequest
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Model).To(Equal("llava:13b"))
					Expect(req.Stream).To(BeFalse())
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[0].Role).To(Equal("system"))
					Expect(req.Messages[0].Images).To(BeEmpty())
					Expect(req.Messages[1].Role).To(Equal("user"))
					Expect(req.Messages[1].Content).To(Equal("read this bill"))
					Expect(req.Messages[1].Images).To(ConsistOf(base64.StdEncoding.EncodeToString(media.Data)))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"message": map[string]any{"role": "assistant", "content": `{"bill_number":"INV-9"}`},
					"done":    true,
				}),
			))
		})

		It("should send the image inside the user message", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(ghttpServer.ReceivedRequests()).To(HaveLen(1))
		})

		It("should return the message content", func() {
			Expect(result).To(Equal(`{"bill_number":"INV-9"}`))
		})
	})

	When("the server fails", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("should report the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
			Expect(result).To(BeEmpty())
		})
	})

	When("the server returns malformed JSON", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWith(http.StatusOK, "{not json"))
		})

		It("should return a decoding error", func() {
			Expect(err).To(MatchError(ContainSubstring("decoding response")))
		})
	})

	When("the media is a PDF", func() {
		BeforeEach(func() {
			media = Media{Data: []byte("%PDF-1.4"), MIMEType: "application/pdf"}
		})

		It("should refuse without calling the server", func() {
			Expect(err).To(MatchError("ollama does not accept application/pdf input"))
			Expect(ghttpServer.ReceivedRequests()).To(BeEmpty())
		})
	})
})

var _ = Describe("NewOllama", func() {
	It("should default the address and model", func() {
		model, err := NewOllama("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(model.baseURL).To(Equal("http://localhost:11434"))
		Expect(model.model).To(Equal("llava"))
	})
})
