package ocr_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensehub/expensehub/internal/ocr"
)

func TestOCR(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OCR Suite")
}

var _ = Describe("ParseReceiptText", func() {
	Describe("merchant extraction", func() {
		It("picks the first line carrying a business suffix", func() {
			text := "Receipt\nGRAND PLAZA HOTEL\nRoom 204\nTOTAL: $120.00"

			result := ocr.ParseReceiptText(text)

			Expect(result.Merchant).To(Equal("GRAND PLAZA HOTEL"))
		})

		It("falls back to the first line when no suffix matches", func() {
			text := "Joe's Place\n123 Main St\nTOTAL: $8.00"

			result := ocr.ParseReceiptText(text)

			Expect(result.Merchant).To(Equal("Joe's Place"))
		})
	})

	Describe("amount extraction", func() {
		It("parses a TOTAL line and adds 0.3 confidence", func() {
			result := ocr.ParseReceiptText("CITY DINER\nTOTAL: $42.50")

			Expect(result.Amount).ToNot(BeNil())
			Expect(*result.Amount).To(Equal(42.50))
			Expect(result.Confidence).To(BeNumerically(">=", 0.3))
		})

		It("prefers the TOTAL pattern over a later dollar match", func() {
			text := "SOME SHOP\n$5.00 discount\nTOTAL: 19.99"

			result := ocr.ParseReceiptText(text)

			Expect(result.Amount).ToNot(BeNil())
			Expect(*result.Amount).To(Equal(19.99))
		})

		It("handles currency-code amounts", func() {
			result := ocr.ParseReceiptText("AIRPORT TAXI\nAMOUNT: EUR 33.10")

			Expect(result.Amount).ToNot(BeNil())
			Expect(*result.Amount).To(Equal(33.10))
		})

		It("leaves the amount nil when nothing matches", func() {
			result := ocr.ParseReceiptText("HANDWRITTEN NOTE\nthanks for visiting")

			Expect(result.Amount).To(BeNil())
		})
	})

	Describe("date extraction", func() {
		It("parses a slash date and adds 0.2 confidence", func() {
			result := ocr.ParseReceiptText("ACME LTD\n03/15/2026\nTOTAL: $10.00")

			Expect(result.Date).ToNot(BeNil())
			Expect(result.Date.Year()).To(Equal(2026))
			Expect(result.Date.Month()).To(Equal(time.March))
			Expect(result.Date.Day()).To(Equal(15))
			Expect(result.Confidence).To(BeNumerically("~", 0.5, 0.001))
		})

		It("parses an ISO date", func() {
			result := ocr.ParseReceiptText("CITY DINER\n2026-03-15")

			Expect(result.Date).ToNot(BeNil())
			Expect(result.Date.Day()).To(Equal(15))
		})

		It("rejects an impossible calendar date", func() {
			result := ocr.ParseReceiptText("CITY DINER\n13/45/2026")

			Expect(result.Date).To(BeNil())
		})
	})

	Describe("category lookup", func() {
		It("maps a hotel merchant to accommodation and adds 0.1 confidence", func() {
			result := ocr.ParseReceiptText("GRAND PLAZA HOTEL\nTOTAL: $120.00\n03/15/2026")

			Expect(result.Category).ToNot(BeNil())
			Expect(*result.Category).To(Equal("accommodation"))
			Expect(result.Confidence).To(BeNumerically("~", 0.6, 0.001))
		})

		It("maps a restaurant merchant to meals", func() {
			result := ocr.ParseReceiptText("MARIO'S RESTAURANT\nTOTAL: $30.00")

			Expect(result.Category).ToNot(BeNil())
			Expect(*result.Category).To(Equal("meals"))
		})

		It("leaves the category nil for unknown merchants", func() {
			result := ocr.ParseReceiptText("XYZZY\nTOTAL: $1.00")

			Expect(result.Category).To(BeNil())
		})
	})

	Describe("confidence", func() {
		It("is zero for empty text", func() {
			result := ocr.ParseReceiptText("   \n\n  ")

			Expect(result.Confidence).To(BeZero())
			Expect(result.Merchant).To(BeEmpty())
		})

		It("never exceeds 1.0", func() {
			result := ocr.ParseReceiptText("GRAND PLAZA HOTEL\n03/15/2026\nTOTAL: $99.00")

			Expect(result.Confidence).To(BeNumerically("<=", 1.0))
		})
	})
})
