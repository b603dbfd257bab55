package currency_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensehub/expensehub/internal/currency"
)

func TestCurrency(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Currency Suite")
}

// Mock rate source for testing
type mockRateSource struct {
	rates    map[string]float64
	rateErr  error
	getCalls int
}

func (m *mockRateSource) GetRate(ctx context.Context, from, to string) (float64, error) {
	m.getCalls++
	if m.rateErr != nil {
		return 0, m.rateErr
	}
	return m.rates[from+":"+to], nil
}

var _ = Describe("Converter", func() {
	var (
		converter *currency.Converter
		rates     *mockRateSource
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		rates = &mockRateSource{rates: map[string]float64{"EUR:USD": 1.0857}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		converter = currency.NewConverter(rates, logger)
	})

	It("converts using the source rate and rounds to cents", func() {
		result, err := converter.Convert(ctx, 100, "EUR", "USD")

		Expect(err).ToNot(HaveOccurred())
		Expect(result.OriginalAmount).To(Equal(100.0))
		Expect(result.OriginalCurrency).To(Equal("EUR"))
		Expect(result.Amount).To(Equal(108.57))
		Expect(result.Currency).To(Equal("USD"))
		Expect(result.Rate).To(Equal(1.0857))
	})

	It("short-circuits same-currency conversion without a rate lookup", func() {
		result, err := converter.Convert(ctx, 42.5, "USD", "USD")

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Amount).To(Equal(42.5))
		Expect(result.Rate).To(Equal(1.0))
		Expect(rates.getCalls).To(BeZero())
	})

	It("normalizes lowercase codes", func() {
		result, err := converter.Convert(ctx, 10, "eur", "usd")

		Expect(err).ToNot(HaveOccurred())
		Expect(result.OriginalCurrency).To(Equal("EUR"))
		Expect(result.Currency).To(Equal("USD"))
	})

	It("rejects malformed currency codes", func() {
		_, err := converter.Convert(ctx, 10, "EURO", "USD")

		Expect(err).To(HaveOccurred())
	})

	It("propagates rate source failures", func() {
		rates.rateErr = errors.New("upstream down")

		_, err := converter.Convert(ctx, 10, "EUR", "USD")

		Expect(err).To(MatchError("upstream down"))
	})
})
