package company_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/company"
)

func TestCompany(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Company Suite")
}

// Mock repository for testing
type mockCompanyRepo struct {
	companies map[int64]*company.Company
	nextID    int64
}

func newMockCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{companies: make(map[int64]*company.Company), nextID: 1}
}

func (m *mockCompanyRepo) Create(c *company.Company) error {
	c.ID = m.nextID
	m.nextID++
	m.companies[c.ID] = c
	return nil
}

func (m *mockCompanyRepo) GetByID(id int64) (*company.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, internal.ErrCompanyNotFound
	}
	return c, nil
}

func (m *mockCompanyRepo) Update(c *company.Company) error {
	if _, ok := m.companies[c.ID]; !ok {
		return internal.ErrCompanyNotFound
	}
	m.companies[c.ID] = c
	return nil
}

var _ = Describe("CompanyService", func() {
	var (
		service *company.Service
		repo    *mockCompanyRepo
	)

	BeforeEach(func() {
		repo = newMockCompanyRepo()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = company.NewService(repo, logger)
	})

	Describe("CreateCompany", func() {
		It("creates an active multi-step company", func() {
			c, err := service.CreateCompany(company.CreateCompanyDTO{
				Name:     "Acme Corp",
				Country:  "US",
				Currency: "USD",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(c.ID).ToNot(BeZero())
			Expect(c.ApprovalMode).To(Equal(company.ApprovalModeMultiStep))
			Expect(c.IsActive).To(BeTrue())
		})

		It("rejects a malformed currency code", func() {
			_, err := service.CreateCompany(company.CreateCompanyDTO{
				Name:     "Acme Corp",
				Currency: "DOLLARS",
			})

			Expect(err).To(HaveOccurred())
		})

		It("rejects a blank name", func() {
			_, err := service.CreateCompany(company.CreateCompanyDTO{
				Name:     "   ",
				Currency: "USD",
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetCompany", func() {
		It("maps repository misses to not found", func() {
			_, err := service.GetCompany(42)

			Expect(errors.Is(err, internal.ErrCompanyNotFound)).To(BeTrue())
		})
	})

	Describe("UpdateSettings", func() {
		var existing *company.Company

		BeforeEach(func() {
			var err error
			existing, err = service.CreateCompany(company.CreateCompanyDTO{
				Name:     "Acme Corp",
				Currency: "USD",
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("applies partial changes and leaves the rest alone", func() {
			limit := int64(250)
			updated, err := service.UpdateSettings(existing.ID, company.UpdateSettingsDTO{
				AutoApprovalLimit: &limit,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.AutoApprovalLimit).To(Equal(int64(250)))
			Expect(updated.ApprovalMode).To(Equal(company.ApprovalModeMultiStep))
		})

		It("switches the approval mode", func() {
			mode := company.ApprovalModeSingle
			updated, err := service.UpdateSettings(existing.ID, company.UpdateSettingsDTO{
				ApprovalMode: &mode,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.ApprovalMode).To(Equal(company.ApprovalModeSingle))
		})

		It("rejects an unknown approval mode", func() {
			mode := "committee"
			_, err := service.UpdateSettings(existing.ID, company.UpdateSettingsDTO{
				ApprovalMode: &mode,
			})

			Expect(err).To(HaveOccurred())
		})

		It("rejects a negative receipt threshold", func() {
			threshold := int64(-1)
			_, err := service.UpdateSettings(existing.ID, company.UpdateSettingsDTO{
				ReceiptThreshold: &threshold,
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DeactivateCompany", func() {
		It("flips the active flag", func() {
			c, err := service.CreateCompany(company.CreateCompanyDTO{
				Name:     "Acme Corp",
				Currency: "USD",
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeactivateCompany(c.ID)).To(Succeed())

			stored, err := repo.GetByID(c.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.IsActive).To(BeFalse())
		})
	})

	Describe("settings helpers", func() {
		It("requires receipts only at or above the threshold", func() {
			c := &company.Company{ReceiptThreshold: 500}

			Expect(c.RequiresReceipt(499.99)).To(BeFalse())
			Expect(c.RequiresReceipt(500)).To(BeTrue())
		})

		It("never requires receipts when the threshold is unset", func() {
			c := &company.Company{}

			Expect(c.RequiresReceipt(1_000_000)).To(BeFalse())
		})

		It("auto-approves only at or below the limit", func() {
			c := &company.Company{AutoApprovalLimit: 100}

			Expect(c.AutoApproves(100)).To(BeTrue())
			Expect(c.AutoApproves(100.01)).To(BeFalse())
		})
	})
})
