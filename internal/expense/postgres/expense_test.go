package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/expense"
)

func TestExpenseRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ExpenseRepository Suite")
}

func newDraft(userID, companyID int64, amount float64) *expense.Expense {
	now := time.Now()
	return &expense.Expense{
		UserID:           userID,
		CompanyID:        companyID,
		OriginalAmount:   amount,
		OriginalCurrency: "USD",
		Amount:           amount,
		Currency:         "USD",
		ExchangeRate:     1,
		Category:         expense.CategoryTravel,
		Description:      "Test expense",
		ExpenseDate:      now.AddDate(0, 0, -1),
		Status:           expense.StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

var _ = Describe("ExpenseRepository", func() {
	var (
		db   *gorm.DB
		repo expense.Repository
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&expense.Expense{}, &expense.Receipt{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewExpenseRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create", func() {
		It("should create an expense and assign an ID", func() {
			exp := newDraft(1, 1, 125.50)

			err := repo.Create(exp)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.ID).To(BeNumerically(">", 0))
		})
	})

	Describe("GetByID", func() {
		var created *expense.Expense

		BeforeEach(func() {
			created = newDraft(1, 1, 125.50)
			Expect(repo.Create(created)).NotTo(HaveOccurred())
		})

		It("should retrieve the expense by ID", func() {
			retrieved, err := repo.GetByID(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.ID).To(Equal(created.ID))
			Expect(retrieved.UserID).To(Equal(created.UserID))
			Expect(retrieved.Amount).To(Equal(created.Amount))
			Expect(retrieved.Status).To(Equal(expense.StatusDraft))
		})

		It("should return ErrExpenseNotFound for an unknown ID", func() {
			retrieved, err := repo.GetByID(99999)
			Expect(err).To(Equal(internal.ErrExpenseNotFound))
			Expect(retrieved).To(BeNil())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			a := newDraft(1, 1, 50)
			Expect(repo.Create(a)).NotTo(HaveOccurred())

			b := newDraft(2, 1, 80)
			b.Category = expense.CategoryMeals
			b.Status = expense.StatusPendingManager
			Expect(repo.Create(b)).NotTo(HaveOccurred())

			other := newDraft(3, 2, 10)
			Expect(repo.Create(other)).NotTo(HaveOccurred())
		})

		It("should scope results to the company", func() {
			expenses, err := repo.List(expense.ListFilter{CompanyID: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(2))
		})

		It("should filter by owner", func() {
			userID := int64(1)
			expenses, err := repo.List(expense.ListFilter{CompanyID: 1, UserID: &userID, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(1))
			Expect(expenses[0].UserID).To(Equal(int64(1)))
		})

		It("should filter by status and category", func() {
			expenses, err := repo.List(expense.ListFilter{
				CompanyID: 1,
				Status:    expense.StatusPendingManager,
				Category:  expense.CategoryMeals,
				Limit:     10,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(1))
			Expect(expenses[0].UserID).To(Equal(int64(2)))
		})

		It("should filter by date range", func() {
			from := time.Now().AddDate(0, 0, -2)
			to := time.Now()
			expenses, err := repo.List(expense.ListFilter{CompanyID: 1, From: &from, To: &to, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(2))
		})
	})

	Describe("UpdateStatusIf", func() {
		var created *expense.Expense

		BeforeEach(func() {
			created = newDraft(1, 1, 125.50)
			Expect(repo.Create(created)).NotTo(HaveOccurred())
		})

		It("should transition when the current status matches", func() {
			approverID := int64(2)
			rows, err := repo.UpdateStatusIf(created.ID, expense.StatusDraft, expense.StatusPendingManager,
				map[string]interface{}{"current_approver_id": approverID})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))

			retrieved, err := repo.GetByID(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Status).To(Equal(expense.StatusPendingManager))
			Expect(retrieved.CurrentApproverID).NotTo(BeNil())
			Expect(*retrieved.CurrentApproverID).To(Equal(int64(2)))
		})

		It("should affect zero rows when the current status differs", func() {
			rows, err := repo.UpdateStatusIf(created.ID, expense.StatusApproved, expense.StatusReimbursed, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeZero())

			retrieved, err := repo.GetByID(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Status).To(Equal(expense.StatusDraft))
		})
	})

	Describe("Delete", func() {
		It("should soft delete so the row disappears from reads", func() {
			created := newDraft(1, 1, 125.50)
			Expect(repo.Create(created)).NotTo(HaveOccurred())

			Expect(repo.Delete(created.ID)).NotTo(HaveOccurred())

			_, err := repo.GetByID(created.ID)
			Expect(err).To(Equal(internal.ErrExpenseNotFound))

			var count int64
			err = db.Unscoped().Model(&expense.Expense{}).Where("id = ?", created.ID).Count(&count).Error
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("Receipts", func() {
		It("should attach and list receipts in upload order", func() {
			created := newDraft(1, 1, 125.50)
			Expect(repo.Create(created)).NotTo(HaveOccurred())

			first := &expense.Receipt{
				ExpenseID:   created.ID,
				FileName:    "receipt-1.jpg",
				StoragePath: "/uploads/receipt-1.jpg",
				MimeType:    "image/jpeg",
				SizeBytes:   2048,
				CreatedAt:   time.Now().Add(-time.Minute),
			}
			second := &expense.Receipt{
				ExpenseID:   created.ID,
				FileName:    "receipt-2.png",
				StoragePath: "/uploads/receipt-2.png",
				MimeType:    "image/png",
				SizeBytes:   4096,
				CreatedAt:   time.Now(),
			}
			Expect(repo.AddReceipt(first)).NotTo(HaveOccurred())
			Expect(repo.AddReceipt(second)).NotTo(HaveOccurred())

			receipts, err := repo.GetReceipts(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(2))
			Expect(receipts[0].FileName).To(Equal("receipt-1.jpg"))
			Expect(receipts[1].FileName).To(Equal("receipt-2.png"))
		})
	})
})
