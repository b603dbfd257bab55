package expense_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/company"
	"github.com/expensehub/expensehub/internal/currency"
	"github.com/expensehub/expensehub/internal/expense"
	"github.com/expensehub/expensehub/internal/user"
)

func TestExpense(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Suite")
}

// Mock repository for testing
type mockRepository struct {
	expenses    map[int64]*expense.Expense
	receipts    map[int64][]*expense.Receipt
	lastFilter  expense.ListFilter
	nextID      int64
	createError error
	updateError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		expenses: make(map[int64]*expense.Expense),
		receipts: make(map[int64][]*expense.Receipt),
		nextID:   1,
	}
}

func (m *mockRepository) Create(exp *expense.Expense) error {
	if m.createError != nil {
		return m.createError
	}
	exp.ID = m.nextID
	m.nextID++
	m.expenses[exp.ID] = exp
	return nil
}

func (m *mockRepository) GetByID(id int64) (*expense.Expense, error) {
	exp, ok := m.expenses[id]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	copied := *exp
	return &copied, nil
}

func (m *mockRepository) List(filter expense.ListFilter) ([]*expense.Expense, error) {
	m.lastFilter = filter
	var out []*expense.Expense
	for _, exp := range m.expenses {
		if filter.UserID != nil && exp.UserID != *filter.UserID {
			continue
		}
		out = append(out, exp)
	}
	return out, nil
}

func (m *mockRepository) Update(exp *expense.Expense) error {
	if m.updateError != nil {
		return m.updateError
	}
	copied := *exp
	m.expenses[exp.ID] = &copied
	return nil
}

func (m *mockRepository) UpdateStatusIf(id int64, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	exp, ok := m.expenses[id]
	if !ok || exp.Status != fromStatus {
		return 0, nil
	}
	exp.Status = toStatus
	if v, ok := updates["reimbursed_at"]; ok {
		at := v.(time.Time)
		exp.ReimbursedAt = &at
	}
	return 1, nil
}

func (m *mockRepository) Delete(id int64) error {
	delete(m.expenses, id)
	return nil
}

func (m *mockRepository) AddReceipt(r *expense.Receipt) error {
	m.receipts[r.ExpenseID] = append(m.receipts[r.ExpenseID], r)
	return nil
}

func (m *mockRepository) GetReceipts(expenseID int64) ([]*expense.Receipt, error) {
	return m.receipts[expenseID], nil
}

// Mock company lookup for testing
type mockCompanies struct {
	company *company.Company
}

func (m *mockCompanies) GetCompany(id int64) (*company.Company, error) {
	if m.company == nil {
		return nil, internal.ErrCompanyNotFound
	}
	return m.company, nil
}

// Mock converter returning a fixed rate
type mockConverter struct {
	rate       float64
	convertErr error
}

func (m *mockConverter) Convert(ctx context.Context, amount float64, from, to string) (*currency.Conversion, error) {
	if m.convertErr != nil {
		return nil, m.convertErr
	}
	rate := m.rate
	if from == to {
		rate = 1
	}
	return &currency.Conversion{
		OriginalAmount:   amount,
		OriginalCurrency: from,
		Amount:           amount * rate,
		Currency:         to,
		Rate:             rate,
	}, nil
}

// Mock user directory for owner lookups
type mockUsers struct {
	users map[int64]*user.User
}

func (m *mockUsers) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

var _ = Describe("ExpenseService", func() {
	var (
		service   *expense.Service
		repo      *mockRepository
		companies *mockCompanies
		converter *mockConverter
		users     *mockUsers
		ctx       context.Context
		owner     *auth.User
		other     *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		companies = &mockCompanies{company: &company.Company{ID: 1, Currency: "USD", IsActive: true}}
		converter = &mockConverter{rate: 2}
		managerID := int64(20)
		users = &mockUsers{users: map[int64]*user.User{
			10: {ID: 10, CompanyID: 1, Role: user.RoleEmployee, ManagerID: &managerID},
			11: {ID: 11, CompanyID: 1, Role: user.RoleEmployee},
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		service = expense.NewService(repo, companies, converter, users, logger)

		owner = &auth.User{ID: 10, Role: user.RoleEmployee, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleEmployee)}
		other = &auth.User{ID: 11, Role: user.RoleEmployee, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleEmployee)}
	})

	Describe("CreateExpense", func() {
		It("converts into the company currency and stores a draft", func() {
			dto := expense.CreateExpenseDTO{
				Amount:      100,
				Currency:    "EUR",
				Category:    expense.CategoryMeals,
				Description: "team dinner",
				ExpenseDate: time.Now().AddDate(0, 0, -1),
			}

			result, err := service.CreateExpense(ctx, owner, dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusDraft))
			Expect(result.OriginalAmount).To(Equal(100.0))
			Expect(result.OriginalCurrency).To(Equal("EUR"))
			Expect(result.Amount).To(Equal(200.0))
			Expect(result.Currency).To(Equal("USD"))
			Expect(result.ExchangeRate).To(Equal(2.0))
			Expect(result.ID).To(BeNumerically(">", 0))
		})

		It("rejects a non-positive amount", func() {
			dto := expense.CreateExpenseDTO{
				Amount:      0,
				Currency:    "USD",
				Category:    expense.CategoryMeals,
				ExpenseDate: time.Now(),
			}

			_, err := service.CreateExpense(ctx, owner, dto)

			Expect(err).To(HaveOccurred())
		})

		It("accepts a date a few hours ahead of the server clock", func() {
			dto := expense.CreateExpenseDTO{
				Amount:      50,
				Currency:    "USD",
				Category:    expense.CategoryMeals,
				ExpenseDate: time.Now().Add(6 * time.Hour),
			}

			_, err := service.CreateExpense(ctx, owner, dto)

			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects a date more than a day ahead", func() {
			dto := expense.CreateExpenseDTO{
				Amount:      50,
				Currency:    "USD",
				Category:    expense.CategoryMeals,
				ExpenseDate: time.Now().Add(48 * time.Hour),
			}

			_, err := service.CreateExpense(ctx, owner, dto)

			Expect(err).To(MatchError(ContainSubstring("more than a day in the future")))
		})

		It("rejects an unknown category", func() {
			dto := expense.CreateExpenseDTO{
				Amount:      50,
				Currency:    "USD",
				Category:    "yachts",
				ExpenseDate: time.Now(),
			}

			_, err := service.CreateExpense(ctx, owner, dto)

			Expect(err).To(HaveOccurred())
		})

		It("propagates conversion failures", func() {
			converter.convertErr = errors.New("rates unavailable")
			dto := expense.CreateExpenseDTO{
				Amount:      50,
				Currency:    "EUR",
				Category:    expense.CategoryMeals,
				ExpenseDate: time.Now(),
			}

			_, err := service.CreateExpense(ctx, owner, dto)

			Expect(err).To(MatchError("rates unavailable"))
		})
	})

	Describe("GetExpense", func() {
		var exp *expense.Expense

		BeforeEach(func() {
			exp = &expense.Expense{UserID: owner.ID, CompanyID: 1, Status: expense.StatusDraft}
			Expect(repo.Create(exp)).To(Succeed())
		})

		It("returns the owner's expense with receipts loaded", func() {
			Expect(repo.AddReceipt(&expense.Receipt{ExpenseID: exp.ID, FileName: "r.png"})).To(Succeed())

			result, err := service.GetExpense(exp.ID, owner)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Receipts).To(HaveLen(1))
		})

		It("hides other employees' expenses", func() {
			_, err := service.GetExpense(exp.ID, other)

			Expect(errors.Is(err, internal.ErrUnauthorizedAccess)).To(BeTrue())
		})

		It("allows viewers with company-wide visibility", func() {
			financeUser := &auth.User{ID: 12, Role: user.RoleFinance, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleFinance)}

			_, err := service.GetExpense(exp.ID, financeUser)

			Expect(err).ToNot(HaveOccurred())
		})

		It("allows the currently assigned approver", func() {
			managerUser := &auth.User{ID: 20, Role: user.RoleManager, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleManager)}
			exp.Status = expense.StatusPendingManager
			exp.CurrentApproverID = &managerUser.ID
			Expect(repo.Update(exp)).To(Succeed())

			result, err := service.GetExpense(exp.ID, managerUser)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.ID).To(Equal(exp.ID))
		})

		It("allows the owner's manager through team visibility", func() {
			managerUser := &auth.User{ID: 20, Role: user.RoleManager, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleManager)}

			_, err := service.GetExpense(exp.ID, managerUser)

			Expect(err).ToNot(HaveOccurred())
		})

		It("hides the expense from a manager outside the chain", func() {
			otherManager := &auth.User{ID: 21, Role: user.RoleManager, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleManager)}

			_, err := service.GetExpense(exp.ID, otherManager)

			Expect(errors.Is(err, internal.ErrUnauthorizedAccess)).To(BeTrue())
		})
	})

	Describe("ListExpenses", func() {
		It("forces owner scoping for plain employees", func() {
			_, err := service.ListExpenses(owner, expense.ListFilter{})

			Expect(err).ToNot(HaveOccurred())
			Expect(repo.lastFilter.UserID).ToNot(BeNil())
			Expect(*repo.lastFilter.UserID).To(Equal(owner.ID))
			Expect(repo.lastFilter.CompanyID).To(Equal(owner.CompanyID))
		})

		It("leaves the user filter open for finance", func() {
			financeUser := &auth.User{ID: 12, Role: user.RoleFinance, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleFinance)}

			_, err := service.ListExpenses(financeUser, expense.ListFilter{})

			Expect(err).ToNot(HaveOccurred())
			Expect(repo.lastFilter.UserID).To(BeNil())
		})

		It("rejects an unknown status filter", func() {
			_, err := service.ListExpenses(owner, expense.ListFilter{Status: "limbo"})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateExpense", func() {
		It("returns a rejected expense to draft and clears the old decision", func() {
			reason := "out of policy"
			approvedBy := int64(2)
			exp := &expense.Expense{
				UserID:          owner.ID,
				CompanyID:       1,
				Status:          expense.StatusRejected,
				RejectionReason: &reason,
				ApprovedByID:    &approvedBy,
			}
			Expect(repo.Create(exp)).To(Succeed())

			desc := "resubmitted"
			result, err := service.UpdateExpense(ctx, exp.ID, owner, expense.UpdateExpenseDTO{Description: &desc})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusDraft))
			Expect(result.RejectionReason).To(BeNil())
			Expect(result.ApprovedByID).To(BeNil())
			Expect(result.Description).To(Equal("resubmitted"))
		})

		It("re-converts when the amount changes", func() {
			exp := &expense.Expense{
				UserID:           owner.ID,
				CompanyID:        1,
				Status:           expense.StatusDraft,
				OriginalAmount:   100,
				OriginalCurrency: "EUR",
				Amount:           200,
				Currency:         "USD",
				ExchangeRate:     2,
			}
			Expect(repo.Create(exp)).To(Succeed())

			newAmount := 150.0
			result, err := service.UpdateExpense(ctx, exp.ID, owner, expense.UpdateExpenseDTO{Amount: &newAmount})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.OriginalAmount).To(Equal(150.0))
			Expect(result.Amount).To(Equal(300.0))
		})

		It("refuses edits while pending approval", func() {
			exp := &expense.Expense{UserID: owner.ID, CompanyID: 1, Status: expense.StatusPendingManager}
			Expect(repo.Create(exp)).To(Succeed())

			desc := "sneaky edit"
			_, err := service.UpdateExpense(ctx, exp.ID, owner, expense.UpdateExpenseDTO{Description: &desc})

			Expect(errors.Is(err, internal.ErrCannotModifyExpense)).To(BeTrue())
		})
	})

	Describe("MarkReimbursed", func() {
		It("moves an approved expense to reimbursed", func() {
			exp := &expense.Expense{UserID: owner.ID, CompanyID: 1, Status: expense.StatusApproved}
			Expect(repo.Create(exp)).To(Succeed())

			financeUser := &auth.User{ID: 12, Role: user.RoleFinance, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleFinance)}
			result, err := service.MarkReimbursed(exp.ID, financeUser)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(expense.StatusReimbursed))
			Expect(result.ReimbursedAt).ToNot(BeNil())
		})

		It("conflicts when the expense is not approved", func() {
			exp := &expense.Expense{UserID: owner.ID, CompanyID: 1, Status: expense.StatusDraft}
			Expect(repo.Create(exp)).To(Succeed())

			financeUser := &auth.User{ID: 12, Role: user.RoleFinance, CompanyID: 1, Permissions: user.PermissionsForRole(user.RoleFinance)}
			_, err := service.MarkReimbursed(exp.ID, financeUser)

			Expect(errors.Is(err, internal.ErrInvalidExpenseStatus)).To(BeTrue())
		})
	})

	Describe("DeleteExpense", func() {
		It("deletes a draft owned by the caller", func() {
			exp := &expense.Expense{UserID: owner.ID, CompanyID: 1, Status: expense.StatusDraft}
			Expect(repo.Create(exp)).To(Succeed())

			Expect(service.DeleteExpense(exp.ID, owner)).To(Succeed())

			_, err := repo.GetByID(exp.ID)
			Expect(err).To(HaveOccurred())
		})

		It("refuses to delete once submitted", func() {
			exp := &expense.Expense{UserID: owner.ID, CompanyID: 1, Status: expense.StatusPendingManager}
			Expect(repo.Create(exp)).To(Succeed())

			err := service.DeleteExpense(exp.ID, owner)

			Expect(errors.Is(err, internal.ErrCannotModifyExpense)).To(BeTrue())
		})
	})
})
