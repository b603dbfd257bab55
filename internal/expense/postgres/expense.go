package postgres

import (
	"errors"
	"time"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(exp *expense.Expense) error {
	return r.db.Create(exp).Error
}

func (r *ExpenseRepository) GetByID(id int64) (*expense.Expense, error) {
	var exp expense.Expense
	err := r.db.Where("id = ?", id).First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (r *ExpenseRepository) List(filter expense.ListFilter) ([]*expense.Expense, error) {
	query := r.db.Where("company_id = ?", filter.CompanyID)

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.From != nil {
		query = query.Where("expense_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("expense_date <= ?", *filter.To)
	}

	var expenses []*expense.Expense
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) Update(exp *expense.Expense) error {
	exp.UpdatedAt = time.Now()
	return r.db.Save(exp).Error
}

// UpdateStatusIf is the conditional transition closing the
// check-then-act race: the WHERE clause only matches the expected
// current status, and the caller inspects the affected-row count.
func (r *ExpenseRepository) UpdateStatusIf(id int64, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	values := map[string]interface{}{
		"status":     toStatus,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.Model(&expense.Expense{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *ExpenseRepository) Delete(id int64) error {
	return r.db.Delete(&expense.Expense{}, id).Error
}

func (r *ExpenseRepository) AddReceipt(receipt *expense.Receipt) error {
	return r.db.Create(receipt).Error
}

func (r *ExpenseRepository) GetReceipts(expenseID int64) ([]*expense.Receipt, error) {
	var receipts []*expense.Receipt
	err := r.db.Where("expense_id = ?", expenseID).
		Order("created_at ASC").
		Find(&receipts).Error
	return receipts, err
}
