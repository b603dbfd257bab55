package expense

import (
	"time"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/currency"
)

// CreateExpenseDTO is the transport shape for filing a new expense.
type CreateExpenseDTO struct {
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	ExpenseDate time.Time `json:"expense_date"`
}

func (d *CreateExpenseDTO) Validate() error {
	if d.Amount <= 0 {
		return internal.NewValidationFieldError("amount", "amount must be greater than zero", internal.ErrCodeInvalidAmount)
	}
	d.Currency = currency.Normalize(d.Currency)
	if !currency.IsValidCode(d.Currency) {
		return internal.NewValidationFieldError("currency", "currency must be a 3-letter ISO code", internal.ErrCodeInvalidCurrency)
	}
	if !IsValidCategory(d.Category) {
		return internal.NewValidationFieldError("category", "unknown expense category", internal.ErrCodeInvalidCategory)
	}
	if len(d.Description) > 1000 {
		return internal.NewValidationFieldError("description", "description too long", internal.ErrCodeInvalidDescription)
	}
	if d.ExpenseDate.IsZero() {
		return internal.NewValidationFieldError("expense_date", "expense date is required", internal.ErrCodeInvalidDate)
	}
	// One day of slack absorbs timezone differences between client and server.
	if d.ExpenseDate.After(time.Now().Add(24 * time.Hour)) {
		return internal.NewValidationFieldError("expense_date", "expense date cannot be more than a day in the future", internal.ErrCodeInvalidDate)
	}
	return nil
}

// UpdateExpenseDTO carries the fields an owner may change while the
// expense is still editable. Nil fields stay untouched.
type UpdateExpenseDTO struct {
	Amount      *float64   `json:"amount,omitempty"`
	Currency    *string    `json:"currency,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	ExpenseDate *time.Time `json:"expense_date,omitempty"`
}

func (d *UpdateExpenseDTO) Validate() error {
	if d.Amount != nil && *d.Amount <= 0 {
		return internal.NewValidationFieldError("amount", "amount must be greater than zero", internal.ErrCodeInvalidAmount)
	}
	if d.Currency != nil {
		normalized := currency.Normalize(*d.Currency)
		if !currency.IsValidCode(normalized) {
			return internal.NewValidationFieldError("currency", "currency must be a 3-letter ISO code", internal.ErrCodeInvalidCurrency)
		}
		d.Currency = &normalized
	}
	if d.Category != nil && !IsValidCategory(*d.Category) {
		return internal.NewValidationFieldError("category", "unknown expense category", internal.ErrCodeInvalidCategory)
	}
	if d.Description != nil && len(*d.Description) > 1000 {
		return internal.NewValidationFieldError("description", "description too long", internal.ErrCodeInvalidDescription)
	}
	if d.ExpenseDate != nil && d.ExpenseDate.After(time.Now().Add(24*time.Hour)) {
		return internal.NewValidationFieldError("expense_date", "expense date cannot be more than a day in the future", internal.ErrCodeInvalidDate)
	}
	return nil
}

// ListFilter narrows expense listings. Zero values mean "no filter".
type ListFilter struct {
	CompanyID int64
	UserID    *int64
	Status    string
	Category  string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
