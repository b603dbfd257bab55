package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/company"
	"github.com/expensehub/expensehub/internal/currency"
	"github.com/expensehub/expensehub/internal/user"
)

// Repository defines the data access methods for expenses and receipts.
type Repository interface {
	Create(expense *Expense) error
	GetByID(id int64) (*Expense, error)
	List(filter ListFilter) ([]*Expense, error)
	Update(expense *Expense) error

	// UpdateStatusIf performs a conditional status transition and reports
	// how many rows changed. Zero means the expense was not in fromStatus.
	UpdateStatusIf(id int64, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)

	Delete(id int64) error

	AddReceipt(receipt *Receipt) error
	GetReceipts(expenseID int64) ([]*Receipt, error)
}

// CompanyAPI is the slice of the company service the expense service needs.
type CompanyAPI interface {
	GetCompany(id int64) (*company.Company, error)
}

// ConverterAPI converts amounts into the company currency.
type ConverterAPI interface {
	Convert(ctx context.Context, amount float64, from, to string) (*currency.Conversion, error)
}

// UserDirectory resolves expense owners so managers can be granted
// visibility over their reports' expenses.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
}

// Service handles expense business logic
type Service struct {
	repo      Repository
	companies CompanyAPI
	converter ConverterAPI
	users     UserDirectory
	logger    *slog.Logger
}

// NewService creates a new expense service
func NewService(repo Repository, companies CompanyAPI, converter ConverterAPI, users UserDirectory, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		companies: companies,
		converter: converter,
		users:     users,
		logger:    logger,
	}
}

// CreateExpense converts the submitted amount into the company currency
// and persists the expense as a draft.
func (s *Service) CreateExpense(ctx context.Context, user *auth.User, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "user_id", user.ID)
		return nil, err
	}

	comp, err := s.companies.GetCompany(user.CompanyID)
	if err != nil {
		s.logger.Error("failed to load company for conversion", "error", err, "company_id", user.CompanyID)
		return nil, err
	}

	conversion, err := s.converter.Convert(ctx, dto.Amount, dto.Currency, comp.Currency)
	if err != nil {
		s.logger.Error("currency conversion failed", "error", err, "from", dto.Currency, "to", comp.Currency)
		return nil, err
	}

	exp := &Expense{
		UserID:           user.ID,
		CompanyID:        user.CompanyID,
		OriginalAmount:   conversion.OriginalAmount,
		OriginalCurrency: conversion.OriginalCurrency,
		Amount:           conversion.Amount,
		Currency:         conversion.Currency,
		ExchangeRate:     conversion.Rate,
		Category:         dto.Category,
		Description:      dto.Description,
		ExpenseDate:      dto.ExpenseDate,
		Status:           StatusDraft,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := s.repo.Create(exp); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", user.ID)
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", exp.ID,
		"user_id", user.ID,
		"amount", exp.Amount,
		"currency", exp.Currency,
		"rate", exp.ExchangeRate)

	return exp, nil
}

// GetExpense retrieves an expense with company and owner scoping.
func (s *Service) GetExpense(id int64, user *auth.User) (*Expense, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if exp.CompanyID != user.CompanyID && !user.IsAdmin() {
		return nil, internal.ErrUnauthorizedAccess
	}

	if exp.UserID != user.ID && !user.HasPermission("view_all_expenses") && !user.IsAdmin() && !s.canViewAsApprover(exp, user) {
		s.logger.Warn("unauthorized access to expense", "expense_id", id, "user_id", user.ID, "expense_user_id", exp.UserID)
		return nil, internal.ErrUnauthorizedAccess
	}

	receipts, err := s.repo.GetReceipts(id)
	if err != nil {
		s.logger.Error("failed to load receipts", "error", err, "expense_id", id)
	} else {
		exp.Receipts = make([]Receipt, 0, len(receipts))
		for _, r := range receipts {
			exp.Receipts = append(exp.Receipts, *r)
		}
	}

	return exp, nil
}

// canViewAsApprover grants read access to the approver the expense is
// currently waiting on, and to the owner's manager.
func (s *Service) canViewAsApprover(exp *Expense, caller *auth.User) bool {
	if exp.CurrentApproverID != nil && *exp.CurrentApproverID == caller.ID {
		return true
	}
	if !caller.HasPermission("view_team_expenses") {
		return false
	}
	owner, err := s.users.GetByID(exp.UserID)
	if err != nil {
		return false
	}
	return owner.ManagerID != nil && *owner.ManagerID == caller.ID
}

// ListExpenses lists expenses for the caller, forcing owner scoping for
// users who cannot view the whole company.
func (s *Service) ListExpenses(user *auth.User, filter ListFilter) ([]*Expense, error) {
	filter.Normalize()
	filter.CompanyID = user.CompanyID

	if !user.HasPermission("view_all_expenses") && !user.IsAdmin() {
		uid := user.ID
		filter.UserID = &uid
	}

	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, internal.NewValidationError("unknown expense status", internal.ErrCodeInvalidCategory)
	}
	if filter.Category != "" && !IsValidCategory(filter.Category) {
		return nil, internal.NewValidationError("unknown expense category", internal.ErrCodeInvalidCategory)
	}

	return s.repo.List(filter)
}

// UpdateExpense applies owner edits while the expense is editable.
// Editing a rejected expense returns it to draft, clearing the previous
// decision so a resubmit starts a fresh approval chain.
func (s *Service) UpdateExpense(ctx context.Context, id int64, user *auth.User, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if exp.UserID != user.ID {
		return nil, internal.ErrUnauthorizedAccess
	}

	if !exp.IsEditable() {
		s.logger.Warn("cannot modify expense in current status", "expense_id", id, "status", exp.Status)
		return nil, internal.ErrCannotModifyExpense
	}

	if dto.Category != nil {
		exp.Category = *dto.Category
	}
	if dto.Description != nil {
		exp.Description = *dto.Description
	}
	if dto.ExpenseDate != nil {
		exp.ExpenseDate = *dto.ExpenseDate
	}

	if dto.Amount != nil || dto.Currency != nil {
		amount := exp.OriginalAmount
		if dto.Amount != nil {
			amount = *dto.Amount
		}
		curr := exp.OriginalCurrency
		if dto.Currency != nil {
			curr = *dto.Currency
		}

		comp, err := s.companies.GetCompany(exp.CompanyID)
		if err != nil {
			return nil, err
		}

		conversion, err := s.converter.Convert(ctx, amount, curr, comp.Currency)
		if err != nil {
			return nil, err
		}

		exp.OriginalAmount = conversion.OriginalAmount
		exp.OriginalCurrency = conversion.OriginalCurrency
		exp.Amount = conversion.Amount
		exp.Currency = conversion.Currency
		exp.ExchangeRate = conversion.Rate
	}

	if exp.Status == StatusRejected {
		exp.Status = StatusDraft
		exp.RejectionReason = nil
		exp.CurrentApproverID = nil
		exp.ApprovedByID = nil
		exp.ApprovedAt = nil
	}

	exp.UpdatedAt = time.Now()

	if err := s.repo.Update(exp); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, err
	}

	return exp, nil
}

// MarkReimbursed moves an approved expense to reimbursed. The transition
// is conditional so two finance users cannot both reimburse it.
func (s *Service) MarkReimbursed(id int64, user *auth.User) (*Expense, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if exp.CompanyID != user.CompanyID {
		return nil, internal.ErrUnauthorizedAccess
	}

	now := time.Now()
	affected, err := s.repo.UpdateStatusIf(id, StatusApproved, StatusReimbursed, map[string]interface{}{
		"reimbursed_at": now,
	})
	if err != nil {
		s.logger.Error("failed to mark expense reimbursed", "error", err, "expense_id", id)
		return nil, err
	}
	if affected == 0 {
		return nil, internal.ErrInvalidExpenseStatus
	}

	s.logger.Info("expense reimbursed", "expense_id", id, "finance_user_id", user.ID)

	return s.repo.GetByID(id)
}

// DeleteExpense soft-deletes a draft expense owned by the caller.
func (s *Service) DeleteExpense(id int64, user *auth.User) error {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if exp.UserID != user.ID && !user.IsAdmin() {
		return internal.ErrUnauthorizedAccess
	}

	if exp.Status != StatusDraft {
		return internal.ErrCannotModifyExpense
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return err
	}

	s.logger.Info("expense deleted", "expense_id", id, "user_id", user.ID)
	return nil
}

// AttachReceipt stores receipt metadata against an editable expense
// owned by the caller.
func (s *Service) AttachReceipt(expenseID int64, user *auth.User, receipt *Receipt) (*Receipt, error) {
	exp, err := s.repo.GetByID(expenseID)
	if err != nil {
		return nil, err
	}

	if exp.UserID != user.ID {
		return nil, internal.ErrUnauthorizedAccess
	}

	if !exp.IsEditable() {
		return nil, internal.ErrCannotModifyExpense
	}

	receipt.ExpenseID = expenseID
	receipt.CreatedAt = time.Now()

	if err := s.repo.AddReceipt(receipt); err != nil {
		s.logger.Error("failed to attach receipt", "error", err, "expense_id", expenseID)
		return nil, err
	}

	s.logger.Info("receipt attached", "expense_id", expenseID, "receipt_id", receipt.ID, "file", receipt.FileName)
	return receipt, nil
}
