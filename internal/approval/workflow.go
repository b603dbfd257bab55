package approval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/company"
	"github.com/expensehub/expensehub/internal/core/events"
	"github.com/expensehub/expensehub/internal/expense"
	"github.com/expensehub/expensehub/internal/user"
)

// Repository defines the data access methods for approval steps.
type Repository interface {
	Create(approval *Approval) error
	GetByID(id int64) (*Approval, error)
	ListByExpense(expenseID int64) ([]*Approval, error)
	PendingByExpense(expenseID int64) ([]*Approval, error)
	ListPendingForApprover(approverID int64, limit, offset int) ([]*Approval, error)

	// UpdateStatusIfPending moves one approval out of pending and reports
	// how many rows changed. Zero means someone else acted first.
	UpdateStatusIfPending(id int64, toStatus string, updates map[string]interface{}) (int64, error)

	StalePending(olderThan time.Time, limit int) ([]*Approval, error)
	MarkReminded(id int64, at time.Time) error
}

// UserDirectory is the slice of the user repository the workflow needs
// to pick approvers.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
	FirstActiveByRole(companyID int64, role string) (*user.User, error)
}

// CompanyAPI loads company settings for auto-approval decisions.
type CompanyAPI interface {
	GetCompany(id int64) (*company.Company, error)
}

// Workflow drives the expense approval state machine. Every transition
// out of pending is a conditional update keyed on the current status, so
// concurrent decisions on the same step cannot both land.
type Workflow struct {
	repo      Repository
	expenses  expense.Repository
	users     UserDirectory
	companies CompanyAPI
	bus       *events.EventBus
	logger    *slog.Logger
}

func NewWorkflow(
	repo Repository,
	expenses expense.Repository,
	users UserDirectory,
	companies CompanyAPI,
	bus *events.EventBus,
	logger *slog.Logger,
) *Workflow {
	return &Workflow{
		repo:      repo,
		expenses:  expenses,
		users:     users,
		companies: companies,
		bus:       bus,
		logger:    logger,
	}
}

// Submit moves a draft expense into the approval pipeline. Below the
// company auto-approval limit the expense is approved on the spot with
// no approval step at all; otherwise the first step goes to the
// employee's manager, or straight to finance when no manager is set.
func (w *Workflow) Submit(ctx context.Context, expenseID int64, caller *auth.User) (*expense.Expense, error) {
	exp, err := w.expenses.GetByID(expenseID)
	if err != nil {
		return nil, err
	}

	if exp.UserID != caller.ID && !caller.IsAdmin() {
		return nil, internal.ErrUnauthorizedAccess
	}
	if exp.CompanyID != caller.CompanyID {
		return nil, internal.ErrUnauthorizedAccess
	}
	if exp.Status != expense.StatusDraft {
		return nil, internal.ErrInvalidExpenseStatus
	}

	comp, err := w.companies.GetCompany(exp.CompanyID)
	if err != nil {
		return nil, err
	}

	if comp.RequiresReceipt(exp.Amount) {
		receipts, err := w.expenses.GetReceipts(exp.ID)
		if err != nil {
			return nil, err
		}
		if len(receipts) == 0 {
			return nil, internal.ErrReceiptRequired
		}
	}

	if comp.AutoApproves(exp.Amount) {
		now := time.Now()
		affected, err := w.expenses.UpdateStatusIf(exp.ID, expense.StatusDraft, expense.StatusApproved, map[string]interface{}{
			"approved_by_id": caller.ID,
			"approved_at":    now,
		})
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, internal.ErrInvalidExpenseStatus
		}

		w.logger.Info("expense auto-approved",
			"expense_id", exp.ID,
			"amount", exp.Amount,
			"limit", comp.AutoApprovalLimit)

		w.publishExpenseEvent(ctx, events.EventTypeExpenseApproved, exp, expense.StatusApproved)

		return w.expenses.GetByID(exp.ID)
	}

	approver, role, err := w.firstApprover(exp)
	if err != nil {
		return nil, err
	}

	nextStatus := expenseStatusForRole(role)

	affected, err := w.expenses.UpdateStatusIf(exp.ID, expense.StatusDraft, nextStatus, map[string]interface{}{
		"current_approver_id": approver.ID,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, internal.ErrInvalidExpenseStatus
	}

	step := &Approval{
		ExpenseID:  exp.ID,
		ApproverID: approver.ID,
		Role:       role,
		Status:     StatusPending,
		Priority:   1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := w.repo.Create(step); err != nil {
		w.logger.Error("failed to create approval step", "error", err, "expense_id", exp.ID)
		return nil, err
	}

	w.logger.Info("expense submitted for approval",
		"expense_id", exp.ID,
		"approver_id", approver.ID,
		"role", role,
		"status", nextStatus)

	w.publishExpenseEvent(ctx, events.EventTypeExpenseSubmitted, exp, nextStatus)
	w.bus.Publish(ctx, events.NewApprovalEvent(events.EventTypeApprovalAssigned, step.ID, exp.ID, approver.ID, role, step.Priority))

	return w.expenses.GetByID(exp.ID)
}

// Approve marks the caller's pending step approved. When other steps
// are still pending the next one in priority order becomes current;
// otherwise the chain either ends with the expense approved or, after a
// manager approval on a multi-step company, continues with a fresh
// finance step.
func (w *Workflow) Approve(ctx context.Context, approvalID int64, caller *auth.User, comments string) (*expense.Expense, error) {
	step, err := w.repo.GetByID(approvalID)
	if err != nil {
		return nil, err
	}

	if step.ApproverID != caller.ID {
		return nil, internal.ErrApprovalNotYours
	}

	now := time.Now()
	updates := map[string]interface{}{
		"actioned_at": now,
	}
	if comments != "" {
		updates["comments"] = comments
	}

	affected, err := w.repo.UpdateStatusIfPending(step.ID, StatusApproved, updates)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, internal.ErrApprovalNotActive
	}

	exp, err := w.expenses.GetByID(step.ExpenseID)
	if err != nil {
		return nil, err
	}

	pending, err := w.repo.PendingByExpense(step.ExpenseID)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		next, err := w.nextChainStep(exp, step, now)
		if err != nil {
			return nil, err
		}
		if next != nil {
			if _, err := w.expenses.UpdateStatusIf(exp.ID, exp.Status, expenseStatusForRole(next.Role), map[string]interface{}{
				"current_approver_id": next.ApproverID,
			}); err != nil {
				return nil, err
			}

			w.logger.Info("approval chain advanced to next stage",
				"expense_id", exp.ID,
				"completed_approval_id", step.ID,
				"next_approval_id", next.ID,
				"next_role", next.Role)

			w.bus.Publish(ctx, events.NewApprovalEvent(events.EventTypeApprovalAssigned, next.ID, exp.ID, next.ApproverID, next.Role, next.Priority))

			return w.expenses.GetByID(exp.ID)
		}

		if _, err := w.expenses.UpdateStatusIf(exp.ID, exp.Status, expense.StatusApproved, map[string]interface{}{
			"approved_by_id":      caller.ID,
			"approved_at":         now,
			"current_approver_id": nil,
		}); err != nil {
			return nil, err
		}

		w.logger.Info("expense fully approved", "expense_id", exp.ID, "approver_id", caller.ID)
		w.publishExpenseEvent(ctx, events.EventTypeExpenseApproved, exp, expense.StatusApproved)

		return w.expenses.GetByID(exp.ID)
	}

	// Promote the next pending step in priority order.
	next := pending[0]
	for _, p := range pending[1:] {
		if p.Priority < next.Priority {
			next = p
		}
	}

	nextStatus := expenseStatusForRole(next.Role)

	if _, err := w.expenses.UpdateStatusIf(exp.ID, exp.Status, nextStatus, map[string]interface{}{
		"current_approver_id": next.ApproverID,
	}); err != nil {
		return nil, err
	}

	w.logger.Info("approval step completed, promoting next",
		"expense_id", exp.ID,
		"completed_approval_id", step.ID,
		"next_approval_id", next.ID,
		"next_status", nextStatus)

	w.bus.Publish(ctx, events.NewApprovalEvent(events.EventTypeApprovalAssigned, next.ID, exp.ID, next.ApproverID, next.Role, next.Priority))

	return w.expenses.GetByID(exp.ID)
}

// Reject ends the workflow for the whole expense, regardless of any
// other pending steps.
func (w *Workflow) Reject(ctx context.Context, approvalID int64, caller *auth.User, reason string) (*expense.Expense, error) {
	step, err := w.repo.GetByID(approvalID)
	if err != nil {
		return nil, err
	}

	if step.ApproverID != caller.ID {
		return nil, internal.ErrApprovalNotYours
	}

	now := time.Now()
	updates := map[string]interface{}{
		"actioned_at": now,
	}
	if reason != "" {
		updates["comments"] = reason
	}

	affected, err := w.repo.UpdateStatusIfPending(step.ID, StatusRejected, updates)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, internal.ErrApprovalNotActive
	}

	exp, err := w.expenses.GetByID(step.ExpenseID)
	if err != nil {
		return nil, err
	}

	exp.Status = expense.StatusRejected
	exp.RejectionReason = &reason
	exp.CurrentApproverID = nil
	exp.UpdatedAt = now

	if err := w.expenses.Update(exp); err != nil {
		w.logger.Error("failed to mark expense rejected", "error", err, "expense_id", exp.ID)
		return nil, err
	}

	w.logger.Info("expense rejected",
		"expense_id", exp.ID,
		"approval_id", step.ID,
		"approver_id", caller.ID,
		"reason", reason)

	w.publishExpenseEvent(ctx, events.EventTypeExpenseRejected, exp, expense.StatusRejected)

	return exp, nil
}

// Escalate closes the caller's pending step as escalated and opens a new
// step for the target at the next priority.
func (w *Workflow) Escalate(ctx context.Context, approvalID int64, caller *auth.User, targetUserID int64, reason string) (*expense.Expense, error) {
	step, err := w.repo.GetByID(approvalID)
	if err != nil {
		return nil, err
	}

	if step.ApproverID != caller.ID {
		return nil, internal.ErrApprovalNotYours
	}

	target, err := w.users.GetByID(targetUserID)
	if err != nil {
		return nil, internal.ErrNoApproverFound
	}
	if !target.IsActive || target.CompanyID != caller.CompanyID || !target.IsApproverRole() {
		return nil, internal.ErrNoApproverFound
	}
	if target.ID == caller.ID {
		return nil, internal.NewValidationError("cannot escalate to yourself", internal.ErrCodeNoApproverFound)
	}

	targetRole := roleForApprover(target)

	now := time.Now()
	updates := map[string]interface{}{
		"actioned_at":       now,
		"escalated_to_id":   target.ID,
		"escalation_reason": reason,
	}

	affected, err := w.repo.UpdateStatusIfPending(step.ID, StatusEscalated, updates)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, internal.ErrApprovalNotActive
	}

	next := &Approval{
		ExpenseID:  step.ExpenseID,
		ApproverID: target.ID,
		Role:       targetRole,
		Status:     StatusPending,
		Priority:   step.Priority + 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := w.repo.Create(next); err != nil {
		w.logger.Error("failed to create escalation step", "error", err, "expense_id", step.ExpenseID)
		return nil, err
	}

	exp, err := w.expenses.GetByID(step.ExpenseID)
	if err != nil {
		return nil, err
	}

	nextStatus := expenseStatusForRole(targetRole)

	if _, err := w.expenses.UpdateStatusIf(exp.ID, exp.Status, nextStatus, map[string]interface{}{
		"current_approver_id": target.ID,
	}); err != nil {
		return nil, err
	}

	w.logger.Info("approval escalated",
		"expense_id", exp.ID,
		"from_approval_id", step.ID,
		"to_approval_id", next.ID,
		"target_id", target.ID,
		"target_role", targetRole)

	w.bus.Publish(ctx, events.NewApprovalEvent(events.EventTypeApprovalAssigned, next.ID, exp.ID, target.ID, targetRole, next.Priority))

	return w.expenses.GetByID(exp.ID)
}

// ListExpenseApprovals returns the approval chain for an expense the
// caller can see.
func (w *Workflow) ListExpenseApprovals(expenseID int64, caller *auth.User) ([]*Approval, error) {
	exp, err := w.expenses.GetByID(expenseID)
	if err != nil {
		return nil, err
	}

	if exp.CompanyID != caller.CompanyID && !caller.IsAdmin() {
		return nil, internal.ErrUnauthorizedAccess
	}
	if exp.UserID != caller.ID && !caller.IsManager() && !caller.HasPermission("view_all_expenses") {
		return nil, internal.ErrUnauthorizedAccess
	}

	return w.repo.ListByExpense(expenseID)
}

// ListMyPending returns the caller's open approval steps.
func (w *Workflow) ListMyPending(caller *auth.User, limit, offset int) ([]*Approval, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return w.repo.ListPendingForApprover(caller.ID, limit, offset)
}

// SendReminders sweeps approvals that have sat pending past the
// threshold, bumps their reminder bookkeeping, and publishes reminder
// events for downstream notification handlers.
func (w *Workflow) SendReminders(ctx context.Context, pendingSince time.Duration, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	cutoff := time.Now().Add(-pendingSince)

	stale, err := w.repo.StalePending(cutoff, batchSize)
	if err != nil {
		return 0, err
	}

	reminded := 0
	for _, step := range stale {
		if err := w.repo.MarkReminded(step.ID, time.Now()); err != nil {
			w.logger.Error("failed to record reminder", "error", err, "approval_id", step.ID)
			continue
		}

		w.bus.Publish(ctx, events.NewApprovalEvent(events.EventTypeApprovalReminder, step.ID, step.ExpenseID, step.ApproverID, step.Role, step.Priority))
		reminded++
	}

	if reminded > 0 {
		w.logger.Info("approval reminders sent", "count", reminded)
	}

	return reminded, nil
}

// nextChainStep opens the finance step after a manager approval when
// the company runs the multi-step chain. Returns nil when the chain
// ends with the completed step: single mode, a non-manager step, or no
// finance user to route to.
func (w *Workflow) nextChainStep(exp *expense.Expense, completed *Approval, now time.Time) (*Approval, error) {
	if completed.Role != RoleManager {
		return nil, nil
	}

	comp, err := w.companies.GetCompany(exp.CompanyID)
	if err != nil {
		return nil, err
	}
	if comp.ApprovalMode != company.ApprovalModeMultiStep {
		return nil, nil
	}

	finance, err := w.users.FirstActiveByRole(exp.CompanyID, user.RoleFinance)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			w.logger.Warn("multi-step company has no active finance user, chain ends at manager",
				"expense_id", exp.ID,
				"company_id", exp.CompanyID)
			return nil, nil
		}
		return nil, err
	}
	if finance.ID == completed.ApproverID {
		return nil, nil
	}

	next := &Approval{
		ExpenseID:  exp.ID,
		ApproverID: finance.ID,
		Role:       RoleFinance,
		Status:     StatusPending,
		Priority:   completed.Priority + 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := w.repo.Create(next); err != nil {
		w.logger.Error("failed to create finance approval step", "error", err, "expense_id", exp.ID)
		return nil, err
	}

	return next, nil
}

func (w *Workflow) firstApprover(exp *expense.Expense) (*user.User, string, error) {
	owner, err := w.users.GetByID(exp.UserID)
	if err != nil {
		return nil, "", err
	}

	if owner.ManagerID != nil {
		manager, err := w.users.GetByID(*owner.ManagerID)
		if err == nil && manager.IsActive {
			return manager, RoleManager, nil
		}
		w.logger.Warn("assigned manager unavailable, falling back to finance",
			"expense_id", exp.ID,
			"manager_id", *owner.ManagerID)
	}

	finance, err := w.users.FirstActiveByRole(exp.CompanyID, user.RoleFinance)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, "", internal.ErrNoApproverFound
		}
		return nil, "", err
	}

	return finance, RoleFinance, nil
}

func (w *Workflow) publishExpenseEvent(ctx context.Context, eventType string, exp *expense.Expense, status string) {
	w.bus.Publish(ctx, events.NewExpenseEvent(eventType, exp.ID, exp.CompanyID, exp.UserID, exp.Amount, status))
}
