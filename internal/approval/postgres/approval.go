package postgres

import (
	"errors"
	"time"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/approval"
	"gorm.io/gorm"
)

// ApprovalRepository implements approval.Repository using GORM
type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) Create(a *approval.Approval) error {
	return r.db.Create(a).Error
}

func (r *ApprovalRepository) GetByID(id int64) (*approval.Approval, error) {
	var a approval.Approval
	err := r.db.Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrApprovalNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *ApprovalRepository) ListByExpense(expenseID int64) ([]*approval.Approval, error) {
	var approvals []*approval.Approval
	err := r.db.Where("expense_id = ?", expenseID).
		Order("priority ASC").
		Find(&approvals).Error
	return approvals, err
}

func (r *ApprovalRepository) PendingByExpense(expenseID int64) ([]*approval.Approval, error) {
	var approvals []*approval.Approval
	err := r.db.Where("expense_id = ? AND status = ?", expenseID, approval.StatusPending).
		Order("priority ASC").
		Find(&approvals).Error
	return approvals, err
}

func (r *ApprovalRepository) ListPendingForApprover(approverID int64, limit, offset int) ([]*approval.Approval, error) {
	var approvals []*approval.Approval
	err := r.db.Where("approver_id = ? AND status = ?", approverID, approval.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&approvals).Error
	return approvals, err
}

// UpdateStatusIfPending is the compare-and-swap guarding concurrent
// decisions: only a row still pending matches the WHERE clause.
func (r *ApprovalRepository) UpdateStatusIfPending(id int64, toStatus string, updates map[string]interface{}) (int64, error) {
	values := map[string]interface{}{
		"status":     toStatus,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.Model(&approval.Approval{}).
		Where("id = ? AND status = ?", id, approval.StatusPending).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *ApprovalRepository) StalePending(olderThan time.Time, limit int) ([]*approval.Approval, error) {
	var approvals []*approval.Approval
	err := r.db.Where("status = ?", approval.StatusPending).
		Where("created_at < ?", olderThan).
		Where("last_reminder_at IS NULL OR last_reminder_at < ?", olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&approvals).Error
	return approvals, err
}

func (r *ApprovalRepository) MarkReminded(id int64, at time.Time) error {
	return r.db.Model(&approval.Approval{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reminder_count":   gorm.Expr("reminder_count + 1"),
			"last_reminder_at": at,
			"updated_at":       at,
		}).Error
}
