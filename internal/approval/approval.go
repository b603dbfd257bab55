package approval

import (
	"time"

	"github.com/expensehub/expensehub/internal/expense"
	"github.com/expensehub/expensehub/internal/user"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusEscalated = "escalated"
)

const (
	RoleManager  = "manager"
	RoleFinance  = "finance"
	RoleDirector = "director"
)

// Approval is one step in an expense's approval chain. Steps are ordered
// by Priority; escalation appends a new step at priority+1 rather than
// reopening the old one.
type Approval struct {
	ID         int64 `json:"id" gorm:"primaryKey"`
	ExpenseID  int64 `json:"expense_id" gorm:"column:expense_id;not null;index"`
	ApproverID int64 `json:"approver_id" gorm:"column:approver_id;not null;index"`

	Role     string `json:"role" gorm:"column:role;not null"`
	Status   string `json:"status" gorm:"column:status;not null;default:pending;index"`
	Priority int    `json:"priority" gorm:"column:priority;not null;default:1"`

	Comments   *string    `json:"comments,omitempty" gorm:"column:comments"`
	ActionedAt *time.Time `json:"actioned_at,omitempty" gorm:"column:actioned_at"`

	EscalatedToID    *int64  `json:"escalated_to_id,omitempty" gorm:"column:escalated_to_id"`
	EscalationReason *string `json:"escalation_reason,omitempty" gorm:"column:escalation_reason"`

	ReminderCount  int        `json:"reminder_count" gorm:"column:reminder_count;default:0"`
	LastReminderAt *time.Time `json:"last_reminder_at,omitempty" gorm:"column:last_reminder_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Approval) TableName() string {
	return "approvals"
}

func (a *Approval) IsPending() bool {
	return a.Status == StatusPending
}

// roleForApprover maps a user role to the approval step's role tag.
// Admins act as the director step.
func roleForApprover(u *user.User) string {
	switch u.Role {
	case user.RoleManager:
		return RoleManager
	case user.RoleFinance:
		return RoleFinance
	case user.RoleAdmin:
		return RoleDirector
	}
	return ""
}

// expenseStatusForRole maps an approval step's role tag to the expense
// status that marks it as the current step.
func expenseStatusForRole(role string) string {
	switch role {
	case RoleManager:
		return expense.StatusPendingManager
	case RoleFinance:
		return expense.StatusPendingFinance
	case RoleDirector:
		return expense.StatusPendingDirector
	}
	return ""
}
