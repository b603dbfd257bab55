package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseSubmitted = "expense.submitted"
	EventTypeExpenseApproved  = "expense.approved"
	EventTypeExpenseRejected  = "expense.rejected"
	EventTypeApprovalAssigned = "approval.assigned"
	EventTypeApprovalReminder = "approval.reminder"
)

// ExpenseEvent carries the identifiers every expense lifecycle event needs.
type ExpenseEvent struct {
	ID        string
	Type      string
	Timestamp time.Time

	ExpenseID  int64
	CompanyID  int64
	EmployeeID int64
	Amount     float64
	Status     string
}

func (e *ExpenseEvent) EventType() string     { return e.Type }
func (e *ExpenseEvent) EventID() string       { return e.ID }
func (e *ExpenseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *ExpenseEvent) Payload() interface{} {
	return map[string]interface{}{
		"expense_id":  e.ExpenseID,
		"company_id":  e.CompanyID,
		"employee_id": e.EmployeeID,
		"amount":      e.Amount,
		"status":      e.Status,
	}
}

func NewExpenseEvent(eventType string, expenseID, companyID, employeeID int64, amount float64, status string) *ExpenseEvent {
	return &ExpenseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now(),
		ExpenseID:  expenseID,
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Amount:     amount,
		Status:     status,
	}
}

// ApprovalEvent is published when an approval step is assigned or reminded.
type ApprovalEvent struct {
	ID        string
	Type      string
	Timestamp time.Time

	ApprovalID int64
	ExpenseID  int64
	ApproverID int64
	Role       string
	Priority   int
}

func (e *ApprovalEvent) EventType() string     { return e.Type }
func (e *ApprovalEvent) EventID() string       { return e.ID }
func (e *ApprovalEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *ApprovalEvent) Payload() interface{} {
	return map[string]interface{}{
		"approval_id": e.ApprovalID,
		"expense_id":  e.ExpenseID,
		"approver_id": e.ApproverID,
		"role":        e.Role,
		"priority":    e.Priority,
	}
}

func NewApprovalEvent(eventType string, approvalID, expenseID, approverID int64, role string, priority int) *ApprovalEvent {
	return &ApprovalEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now(),
		ApprovalID: approvalID,
		ExpenseID:  expenseID,
		ApproverID: approverID,
		Role:       role,
		Priority:   priority,
	}
}

// String implements fmt.Stringer for log friendliness.
func (e *ApprovalEvent) String() string {
	return fmt.Sprintf("%s approval=%d expense=%d approver=%d", e.Type, e.ApprovalID, e.ExpenseID, e.ApproverID)
}
