package company

import (
	"time"
)

// Approval workflow modes. Single mode stops after the manager step,
// multi step runs the full manager -> finance -> director chain.
const (
	ApprovalModeSingle    = "single"
	ApprovalModeMultiStep = "multi_step"
)

// Company is the tenant root. Every user, expense and approval hangs off
// exactly one company, and all converted amounts are denominated in its
// base currency.
type Company struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	Name              string    `json:"name" gorm:"not null"`
	Country           string    `json:"country"`
	Currency          string    `json:"currency" gorm:"column:currency;not null"`
	ApprovalMode      string    `json:"approval_mode" gorm:"column:approval_mode;default:multi_step"`
	AutoApprovalLimit int64     `json:"auto_approval_limit" gorm:"column:auto_approval_limit;default:0"`
	ReceiptThreshold  int64     `json:"receipt_threshold" gorm:"column:receipt_threshold;default:0"`
	IsActive          bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// RequiresReceipt reports whether an expense at the given converted amount
// must carry at least one receipt.
func (c *Company) RequiresReceipt(amount float64) bool {
	return c.ReceiptThreshold > 0 && amount >= float64(c.ReceiptThreshold)
}

// AutoApproves reports whether the amount falls under the auto-approval limit.
func (c *Company) AutoApproves(amount float64) bool {
	return c.AutoApprovalLimit > 0 && amount <= float64(c.AutoApprovalLimit)
}

func (c *Company) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
}

func NewCompany(name, country, currency string) *Company {
	now := time.Now()
	return &Company{
		Name:         name,
		Country:      country,
		Currency:     currency,
		ApprovalMode: ApprovalModeMultiStep,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
