package expense

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusDraft           = "draft"
	StatusPendingManager  = "pending_manager"
	StatusPendingFinance  = "pending_finance"
	StatusPendingDirector = "pending_director"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
	StatusReimbursed      = "reimbursed"
)

const (
	CategoryTravel        = "travel"
	CategoryMeals         = "meals"
	CategoryAccommodation = "accommodation"
	CategoryOfficeSupply  = "office_supplies"
	CategoryEquipment     = "equipment"
	CategorySoftware      = "software"
	CategoryTraining      = "training"
	CategoryEntertainment = "entertainment"
	CategoryOther         = "other"
)

// Categories is the fixed set an expense may be filed under.
var Categories = []string{
	CategoryTravel,
	CategoryMeals,
	CategoryAccommodation,
	CategoryOfficeSupply,
	CategoryEquipment,
	CategorySoftware,
	CategoryTraining,
	CategoryEntertainment,
	CategoryOther,
}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusPendingManager, StatusPendingFinance,
		StatusPendingDirector, StatusApproved, StatusRejected, StatusReimbursed:
		return true
	}
	return false
}

// Expense is the persisted expense row. Amount is always the converted
// amount in the owning company's currency; the original submission is
// preserved in OriginalAmount/OriginalCurrency with the rate applied.
type Expense struct {
	ID        int64 `json:"id" gorm:"primaryKey"`
	UserID    int64 `json:"user_id" gorm:"column:user_id;not null;index"`
	CompanyID int64 `json:"company_id" gorm:"column:company_id;not null;index"`

	OriginalAmount   float64 `json:"original_amount" gorm:"column:original_amount;not null"`
	OriginalCurrency string  `json:"original_currency" gorm:"column:original_currency;size:3;not null"`
	Amount           float64 `json:"amount" gorm:"column:amount;not null"`
	Currency         string  `json:"currency" gorm:"column:currency;size:3;not null"`
	ExchangeRate     float64 `json:"exchange_rate" gorm:"column:exchange_rate;not null;default:1"`

	Category    string    `json:"category" gorm:"column:category;not null"`
	Description string    `json:"description" gorm:"column:description"`
	ExpenseDate time.Time `json:"expense_date" gorm:"column:expense_date;not null"`

	Status            string     `json:"status" gorm:"column:status;not null;default:draft;index"`
	CurrentApproverID *int64     `json:"current_approver_id,omitempty" gorm:"column:current_approver_id"`
	ApprovedByID      *int64     `json:"approved_by_id,omitempty" gorm:"column:approved_by_id"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty" gorm:"column:approved_at"`
	RejectionReason   *string    `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	ReimbursedAt      *time.Time `json:"reimbursed_at,omitempty" gorm:"column:reimbursed_at"`

	Receipts []Receipt `json:"receipts,omitempty" gorm:"foreignKey:ExpenseID"`

	CreatedAt time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (Expense) TableName() string {
	return "expenses"
}

// IsEditable reports whether the owner may still change the expense.
// Rejected expenses re-enter the editable path so they can be fixed
// and resubmitted.
func (e *Expense) IsEditable() bool {
	return e.Status == StatusDraft || e.Status == StatusRejected
}

func (e *Expense) IsPendingApproval() bool {
	switch e.Status {
	case StatusPendingManager, StatusPendingFinance, StatusPendingDirector:
		return true
	}
	return false
}

// Receipt is an uploaded receipt file attached to an expense. The OCR
// fields are best-effort extractions and may all be empty.
type Receipt struct {
	ID        int64 `json:"id" gorm:"primaryKey"`
	ExpenseID int64 `json:"expense_id" gorm:"column:expense_id;not null;index"`

	FileName    string `json:"file_name" gorm:"column:file_name;not null"`
	StoragePath string `json:"-" gorm:"column:storage_path;not null"`
	MimeType    string `json:"mime_type" gorm:"column:mime_type"`
	SizeBytes   int64  `json:"size_bytes" gorm:"column:size_bytes"`

	OCRMerchant   *string    `json:"ocr_merchant,omitempty" gorm:"column:ocr_merchant"`
	OCRAmount     *float64   `json:"ocr_amount,omitempty" gorm:"column:ocr_amount"`
	OCRDate       *time.Time `json:"ocr_date,omitempty" gorm:"column:ocr_date"`
	OCRCategory   *string    `json:"ocr_category,omitempty" gorm:"column:ocr_category"`
	OCRConfidence *float64   `json:"ocr_confidence,omitempty" gorm:"column:ocr_confidence"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Receipt) TableName() string {
	return "receipts"
}
