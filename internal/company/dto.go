package company

import (
	"errors"
	"strings"

	"github.com/expensehub/expensehub/internal/user"
)

type CreateCompanyDTO struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

func (dto CreateCompanyDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("company name is required")
	}
	if len(dto.Currency) != 3 {
		return errors.New("currency must be a 3-letter ISO code")
	}
	return nil
}

// RegisterDTO signs up a new company together with its first user. The
// first user always becomes the company admin regardless of the role in
// the payload.
type RegisterDTO struct {
	Company CreateCompanyDTO   `json:"company"`
	Admin   user.CreateUserDTO `json:"admin"`
}

func (dto RegisterDTO) Validate() error {
	if err := dto.Company.Validate(); err != nil {
		return err
	}
	return dto.Admin.Validate()
}

type UpdateSettingsDTO struct {
	ApprovalMode      *string `json:"approval_mode,omitempty"`
	AutoApprovalLimit *int64  `json:"auto_approval_limit,omitempty"`
	ReceiptThreshold  *int64  `json:"receipt_threshold,omitempty"`
}

func (dto UpdateSettingsDTO) Validate() error {
	if dto.ApprovalMode != nil {
		switch *dto.ApprovalMode {
		case ApprovalModeSingle, ApprovalModeMultiStep:
		default:
			return errors.New("approval_mode must be 'single' or 'multi_step'")
		}
	}
	if dto.AutoApprovalLimit != nil && *dto.AutoApprovalLimit < 0 {
		return errors.New("auto_approval_limit cannot be negative")
	}
	if dto.ReceiptThreshold != nil && *dto.ReceiptThreshold < 0 {
		return errors.New("receipt_threshold cannot be negative")
	}
	return nil
}
