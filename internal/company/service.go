package company

import (
	"log/slog"
	"time"

	"github.com/expensehub/expensehub/internal"
)

// Repository defines the data access methods for companies.
type Repository interface {
	Create(company *Company) error
	GetByID(id int64) (*Company, error)
	Update(company *Company) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) CreateCompany(dto CreateCompanyDTO) (*Company, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("company validation failed", "error", err)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c := NewCompany(dto.Name, dto.Country, dto.Currency)
	if err := s.repo.Create(c); err != nil {
		s.logger.Error("failed to create company", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("company created", "company_id", c.ID, "name", c.Name, "currency", c.Currency)
	return c, nil
}

func (s *Service) GetCompany(id int64) (*Company, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get company", "error", err, "company_id", id)
		return nil, internal.ErrCompanyNotFound
	}
	return c, nil
}

// UpdateSettings applies partial settings changes; callers gate this to
// admins of the same company.
func (s *Service) UpdateSettings(id int64, dto UpdateSettingsDTO) (*Company, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrCompanyNotFound
	}

	if dto.ApprovalMode != nil {
		c.ApprovalMode = *dto.ApprovalMode
	}
	if dto.AutoApprovalLimit != nil {
		c.AutoApprovalLimit = *dto.AutoApprovalLimit
	}
	if dto.ReceiptThreshold != nil {
		c.ReceiptThreshold = *dto.ReceiptThreshold
	}
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(c); err != nil {
		s.logger.Error("failed to update company settings", "error", err, "company_id", id)
		return nil, err
	}

	s.logger.Info("company settings updated",
		"company_id", id,
		"approval_mode", c.ApprovalMode,
		"auto_approval_limit", c.AutoApprovalLimit)
	return c, nil
}

func (s *Service) DeactivateCompany(id int64) error {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return internal.ErrCompanyNotFound
	}

	c.Deactivate()
	if err := s.repo.Update(c); err != nil {
		s.logger.Error("failed to deactivate company", "error", err, "company_id", id)
		return err
	}

	s.logger.Info("company deactivated", "company_id", id)
	return nil
}
