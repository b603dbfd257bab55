package user

import (
	"log/slog"
	"time"

	"github.com/expensehub/expensehub/internal"
	"golang.org/x/crypto/bcrypt"
)

// Repository defines the data access methods for users.
type Repository interface {
	Create(user *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	ListByCompany(companyID int64, limit, offset int) ([]*User, error)
	// FirstActiveByRole returns the active user with the given role and the
	// lowest id in the company. Used to pick a finance approver when an
	// employee has no manager.
	FirstActiveByRole(companyID int64, role string) (*User, error)
	Update(user *User) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) CreateUser(companyID int64, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("user validation failed", "error", err, "company_id", companyID)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	role := dto.Role
	if role == "" {
		role = RoleEmployee
	}

	if dto.ManagerID != nil {
		manager, err := s.repo.GetByID(*dto.ManagerID)
		if err != nil {
			return nil, internal.NewValidationError("manager not found", internal.ErrCodeUserNotFound)
		}
		if manager.CompanyID != companyID {
			return nil, internal.NewValidationError("manager must belong to the same company", internal.ErrCodeValidationFailed)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	u := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: string(hash),
		Role:         role,
		CompanyID:    companyID,
		ManagerID:    dto.ManagerID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "company_id", companyID, "role", role)
	return u, nil
}

func (s *Service) GetUser(id, callerID, callerCompanyID int64, callerIsManager bool) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	if u.ID != callerID {
		if !callerIsManager || u.CompanyID != callerCompanyID {
			s.logger.Warn("unauthorized user lookup", "user_id", id, "caller_id", callerID)
			return nil, internal.ErrUnauthorizedAccess
		}
	}

	return u, nil
}

func (s *Service) ListCompanyUsers(companyID int64, limit, offset int) ([]*User, error) {
	users, err := s.repo.ListByCompany(companyID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err, "company_id", companyID)
		return nil, err
	}
	return users, nil
}

func (s *Service) UpdateUser(id, callerCompanyID int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	if u.CompanyID != callerCompanyID {
		return nil, internal.ErrUnauthorizedAccess
	}

	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Role != nil {
		u.Role = *dto.Role
	}
	if dto.ManagerID != nil {
		manager, err := s.repo.GetByID(*dto.ManagerID)
		if err != nil || manager.CompanyID != u.CompanyID {
			return nil, internal.NewValidationError("manager must belong to the same company", internal.ErrCodeValidationFailed)
		}
		u.ManagerID = dto.ManagerID
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, err
	}

	return u, nil
}

func (s *Service) DeactivateUser(id, callerCompanyID int64) error {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return internal.ErrUserNotFound
	}
	if u.CompanyID != callerCompanyID {
		return internal.ErrUnauthorizedAccess
	}

	u.Deactivate()
	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "user_id", id)
		return err
	}

	s.logger.Info("user deactivated", "user_id", id)
	return nil
}
