package user

import (
	"errors"
	"strings"
)

type CreateUserDTO struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	ManagerID *int64 `json:"manager_id,omitempty"`
}

func (dto CreateUserDTO) Validate() error {
	if !strings.Contains(dto.Email, "@") {
		return errors.New("valid email is required")
	}
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	if len(dto.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if dto.Role != "" && !IsValidRole(dto.Role) {
		return errors.New("role must be one of admin, manager, employee, finance")
	}
	return nil
}

type UpdateUserDTO struct {
	Name      *string `json:"name,omitempty"`
	Role      *string `json:"role,omitempty"`
	ManagerID *int64  `json:"manager_id,omitempty"`
}

func (dto UpdateUserDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if dto.Role != nil && !IsValidRole(*dto.Role) {
		return errors.New("role must be one of admin, manager, employee, finance")
	}
	return nil
}
