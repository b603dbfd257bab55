package user

import (
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
	RoleFinance  = "finance"
)

var validRoles = map[string]bool{
	RoleAdmin:    true,
	RoleManager:  true,
	RoleEmployee: true,
	RoleFinance:  true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

// rolePermissions maps each role to the permission strings checked by the
// RBAC middleware and services. Permissions are derived, never stored.
var rolePermissions = map[string][]string{
	RoleAdmin: {
		"admin", "manage_company", "manage_users",
		"approve_expenses", "reject_expenses", "view_all_expenses", "view_reports",
	},
	RoleManager: {
		"manager", "manage_users",
		"approve_expenses", "reject_expenses", "view_team_expenses", "view_reports",
	},
	RoleFinance: {
		"finance",
		"approve_expenses", "reject_expenses", "mark_reimbursed",
		"view_all_expenses", "view_reports",
	},
	RoleEmployee: {
		"submit_expenses",
	},
}

// PermissionsForRole returns a copy of the permission set derived from a role.
func PermissionsForRole(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Role         string    `json:"role" gorm:"not null;default:employee"`
	CompanyID    int64     `json:"company_id" gorm:"column:company_id;not null"`
	ManagerID    *int64    `json:"manager_id,omitempty" gorm:"column:manager_id"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Permissions() []string {
	return PermissionsForRole(u.Role)
}

func (u *User) IsApproverRole() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager || u.Role == RoleFinance
}

func (u *User) Deactivate() {
	u.IsActive = false
	u.UpdatedAt = time.Now()
}
