package postgres

import (
	"database/sql"
	"errors"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetPasswordForEmail(email string) (string, string, error) {
	var passwordHash string
	var userID string
	query := `SELECT id, password_hash FROM users WHERE email = ? AND is_active = true`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", internal.ErrUserNotFound
		}
		return "", "", err
	}
	return passwordHash, userID, nil
}

func (r *Repository) GetUserWithPermissions(userID int64) (*auth.User, error) {
	var u auth.User
	var managerID sql.NullInt64

	query := `SELECT id, email, name, role, company_id, manager_id FROM users WHERE id = ? AND is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CompanyID, &managerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	if managerID.Valid {
		u.ManagerID = &managerID.Int64
	}
	u.Permissions = user.PermissionsForRole(u.Role)

	return &u, nil
}
