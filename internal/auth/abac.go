package auth

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
)

var ErrForbidden = errors.New("forbidden")

// ABACPolicy is a small attribute-based access control helper for
// owner-scoped decisions that RBAC permission strings cannot express.
type ABACPolicy struct{}

func (p *ABACPolicy) Allow(u *User, resourceOwnerID int64, action string) bool {
	if u == nil {
		return false
	}

	if u.IsAdmin() {
		return true
	}

	switch action {
	case "approve":
		// No self-approval even with the permission.
		return u.HasPermission("approve_expenses") && u.ID != resourceOwnerID
	case "reject":
		return u.HasPermission("reject_expenses") && u.ID != resourceOwnerID
	case "read":
		if u.HasPermission("view_all_expenses") {
			return true
		}
	}

	// Owner access for basic operations
	if u.ID == resourceOwnerID {
		return action == "read" || action == "write" || action == "update" || action == "delete"
	}

	return false
}

// ExpenseAttrs carries the expense attributes the read policy needs beyond
// plain ownership: who is currently assigned to approve it, and who manages
// the owner.
type ExpenseAttrs struct {
	OwnerID           int64  `db:"user_id"`
	CurrentApproverID *int64 `db:"current_approver_id"`
	OwnerManagerID    *int64 `db:"manager_id"`
}

// CanViewExpense checks whether the user can view the expense described by attrs.
// Beyond owner and view_all_expenses access, the currently assigned approver may
// always view, and the owner's manager may view with view_team_expenses.
func (p *ABACPolicy) CanViewExpense(u *User, attrs ExpenseAttrs) error {
	if p.Allow(u, attrs.OwnerID, "read") {
		return nil
	}
	if u != nil {
		if attrs.CurrentApproverID != nil && *attrs.CurrentApproverID == u.ID {
			return nil
		}
		if u.HasPermission("view_team_expenses") && attrs.OwnerManagerID != nil && *attrs.OwnerManagerID == u.ID {
			return nil
		}
	}
	return ErrForbidden
}

// CanApproveExpense checks whether the user can approve the expense owned by expenseUserID.
func (p *ABACPolicy) CanApproveExpense(u *User, expenseUserID int64) error {
	if p.Allow(u, expenseUserID, "approve") {
		return nil
	}
	return ErrForbidden
}

// RequireABAC is a generic middleware wrapper that runs an ABAC check function.
func RequireABAC(abac *ABACPolicy, check func(a *ABACPolicy, u *User, r *http.Request) error) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok || u == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := check(abac, u, r); err != nil {
				if errors.Is(err, ErrForbidden) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func expenseAttrs(db *sqlx.DB, r *http.Request) (ExpenseAttrs, error) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		return ExpenseAttrs{}, ErrForbidden
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return ExpenseAttrs{}, err
	}

	var attrs ExpenseAttrs
	err = db.GetContext(r.Context(), &attrs,
		`SELECT e.user_id, e.current_approver_id, u.manager_id
		 FROM expenses e
		 JOIN users u ON u.id = e.user_id
		 WHERE e.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExpenseAttrs{}, ErrForbidden
		}
		return ExpenseAttrs{}, err
	}
	return attrs, nil
}

// RequireCanViewExpense builds a middleware that checks if the authenticated user can view the expense.
func RequireCanViewExpense(db *sqlx.DB, abac *ABACPolicy) func(next http.Handler) http.Handler {
	return RequireABAC(abac, func(a *ABACPolicy, u *User, r *http.Request) error {
		attrs, err := expenseAttrs(db, r)
		if err != nil {
			return err
		}
		return a.CanViewExpense(u, attrs)
	})
}

// RequireCanApproveExpense builds a middleware that checks if the user can approve the expense.
func RequireCanApproveExpense(db *sqlx.DB, abac *ABACPolicy) func(next http.Handler) http.Handler {
	return RequireABAC(abac, func(a *ABACPolicy, u *User, r *http.Request) error {
		attrs, err := expenseAttrs(db, r)
		if err != nil {
			return err
		}
		return a.CanApproveExpense(u, attrs.OwnerID)
	})
}
