package company

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/transport"
	"github.com/expensehub/expensehub/internal/user"
	"github.com/expensehub/expensehub/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateCompany(dto CreateCompanyDTO) (*Company, error)
	GetCompany(id int64) (*Company, error)
	UpdateSettings(id int64, dto UpdateSettingsDTO) (*Company, error)
	DeactivateCompany(id int64) error
}

// UserAPI is the slice of the user service registration needs to seed the
// first admin account.
type UserAPI interface {
	CreateUser(companyID int64, dto user.CreateUserDTO) (*user.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Users   UserAPI
}

func NewHandler(service ServiceAPI, users UserAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Users:       users,
	}
}

// Register is the unauthenticated signup endpoint: it creates a company and
// its first user in one request. The first user is always an admin with no
// manager, whatever the payload says.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dto.Admin.Role = user.RoleAdmin
	dto.Admin.ManagerID = nil

	// Fail fast on bad admin data so we never create a company we would
	// immediately have to roll back.
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.Service.CreateCompany(dto.Company)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	admin, err := h.Users.CreateUser(c.ID, dto.Admin)
	if err != nil {
		// Do not leave an active company without any users behind.
		if derr := h.Service.DeactivateCompany(c.ID); derr != nil {
			h.Logger.Error("Register: rollback failed", "error", derr, "company_id", c.ID)
		}
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("company registered", "company_id", c.ID, "admin_id", admin.ID)
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"company": c,
		"admin":   admin,
	})
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	companyID, err := h.companyIDFromRequest(r, user)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	if companyID != user.CompanyID && !user.IsAdmin() {
		h.WriteError(w, http.StatusForbidden, "cannot access another company")
		return
	}

	c, err := h.Service.GetCompany(companyID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	companyID, err := h.companyIDFromRequest(r, user)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	if companyID != user.CompanyID {
		h.WriteError(w, http.StatusForbidden, "cannot modify another company")
		return
	}

	var dto UpdateSettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.UpdateSettings(companyID, dto)
	if err != nil {
		h.Logger.Error("UpdateSettings: service error", "error", err, "company_id", companyID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeactivateCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	companyID, err := h.companyIDFromRequest(r, user)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	if companyID != user.CompanyID {
		h.WriteError(w, http.StatusForbidden, "cannot modify another company")
		return
	}

	if err := h.Service.DeactivateCompany(companyID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) companyIDFromRequest(r *http.Request, user *auth.User) (int64, error) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		return user.CompanyID, nil
	}
	return strconv.ParseInt(idStr, 10, 64)
}
