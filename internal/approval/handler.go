package approval

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/expense"
	"github.com/expensehub/expensehub/internal/transport"
	"github.com/expensehub/expensehub/pkg/logger"
	"github.com/go-chi/chi"
)

type WorkflowAPI interface {
	Submit(ctx context.Context, expenseID int64, caller *auth.User) (*expense.Expense, error)
	Approve(ctx context.Context, approvalID int64, caller *auth.User, comments string) (*expense.Expense, error)
	Reject(ctx context.Context, approvalID int64, caller *auth.User, reason string) (*expense.Expense, error)
	Escalate(ctx context.Context, approvalID int64, caller *auth.User, targetUserID int64, reason string) (*expense.Expense, error)
	ListExpenseApprovals(expenseID int64, caller *auth.User) ([]*Approval, error)
	ListMyPending(caller *auth.User, limit, offset int) ([]*Approval, error)
	SendReminders(ctx context.Context, pendingSince time.Duration, batchSize int) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Workflow WorkflowAPI
}

func NewHandler(workflow WorkflowAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Workflow:    workflow,
	}
}

// SubmitExpense kicks a draft expense into the approval pipeline.
// Registered under /expenses/{id}/submit.
func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := idFromRequest(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	exp, err := h.Workflow.Submit(r.Context(), expenseID, user)
	if err != nil {
		h.Logger.Error("SubmitExpense: workflow error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	approvalID, err := idFromRequest(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid approval ID")
		return
	}

	var dto DecisionDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	exp, err := h.Workflow.Approve(r.Context(), approvalID, user, dto.Comments)
	if err != nil {
		h.Logger.Error("Approve: workflow error", "error", err, "approval_id", approvalID, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	approvalID, err := idFromRequest(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid approval ID")
		return
	}

	var dto RejectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	exp, err := h.Workflow.Reject(r.Context(), approvalID, user, dto.Reason)
	if err != nil {
		h.Logger.Error("Reject: workflow error", "error", err, "approval_id", approvalID, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) Escalate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	approvalID, err := idFromRequest(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid approval ID")
		return
	}

	var dto EscalateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	exp, err := h.Workflow.Escalate(r.Context(), approvalID, user, dto.TargetUserID, dto.Reason)
	if err != nil {
		h.Logger.Error("Escalate: workflow error", "error", err, "approval_id", approvalID, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

// ListExpenseApprovals returns the chain for one expense.
// Registered under /expenses/{id}/approvals.
func (h *Handler) ListExpenseApprovals(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := idFromRequest(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	approvals, err := h.Workflow.ListExpenseApprovals(expenseID, user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"approvals": approvals})
}

// ListPending returns the caller's open approval steps.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil {
			offset = o
		}
	}

	approvals, err := h.Workflow.ListMyPending(user, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"approvals": approvals,
		"limit":     limit,
		"offset":    offset,
	})
}

func idFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
