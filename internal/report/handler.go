package report

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/transport"
	"github.com/expensehub/expensehub/pkg/logger"
)

type ServiceAPI interface {
	BuildSummary(user *auth.User, filter Filter) (*Summary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// GetSummary serves the aggregation report as json (default), csv, or
// xlsx depending on the format query parameter.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := filterFromQuery(r)

	summary, err := h.Service.BuildSummary(user, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="expense-report.csv"`)
		if err := WriteCSV(w, summary); err != nil {
			h.Logger.Error("csv export failed", "error", err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="expense-report.xlsx"`)
		if err := WriteXLSX(w, summary); err != nil {
			h.Logger.Error("xlsx export failed", "error", err)
		}
	default:
		h.WriteJSON(w, http.StatusOK, summary)
	}
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()

	filter := Filter{
		Granularity: q.Get("granularity"),
		Category:    q.Get("category"),
		Status:      q.Get("status"),
	}

	if fromStr := q.Get("from"); fromStr != "" {
		if t, err := time.Parse("2006-01-02", fromStr); err == nil {
			filter.From = &t
		}
	}
	if toStr := q.Get("to"); toStr != "" {
		if t, err := time.Parse("2006-01-02", toStr); err == nil {
			filter.To = &t
		}
	}

	return filter
}
