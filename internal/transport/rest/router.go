package rest

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/expensehub/expensehub/internal/approval"
	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/company"
	"github.com/expensehub/expensehub/internal/expense"
	"github.com/expensehub/expensehub/internal/ocr"
	"github.com/expensehub/expensehub/internal/report"
	"github.com/expensehub/expensehub/internal/transport/middleware"
	"github.com/expensehub/expensehub/internal/transport/swagger"
	"github.com/expensehub/expensehub/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"
)

// Handlers bundles every feature handler the router mounts.
type Handlers struct {
	Auth     *auth.Handler
	User     *user.Handler
	Company  *company.Handler
	Expense  *expense.Handler
	Approval *approval.Handler
	OCR      *ocr.Handler
	Report   *report.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, sqlxDB *sqlx.DB, h Handlers, rbac *auth.RBACAuthorization, abac *auth.ABACPolicy, allowedOrigins []string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Global middleware
	router.Use(middleware.CORS(allowedOrigins...))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				if h.Company != nil {
					sr.Post("/register", h.Company.Register)
				}
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		// Public categories route (no auth required)
		r.Get("/categories", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string][]string{"categories": expense.Categories})
		})

		if h.Auth == nil {
			return
		}

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)

				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/{id}", h.User.GetUser)

					ur.Group(func(mr chi.Router) {
						mr.Use(middleware.RequirePermissions("manage_users", "admin"))
						mr.Post("/", h.User.CreateUser)
						mr.Get("/", h.User.ListUsers)
						mr.Patch("/{id}", h.User.UpdateUser)
						mr.Delete("/{id}", h.User.DeactivateUser)
					})
				})
			}

			if h.Company != nil {
				pr.Route("/companies", func(cr chi.Router) {
					cr.Get("/{id}", h.Company.GetCompany)

					cr.Group(func(ar chi.Router) {
						ar.Use(rbac.RequireAdmin())
						ar.Patch("/{id}/settings", h.Company.UpdateSettings)
						ar.Delete("/{id}", h.Company.DeactivateCompany)
					})
				})
			}

			if h.Expense != nil {
				pr.Route("/expenses", func(er chi.Router) {
					er.Post("/", h.Expense.CreateExpense)
					er.Get("/", h.Expense.ListExpenses)

					er.Group(func(vr chi.Router) {
						vr.Use(auth.RequireCanViewExpense(sqlxDB, abac))
						vr.Get("/{id}", h.Expense.GetExpense)
						if h.Approval != nil {
							vr.Get("/{id}/approvals", h.Approval.ListExpenseApprovals)
						}
					})

					er.Patch("/{id}", h.Expense.UpdateExpense)
					er.Delete("/{id}", h.Expense.DeleteExpense)

					if h.Approval != nil {
						er.Post("/{id}/submit", h.Approval.SubmitExpense)
					}

					if h.OCR != nil {
						er.Post("/{id}/receipts", h.OCR.UploadExpenseReceipt)
					}

					er.Group(func(fr chi.Router) {
						fr.Use(rbac.RequireMarkReimbursed())
						fr.Patch("/{id}/reimburse", h.Expense.MarkReimbursed)
					})
				})
			}

			if h.Approval != nil {
				pr.Route("/approvals", func(ar chi.Router) {
					ar.Get("/pending", h.Approval.ListPending)

					ar.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireApproveExpense())
						mr.Patch("/{id}/approve", h.Approval.Approve)
						mr.Patch("/{id}/escalate", h.Approval.Escalate)
					})

					ar.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireRejectExpense())
						mr.Patch("/{id}/reject", h.Approval.Reject)
					})
				})
			}

			if h.OCR != nil {
				pr.Route("/ocr", func(or chi.Router) {
					or.Post("/receipt", h.OCR.ExtractReceipt)
					or.Post("/receipts", h.OCR.ExtractReceipts)
				})
			}

			if h.Report != nil {
				pr.Group(func(rr chi.Router) {
					rr.Use(middleware.RequirePermissions("view_reports", "admin"))
					rr.Get("/reports/summary", h.Report.GetSummary)
				})
			}
		})
	})
}
