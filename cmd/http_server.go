package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/approval"
	approvalpg "github.com/expensehub/expensehub/internal/approval/postgres"
	"github.com/expensehub/expensehub/internal/auth"
	authpg "github.com/expensehub/expensehub/internal/auth/postgres"
	"github.com/expensehub/expensehub/internal/company"
	companypg "github.com/expensehub/expensehub/internal/company/postgres"
	"github.com/expensehub/expensehub/internal/core/events"
	"github.com/expensehub/expensehub/internal/currency"
	"github.com/expensehub/expensehub/internal/expense"
	expensepg "github.com/expensehub/expensehub/internal/expense/postgres"
	"github.com/expensehub/expensehub/internal/ocr"
	"github.com/expensehub/expensehub/internal/report"
	reportpg "github.com/expensehub/expensehub/internal/report/postgres"
	"github.com/expensehub/expensehub/internal/transport/rest"
	"github.com/expensehub/expensehub/internal/transport/swagger"
	"github.com/expensehub/expensehub/internal/user"
	userpg "github.com/expensehub/expensehub/internal/user/postgres"
	"github.com/expensehub/expensehub/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	GormDB   *gorm.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	RBAC     *auth.RBACAuthorization
	ABAC     *auth.ABACPolicy
	Bus      *events.EventBus
	Workflow *approval.Workflow
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		deps.Logger.Warn("openapi spec validation failed, swagger UI may be degraded", "error", err)
	}

	origins := splitOrigins(deps.Config.Server.AllowedOrigins)
	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.DB, deps.Handlers, deps.RBAC, deps.ABAC, origins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	bus := events.NewEventBus(log)
	subscribeEventLoggers(bus, log)

	// auth
	authRepo := authpg.NewRepository(gormDB)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, config.Security.BCryptCost)
	authHandler := auth.NewHandler(authService)

	rbac := auth.NewRBACAuthorization(&auth.DefaultPermissionChecker{}, log)
	abac := &auth.ABACPolicy{}

	// users and companies
	userRepo := userpg.NewUserRepository(gormDB)
	userService := user.NewService(userRepo, config.Security.BCryptCost, log)
	userHandler := user.NewHandler(userService)

	companyRepo := companypg.NewCompanyRepository(gormDB)
	companyService := company.NewService(companyRepo, log)
	companyHandler := company.NewHandler(companyService, userService)

	// currency conversion
	rates := currency.NewClient(currency.Config{
		APIURL:   config.Exchange.APIURL,
		APIKey:   config.Exchange.APIKey,
		Timeout:  config.Exchange.Timeout,
		CacheTTL: config.Exchange.CacheTTL,
	}, log)
	converter := currency.NewConverter(rates, log)

	// expenses
	expenseRepo := expensepg.NewExpenseRepository(gormDB)
	expenseService := expense.NewService(expenseRepo, companyService, converter, userRepo, log)
	expenseHandler := expense.NewHandler(expenseService)

	// approval workflow
	approvalRepo := approvalpg.NewApprovalRepository(gormDB)
	workflow := approval.NewWorkflow(approvalRepo, expenseRepo, userRepo, companyService, bus, log)
	approvalHandler := approval.NewHandler(workflow)

	// OCR
	recognizer := ocr.NewTesseractRecognizer()
	ocrService := ocr.NewService(recognizer, log)
	ocrHandler := ocr.NewHandler(ocrService, expenseService, config.Uploads.Dir, config.Uploads.MaxFileBytes, config.Uploads.MaxBatchSize)

	// reporting
	reportRepo := reportpg.NewReportRepository(gormDB)
	reportService := report.NewService(reportRepo, log)
	reportHandler := report.NewHandler(reportService)

	return &Dependencies{
		Config: config,
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
		Handlers: rest.Handlers{
			Auth:     authHandler,
			User:     userHandler,
			Company:  companyHandler,
			Expense:  expenseHandler,
			Approval: approvalHandler,
			OCR:      ocrHandler,
			Report:   reportHandler,
		},
		RBAC:     rbac,
		ABAC:     abac,
		Bus:      bus,
		Workflow: workflow,
		Logger:   log,
	}, nil
}

// subscribeEventLoggers attaches the default subscribers. Notification
// delivery is out of scope for the API process, so workflow events are
// logged where a mail or chat integration would hook in.
func subscribeEventLoggers(bus *events.EventBus, log *slog.Logger) {
	logEvent := func(ctx context.Context, event events.Event) error {
		log.Info("workflow event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	}

	bus.Subscribe(events.EventTypeExpenseSubmitted, logEvent)
	bus.Subscribe(events.EventTypeExpenseApproved, logEvent)
	bus.Subscribe(events.EventTypeExpenseRejected, logEvent)
	bus.Subscribe(events.EventTypeApprovalAssigned, logEvent)
	bus.Subscribe(events.EventTypeApprovalReminder, logEvent)
}

func splitOrigins(raw string) []string {
	if raw == "" || raw == "*" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// initDB opens the pgx-backed sqlx pool used for health checks and
// ownership lookups.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm opens the gorm connection the repositories run on.
func initGorm(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(gormpostgres.Open(cfg.Source), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}
	return db, nil
}
