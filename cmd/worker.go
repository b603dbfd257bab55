package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expensehub/expensehub/internal/approval"
	approvalpg "github.com/expensehub/expensehub/internal/approval/postgres"
	companypg "github.com/expensehub/expensehub/internal/company/postgres"
	"github.com/expensehub/expensehub/internal/company"
	"github.com/expensehub/expensehub/internal/core/events"
	expensepg "github.com/expensehub/expensehub/internal/expense/postgres"
	userpg "github.com/expensehub/expensehub/internal/user/postgres"
	"github.com/expensehub/expensehub/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers, currently the approval reminder sweeper.`,
}

var reminderWorkerCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Start the approval reminder sweeper",
	Long:  `Periodically scans for approvals that have sat pending too long and publishes reminder events for them.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReminderWorker()
	},
}

var reminderBatchSize int

func startReminderWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	gormDB, err := initGorm(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewEventBus(log)
	subscribeEventLoggers(bus, log)

	workflow := approval.NewWorkflow(
		approvalpg.NewApprovalRepository(gormDB),
		expensepg.NewExpenseRepository(gormDB),
		userpg.NewUserRepository(gormDB),
		company.NewService(companypg.NewCompanyRepository(gormDB), log),
		bus,
		log,
	)

	log.Info("reminder worker started",
		"reminder_after", cfg.Approvals.ReminderAfter,
		"sweep_interval", cfg.Approvals.ReminderInterval,
		"batch_size", reminderBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Approvals.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, err := workflow.SendReminders(ctx, cfg.Approvals.ReminderAfter, reminderBatchSize)
			if err != nil {
				log.Error("reminder sweep failed", "error", err)
				continue
			}
			if sent > 0 {
				log.Info("reminder sweep complete", "reminders_sent", sent)
			}
		case sig := <-sigChan:
			log.Info("received signal, shutting down reminder worker", "signal", sig)
			return
		}
	}
}

func init() {
	reminderWorkerCmd.Flags().IntVar(&reminderBatchSize, "batch-size", 100, "Maximum approvals reminded per sweep")
	workerCmd.AddCommand(reminderWorkerCmd)
}
