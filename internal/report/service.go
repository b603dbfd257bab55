package report

import (
	"log/slog"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/auth"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// BuildSummary runs every aggregation for the caller's company.
func (s *Service) BuildSummary(user *auth.User, filter Filter) (*Summary, error) {
	if !user.HasPermission("view_reports") {
		return nil, internal.ErrUnauthorizedAccess
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.CompanyID = user.CompanyID

	totals, err := s.repo.Totals(filter)
	if err != nil {
		s.logger.Error("report totals failed", "error", err, "company_id", filter.CompanyID)
		return nil, err
	}

	byTime, err := s.repo.ExpensesByTimeBucket(filter)
	if err != nil {
		s.logger.Error("report time buckets failed", "error", err, "company_id", filter.CompanyID)
		return nil, err
	}

	byCategory, err := s.repo.ExpensesByCategory(filter)
	if err != nil {
		s.logger.Error("report categories failed", "error", err, "company_id", filter.CompanyID)
		return nil, err
	}

	byStatus, err := s.repo.ExpensesByStatus(filter)
	if err != nil {
		s.logger.Error("report statuses failed", "error", err, "company_id", filter.CompanyID)
		return nil, err
	}

	approvals, err := s.repo.ApprovalThroughput(filter)
	if err != nil {
		s.logger.Error("report approvals failed", "error", err, "company_id", filter.CompanyID)
		return nil, err
	}

	return &Summary{
		Totals:      totals,
		ByTime:      byTime,
		ByCategory:  byCategory,
		ByStatus:    byStatus,
		Approvals:   approvals,
		Granularity: filter.Granularity,
		From:        filter.From,
		To:          filter.To,
	}, nil
}
