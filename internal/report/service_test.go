package report_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensehub/expensehub/internal"
	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/report"
	"github.com/expensehub/expensehub/internal/user"
)

func TestReport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Report Suite")
}

// Mock repository for testing
type mockReportRepo struct {
	lastFilter report.Filter
	totals     report.AmountStats
	failWith   error
}

func (m *mockReportRepo) Totals(filter report.Filter) (report.AmountStats, error) {
	m.lastFilter = filter
	if m.failWith != nil {
		return report.AmountStats{}, m.failWith
	}
	return m.totals, nil
}

func (m *mockReportRepo) ExpensesByTimeBucket(filter report.Filter) ([]report.TimeBucketStat, error) {
	return []report.TimeBucketStat{
		{Bucket: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), AmountStats: m.totals},
	}, nil
}

func (m *mockReportRepo) ExpensesByCategory(filter report.Filter) ([]report.CategoryStat, error) {
	return []report.CategoryStat{{Category: "travel", AmountStats: m.totals}}, nil
}

func (m *mockReportRepo) ExpensesByStatus(filter report.Filter) ([]report.StatusStat, error) {
	return []report.StatusStat{{Status: "approved", AmountStats: m.totals}}, nil
}

func (m *mockReportRepo) ApprovalThroughput(filter report.Filter) ([]report.ApprovalStat, error) {
	return []report.ApprovalStat{{Status: "approved", Count: 4}}, nil
}

func viewer(role string) *auth.User {
	return &auth.User{
		ID:          3,
		Email:       "finance@acme.test",
		Role:        role,
		CompanyID:   1,
		Permissions: user.PermissionsForRole(role),
	}
}

var _ = Describe("ReportService", func() {
	var (
		service *report.Service
		repo    *mockReportRepo
	)

	BeforeEach(func() {
		repo = &mockReportRepo{
			totals: report.AmountStats{Count: 10, Sum: 1234.56, Avg: 123.46, Min: 5, Max: 600},
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = report.NewService(repo, logger)
	})

	Describe("BuildSummary", func() {
		It("returns all groupings scoped to the caller's company", func() {
			summary, err := service.BuildSummary(viewer(user.RoleFinance), report.Filter{CompanyID: 99})

			Expect(err).ToNot(HaveOccurred())
			Expect(repo.lastFilter.CompanyID).To(Equal(int64(1)))
			Expect(summary.Totals.Count).To(Equal(int64(10)))
			Expect(summary.ByTime).To(HaveLen(1))
			Expect(summary.ByCategory).To(HaveLen(1))
			Expect(summary.Approvals[0].Count).To(Equal(int64(4)))
		})

		It("defaults the granularity to month", func() {
			summary, err := service.BuildSummary(viewer(user.RoleFinance), report.Filter{})

			Expect(err).ToNot(HaveOccurred())
			Expect(summary.Granularity).To(Equal(report.GranularityMonth))
		})

		It("rejects an unknown granularity", func() {
			_, err := service.BuildSummary(viewer(user.RoleFinance), report.Filter{Granularity: "quarter"})

			Expect(err).To(HaveOccurred())
		})

		It("rejects an inverted date range", func() {
			from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
			to := from.AddDate(0, -3, 0)
			_, err := service.BuildSummary(viewer(user.RoleFinance), report.Filter{From: &from, To: &to})

			Expect(err).To(HaveOccurred())
		})

		It("refuses callers without the report permission", func() {
			_, err := service.BuildSummary(viewer(user.RoleEmployee), report.Filter{})

			Expect(errors.Is(err, internal.ErrUnauthorizedAccess)).To(BeTrue())
		})

		It("propagates aggregation failures", func() {
			repo.failWith = errors.New("connection reset")

			_, err := service.BuildSummary(viewer(user.RoleFinance), report.Filter{})

			Expect(err).To(MatchError("connection reset"))
		})
	})

	Describe("WriteCSV", func() {
		It("renders every section with stats columns", func() {
			summary, err := service.BuildSummary(viewer(user.RoleFinance), report.Filter{})
			Expect(err).ToNot(HaveOccurred())

			var buf bytes.Buffer
			Expect(report.WriteCSV(&buf, summary)).To(Succeed())

			out := buf.String()
			Expect(out).To(HavePrefix("section,key,count,sum,avg,min,max\n"))
			Expect(out).To(ContainSubstring("totals,,10,1234.56,123.46,5.00,600.00"))
			Expect(out).To(ContainSubstring("by_category,travel"))
			Expect(out).To(ContainSubstring("approvals,approved,4"))
		})
	})

	Describe("WriteXLSX", func() {
		It("produces a non-empty workbook", func() {
			summary, err := service.BuildSummary(viewer(user.RoleFinance), report.Filter{})
			Expect(err).ToNot(HaveOccurred())

			var buf bytes.Buffer
			Expect(report.WriteXLSX(&buf, summary)).To(Succeed())

			// xlsx files are zip archives.
			Expect(strings.HasPrefix(buf.String(), "PK")).To(BeTrue())
		})
	})
})
