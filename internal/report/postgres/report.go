package postgres

import (
	"fmt"

	"github.com/expensehub/expensehub/internal/report"
	"gorm.io/gorm"
)

// ReportRepository implements report.Repository with aggregate queries
// over the expenses and approvals tables.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) baseQuery(filter report.Filter) *gorm.DB {
	query := r.db.Table("expenses").
		Where("company_id = ?", filter.CompanyID).
		Where("deleted_at IS NULL")

	if filter.From != nil {
		query = query.Where("expense_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("expense_date <= ?", *filter.To)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	return query
}

const statsSelect = "COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum, COALESCE(AVG(amount), 0) AS avg, COALESCE(MIN(amount), 0) AS min, COALESCE(MAX(amount), 0) AS max"

func (r *ReportRepository) Totals(filter report.Filter) (report.AmountStats, error) {
	var stats report.AmountStats
	err := r.baseQuery(filter).
		Select(statsSelect).
		Scan(&stats).Error
	return stats, err
}

func (r *ReportRepository) ExpensesByTimeBucket(filter report.Filter) ([]report.TimeBucketStat, error) {
	var stats []report.TimeBucketStat
	bucket := fmt.Sprintf("date_trunc('%s', expense_date)", filter.Granularity)

	err := r.baseQuery(filter).
		Select(bucket + " AS bucket, " + statsSelect).
		Group("bucket").
		Order("bucket ASC").
		Scan(&stats).Error
	return stats, err
}

func (r *ReportRepository) ExpensesByCategory(filter report.Filter) ([]report.CategoryStat, error) {
	var stats []report.CategoryStat
	err := r.baseQuery(filter).
		Select("category, " + statsSelect).
		Group("category").
		Order("sum DESC").
		Scan(&stats).Error
	return stats, err
}

func (r *ReportRepository) ExpensesByStatus(filter report.Filter) ([]report.StatusStat, error) {
	var stats []report.StatusStat
	err := r.baseQuery(filter).
		Select("status, " + statsSelect).
		Group("status").
		Order("count DESC").
		Scan(&stats).Error
	return stats, err
}

func (r *ReportRepository) ApprovalThroughput(filter report.Filter) ([]report.ApprovalStat, error) {
	var stats []report.ApprovalStat

	query := r.db.Table("approvals").
		Joins("JOIN expenses ON expenses.id = approvals.expense_id").
		Where("expenses.company_id = ?", filter.CompanyID)

	if filter.From != nil {
		query = query.Where("approvals.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("approvals.created_at <= ?", *filter.To)
	}

	err := query.
		Select("approvals.status AS status, COUNT(*) AS count").
		Group("approvals.status").
		Order("count DESC").
		Scan(&stats).Error
	return stats, err
}
