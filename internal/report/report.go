package report

import (
	"time"

	"github.com/expensehub/expensehub/internal"
)

const (
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// Filter scopes every aggregation. CompanyID is always forced to the
// caller's company by the service.
type Filter struct {
	CompanyID   int64
	From        *time.Time
	To          *time.Time
	Category    string
	Status      string
	Granularity string
}

func (f *Filter) Validate() error {
	switch f.Granularity {
	case "", GranularityDay, GranularityWeek, GranularityMonth:
	default:
		return internal.NewValidationError("granularity must be day, week, or month", internal.ErrCodeValidationFailed)
	}
	if f.Granularity == "" {
		f.Granularity = GranularityMonth
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return internal.NewValidationError("from must be before to", internal.ErrCodeInvalidDate)
	}
	return nil
}

// AmountStats is the count/sum/avg/min/max block shared by groupings.
type AmountStats struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type TimeBucketStat struct {
	Bucket time.Time `json:"bucket"`
	AmountStats
}

type CategoryStat struct {
	Category string `json:"category"`
	AmountStats
}

type StatusStat struct {
	Status string `json:"status"`
	AmountStats
}

// ApprovalStat counts approval steps by outcome.
type ApprovalStat struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Summary bundles every aggregation for one report request.
type Summary struct {
	Totals     AmountStats      `json:"totals"`
	ByTime     []TimeBucketStat `json:"by_time"`
	ByCategory []CategoryStat   `json:"by_category"`
	ByStatus   []StatusStat     `json:"by_status"`
	Approvals  []ApprovalStat   `json:"approvals"`

	Granularity string     `json:"granularity"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
}

// Repository is the read-side aggregation surface. Everything is
// stateless and safe to recompute.
type Repository interface {
	Totals(filter Filter) (AmountStats, error)
	ExpensesByTimeBucket(filter Filter) ([]TimeBucketStat, error)
	ExpensesByCategory(filter Filter) ([]CategoryStat, error)
	ExpensesByStatus(filter Filter) ([]StatusStat, error)
	ApprovalThroughput(filter Filter) ([]ApprovalStat, error)
}
