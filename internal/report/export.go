package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// WriteCSV renders the summary as flat CSV sections.
func WriteCSV(w io.Writer, summary *Summary) error {
	cw := csv.NewWriter(w)

	write := func(record ...string) {
		_ = cw.Write(record)
	}

	write("section", "key", "count", "sum", "avg", "min", "max")
	write(append([]string{"totals", ""}, formatStats(summary.Totals)...)...)

	for _, stat := range summary.ByTime {
		write(append([]string{"by_time", stat.Bucket.Format("2006-01-02")}, formatStats(stat.AmountStats)...)...)
	}
	for _, stat := range summary.ByCategory {
		write(append([]string{"by_category", stat.Category}, formatStats(stat.AmountStats)...)...)
	}
	for _, stat := range summary.ByStatus {
		write(append([]string{"by_status", stat.Status}, formatStats(stat.AmountStats)...)...)
	}
	for _, stat := range summary.Approvals {
		write("approvals", stat.Status, fmt.Sprintf("%d", stat.Count), "", "", "", "")
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the summary as a workbook with one sheet per
// grouping.
func WriteXLSX(w io.Writer, summary *Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	statsHeader := []interface{}{"Count", "Sum", "Avg", "Min", "Max"}

	totalsSheet := "Totals"
	f.SetSheetName("Sheet1", totalsSheet)
	_ = f.SetSheetRow(totalsSheet, "A1", &statsHeader)
	_ = f.SetSheetRow(totalsSheet, "A2", statsRow(summary.Totals))

	timeSheet := "By Period"
	if _, err := f.NewSheet(timeSheet); err != nil {
		return err
	}
	header := append([]interface{}{"Period"}, statsHeader...)
	_ = f.SetSheetRow(timeSheet, "A1", &header)
	for i, stat := range summary.ByTime {
		row := append([]interface{}{formatBucket(stat.Bucket, summary.Granularity)}, *statsRow(stat.AmountStats)...)
		cell := fmt.Sprintf("A%d", i+2)
		_ = f.SetSheetRow(timeSheet, cell, &row)
	}

	categorySheet := "By Category"
	if _, err := f.NewSheet(categorySheet); err != nil {
		return err
	}
	header = append([]interface{}{"Category"}, statsHeader...)
	_ = f.SetSheetRow(categorySheet, "A1", &header)
	for i, stat := range summary.ByCategory {
		row := append([]interface{}{stat.Category}, *statsRow(stat.AmountStats)...)
		cell := fmt.Sprintf("A%d", i+2)
		_ = f.SetSheetRow(categorySheet, cell, &row)
	}

	statusSheet := "By Status"
	if _, err := f.NewSheet(statusSheet); err != nil {
		return err
	}
	header = append([]interface{}{"Status"}, statsHeader...)
	_ = f.SetSheetRow(statusSheet, "A1", &header)
	for i, stat := range summary.ByStatus {
		row := append([]interface{}{stat.Status}, *statsRow(stat.AmountStats)...)
		cell := fmt.Sprintf("A%d", i+2)
		_ = f.SetSheetRow(statusSheet, cell, &row)
	}

	approvalSheet := "Approvals"
	if _, err := f.NewSheet(approvalSheet); err != nil {
		return err
	}
	approvalHeader := []interface{}{"Status", "Count"}
	_ = f.SetSheetRow(approvalSheet, "A1", &approvalHeader)
	for i, stat := range summary.Approvals {
		row := []interface{}{stat.Status, stat.Count}
		cell := fmt.Sprintf("A%d", i+2)
		_ = f.SetSheetRow(approvalSheet, cell, &row)
	}

	return f.Write(w)
}

func formatStats(stats AmountStats) []string {
	return []string{
		fmt.Sprintf("%d", stats.Count),
		fmt.Sprintf("%.2f", stats.Sum),
		fmt.Sprintf("%.2f", stats.Avg),
		fmt.Sprintf("%.2f", stats.Min),
		fmt.Sprintf("%.2f", stats.Max),
	}
}

func statsRow(stats AmountStats) *[]interface{} {
	row := []interface{}{stats.Count, stats.Sum, stats.Avg, stats.Min, stats.Max}
	return &row
}

func formatBucket(bucket time.Time, granularity string) string {
	switch granularity {
	case GranularityMonth:
		return bucket.Format("2006-01")
	default:
		return bucket.Format("2006-01-02")
	}
}
