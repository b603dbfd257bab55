package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expensehub/expensehub/internal/expense"
)

// ParsedReceipt holds the fields extracted from raw receipt text. Every
// field is best-effort; Confidence accumulates per extracted field and
// is capped at 1.0.
type ParsedReceipt struct {
	Merchant   string     `json:"merchant"`
	Amount     *float64   `json:"amount,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	Category   *string    `json:"category,omitempty"`
	Confidence float64    `json:"confidence"`
	RawText    string     `json:"raw_text,omitempty"`
}

var merchantSuffixes = []string{
	"LTD", "INC", "CORP", "LLC", "STORE", "SHOP", "RESTAURANT", "HOTEL",
}

// amountPatterns are tried in fixed order across the whole text; the
// first hit wins.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)TOTAL:\s*\$?\s*([0-9]+(?:\.[0-9]{1,2})?)`),
	regexp.MustCompile(`(?i)AMOUNT:\s*\$?\s*([0-9]+(?:\.[0-9]{1,2})?)`),
	regexp.MustCompile(`\$\s*([0-9]+(?:\.[0-9]{1,2})?)`),
	regexp.MustCompile(`(?i)USD\s*([0-9]+(?:\.[0-9]{1,2})?)`),
	regexp.MustCompile(`(?i)EUR\s*([0-9]+(?:\.[0-9]{1,2})?)`),
	regexp.MustCompile(`(?i)GBP\s*([0-9]+(?:\.[0-9]{1,2})?)`),
}

// datePatterns pair a capture shape with the layouts that can parse it.
var datePatterns = []struct {
	re      *regexp.Regexp
	layouts []string
}{
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), []string{"01/02/2006", "1/2/2006"}},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), []string{"2006-01-02"}},
	{regexp.MustCompile(`\b[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}\b`), []string{"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006", "Jan. 2, 2006"}},
}

// categoryKeywords maps merchant-name fragments to expense categories.
// Checked in order so the same merchant always resolves the same way.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"hotel", expense.CategoryAccommodation},
	{"inn", expense.CategoryAccommodation},
	{"motel", expense.CategoryAccommodation},
	{"restaurant", expense.CategoryMeals},
	{"cafe", expense.CategoryMeals},
	{"coffee", expense.CategoryMeals},
	{"diner", expense.CategoryMeals},
	{"pizza", expense.CategoryMeals},
	{"grill", expense.CategoryMeals},
	{"airline", expense.CategoryTravel},
	{"airways", expense.CategoryTravel},
	{"taxi", expense.CategoryTravel},
	{"rail", expense.CategoryTravel},
	{"fuel", expense.CategoryTravel},
	{"store", expense.CategoryOfficeSupply},
	{"shop", expense.CategoryOfficeSupply},
	{"market", expense.CategoryOfficeSupply},
	{"office", expense.CategoryOfficeSupply},
	{"software", expense.CategorySoftware},
	{"tech", expense.CategoryEquipment},
}

// ParseReceiptText extracts merchant, amount, date, and category from
// raw recognized text. Ambiguity resolves to "first pattern, first
// line" in source order.
func ParseReceiptText(text string) *ParsedReceipt {
	result := &ParsedReceipt{RawText: text}

	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return result
	}

	result.Merchant = extractMerchant(lines)

	if amount, ok := extractAmount(text); ok {
		result.Amount = &amount
		result.Confidence += 0.3
	}

	if date, ok := extractDate(text); ok {
		result.Date = &date
		result.Confidence += 0.2
	}

	if category, ok := categoryForMerchant(result.Merchant); ok {
		result.Category = &category
		result.Confidence += 0.1
	}

	if result.Confidence > 1.0 {
		result.Confidence = 1.0
	}

	return result
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// extractMerchant returns the first line carrying a business suffix
// keyword, else the first line verbatim.
func extractMerchant(lines []string) string {
	for _, line := range lines {
		upper := strings.ToUpper(line)
		for _, suffix := range merchantSuffixes {
			if strings.Contains(upper, suffix) {
				return line
			}
		}
	}
	return lines[0]
}

func extractAmount(text string) (float64, bool) {
	for _, pattern := range amountPatterns {
		if m := pattern.FindStringSubmatch(text); len(m) >= 2 {
			amount, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			return amount, true
		}
	}
	return 0, false
}

// extractDate accepts a match only when it parses to a valid calendar
// date.
func extractDate(text string) (time.Time, bool) {
	for _, shape := range datePatterns {
		matches := shape.re.FindAllString(text, -1)
		for _, m := range matches {
			for _, layout := range shape.layouts {
				if t, err := time.Parse(layout, m); err == nil {
					return t, true
				}
			}
		}
	}
	return time.Time{}, false
}

func categoryForMerchant(merchant string) (string, bool) {
	lower := strings.ToLower(merchant)
	for _, entry := range categoryKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.category, true
		}
	}
	return "", false
}
