package report

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phrazzld/taskwatch/internal/domain"
)

// Comparison of today's expenses against yesterday's.
const (
	ComparisonMore   = "more productive"
	ComparisonLess   = "less productive"
	ComparisonEqual  = "equally productive"
	ComparisonNoData = "no data from yesterday for comparison"
)

// BillsSummary is the daily financial digest.
type BillsSummary struct {
	Date       string              `json:"date"`
	Income     domain.Money        `json:"income"`
	Expenses   domain.Money        `json:"expenses"`
	Balance    domain.Money        `json:"balance"`
	Comparison string              `json:"comparison"`
	Entries    []*domain.BillEntry `json:"entries"`
}

func totals(entries []*domain.BillEntry) (income, expenses domain.Money) {
	for _, e := range entries {
		if e.Amount > 0 {
			income += e.Amount
		} else {
			expenses += e.Amount.Abs()
		}
	}
	return income, expenses
}

// SummarizeBills computes the digest for date. Spending less than yesterday
// counts as more productive.
func SummarizeBills(date string, today, yesterday []*domain.BillEntry) BillsSummary {
	income, expenses := totals(today)
	_, prevExpenses := totals(yesterday)

	comparison := ComparisonEqual
	switch {
	case len(yesterday) == 0:
		comparison = ComparisonNoData
	case expenses < prevExpenses:
		comparison = ComparisonMore
	case expenses > prevExpenses:
		comparison = ComparisonLess
	}

	return BillsSummary{
		Date:       date,
		Income:     income,
		Expenses:   expenses,
		Balance:    income - expenses,
		Comparison: comparison,
		Entries:    today,
	}
}

// BillsDigest renders the summary as message text.
func BillsDigest(s BillsSummary) string {
	if len(s.Entries) == 0 {
		return "No bill transactions recorded for today."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Bills Report for %s\n", s.Date)
	fmt.Fprintf(&b, "Income Today: $%s\n", s.Income)
	fmt.Fprintf(&b, "Expenses Today: $%s\n", s.Expenses)
	fmt.Fprintf(&b, "Balance Left: $%s\n", s.Balance)
	fmt.Fprintf(&b, "Productivity Compared to Yesterday: %s\n", s.Comparison)
	b.WriteString("\nToday's Transactions:")
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "\n- %s: $%s at %s - %s",
			capitalize(string(e.Type)), e.Amount.Abs(), e.Time, e.Description)
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
