package period

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Totals is the derived aggregate for one period window. It is recomputed
// from the transaction set on every read and never persisted; budgets and
// transactions can be edited independently of periods, and a stored copy
// would go stale.
type Totals struct {
	PeriodStart core.Date
	PeriodEnd   core.Date // inclusive last day
	IsCompleted bool

	CurrentSpent     decimal.Decimal
	TotalSaved       decimal.Decimal
	CategorySpending map[string]decimal.Decimal

	// Percentage is CurrentSpent / budget * 100. When the budget amount is
	// zero it is reported as zero with BudgetUndefined set instead of
	// dividing.
	Percentage      decimal.Decimal
	BudgetUndefined bool

	// Remaining is the unspent budget, or the absolute overage when
	// IsOverBudget is set. Never negative.
	Remaining    decimal.Decimal
	IsOverBudget bool
}

// CalculateTotals aggregates the transactions falling inside span. Income and
// expenses are summed by type; expenses are additionally bucketed by
// category. Transfers move money between the person's own accounts and are
// skipped entirely. An empty transaction set yields zeroed totals, not an
// error.
func CalculateTotals(span Span, completed bool, budgetAmount decimal.Decimal, txs []core.Transaction) Totals {
	totals := Totals{
		PeriodStart:      span.Start,
		PeriodEnd:        span.LastDay(),
		IsCompleted:      completed,
		CurrentSpent:     decimal.Zero,
		TotalSaved:       decimal.Zero,
		Percentage:       decimal.Zero,
		Remaining:        decimal.Zero,
		CategorySpending: make(map[string]decimal.Decimal),
	}

	income := decimal.Zero
	for _, tx := range txs {
		if tx.Category == core.CategoryTransfer {
			continue
		}
		if !span.Contains(core.DateOf(tx.Date.Time)) {
			continue
		}
		switch tx.Type {
		case core.Expense:
			totals.CurrentSpent = totals.CurrentSpent.Add(tx.Amount)
			bucket := totals.CategorySpending[tx.Category]
			totals.CategorySpending[tx.Category] = bucket.Add(tx.Amount)
		case core.Income:
			income = income.Add(tx.Amount)
		}
	}
	totals.TotalSaved = income.Sub(totals.CurrentSpent)

	if budgetAmount.IsZero() {
		totals.BudgetUndefined = true
		totals.IsOverBudget = totals.CurrentSpent.IsPositive()
		totals.Remaining = decimal.Zero
		return totals
	}

	totals.Percentage = totals.CurrentSpent.Div(budgetAmount).Mul(decimal.NewFromInt(100))
	diff := budgetAmount.Sub(totals.CurrentSpent)
	if diff.IsNegative() {
		totals.IsOverBudget = true
		totals.Remaining = diff.Abs()
	} else {
		totals.Remaining = diff
	}
	return totals
}
