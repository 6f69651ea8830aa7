package period

import (
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func julySpan() Span {
	return Span{Start: core.NewDate(2025, 7, 1), End: core.NewDate(2025, 8, 1)}
}

func expenseOn(day int, amount string, category string) core.Transaction {
	return core.Transaction{
		ID:       "tx-" + category,
		PersonID: "p1",
		Amount:   decimal.RequireFromString(amount),
		Date:     core.NewDate(2025, 7, day),
		Type:     core.Expense,
		Category: category,
	}
}

func incomeOn(day int, amount string) core.Transaction {
	return core.Transaction{
		ID:       "tx-income",
		PersonID: "p1",
		Amount:   decimal.RequireFromString(amount),
		Date:     core.NewDate(2025, 7, day),
		Type:     core.Income,
		Category: "salary",
	}
}

func TestCalculateTotals(t *testing.T) {
	t.Run("aggregates spending and savings", func(t *testing.T) {
		budget := decimal.NewFromInt(500)
		txs := []core.Transaction{
			incomeOn(1, "1000"),
			expenseOn(5, "200", "groceries"),
			expenseOn(12, "100", "transport"),
		}

		totals := CalculateTotals(julySpan(), false, budget, txs)

		if !totals.CurrentSpent.Equal(decimal.NewFromInt(300)) {
			t.Errorf("CurrentSpent = %s, want 300", totals.CurrentSpent)
		}
		if !totals.TotalSaved.Equal(decimal.NewFromInt(700)) {
			t.Errorf("TotalSaved = %s, want 700", totals.TotalSaved)
		}
		if !totals.Remaining.Equal(decimal.NewFromInt(200)) {
			t.Errorf("Remaining = %s, want 200", totals.Remaining)
		}
		if totals.IsOverBudget {
			t.Error("IsOverBudget = true, want false")
		}
		if !totals.Percentage.Equal(decimal.NewFromInt(60)) {
			t.Errorf("Percentage = %s, want 60", totals.Percentage)
		}
		if !totals.CategorySpending["groceries"].Equal(decimal.NewFromInt(200)) {
			t.Errorf("groceries bucket = %s, want 200", totals.CategorySpending["groceries"])
		}
		if !totals.CategorySpending["transport"].Equal(decimal.NewFromInt(100)) {
			t.Errorf("transport bucket = %s, want 100", totals.CategorySpending["transport"])
		}
	})

	t.Run("overspending reports the overage, never a negative remaining", func(t *testing.T) {
		budget := decimal.NewFromInt(500)
		txs := []core.Transaction{
			expenseOn(5, "625", "travel"),
		}

		totals := CalculateTotals(julySpan(), false, budget, txs)

		if !totals.IsOverBudget {
			t.Error("IsOverBudget = false, want true")
		}
		if !totals.Remaining.Equal(decimal.NewFromInt(125)) {
			t.Errorf("Remaining = %s, want 125", totals.Remaining)
		}
		if !totals.Percentage.Equal(decimal.NewFromInt(125)) {
			t.Errorf("Percentage = %s, want 125", totals.Percentage)
		}
	})

	t.Run("zero budget is flagged instead of dividing", func(t *testing.T) {
		txs := []core.Transaction{expenseOn(5, "50", "dining")}

		totals := CalculateTotals(julySpan(), false, decimal.Zero, txs)

		if !totals.BudgetUndefined {
			t.Error("BudgetUndefined = false, want true")
		}
		if !totals.Percentage.IsZero() {
			t.Errorf("Percentage = %s, want 0", totals.Percentage)
		}
		if !totals.IsOverBudget {
			t.Error("any spending against a zero budget is over budget")
		}
	})

	t.Run("empty transaction set yields zeroed totals", func(t *testing.T) {
		totals := CalculateTotals(julySpan(), false, decimal.NewFromInt(500), nil)

		if !totals.CurrentSpent.IsZero() || !totals.TotalSaved.IsZero() {
			t.Errorf("expected zeroed aggregates, got spent=%s saved=%s",
				totals.CurrentSpent, totals.TotalSaved)
		}
		if !totals.Remaining.Equal(decimal.NewFromInt(500)) {
			t.Errorf("Remaining = %s, want 500", totals.Remaining)
		}
		if len(totals.CategorySpending) != 0 {
			t.Errorf("expected empty category buckets, got %v", totals.CategorySpending)
		}
	})

	t.Run("transfers are excluded", func(t *testing.T) {
		transfer := core.Transaction{
			ID:          "tx-transfer",
			PersonID:    "p1",
			AccountID:   "acc-1",
			ToAccountID: "acc-2",
			Amount:      decimal.NewFromInt(400),
			Date:        core.NewDate(2025, 7, 8),
			Type:        core.Expense,
			Category:    core.CategoryTransfer,
		}
		txs := []core.Transaction{transfer, expenseOn(9, "30", "fees")}

		totals := CalculateTotals(julySpan(), false, decimal.NewFromInt(500), txs)

		if !totals.CurrentSpent.Equal(decimal.NewFromInt(30)) {
			t.Errorf("CurrentSpent = %s, want 30", totals.CurrentSpent)
		}
		if _, ok := totals.CategorySpending[core.CategoryTransfer]; ok {
			t.Error("transfer category must not appear in spending buckets")
		}
	})

	t.Run("window membership is by calendar day", func(t *testing.T) {
		txs := []core.Transaction{
			expenseOn(1, "10", "groceries"),  // first day, inside
			expenseOn(31, "20", "transport"), // last day, inside
			{
				ID:       "tx-outside",
				PersonID: "p1",
				Amount:   decimal.NewFromInt(99),
				Date:     core.NewDate(2025, 8, 1), // exclusive end, outside
				Type:     core.Expense,
				Category: "other",
			},
		}

		totals := CalculateTotals(julySpan(), false, decimal.NewFromInt(500), txs)

		if !totals.CurrentSpent.Equal(decimal.NewFromInt(30)) {
			t.Errorf("CurrentSpent = %s, want 30", totals.CurrentSpent)
		}
	})
}
