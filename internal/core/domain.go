package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// CategoryTransfer marks a movement between the person's own accounts.
// Transfers are never eligible for reconciliation and are excluded from
// spending aggregates.
const CategoryTransfer = "transfer"

// Anchor days above 28 would be ambiguous in short months, so they are
// rejected at every entry point.
const (
	MinAnchorDay = 1
	MaxAnchorDay = 28
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Person owns a budget configuration and the lifecycle history of its
	// budget periods. BudgetStartDay is the anchor day-of-month.
	Person struct {
		ID             string
		Name           string
		BudgetStartDay int
	}

	// Budget is the monthly spending target for a person.
	Budget struct {
		PersonID string
		Amount   decimal.Decimal
	}

	// BudgetPeriod is one entry in a person's lifecycle history.
	// EndDate is zero while the period is open; once closed it holds the
	// inclusive last day of the period.
	BudgetPeriod struct {
		ID          string
		PersonID    string
		StartDate   Date
		EndDate     Date
		IsCompleted bool
	}

	// BudgetException is a one-off override shifting the boundary of the
	// period containing ExceptionDate. Once the affected period closes the
	// exception is consumed and becomes immutable history.
	BudgetException struct {
		ID            string
		PersonID      string
		ExceptionDate Date
		Reason        string
		Consumed      bool
	}

	Account struct {
		ID       string
		PersonID string
		Name     string
	}

	// Transaction is a single captured cash movement. ParentTransactionID is
	// a back-reference to the transaction that settles this one; it is set
	// only through the reconciliation engine.
	Transaction struct {
		ID                  string
		PersonID            string
		AccountID           string
		ToAccountID         string
		Description         string
		Amount              decimal.Decimal
		Date                Date
		Type                TransactionType
		Category            string
		IsReconciled        bool
		ParentTransactionID string
	}
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar day. Transaction dates may
// carry time; window membership compares calendar days only.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

// ParseDate parses an ISO-8601 calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "must be an ISO date (YYYY-MM-DD)"}
	}
	return Date{Time: t}, nil
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// AddMonths returns the date shifted by n months, normalized by time.AddDate.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.AddDate(0, n, 0)}
}

// ISO renders the date as an ISO-8601 calendar date.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date cannot be zero"}
	}
	return nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "empty name"}
	}
	if p.BudgetStartDay < MinAnchorDay || p.BudgetStartDay > MaxAnchorDay {
		return &ValidationError{Field: "budget_start_day", Reason: "anchor day must be between 1 and 28"}
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "budget amount cannot be negative"}
	}
	return nil
}

// Open reports whether the period is still the person's current period.
func (bp BudgetPeriod) Open() bool {
	return !bp.IsCompleted
}

func (bp BudgetPeriod) Validate() error {
	if err := bp.StartDate.Validate(); err != nil {
		return err
	}
	if bp.IsCompleted {
		if bp.EndDate.IsZero() {
			return &ValidationError{Field: "end_date", Reason: "completed period must have an end date"}
		}
		if bp.EndDate.Before(bp.StartDate) {
			return &ValidationError{Field: "end_date", Reason: "end date before start date"}
		}
	} else if !bp.EndDate.IsZero() {
		// A period with an end date is always completed.
		return &ValidationError{Field: "end_date", Reason: "open period cannot have an end date"}
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return &ValidationError{Field: "description", Reason: "empty description"}
	}
	if len(t.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "description too long (max 200 characters)"}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "amount must be positive"}
	}
	switch t.Type {
	case Income, Expense:
	default:
		return &ValidationError{Field: "type", Reason: "type must be income or expense"}
	}
	if !KnownCategory(t.Category) {
		return &ValidationError{Field: "category", Reason: "unknown category " + t.Category}
	}
	if t.AccountID == "" {
		return &ValidationError{Field: "account_id", Reason: "missing account"}
	}
	return nil
}
