// Package period computes budget periods from a configurable anchor day and
// manages their lifecycle for a person.
//
// A period is a half-open date interval [Start, End): Start is the most
// recent anchor-day occurrence on or before the reference date, End the next
// one. A budget exception splits the natural window at its date, so periods
// stay contiguous and non-overlapping even when a boundary is shifted.
package period

import (
	"time"

	"bilancio/internal/core"
)

// Span is a half-open date interval: Start inclusive, End exclusive.
// Stored period records keep the inclusive last day instead (End - 1 day).
type Span struct {
	Start core.Date
	End   core.Date
}

// Contains reports whether d falls inside the span.
func (s Span) Contains(d core.Date) bool {
	return !d.Before(s.Start) && d.Before(s.End)
}

// LastDay is the inclusive final day of the span, as persisted on a closed
// period record.
func (s Span) LastDay() core.Date {
	return s.End.AddDays(-1)
}

// ComputePeriod derives the period containing ref for the given anchor day.
//
// When exc is non-nil and its date falls inside the natural window, the
// window splits at the exception date: references on or after it belong to a
// period starting there, references before it belong to the remainder of the
// previous window, which now ends at the exception date.
func ComputePeriod(ref core.Date, anchorDay int, exc *core.BudgetException) (Span, error) {
	if err := validateAnchorDay(anchorDay); err != nil {
		return Span{}, err
	}
	if err := ref.Validate(); err != nil {
		return Span{}, err
	}

	start := anchorOnOrBefore(ref, anchorDay)
	end := nextAnchor(start, anchorDay)

	if exc != nil && !exc.ExceptionDate.IsZero() {
		cut := core.DateOf(exc.ExceptionDate.Time)
		if (Span{Start: start, End: end}).Contains(cut) {
			if ref.Before(cut) {
				end = cut
			} else {
				start = cut
			}
		}
	}

	return Span{Start: start, End: end}, nil
}

// PreviewException computes the period that would result from applying an
// exception on date, without touching any state. Used to show "what would
// happen" before commit.
func PreviewException(date core.Date, anchorDay int) (Span, error) {
	if err := validateAnchorDay(anchorDay); err != nil {
		return Span{}, err
	}
	if err := date.Validate(); err != nil {
		return Span{}, err
	}
	natural := anchorOnOrBefore(date, anchorDay)
	return Span{Start: date, End: nextAnchor(natural, anchorDay)}, nil
}

// IsWeekend reports whether the date falls on a Saturday or Sunday. Advisory
// only; never a hard constraint on any boundary.
func IsWeekend(date core.Date) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func validateAnchorDay(anchorDay int) error {
	if anchorDay < core.MinAnchorDay || anchorDay > core.MaxAnchorDay {
		return &core.ValidationError{Field: "anchor_day", Reason: "anchor day must be between 1 and 28"}
	}
	return nil
}

// anchorOnOrBefore finds the most recent date on or before ref whose
// day-of-month equals anchorDay. Anchor days are capped at 28, so the result
// always exists in every month.
func anchorOnOrBefore(ref core.Date, anchorDay int) core.Date {
	candidate := core.NewDate(ref.Year(), int(ref.Month()), anchorDay)
	if candidate.After(ref) {
		candidate = candidate.AddMonths(-1)
	}
	return candidate
}

// nextAnchor is the first anchor-day occurrence strictly after start.
func nextAnchor(start core.Date, anchorDay int) core.Date {
	candidate := core.NewDate(start.Year(), int(start.Month()), anchorDay)
	if candidate.After(start) {
		return candidate
	}
	return candidate.AddMonths(1)
}
