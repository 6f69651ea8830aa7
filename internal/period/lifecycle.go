package period

import (
	"github.com/google/uuid"

	"bilancio/internal/core"
)

// The lifecycle functions are stateless: each call takes the person's period
// history as read from the store and returns the records to persist. The
// store-level commit carries the optimistic guard against concurrent writers;
// here we only derive and validate the transition.

// CurrentPeriod returns the single open period in history, if any.
// History is ordered by start date; the open period, when present, is last.
func CurrentPeriod(history []core.BudgetPeriod) *core.BudgetPeriod {
	for i := range history {
		if history[i].Open() {
			return &history[i]
		}
	}
	return nil
}

// lastCompleted returns the most recent closed period.
func lastCompleted(history []core.BudgetPeriod) *core.BudgetPeriod {
	var last *core.BudgetPeriod
	for i := range history {
		if !history[i].IsCompleted {
			continue
		}
		if last == nil || history[i].StartDate.After(last.StartDate) {
			last = &history[i]
		}
	}
	return last
}

// StartPeriod opens a new period containing ref. Legal only when no period is
// currently open. An unconsumed exception, when supplied, already shifts the
// derived boundary.
func StartPeriod(person core.Person, history []core.BudgetPeriod, exc *core.BudgetException, ref core.Date) (core.BudgetPeriod, error) {
	if cur := CurrentPeriod(history); cur != nil {
		return core.BudgetPeriod{}, &core.InvalidStateError{
			Op:     "start period",
			Reason: "period " + cur.ID + " is already open for person " + person.ID,
		}
	}

	span, err := ComputePeriod(ref, person.BudgetStartDay, exc)
	if err != nil {
		return core.BudgetPeriod{}, err
	}

	if prev := lastCompleted(history); prev != nil && !span.Start.After(prev.EndDate) {
		return core.BudgetPeriod{}, &core.ConflictError{
			Invariant: "period non-overlap",
			Reason:    "derived start " + span.Start.ISO() + " does not follow closed period " + prev.ID + " ending " + prev.EndDate.ISO(),
		}
	}

	return core.BudgetPeriod{
		ID:        uuid.NewString(),
		PersonID:  person.ID,
		StartDate: span.Start,
	}, nil
}

// EndPeriod closes the open period at endDate (inclusive). The next period is
// not started automatically; starting and ending are separate explicit calls.
func EndPeriod(history []core.BudgetPeriod, endDate core.Date) (core.BudgetPeriod, error) {
	cur := CurrentPeriod(history)
	if cur == nil {
		return core.BudgetPeriod{}, &core.InvalidStateError{Op: "end period", Reason: "no open period"}
	}
	if err := endDate.Validate(); err != nil {
		return core.BudgetPeriod{}, err
	}
	if endDate.Before(cur.StartDate) {
		return core.BudgetPeriod{}, &core.ValidationError{
			Field:  "end_date",
			Reason: "end date " + endDate.ISO() + " before period start " + cur.StartDate.ISO(),
		}
	}

	closed := *cur
	closed.EndDate = endDate
	closed.IsCompleted = true
	return closed, nil
}

// ExceptionUpdate carries the records an applied or removed exception leaves
// behind: the reshaped current period and, when the boundary moved across it,
// the retroactively adjusted previous period.
type ExceptionUpdate struct {
	Exception core.BudgetException
	Current   core.BudgetPeriod
	Previous  *core.BudgetPeriod
}

// AddException shifts the open period's start to excDate and adjusts the
// previous closed period's end to the day before, keeping the history
// contiguous. Legal only while a period is open and no other unconsumed
// exception exists.
func AddException(person core.Person, history []core.BudgetPeriod, active *core.BudgetException, excDate core.Date, reason string) (ExceptionUpdate, error) {
	cur := CurrentPeriod(history)
	if cur == nil {
		return ExceptionUpdate{}, &core.InvalidStateError{Op: "add exception", Reason: "no open period"}
	}
	if active != nil && !active.Consumed {
		return ExceptionUpdate{}, &core.ConflictError{
			Invariant: "single active exception",
			Reason:    "exception " + active.ID + " already governs the current window",
		}
	}
	if err := excDate.Validate(); err != nil {
		return ExceptionUpdate{}, err
	}

	// The preview and the committed boundary must agree; both derive from the
	// same pure computation.
	preview, err := PreviewException(excDate, person.BudgetStartDay)
	if err != nil {
		return ExceptionUpdate{}, err
	}
	natural, err := ComputePeriod(cur.StartDate, person.BudgetStartDay, nil)
	if err != nil {
		return ExceptionUpdate{}, err
	}
	if !excDate.Before(natural.End) {
		return ExceptionUpdate{}, &core.ConflictError{
			Invariant: "period non-overlap",
			Reason:    "exception date " + excDate.ISO() + " falls outside the current window ending " + natural.End.ISO(),
		}
	}

	prev := lastCompleted(history)
	if prev != nil {
		if !excDate.After(prev.StartDate) {
			return ExceptionUpdate{}, &core.ConflictError{
				Invariant: "period non-overlap",
				Reason:    "exception date " + excDate.ISO() + " would start the current period on or before previous period start " + prev.StartDate.ISO(),
			}
		}
	}

	update := ExceptionUpdate{
		Exception: core.BudgetException{
			ID:            uuid.NewString(),
			PersonID:      person.ID,
			ExceptionDate: excDate,
			Reason:        reason,
		},
		Current: *cur,
	}
	update.Current.StartDate = preview.Start
	if prev != nil {
		adjusted := *prev
		adjusted.EndDate = excDate.AddDays(-1)
		update.Previous = &adjusted
	}
	return update, nil
}

// RemoveException reverts the open period to its anchor-derived boundary and
// restores the previous period's end accordingly. Consumed exceptions are
// immutable history and cannot be removed.
func RemoveException(person core.Person, history []core.BudgetPeriod, exc core.BudgetException) (ExceptionUpdate, error) {
	if exc.Consumed {
		return ExceptionUpdate{}, &core.InvalidStateError{
			Op:     "remove exception",
			Reason: "exception " + exc.ID + " was consumed by a completed period",
		}
	}
	cur := CurrentPeriod(history)
	if cur == nil {
		return ExceptionUpdate{}, &core.InvalidStateError{Op: "remove exception", Reason: "no open period"}
	}

	natural, err := ComputePeriod(exc.ExceptionDate, person.BudgetStartDay, nil)
	if err != nil {
		return ExceptionUpdate{}, err
	}

	prev := lastCompleted(history)
	if prev != nil && !natural.Start.After(prev.StartDate) {
		return ExceptionUpdate{}, &core.ConflictError{
			Invariant: "period non-overlap",
			Reason:    "reverted start " + natural.Start.ISO() + " would not follow previous period start " + prev.StartDate.ISO(),
		}
	}

	update := ExceptionUpdate{Exception: exc, Current: *cur}
	update.Current.StartDate = natural.Start
	if prev != nil {
		adjusted := *prev
		adjusted.EndDate = natural.Start.AddDays(-1)
		update.Previous = &adjusted
	}
	return update, nil
}
