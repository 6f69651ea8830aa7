package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/period"
	"bilancio/internal/storage"
)

// BudgetService orchestrates the period lifecycle across the record store and
// the event bus. It is stateless between calls: every operation re-reads the
// person's history and lets the store-level guards reject a concurrent
// writer's commit.
type BudgetService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewBudgetService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *BudgetService {
	return &BudgetService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// StartPeriod opens the period containing ref for the person, honoring an
// unconsumed exception.
func (s *BudgetService) StartPeriod(ctx context.Context, personID string, ref core.Date) (core.BudgetPeriod, error) {
	person, err := s.storage.GetPerson(ctx, personID)
	if err != nil {
		return core.BudgetPeriod{}, err
	}
	history, err := s.storage.ListPeriods(ctx, personID)
	if err != nil {
		return core.BudgetPeriod{}, err
	}
	exc, err := s.storage.GetActiveException(ctx, personID)
	if err != nil {
		return core.BudgetPeriod{}, err
	}

	bp, err := period.StartPeriod(person, history, exc, ref)
	if err != nil {
		return core.BudgetPeriod{}, err
	}
	if err := s.storage.InsertOpenPeriod(ctx, bp); err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("commit period start: %w", err)
	}

	event := amqp.NewBudgetEvent(amqp.EventPeriodStarted, personID)
	event.PeriodID = bp.ID
	event.StartDate = bp.StartDate.ISO()
	s.publish(ctx, event)

	return bp, nil
}

// EndPeriod closes the person's open period at endDate. The next period is
// started by a separate explicit call.
func (s *BudgetService) EndPeriod(ctx context.Context, personID string, endDate core.Date) (core.BudgetPeriod, error) {
	if _, err := s.storage.GetPerson(ctx, personID); err != nil {
		return core.BudgetPeriod{}, err
	}
	history, err := s.storage.ListPeriods(ctx, personID)
	if err != nil {
		return core.BudgetPeriod{}, err
	}

	closed, err := period.EndPeriod(history, endDate)
	if err != nil {
		return core.BudgetPeriod{}, err
	}
	if err := s.storage.ClosePeriod(ctx, closed); err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("commit period end: %w", err)
	}

	event := amqp.NewBudgetEvent(amqp.EventPeriodClosed, personID)
	event.PeriodID = closed.ID
	event.StartDate = closed.StartDate.ISO()
	event.EndDate = closed.EndDate.ISO()
	s.publish(ctx, event)

	return closed, nil
}

// ExceptionPreview is the what-if result shown before an exception commits.
type ExceptionPreview struct {
	PeriodStart core.Date
	PeriodEnd   core.Date // inclusive last day
	IsWeekend   bool      // advisory only
}

// PreviewException shows the period that an exception on date would produce,
// without mutating anything.
func (s *BudgetService) PreviewException(ctx context.Context, personID string, date core.Date) (ExceptionPreview, error) {
	person, err := s.storage.GetPerson(ctx, personID)
	if err != nil {
		return ExceptionPreview{}, err
	}
	span, err := period.PreviewException(date, person.BudgetStartDay)
	if err != nil {
		return ExceptionPreview{}, err
	}
	return ExceptionPreview{
		PeriodStart: span.Start,
		PeriodEnd:   span.LastDay(),
		IsWeekend:   period.IsWeekend(date),
	}, nil
}

// AddException shifts the open period's boundary to date and retroactively
// adjusts the previous closed period so the history stays contiguous.
func (s *BudgetService) AddException(ctx context.Context, personID string, date core.Date, reason string) (core.BudgetException, error) {
	person, err := s.storage.GetPerson(ctx, personID)
	if err != nil {
		return core.BudgetException{}, err
	}
	history, err := s.storage.ListPeriods(ctx, personID)
	if err != nil {
		return core.BudgetException{}, err
	}
	active, err := s.storage.GetActiveException(ctx, personID)
	if err != nil {
		return core.BudgetException{}, err
	}

	update, err := period.AddException(person, history, active, date, reason)
	if err != nil {
		return core.BudgetException{}, err
	}
	if err := s.storage.ApplyExceptionUpdate(ctx, update.Exception, update.Current, update.Previous); err != nil {
		return core.BudgetException{}, fmt.Errorf("commit exception: %w", err)
	}

	event := amqp.NewBudgetEvent(amqp.EventExceptionAdded, personID)
	event.PeriodID = update.Current.ID
	event.EntityID = update.Exception.ID
	event.StartDate = update.Current.StartDate.ISO()
	s.publish(ctx, event)

	return update.Exception, nil
}

// RemoveException reverts the open period to its anchor-derived boundary.
func (s *BudgetService) RemoveException(ctx context.Context, personID, exceptionID string) error {
	person, err := s.storage.GetPerson(ctx, personID)
	if err != nil {
		return err
	}
	exc, err := s.storage.GetException(ctx, exceptionID)
	if err != nil {
		return err
	}
	if exc.PersonID != personID {
		return &core.NotFoundError{Entity: "exception", ID: exceptionID}
	}
	history, err := s.storage.ListPeriods(ctx, personID)
	if err != nil {
		return err
	}

	update, err := period.RemoveException(person, history, exc)
	if err != nil {
		return err
	}
	if err := s.storage.RevertExceptionUpdate(ctx, exceptionID, update.Current, update.Previous); err != nil {
		return fmt.Errorf("commit exception removal: %w", err)
	}

	event := amqp.NewBudgetEvent(amqp.EventExceptionRemoved, personID)
	event.PeriodID = update.Current.ID
	event.EntityID = exceptionID
	event.StartDate = update.Current.StartDate.ISO()
	s.publish(ctx, event)

	return nil
}

// PeriodTotals recomputes the aggregates for one period from the person's
// full transaction set. Recomputed on every read; budgets and transactions
// move independently of periods, so nothing here is cached.
func (s *BudgetService) PeriodTotals(ctx context.Context, personID, periodID string) (period.Totals, error) {
	person, err := s.storage.GetPerson(ctx, personID)
	if err != nil {
		return period.Totals{}, err
	}
	history, err := s.storage.ListPeriods(ctx, personID)
	if err != nil {
		return period.Totals{}, err
	}

	var target *core.BudgetPeriod
	for i := range history {
		if history[i].ID == periodID {
			target = &history[i]
			break
		}
	}
	if target == nil {
		return period.Totals{}, &core.NotFoundError{Entity: "period", ID: periodID}
	}

	span, err := s.periodSpan(*target, person.BudgetStartDay)
	if err != nil {
		return period.Totals{}, err
	}

	budget, err := s.storage.GetBudget(ctx, personID)
	if err != nil {
		return period.Totals{}, err
	}
	txs, err := s.storage.ListTransactions(ctx, personID)
	if err != nil {
		return period.Totals{}, err
	}

	return period.CalculateTotals(span, target.IsCompleted, budget.Amount, txs), nil
}

// CurrentTotals is PeriodTotals for the open period.
func (s *BudgetService) CurrentTotals(ctx context.Context, personID string) (period.Totals, error) {
	history, err := s.storage.ListPeriods(ctx, personID)
	if err != nil {
		return period.Totals{}, err
	}
	cur := period.CurrentPeriod(history)
	if cur == nil {
		return period.Totals{}, &core.InvalidStateError{Op: "totals", Reason: "no open period for person " + personID}
	}
	return s.PeriodTotals(ctx, personID, cur.ID)
}

// periodSpan turns a stored record into the half-open window: closed periods
// end the day after their inclusive end date, open ones at the next natural
// anchor boundary.
func (s *BudgetService) periodSpan(bp core.BudgetPeriod, anchorDay int) (period.Span, error) {
	if bp.IsCompleted {
		return period.Span{Start: bp.StartDate, End: bp.EndDate.AddDays(1)}, nil
	}
	natural, err := period.ComputePeriod(bp.StartDate, anchorDay, nil)
	if err != nil {
		return period.Span{}, err
	}
	return period.Span{Start: bp.StartDate, End: natural.End}, nil
}

func (s *BudgetService) publish(ctx context.Context, event *amqp.BudgetEvent) {
	publishEvent(ctx, s.amqpClient, event)
}

// publishEvent is best effort: the store commit already succeeded, a lost
// notification must not fail the request.
func publishEvent(ctx context.Context, client *amqp.Client, event *amqp.BudgetEvent) {
	if client == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event", "kind", event.Kind)
		return
	}
	if err := client.PublishEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event",
			"kind", event.Kind, "person_id", event.PersonID, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *BudgetService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close budget service: %v", errs)
	}

	return nil
}
