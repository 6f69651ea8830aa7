package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/period"
	"bilancio/internal/storage"
)

// ReminderWorker watches the period lifecycle from the outside: it consumes
// budget events for the audit log and periodically scans for open periods
// whose natural window has elapsed, publishing a rollover reminder for each.
// It never closes a period itself; ending a period stays an explicit user
// action.
type ReminderWorker struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	batchSize  int
}

func NewReminderWorker(storage *storage.SQLiteRepository, amqpClient *amqp.Client, batchSize int) *ReminderWorker {
	return &ReminderWorker{
		storage:    storage,
		amqpClient: amqpClient,
		batchSize:  batchSize,
	}
}

// HandleEvent processes a single budget event from AMQP.
func (w *ReminderWorker) HandleEvent(ctx context.Context, event *amqp.BudgetEvent) error {
	switch event.Kind {
	case amqp.EventPeriodStarted, amqp.EventPeriodClosed,
		amqp.EventExceptionAdded, amqp.EventExceptionRemoved,
		amqp.EventLinked, amqp.EventUnlinked:
		slog.InfoContext(ctx, "Budget event recorded",
			"kind", event.Kind,
			"person_id", event.PersonID,
			"period_id", event.PeriodID,
			"entity_id", event.EntityID,
			"timestamp", event.Timestamp)
		return nil
	case amqp.EventRolloverDue:
		// Our own reminders come back around on the shared queue.
		slog.DebugContext(ctx, "Skipping self-published reminder", "period_id", event.PeriodID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown budget event kind", "kind", event.Kind)
		return nil
	}
}

// ScanOverduePeriods finds open periods whose natural end has passed and
// publishes a rollover reminder for each. Runs on a ticker; a failed publish
// is retried on the next scan because nothing is marked as sent.
func (w *ReminderWorker) ScanOverduePeriods(ctx context.Context) error {
	today := core.DateOf(time.Now())

	// Any open period started before today is a candidate; exact filtering
	// against each person's anchor happens below.
	candidates, err := w.storage.ListOverduePeriods(ctx, today, w.batchSize)
	if err != nil {
		return fmt.Errorf("list overdue periods: %w", err)
	}

	var published int
	for _, bp := range candidates {
		person, err := w.storage.GetPerson(ctx, bp.PersonID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load person for overdue period",
				"period_id", bp.ID, "person_id", bp.PersonID, "error", err)
			continue
		}

		natural, err := period.ComputePeriod(bp.StartDate, person.BudgetStartDay, nil)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to derive natural window",
				"period_id", bp.ID, "person_id", bp.PersonID, "error", err)
			continue
		}
		if today.Before(natural.End) {
			continue
		}

		event := amqp.NewBudgetEvent(amqp.EventRolloverDue, bp.PersonID)
		event.PeriodID = bp.ID
		event.StartDate = bp.StartDate.ISO()
		event.EndDate = natural.LastDay().ISO()
		if err := w.amqpClient.PublishEvent(ctx, event); err != nil {
			slog.ErrorContext(ctx, "Failed to publish rollover reminder",
				"period_id", bp.ID, "person_id", bp.PersonID, "error", err)
			continue
		}
		published++
	}

	if published > 0 {
		slog.InfoContext(ctx, "Rollover reminders published", "count", published)
	}
	return nil
}
