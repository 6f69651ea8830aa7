package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/reconcile"
	"bilancio/internal/storage"
)

// ReconcileService exposes transaction linking on top of the reconcile engine
// and publishes a notification after every successful change.
type ReconcileService struct {
	storage    *storage.SQLiteRepository
	engine     *reconcile.Engine
	amqpClient *amqp.Client
}

func NewReconcileService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *ReconcileService {
	return &ReconcileService{
		storage:    storage,
		engine:     reconcile.NewEngine(storage),
		amqpClient: amqpClient,
	}
}

// Link settles child against parent and returns the updated child.
func (s *ReconcileService) Link(ctx context.Context, parentID, childID string) (core.Transaction, error) {
	child, err := s.engine.Link(ctx, parentID, childID)
	if err != nil {
		return core.Transaction{}, err
	}

	event := amqp.NewBudgetEvent(amqp.EventLinked, child.PersonID)
	event.EntityID = child.ID
	publishEvent(ctx, s.amqpClient, event)

	return child, nil
}

// Unlink detaches child from its parent and returns the updated child.
func (s *ReconcileService) Unlink(ctx context.Context, childID string) (core.Transaction, error) {
	child, err := s.engine.Unlink(ctx, childID)
	if err != nil {
		return core.Transaction{}, err
	}

	event := amqp.NewBudgetEvent(amqp.EventUnlinked, child.PersonID)
	event.EntityID = child.ID
	publishEvent(ctx, s.amqpClient, event)

	return child, nil
}

// Remaining derives the unsettled amount of a transaction.
func (s *ReconcileService) Remaining(ctx context.Context, id string) (decimal.Decimal, error) {
	return s.engine.RemainingAmount(ctx, id)
}

// LinkableCandidates returns the person's transactions that could settle the
// given one, for the caller to choose from.
func (s *ReconcileService) LinkableCandidates(ctx context.Context, id string) ([]core.Transaction, error) {
	pivot, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	all, err := s.storage.ListTransactions(ctx, pivot.PersonID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	candidates := make([]core.Transaction, 0)
	for _, tx := range all {
		if reconcile.IsLinkable(tx, pivot) {
			candidates = append(candidates, tx)
		}
	}
	return candidates, nil
}
