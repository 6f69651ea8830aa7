// Package reconcile pairs transactions of opposite cash-flow direction that
// capture the same real-world movement of money twice, e.g. an expense fronted
// by one account and later reimbursed by another.
//
// A parent settles one or more children; each child points back to exactly one
// parent. The remaining amount is always recomputed from the linked set, never
// stored as a running total, so an edit to either side can never leave it
// stale.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Store is the slice of the record store the engine needs. The store commits
// link writes with a "child has no existing parent" guard so two concurrent
// links to the same child cannot both succeed.
type Store interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListLinkedTransactions(ctx context.Context, parentID string) ([]core.Transaction, error)
	LinkTransaction(ctx context.Context, childID, parentID string) error
	UnlinkTransaction(ctx context.Context, childID string) error
	SetTransactionReconciled(ctx context.Context, id string, reconciled bool) error
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// IsLinkable reports whether candidate can be linked against pivot: distinct
// transactions of opposite type, neither a transfer, and the candidate not
// already reconciled.
func IsLinkable(candidate, pivot core.Transaction) bool {
	if candidate.ID == pivot.ID {
		return false
	}
	if candidate.Type == pivot.Type {
		return false
	}
	if candidate.Category == core.CategoryTransfer || pivot.Category == core.CategoryTransfer {
		return false
	}
	return !candidate.IsReconciled
}

// Remaining derives the unsettled portion of parent after applying every
// linked child. A negative result means a confirmed over-settlement, which is
// a data-entry error and reported rather than silently absorbed.
func Remaining(parent core.Transaction, children []core.Transaction) (decimal.Decimal, error) {
	applied := decimal.Zero
	for _, c := range children {
		applied = applied.Add(c.Amount)
	}
	remaining := parent.Amount.Sub(applied)
	if remaining.IsNegative() {
		return decimal.Zero, &core.ValidationError{
			Field:  "amount",
			Reason: "linked amounts exceed transaction " + parent.ID + " by " + remaining.Abs().String(),
		}
	}
	return remaining, nil
}

// Link settles child against parent. The child gains the back-reference and is
// marked reconciled; the parent becomes reconciled once its remaining amount
// reaches zero. Returns the updated child.
func (e *Engine) Link(ctx context.Context, parentID, childID string) (core.Transaction, error) {
	parent, err := e.store.GetTransaction(ctx, parentID)
	if err != nil {
		return core.Transaction{}, err
	}
	child, err := e.store.GetTransaction(ctx, childID)
	if err != nil {
		return core.Transaction{}, err
	}

	if child.ParentTransactionID != "" {
		return core.Transaction{}, &core.ConflictError{
			Invariant: "single parent per child",
			Reason:    "transaction " + childID + " is already linked to " + child.ParentTransactionID,
		}
	}
	if !IsLinkable(child, parent) {
		return core.Transaction{}, &core.ValidationError{
			Field:  "pair",
			Reason: "transactions " + parentID + " and " + childID + " are not reconcilable",
		}
	}

	linked, err := e.store.ListLinkedTransactions(ctx, parentID)
	if err != nil {
		return core.Transaction{}, err
	}
	remaining, err := Remaining(parent, append(linked, child))
	if err != nil {
		return core.Transaction{}, err
	}

	if err := e.store.LinkTransaction(ctx, childID, parentID); err != nil {
		return core.Transaction{}, err
	}
	if remaining.IsZero() && !parent.IsReconciled {
		if err := e.store.SetTransactionReconciled(ctx, parentID, true); err != nil {
			return core.Transaction{}, err
		}
	}

	slog.InfoContext(ctx, "Transactions linked",
		"parent_id", parentID,
		"child_id", childID,
		"remaining", remaining.String())

	child.ParentTransactionID = parentID
	child.IsReconciled = true
	return child, nil
}

// Unlink clears the child's back-reference; its remaining amount reverts to
// the full original amount by construction. The parent drops out of the
// reconciled state if the removal reopens its balance.
func (e *Engine) Unlink(ctx context.Context, childID string) (core.Transaction, error) {
	child, err := e.store.GetTransaction(ctx, childID)
	if err != nil {
		return core.Transaction{}, err
	}
	if child.ParentTransactionID == "" {
		return core.Transaction{}, &core.InvalidStateError{
			Op:     "unlink",
			Reason: "transaction " + childID + " has no linked counterpart",
		}
	}
	parentID := child.ParentTransactionID

	if err := e.store.UnlinkTransaction(ctx, childID); err != nil {
		return core.Transaction{}, err
	}

	parent, err := e.store.GetTransaction(ctx, parentID)
	if err != nil {
		return core.Transaction{}, err
	}
	linked, err := e.store.ListLinkedTransactions(ctx, parentID)
	if err != nil {
		return core.Transaction{}, err
	}
	remaining, err := Remaining(parent, linked)
	if err != nil {
		return core.Transaction{}, err
	}
	if parent.IsReconciled && remaining.IsPositive() {
		if err := e.store.SetTransactionReconciled(ctx, parentID, false); err != nil {
			return core.Transaction{}, err
		}
	}

	slog.InfoContext(ctx, "Transactions unlinked",
		"parent_id", parentID,
		"child_id", childID,
		"remaining", remaining.String())

	child.ParentTransactionID = ""
	child.IsReconciled = false
	return child, nil
}

// RemainingAmount loads the linked set for a transaction and derives its
// current unsettled value.
func (e *Engine) RemainingAmount(ctx context.Context, id string) (decimal.Decimal, error) {
	tx, err := e.store.GetTransaction(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if tx.ParentTransactionID != "" {
		// A linked child is fully applied to its parent.
		return decimal.Zero, nil
	}
	linked, err := e.store.ListLinkedTransactions(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return Remaining(tx, linked)
}
