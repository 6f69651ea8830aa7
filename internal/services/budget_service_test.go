package services

import (
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/period"
)

func TestNewBudgetService(t *testing.T) {
	// Constructed with nil collaborators; the AMQP client in particular is
	// optional at runtime.
	service := NewBudgetService(nil, nil)

	if service == nil {
		t.Fatal("NewBudgetService should return a non-nil service")
	}
	if service.amqpClient != nil {
		t.Error("AMQP client should stay nil when none is supplied")
	}
}

func TestBudgetService_Close(t *testing.T) {
	service := &BudgetService{}
	if err := service.Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}

func TestPeriodSpan(t *testing.T) {
	service := NewBudgetService(nil, nil)

	t.Run("closed period ends the day after its inclusive end", func(t *testing.T) {
		bp := core.BudgetPeriod{
			ID:          "bp1",
			StartDate:   core.NewDate(2025, 7, 15),
			EndDate:     core.NewDate(2025, 8, 14),
			IsCompleted: true,
		}
		span, err := service.periodSpan(bp, 15)
		if err != nil {
			t.Fatalf("periodSpan() error = %v", err)
		}
		want := period.Span{Start: core.NewDate(2025, 7, 15), End: core.NewDate(2025, 8, 15)}
		if !span.Start.Equal(want.Start) || !span.End.Equal(want.End) {
			t.Errorf("span = %s..%s, want %s..%s",
				span.Start.ISO(), span.End.ISO(), want.Start.ISO(), want.End.ISO())
		}
	})

	t.Run("open period ends at the next natural anchor", func(t *testing.T) {
		bp := core.BudgetPeriod{ID: "bp2", StartDate: core.NewDate(2025, 7, 15)}
		span, err := service.periodSpan(bp, 15)
		if err != nil {
			t.Fatalf("periodSpan() error = %v", err)
		}
		if !span.End.Equal(core.NewDate(2025, 8, 15)) {
			t.Errorf("End = %s, want 2025-08-15", span.End.ISO())
		}
	})

	t.Run("exception-shifted open period keeps its natural window end", func(t *testing.T) {
		bp := core.BudgetPeriod{ID: "bp3", StartDate: core.NewDate(2025, 7, 11)}
		span, err := service.periodSpan(bp, 1)
		if err != nil {
			t.Fatalf("periodSpan() error = %v", err)
		}
		if !span.Start.Equal(core.NewDate(2025, 7, 11)) {
			t.Errorf("Start = %s, want 2025-07-11", span.Start.ISO())
		}
		if !span.End.Equal(core.NewDate(2025, 8, 1)) {
			t.Errorf("End = %s, want 2025-08-01", span.End.ISO())
		}
	})
}
