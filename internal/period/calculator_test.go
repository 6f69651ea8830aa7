package period

import (
	"testing"

	"bilancio/internal/core"
)

func TestComputePeriodNaturalWindow(t *testing.T) {
	tests := []struct {
		name      string
		ref       core.Date
		anchorDay int
		wantStart core.Date
		wantEnd   core.Date
	}{
		{
			name:      "reference after anchor in same month",
			ref:       core.NewDate(2025, 7, 20),
			anchorDay: 15,
			wantStart: core.NewDate(2025, 7, 15),
			wantEnd:   core.NewDate(2025, 8, 15),
		},
		{
			name:      "reference before anchor falls in previous window",
			ref:       core.NewDate(2025, 7, 10),
			anchorDay: 15,
			wantStart: core.NewDate(2025, 6, 15),
			wantEnd:   core.NewDate(2025, 7, 15),
		},
		{
			name:      "reference on anchor day starts the window",
			ref:       core.NewDate(2025, 7, 15),
			anchorDay: 15,
			wantStart: core.NewDate(2025, 7, 15),
			wantEnd:   core.NewDate(2025, 8, 15),
		},
		{
			name:      "first of month anchor",
			ref:       core.NewDate(2025, 7, 31),
			anchorDay: 1,
			wantStart: core.NewDate(2025, 7, 1),
			wantEnd:   core.NewDate(2025, 8, 1),
		},
		{
			name:      "year boundary",
			ref:       core.NewDate(2025, 1, 3),
			anchorDay: 15,
			wantStart: core.NewDate(2024, 12, 15),
			wantEnd:   core.NewDate(2025, 1, 15),
		},
		{
			name:      "anchor 28 across february",
			ref:       core.NewDate(2025, 3, 1),
			anchorDay: 28,
			wantStart: core.NewDate(2025, 2, 28),
			wantEnd:   core.NewDate(2025, 3, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, err := ComputePeriod(tt.ref, tt.anchorDay, nil)
			if err != nil {
				t.Fatalf("ComputePeriod() error = %v", err)
			}
			if !span.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %s, want %s", span.Start.ISO(), tt.wantStart.ISO())
			}
			if !span.End.Equal(tt.wantEnd) {
				t.Errorf("End = %s, want %s", span.End.ISO(), tt.wantEnd.ISO())
			}
			if !span.Contains(tt.ref) {
				t.Errorf("span %s..%s does not contain reference %s", span.Start.ISO(), span.End.ISO(), tt.ref.ISO())
			}
		})
	}
}

func TestComputePeriodInvalidAnchorDay(t *testing.T) {
	for _, anchorDay := range []int{0, -1, 29, 31} {
		if _, err := ComputePeriod(core.NewDate(2025, 7, 20), anchorDay, nil); err == nil {
			t.Errorf("ComputePeriod(anchorDay=%d) expected error, got nil", anchorDay)
		}
	}
}

func TestComputePeriodZeroReference(t *testing.T) {
	if _, err := ComputePeriod(core.Date{}, 15, nil); err == nil {
		t.Error("ComputePeriod(zero date) expected error, got nil")
	}
}

// Every calendar day belongs to exactly one window: the derived span always
// contains the reference, and walking day by day only ever moves the boundary
// forward at an anchor.
func TestComputePeriodPartitionsCalendar(t *testing.T) {
	const anchorDay = 15
	day := core.NewDate(2024, 11, 1)
	stop := core.NewDate(2025, 3, 10)

	prev, err := ComputePeriod(day, anchorDay, nil)
	if err != nil {
		t.Fatalf("ComputePeriod() error = %v", err)
	}
	for day = day.AddDays(1); day.Before(stop); day = day.AddDays(1) {
		span, err := ComputePeriod(day, anchorDay, nil)
		if err != nil {
			t.Fatalf("ComputePeriod(%s) error = %v", day.ISO(), err)
		}
		if !span.Contains(day) {
			t.Fatalf("span %s..%s does not contain %s", span.Start.ISO(), span.End.ISO(), day.ISO())
		}
		switch {
		case span.Start.Equal(prev.Start):
			if !span.End.Equal(prev.End) {
				t.Fatalf("window for %s changed end without changing start", day.ISO())
			}
		case span.Start.Equal(prev.End):
			// Rolled over exactly at the anchor.
		default:
			t.Fatalf("window for %s starts at %s, expected %s or %s",
				day.ISO(), span.Start.ISO(), prev.Start.ISO(), prev.End.ISO())
		}
		prev = span
	}
}

func TestComputePeriodWithException(t *testing.T) {
	exc := &core.BudgetException{
		ID:            "exc-1",
		PersonID:      "p1",
		ExceptionDate: core.NewDate(2025, 7, 11),
	}

	tests := []struct {
		name      string
		ref       core.Date
		anchorDay int
		exc       *core.BudgetException
		wantStart core.Date
		wantEnd   core.Date
	}{
		{
			name:      "reference on exception date starts there",
			ref:       core.NewDate(2025, 7, 11),
			anchorDay: 1,
			exc:       exc,
			wantStart: core.NewDate(2025, 7, 11),
			wantEnd:   core.NewDate(2025, 8, 1),
		},
		{
			name:      "reference after exception date",
			ref:       core.NewDate(2025, 7, 25),
			anchorDay: 1,
			exc:       exc,
			wantStart: core.NewDate(2025, 7, 11),
			wantEnd:   core.NewDate(2025, 8, 1),
		},
		{
			name:      "reference before exception date ends the old window early",
			ref:       core.NewDate(2025, 7, 5),
			anchorDay: 1,
			exc:       exc,
			wantStart: core.NewDate(2025, 7, 1),
			wantEnd:   core.NewDate(2025, 7, 11),
		},
		{
			name:      "exception outside the natural window is ignored",
			ref:       core.NewDate(2025, 9, 10),
			anchorDay: 1,
			exc:       exc,
			wantStart: core.NewDate(2025, 9, 1),
			wantEnd:   core.NewDate(2025, 10, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, err := ComputePeriod(tt.ref, tt.anchorDay, tt.exc)
			if err != nil {
				t.Fatalf("ComputePeriod() error = %v", err)
			}
			if !span.Start.Equal(tt.wantStart) || !span.End.Equal(tt.wantEnd) {
				t.Errorf("span = %s..%s, want %s..%s",
					span.Start.ISO(), span.End.ISO(), tt.wantStart.ISO(), tt.wantEnd.ISO())
			}
		})
	}
}

// The committed boundary must match what the preview showed.
func TestPreviewExceptionAgreesWithCompute(t *testing.T) {
	excDate := core.NewDate(2025, 7, 11)

	preview, err := PreviewException(excDate, 1)
	if err != nil {
		t.Fatalf("PreviewException() error = %v", err)
	}
	if !preview.Start.Equal(excDate) {
		t.Errorf("preview start = %s, want %s", preview.Start.ISO(), excDate.ISO())
	}
	if !preview.End.Equal(core.NewDate(2025, 8, 1)) {
		t.Errorf("preview end = %s, want 2025-08-01", preview.End.ISO())
	}

	exc := &core.BudgetException{ID: "exc-1", PersonID: "p1", ExceptionDate: excDate}
	committed, err := ComputePeriod(excDate, 1, exc)
	if err != nil {
		t.Fatalf("ComputePeriod() error = %v", err)
	}
	if !preview.Start.Equal(committed.Start) || !preview.End.Equal(committed.End) {
		t.Errorf("preview %s..%s disagrees with committed %s..%s",
			preview.Start.ISO(), preview.End.ISO(), committed.Start.ISO(), committed.End.ISO())
	}
}

func TestSpanLastDay(t *testing.T) {
	span := Span{Start: core.NewDate(2025, 7, 15), End: core.NewDate(2025, 8, 15)}
	if got := span.LastDay(); !got.Equal(core.NewDate(2025, 8, 14)) {
		t.Errorf("LastDay() = %s, want 2025-08-14", got.ISO())
	}
}

func TestIsWeekend(t *testing.T) {
	if !IsWeekend(core.NewDate(2025, 7, 12)) { // Saturday
		t.Error("expected 2025-07-12 to be a weekend")
	}
	if !IsWeekend(core.NewDate(2025, 7, 13)) { // Sunday
		t.Error("expected 2025-07-13 to be a weekend")
	}
	if IsWeekend(core.NewDate(2025, 7, 11)) { // Friday
		t.Error("expected 2025-07-11 to be a weekday")
	}
}
