package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds published on the budget event bus.
const (
	EventPeriodStarted    = "period.started"
	EventPeriodClosed     = "period.closed"
	EventExceptionAdded   = "exception.added"
	EventExceptionRemoved = "exception.removed"
	EventLinked           = "transaction.linked"
	EventUnlinked         = "transaction.unlinked"
	EventRolloverDue      = "period.rollover_due"
)

// BudgetEvent is a lightweight notification: it carries IDs and boundary
// dates only, consumers fetch full records from the store when they need
// them.
type BudgetEvent struct {
	Kind      string    `json:"kind"`
	PersonID  string    `json:"person_id"`
	PeriodID  string    `json:"period_id,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetEvent(kind, personID string) *BudgetEvent {
	return &BudgetEvent{
		Kind:      kind,
		PersonID:  personID,
		Timestamp: time.Now(),
	}
}

func (e *BudgetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func BudgetEventFromJSON(data []byte) (*BudgetEvent, error) {
	var e BudgetEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
