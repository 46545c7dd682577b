package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttemptState tracks where a position attempt is in the order-placement
// sequence. Terminal states are StateProtectiveOrdersPlaced and StateFailed.
type AttemptState string

const (
	StateIntake                 AttemptState = "INTAKE"
	StateLeverageSet            AttemptState = "LEVERAGE_SET"
	StateSized                  AttemptState = "SIZED"
	StateEntrySubmitted         AttemptState = "ENTRY_SUBMITTED"
	StateEntryFilled            AttemptState = "ENTRY_FILLED"
	StateCompensating           AttemptState = "COMPENSATING"
	StateProtectiveOrdersPlaced AttemptState = "PROTECTIVE_ORDERS_PLACED"
	StateFailed                 AttemptState = "FAILED"
)

// PositionAttempt is the unit of work for one webhook call. It is owned
// exclusively by the handling goroutine and discarded once the response is
// sent; nothing about it survives the request.
type PositionAttempt struct {
	ID     string       `json:"id"`
	Intent *OrderIntent `json:"-"`
	State  AttemptState `json:"state"`

	Quantity       decimal.Decimal `json:"quantity"`
	EntryOrderID   int64           `json:"entry_order_id,omitempty"`
	AvgFillPrice   decimal.Decimal `json:"avg_fill_price"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`

	TakeProfitOrderID int64 `json:"take_profit_order_id,omitempty"`
	StopLossOrderID   int64 `json:"stop_loss_order_id,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewPositionAttempt starts tracking one webhook invocation.
func NewPositionAttempt(intent *OrderIntent) *PositionAttempt {
	return &PositionAttempt{
		ID:        uuid.NewString(),
		Intent:    intent,
		State:     StateIntake,
		StartedAt: time.Now().UTC(),
	}
}

// Transition moves the attempt to the next state. The executor logs every
// call; keeping the mutation here keeps the audit trail in one place.
func (a *PositionAttempt) Transition(next AttemptState) {
	a.State = next
	if next == StateProtectiveOrdersPlaced || next == StateFailed {
		a.FinishedAt = time.Now().UTC()
	}
}
