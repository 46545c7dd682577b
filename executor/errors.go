package executor

import (
	"errors"
	"fmt"

	"tradeflow/models"
)

// Kind classifies every way a position attempt can fail. Callers branch on
// the kind, never on message text.
type Kind string

const (
	KindInvalidInstrumentRules Kind = "InvalidInstrumentRules"
	KindLeverageError          Kind = "LeverageError"
	KindSizingError            Kind = "SizingError"
	KindConflictingOpenOrders  Kind = "ConflictingOpenOrders"
	KindEntryRejected          Kind = "EntryRejected"
	KindEntryNotFilled         Kind = "EntryNotFilled"
	KindEntryFillTimeout       Kind = "EntryFillTimeout"
	KindProtectiveOrderError   Kind = "ProtectiveOrderError"
	KindUnrecoverableExposure  Kind = "UnrecoverableExposure"
	KindMalformedSignal        Kind = "MalformedSignal"
	KindGatewayError           Kind = "GatewayError"
)

// Error is the tagged failure the executor surfaces. Stage records where in
// the state machine the attempt died; Detail carries leg-specific diagnosis
// for protective-order failures, including whether cleanup succeeded.
type Error struct {
	Kind   Kind
	Stage  models.AttemptState
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at %s", e.Kind, e.Stage)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from any error returned by Execute.
// Unclassified errors report as gateway faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGatewayError
}

// ClientFault reports whether the failure was caused by the caller's input
// rather than the exchange or this service.
func (k Kind) ClientFault() bool {
	switch k {
	case KindMalformedSignal, KindConflictingOpenOrders:
		return true
	}
	return false
}
