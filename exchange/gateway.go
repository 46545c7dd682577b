package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tradeflow/models"
)

// Gateway is the surface the executor needs from an exchange. Implementations
// own authentication, transport and schema concerns; callers only see
// normalized models. Every call blocks and may fail with a *GatewayError.
type Gateway interface {
	// SetLeverage applies the target leverage to the symbol before any order
	// is placed.
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// SymbolRules fetches the tick/step constraints for the symbol.
	SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error)
	// ReferencePrice returns the current last-trade price used for sizing.
	ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// OpenOrders lists all currently open orders for the symbol.
	OpenOrders(ctx context.Context, symbol string) ([]models.ExchangeOrder, error)
	// SubmitMarketOrder places a market order and returns the exchange's view
	// of it.
	SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, quantity decimal.Decimal) (models.ExchangeOrder, error)
	// SubmitTriggerOrder places a take-profit or stop order that triggers at
	// the given price. The side is the order side, not the position side.
	SubmitTriggerOrder(ctx context.Context, symbol string, side models.Side, orderType models.OrderType, quantity, triggerPrice decimal.Decimal) (models.ExchangeOrder, error)
	// OrderStatus queries the current state of a previously submitted order.
	OrderStatus(ctx context.Context, symbol string, orderID int64) (models.ExchangeOrder, error)
	// CancelOrder cancels an open order.
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
}

// GatewayError wraps a transport or exchange-side fault. Code carries the
// exchange's own error code when one was returned.
type GatewayError struct {
	Op      string
	Symbol  string
	Code    int64
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s %s: exchange error %d: %s", e.Op, e.Symbol, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Symbol, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
