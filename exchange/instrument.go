package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"tradeflow/metrics"
	"tradeflow/models"
)

// WithMetrics wraps a Gateway so every call is counted in the
// tradeflow_gateway_calls_total metric. The wrapped gateway is otherwise
// untouched.
func WithMetrics(inner Gateway) Gateway {
	return &instrumented{inner: inner}
}

type instrumented struct {
	inner Gateway
}

func (g *instrumented) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	err := g.inner.SetLeverage(ctx, symbol, leverage)
	metrics.RecordGatewayCall("set_leverage", err)
	return err
}

func (g *instrumented) SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error) {
	rules, err := g.inner.SymbolRules(ctx, symbol)
	metrics.RecordGatewayCall("symbol_rules", err)
	return rules, err
}

func (g *instrumented) ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	px, err := g.inner.ReferencePrice(ctx, symbol)
	metrics.RecordGatewayCall("reference_price", err)
	return px, err
}

func (g *instrumented) OpenOrders(ctx context.Context, symbol string) ([]models.ExchangeOrder, error) {
	orders, err := g.inner.OpenOrders(ctx, symbol)
	metrics.RecordGatewayCall("open_orders", err)
	return orders, err
}

func (g *instrumented) SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, quantity decimal.Decimal) (models.ExchangeOrder, error) {
	order, err := g.inner.SubmitMarketOrder(ctx, symbol, side, quantity)
	metrics.RecordGatewayCall("submit_market", err)
	return order, err
}

func (g *instrumented) SubmitTriggerOrder(ctx context.Context, symbol string, side models.Side, orderType models.OrderType, quantity, triggerPrice decimal.Decimal) (models.ExchangeOrder, error) {
	order, err := g.inner.SubmitTriggerOrder(ctx, symbol, side, orderType, quantity, triggerPrice)
	metrics.RecordGatewayCall("submit_trigger", err)
	return order, err
}

func (g *instrumented) OrderStatus(ctx context.Context, symbol string, orderID int64) (models.ExchangeOrder, error) {
	order, err := g.inner.OrderStatus(ctx, symbol, orderID)
	metrics.RecordGatewayCall("order_status", err)
	return order, err
}

func (g *instrumented) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	err := g.inner.CancelOrder(ctx, symbol, orderID)
	metrics.RecordGatewayCall("cancel_order", err)
	return err
}
