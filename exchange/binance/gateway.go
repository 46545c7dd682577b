package binance

import (
	"context"

	futures "github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

// pace blocks until the shared limiter grants a slot for one REST call.
func (f *Futures) pace(ctx context.Context, op, symbol string) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return &exchange.GatewayError{Op: op, Symbol: symbol, Err: err}
	}
	return nil
}

// SetLeverage applies the target leverage for the symbol.
func (f *Futures) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if err := f.pace(ctx, "set_leverage", symbol); err != nil {
		return err
	}
	if _, err := f.client.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx); err != nil {
		return wrapErr("set_leverage", symbol, err)
	}
	f.log.WithComponent("binance_gateway").WithFields(logger.Fields{
		"symbol":   symbol,
		"leverage": leverage,
	}).Info("leverage set")
	return nil
}

// SymbolRules fetches the exchange metadata for the symbol and extracts the
// LOT_SIZE and PRICE_FILTER constraints.
func (f *Futures) SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error) {
	if err := f.pace(ctx, "symbol_rules", symbol); err != nil {
		return models.SymbolRules{}, err
	}
	info, err := f.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return models.SymbolRules{}, wrapErr("symbol_rules", symbol, err)
	}

	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}
		return rulesFromSymbol(s)
	}
	return models.SymbolRules{}, &exchange.GatewayError{
		Op: "symbol_rules", Symbol: symbol, Message: "symbol not found in exchange info",
	}
}

// ReferencePrice returns the last traded price for the symbol.
func (f *Futures) ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := f.pace(ctx, "reference_price", symbol); err != nil {
		return decimal.Zero, err
	}
	prices, err := f.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, wrapErr("reference_price", symbol, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, &exchange.GatewayError{
			Op: "reference_price", Symbol: symbol, Message: "empty price response",
		}
	}
	px, err := decimal.NewFromString(prices[0].Price)
	if err != nil || px.Sign() <= 0 {
		return decimal.Zero, &exchange.GatewayError{
			Op: "reference_price", Symbol: symbol,
			Message: "unparseable price " + prices[0].Price, Err: err,
		}
	}
	return px, nil
}

// OpenOrders lists all open orders for the symbol.
func (f *Futures) OpenOrders(ctx context.Context, symbol string) ([]models.ExchangeOrder, error) {
	if err := f.pace(ctx, "open_orders", symbol); err != nil {
		return nil, err
	}
	raw, err := f.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, wrapErr("open_orders", symbol, err)
	}
	orders := make([]models.ExchangeOrder, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, orderFromFutures(o))
	}
	return orders, nil
}

// SubmitMarketOrder places a market order for the given quantity.
func (f *Futures) SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, quantity decimal.Decimal) (models.ExchangeOrder, error) {
	if err := f.pace(ctx, "submit_market", symbol); err != nil {
		return models.ExchangeOrder{}, err
	}
	res, err := f.client.NewCreateOrderService().
		Symbol(symbol).
		Side(toFuturesSide(side)).
		Type(futures.OrderTypeMarket).
		Quantity(quantity.String()).
		Do(ctx)
	if err != nil {
		return models.ExchangeOrder{}, wrapErr("submit_market", symbol, err)
	}
	order := orderFromResponse(res)
	f.log.WithComponent("binance_gateway").WithFields(logger.Fields{
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity.String(),
		"order_id": order.ID,
	}).Info("market order submitted")
	return order, nil
}

// SubmitTriggerOrder places a take-profit or stop order. The trigger price is
// used as both the stop and the limit price, as the upstream alert contract
// defines a single level per leg.
func (f *Futures) SubmitTriggerOrder(ctx context.Context, symbol string, side models.Side, orderType models.OrderType, quantity, triggerPrice decimal.Decimal) (models.ExchangeOrder, error) {
	if err := f.pace(ctx, "submit_trigger", symbol); err != nil {
		return models.ExchangeOrder{}, err
	}
	binType, err := toFuturesOrderType(orderType)
	if err != nil {
		return models.ExchangeOrder{}, &exchange.GatewayError{
			Op: "submit_trigger", Symbol: symbol, Message: err.Error(), Err: err,
		}
	}
	res, err := f.client.NewCreateOrderService().
		Symbol(symbol).
		Side(toFuturesSide(side)).
		Type(binType).
		TimeInForce(futures.TimeInForceTypeGTC).
		Quantity(quantity.String()).
		Price(triggerPrice.String()).
		StopPrice(triggerPrice.String()).
		Do(ctx)
	if err != nil {
		return models.ExchangeOrder{}, wrapErr("submit_trigger", symbol, err)
	}
	order := orderFromResponse(res)
	f.log.WithComponent("binance_gateway").WithFields(logger.Fields{
		"symbol":   symbol,
		"side":     side,
		"type":     orderType,
		"quantity": quantity.String(),
		"trigger":  triggerPrice.String(),
		"order_id": order.ID,
	}).Info("trigger order submitted")
	return order, nil
}

// OrderStatus queries the exchange's current view of an order.
func (f *Futures) OrderStatus(ctx context.Context, symbol string, orderID int64) (models.ExchangeOrder, error) {
	if err := f.pace(ctx, "order_status", symbol); err != nil {
		return models.ExchangeOrder{}, err
	}
	o, err := f.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return models.ExchangeOrder{}, wrapErr("order_status", symbol, err)
	}
	return orderFromFutures(o), nil
}

// CancelOrder cancels an open order.
func (f *Futures) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	if err := f.pace(ctx, "cancel_order", symbol); err != nil {
		return err
	}
	if _, err := f.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx); err != nil {
		return wrapErr("cancel_order", symbol, err)
	}
	f.log.WithComponent("binance_gateway").WithFields(logger.Fields{
		"symbol":   symbol,
		"order_id": orderID,
	}).Info("order canceled")
	return nil
}
