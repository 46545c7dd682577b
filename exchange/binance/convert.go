package binance

import (
	"errors"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/common"
	futures "github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"tradeflow/exchange"
	"tradeflow/models"
)

// wrapErr converts a client library failure into a *exchange.GatewayError,
// surfacing the exchange's own error code when one was returned.
func wrapErr(op, symbol string, err error) *exchange.GatewayError {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &exchange.GatewayError{
			Op:      op,
			Symbol:  symbol,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Err:     err,
		}
	}
	return &exchange.GatewayError{Op: op, Symbol: symbol, Err: err}
}

func toFuturesSide(side models.Side) futures.SideType {
	if side == models.SideLong {
		return futures.SideTypeBuy
	}
	return futures.SideTypeSell
}

func fromFuturesSide(side futures.SideType) models.Side {
	if side == futures.SideTypeBuy {
		return models.SideLong
	}
	return models.SideShort
}

func toFuturesOrderType(t models.OrderType) (futures.OrderType, error) {
	switch t {
	case models.OrderTypeTakeProfit:
		return futures.OrderTypeTakeProfit, nil
	case models.OrderTypeStop:
		return futures.OrderTypeStop, nil
	case models.OrderTypeMarket:
		return futures.OrderTypeMarket, nil
	}
	return "", fmt.Errorf("unsupported order type %q", t)
}

func fromFuturesOrderType(t futures.OrderType) models.OrderType {
	switch t {
	case futures.OrderTypeTakeProfit, futures.OrderTypeTakeProfitMarket:
		return models.OrderTypeTakeProfit
	case futures.OrderTypeStop, futures.OrderTypeStopMarket:
		return models.OrderTypeStop
	default:
		return models.OrderTypeMarket
	}
}

func fromFuturesStatus(s futures.OrderStatusType) models.OrderStatus {
	switch s {
	case futures.OrderStatusTypeNew:
		return models.OrderStatusNew
	case futures.OrderStatusTypePartiallyFilled:
		return models.OrderStatusPartiallyFilled
	case futures.OrderStatusTypeFilled:
		return models.OrderStatusFilled
	case futures.OrderStatusTypeCanceled:
		return models.OrderStatusCanceled
	case futures.OrderStatusTypeExpired:
		return models.OrderStatusExpired
	case futures.OrderStatusTypeRejected:
		return models.OrderStatusRejected
	default:
		return models.OrderStatusNew
	}
}

// lenientDecimal parses exchange-reported numbers, treating empty and
// malformed strings as zero. The exchange omits fields like avgPrice on
// unfilled orders.
func lenientDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func orderFromFutures(o *futures.Order) models.ExchangeOrder {
	return models.ExchangeOrder{
		ID:             o.OrderID,
		Symbol:         o.Symbol,
		Side:           fromFuturesSide(o.Side),
		Type:           fromFuturesOrderType(o.Type),
		Quantity:       lenientDecimal(o.OrigQuantity),
		Price:          lenientDecimal(o.Price),
		Status:         fromFuturesStatus(o.Status),
		AvgFillPrice:   lenientDecimal(o.AvgPrice),
		FilledQuantity: lenientDecimal(o.ExecutedQuantity),
		UpdateTime:     time.UnixMilli(o.UpdateTime),
	}
}

func orderFromResponse(r *futures.CreateOrderResponse) models.ExchangeOrder {
	return models.ExchangeOrder{
		ID:             r.OrderID,
		Symbol:         r.Symbol,
		Side:           fromFuturesSide(r.Side),
		Type:           fromFuturesOrderType(r.Type),
		Quantity:       lenientDecimal(r.OrigQuantity),
		Price:          lenientDecimal(r.Price),
		Status:         fromFuturesStatus(r.Status),
		AvgFillPrice:   lenientDecimal(r.AvgPrice),
		FilledQuantity: lenientDecimal(r.ExecutedQuantity),
		UpdateTime:     time.UnixMilli(r.UpdateTime),
	}
}

// rulesFromSymbol extracts tick and step sizes from the symbol's exchange
// filters, rejecting non-positive values so a bad filter never reaches the
// sizer.
func rulesFromSymbol(s *futures.Symbol) (models.SymbolRules, error) {
	lot := s.LotSizeFilter()
	if lot == nil {
		return models.SymbolRules{}, &exchange.GatewayError{
			Op: "symbol_rules", Symbol: s.Symbol, Message: "missing LOT_SIZE filter",
		}
	}
	price := s.PriceFilter()
	if price == nil {
		return models.SymbolRules{}, &exchange.GatewayError{
			Op: "symbol_rules", Symbol: s.Symbol, Message: "missing PRICE_FILTER filter",
		}
	}

	step, err := decimal.NewFromString(lot.StepSize)
	if err != nil || step.Sign() <= 0 {
		return models.SymbolRules{}, &exchange.GatewayError{
			Op: "symbol_rules", Symbol: s.Symbol,
			Message: "invalid stepSize " + lot.StepSize, Err: err,
		}
	}
	tick, err := decimal.NewFromString(price.TickSize)
	if err != nil || tick.Sign() <= 0 {
		return models.SymbolRules{}, &exchange.GatewayError{
			Op: "symbol_rules", Symbol: s.Symbol,
			Message: "invalid tickSize " + price.TickSize, Err: err,
		}
	}

	return models.SymbolRules{
		Symbol:   s.Symbol,
		TickSize: tick,
		StepSize: step,
	}, nil
}
