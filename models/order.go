package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position or order.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the exit side for a position entered on s.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// OrderType distinguishes the three order shapes the service submits.
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
	OrderTypeStop       OrderType = "STOP"
)

// OrderStatus mirrors the exchange-side order lifecycle. The service only
// observes these values, it never sets them.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// Terminal reports whether the status can no longer change on the exchange.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired, OrderStatusRejected:
		return true
	}
	return false
}

// ExchangeOrder is the normalized view of an order as reported by the
// exchange.
type ExchangeOrder struct {
	ID             int64           `json:"id"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	Type           OrderType       `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Status         OrderStatus     `json:"status"`
	AvgFillPrice   decimal.Decimal `json:"avg_fill_price"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	UpdateTime     time.Time       `json:"update_time"`
}

// SymbolRules holds the per-symbol trading constraints fetched from the
// exchange. Every price and quantity sent back must land exactly on these
// grids.
type SymbolRules struct {
	Symbol   string          `json:"symbol"`
	TickSize decimal.Decimal `json:"tick_size"`
	StepSize decimal.Decimal `json:"step_size"`
}

// SnapPrice rounds p down to the nearest multiple of the tick size. Rounding
// is always toward zero so a trigger never lands on an invalid level.
func (r SymbolRules) SnapPrice(p decimal.Decimal) decimal.Decimal {
	if r.TickSize.IsZero() {
		return p
	}
	return p.Div(r.TickSize).Floor().Mul(r.TickSize)
}
