package binance

import (
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2/common"
	futures "github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"tradeflow/exchange"
	"tradeflow/models"
)

func TestSideConversionRoundTrip(t *testing.T) {
	if toFuturesSide(models.SideLong) != futures.SideTypeBuy {
		t.Errorf("LONG should map to BUY")
	}
	if toFuturesSide(models.SideShort) != futures.SideTypeSell {
		t.Errorf("SHORT should map to SELL")
	}
	if fromFuturesSide(futures.SideTypeBuy) != models.SideLong {
		t.Errorf("BUY should map back to LONG")
	}
	if fromFuturesSide(futures.SideTypeSell) != models.SideShort {
		t.Errorf("SELL should map back to SHORT")
	}
}

func TestOrderTypeConversion(t *testing.T) {
	tp, err := toFuturesOrderType(models.OrderTypeTakeProfit)
	if err != nil || tp != futures.OrderTypeTakeProfit {
		t.Errorf("take-profit mapping wrong: %v %v", tp, err)
	}
	st, err := toFuturesOrderType(models.OrderTypeStop)
	if err != nil || st != futures.OrderTypeStop {
		t.Errorf("stop mapping wrong: %v %v", st, err)
	}
	if _, err := toFuturesOrderType(models.OrderType("TRAILING")); err == nil {
		t.Errorf("expected error for unsupported type")
	}

	if fromFuturesOrderType(futures.OrderTypeTakeProfitMarket) != models.OrderTypeTakeProfit {
		t.Errorf("TAKE_PROFIT_MARKET should normalize to take-profit")
	}
	if fromFuturesOrderType(futures.OrderTypeStopMarket) != models.OrderTypeStop {
		t.Errorf("STOP_MARKET should normalize to stop")
	}
}

func TestStatusConversion(t *testing.T) {
	cases := map[futures.OrderStatusType]models.OrderStatus{
		futures.OrderStatusTypeNew:             models.OrderStatusNew,
		futures.OrderStatusTypePartiallyFilled: models.OrderStatusPartiallyFilled,
		futures.OrderStatusTypeFilled:          models.OrderStatusFilled,
		futures.OrderStatusTypeCanceled:        models.OrderStatusCanceled,
		futures.OrderStatusTypeExpired:         models.OrderStatusExpired,
		futures.OrderStatusTypeRejected:        models.OrderStatusRejected,
	}
	for in, want := range cases {
		if got := fromFuturesStatus(in); got != want {
			t.Errorf("%s: got %s want %s", in, got, want)
		}
	}
}

func TestOrderFromFutures(t *testing.T) {
	o := &futures.Order{
		OrderID:          42,
		Symbol:           "BTCUSDT",
		Side:             futures.SideTypeBuy,
		Type:             futures.OrderTypeMarket,
		OrigQuantity:     "0.010",
		ExecutedQuantity: "0.010",
		AvgPrice:         "25010",
		Status:           futures.OrderStatusTypeFilled,
		UpdateTime:       1700000000000,
	}
	got := orderFromFutures(o)
	if got.ID != 42 || got.Symbol != "BTCUSDT" {
		t.Errorf("identity fields wrong: %+v", got)
	}
	if got.Status != models.OrderStatusFilled {
		t.Errorf("status wrong: %s", got.Status)
	}
	if !got.FilledQuantity.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("filled quantity wrong: %s", got.FilledQuantity)
	}
	if !got.AvgFillPrice.Equal(decimal.NewFromInt(25010)) {
		t.Errorf("avg price wrong: %s", got.AvgFillPrice)
	}
}

func TestLenientDecimal(t *testing.T) {
	if !lenientDecimal("").IsZero() {
		t.Errorf("empty string should parse to zero")
	}
	if !lenientDecimal("garbage").IsZero() {
		t.Errorf("malformed string should parse to zero")
	}
	if !lenientDecimal("1.5").Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("valid string mangled")
	}
}

func TestWrapErrSurfacesAPICode(t *testing.T) {
	apiErr := &common.APIError{Code: -2019, Message: "Margin is insufficient."}
	gerr := wrapErr("submit_market", "BTCUSDT", apiErr)
	if gerr.Code != -2019 {
		t.Errorf("code not extracted: %d", gerr.Code)
	}

	var asGateway *exchange.GatewayError
	if !errors.As(error(gerr), &asGateway) {
		t.Fatalf("wrapErr result should be a *exchange.GatewayError")
	}

	var asAPI *common.APIError
	if !errors.As(error(gerr), &asAPI) {
		t.Errorf("underlying API error should remain unwrappable")
	}
}

func TestRulesFromSymbol(t *testing.T) {
	s := &futures.Symbol{
		Symbol: "BTCUSDT",
		Filters: []map[string]interface{}{
			{"filterType": "LOT_SIZE", "stepSize": "0.001", "minQty": "0.001", "maxQty": "1000"},
			{"filterType": "PRICE_FILTER", "tickSize": "0.10", "minPrice": "0.10", "maxPrice": "1000000"},
		},
	}
	rules, err := rulesFromSymbol(s)
	if err != nil {
		t.Fatalf("rulesFromSymbol failed: %v", err)
	}
	if !rules.StepSize.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("step size wrong: %s", rules.StepSize)
	}
	if !rules.TickSize.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("tick size wrong: %s", rules.TickSize)
	}
}

func TestRulesFromSymbolRejectsBadFilters(t *testing.T) {
	missing := &futures.Symbol{Symbol: "X", Filters: []map[string]interface{}{}}
	if _, err := rulesFromSymbol(missing); err == nil {
		t.Errorf("expected error for missing filters")
	}

	zeroStep := &futures.Symbol{
		Symbol: "X",
		Filters: []map[string]interface{}{
			{"filterType": "LOT_SIZE", "stepSize": "0"},
			{"filterType": "PRICE_FILTER", "tickSize": "0.1"},
		},
	}
	if _, err := rulesFromSymbol(zeroStep); err == nil {
		t.Errorf("expected error for zero stepSize")
	}
}
