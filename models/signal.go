package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// WebhookSignal is the inbound TradingView alert payload. All numeric fields
// arrive as text; Normalize turns them into a typed OrderIntent.
type WebhookSignal struct {
	Ticker          string `json:"ticker" validate:"required"`
	Side            string `json:"side" validate:"required,oneof=LONG SHORT"`
	Entry           string `json:"entry" validate:"required"`
	TP1             string `json:"tp1" validate:"required"`
	TP2             string `json:"tp2"`
	TP3             string `json:"tp3"`
	TP4             string `json:"tp4"`
	Winrate         string `json:"winrate"`
	BETargetTrigger string `json:"beTargetTrigger"`
	Stop            string `json:"stop" validate:"required"`
}

// OrderIntent is the normalized form of a signal the executor works from.
type OrderIntent struct {
	Symbol         string
	ContractType   string
	Side           Side
	EntryPrice     decimal.Decimal
	TakeProfits    []decimal.Decimal
	StopPrice      decimal.Decimal
	Leverage       int
	NotionalBudget decimal.Decimal
}

// FirstTakeProfit returns the level the protective take-profit order is
// placed at. Additional levels are carried for auditability only.
func (i OrderIntent) FirstTakeProfit() decimal.Decimal {
	return i.TakeProfits[0]
}

// Normalize validates and parses the signal into an OrderIntent. Leverage and
// notional budget come from configuration, not from the signal. A non-nil
// error means the payload is malformed and nothing has touched the exchange.
func (s *WebhookSignal) Normalize(leverage int, notionalUSDT float64) (*OrderIntent, error) {
	symbol, contractType, err := splitTicker(s.Ticker)
	if err != nil {
		return nil, err
	}

	var side Side
	switch s.Side {
	case "LONG":
		side = SideLong
	case "SHORT":
		side = SideShort
	default:
		return nil, fmt.Errorf("side must be LONG or SHORT, got %q", s.Side)
	}

	entry, err := parsePositivePrice("entry", s.Entry)
	if err != nil {
		return nil, err
	}
	stop, err := parsePositivePrice("stop", s.Stop)
	if err != nil {
		return nil, err
	}

	tps := make([]decimal.Decimal, 0, 4)
	for _, lvl := range []struct {
		name, value string
	}{
		{"tp1", s.TP1}, {"tp2", s.TP2}, {"tp3", s.TP3}, {"tp4", s.TP4},
	} {
		if lvl.value == "" {
			continue
		}
		tp, err := parsePositivePrice(lvl.name, lvl.value)
		if err != nil {
			return nil, err
		}
		tps = append(tps, tp)
	}
	if len(tps) == 0 {
		return nil, fmt.Errorf("at least one take-profit level is required")
	}

	if leverage <= 0 {
		return nil, fmt.Errorf("leverage must be positive, got %d", leverage)
	}
	budget := decimal.NewFromFloat(notionalUSDT)
	if budget.Sign() <= 0 {
		return nil, fmt.Errorf("notional budget must be positive, got %v", notionalUSDT)
	}

	return &OrderIntent{
		Symbol:         symbol,
		ContractType:   contractType,
		Side:           side,
		EntryPrice:     entry,
		TakeProfits:    tps,
		StopPrice:      stop,
		Leverage:       leverage,
		NotionalBudget: budget,
	}, nil
}

// splitTicker separates "BTCUSDT.P" into the exchange symbol and the contract
// type suffix.
func splitTicker(ticker string) (symbol, contractType string, err error) {
	parts := strings.SplitN(ticker, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ticker %q must be <symbol>.<contract-type>", ticker)
	}
	return parts[0], parts[1], nil
}

func parsePositivePrice(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", field, value)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return d, nil
}
