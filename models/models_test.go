package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func validSignal() *WebhookSignal {
	return &WebhookSignal{
		Ticker:          "BTCUSDT.P",
		Side:            "LONG",
		Entry:           "25000",
		TP1:             "26000",
		TP2:             "27000",
		Winrate:         "63%",
		BETargetTrigger: "tp1",
		Stop:            "24000",
	}
}

func TestNormalize(t *testing.T) {
	intent, err := validSignal().Normalize(3, 250)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if intent.Symbol != "BTCUSDT" {
		t.Errorf("unexpected symbol: %s", intent.Symbol)
	}
	if intent.ContractType != "P" {
		t.Errorf("unexpected contract type: %s", intent.ContractType)
	}
	if intent.Side != SideLong {
		t.Errorf("unexpected side: %s", intent.Side)
	}
	if len(intent.TakeProfits) != 2 {
		t.Fatalf("expected 2 take-profit levels, got %d", len(intent.TakeProfits))
	}
	if !intent.FirstTakeProfit().Equal(decimal.NewFromInt(26000)) {
		t.Errorf("unexpected tp1: %s", intent.FirstTakeProfit())
	}
	if intent.Leverage != 3 {
		t.Errorf("unexpected leverage: %d", intent.Leverage)
	}
	if !intent.NotionalBudget.Equal(decimal.NewFromInt(250)) {
		t.Errorf("unexpected budget: %s", intent.NotionalBudget)
	}
}

func TestNormalizeShortSide(t *testing.T) {
	sig := validSignal()
	sig.Side = "SHORT"
	intent, err := sig.Normalize(1, 250)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if intent.Side != SideShort {
		t.Errorf("unexpected side: %s", intent.Side)
	}
	if intent.Side.Opposite() != SideLong {
		t.Errorf("opposite of SHORT should be LONG")
	}
}

func TestNormalizeRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*WebhookSignal)
		want   string
	}{
		{"missing suffix", func(s *WebhookSignal) { s.Ticker = "BTCUSDT" }, "ticker"},
		{"empty symbol", func(s *WebhookSignal) { s.Ticker = ".P" }, "ticker"},
		{"bad side", func(s *WebhookSignal) { s.Side = "BUY" }, "side"},
		{"non-numeric entry", func(s *WebhookSignal) { s.Entry = "abc" }, "entry"},
		{"negative stop", func(s *WebhookSignal) { s.Stop = "-5" }, "stop"},
		{"zero tp", func(s *WebhookSignal) { s.TP1 = "0"; s.TP2 = "" }, "tp1"},
		{"bad tp3", func(s *WebhookSignal) { s.TP3 = "x" }, "tp3"},
	}

	for _, tc := range cases {
		sig := validSignal()
		tc.mutate(sig)
		_, err := sig.Normalize(1, 250)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestNormalizeRejectsBadConfigValues(t *testing.T) {
	if _, err := validSignal().Normalize(0, 250); err == nil {
		t.Errorf("expected error for zero leverage")
	}
	if _, err := validSignal().Normalize(1, 0); err == nil {
		t.Errorf("expected error for zero budget")
	}
}

func TestSnapPrice(t *testing.T) {
	rules := SymbolRules{
		Symbol:   "BTCUSDT",
		TickSize: decimal.RequireFromString("0.1"),
		StepSize: decimal.RequireFromString("0.001"),
	}

	snapped := rules.SnapPrice(decimal.RequireFromString("25010.17"))
	if !snapped.Equal(decimal.RequireFromString("25010.1")) {
		t.Errorf("unexpected snap: %s", snapped)
	}

	// Already on the grid stays put.
	exact := rules.SnapPrice(decimal.RequireFromString("25010.1"))
	if !exact.Equal(decimal.RequireFromString("25010.1")) {
		t.Errorf("grid value moved: %s", exact)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired, OrderStatusRejected}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if OrderStatusNew.Terminal() || OrderStatusPartiallyFilled.Terminal() {
		t.Errorf("non-terminal status reported terminal")
	}
}

func TestPositionAttemptLifecycle(t *testing.T) {
	intent, err := validSignal().Normalize(1, 250)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	attempt := NewPositionAttempt(intent)
	if attempt.ID == "" {
		t.Fatalf("attempt id not assigned")
	}
	if attempt.State != StateIntake {
		t.Errorf("unexpected initial state: %s", attempt.State)
	}

	attempt.Transition(StateLeverageSet)
	if !attempt.FinishedAt.IsZero() {
		t.Errorf("non-terminal transition set FinishedAt")
	}

	attempt.Transition(StateProtectiveOrdersPlaced)
	if attempt.FinishedAt.IsZero() {
		t.Errorf("terminal transition did not set FinishedAt")
	}
}
