package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/config"
	"tradeflow/executor"
	"tradeflow/models"
)

// fakeTrader returns a canned result and remembers the intent it was given.
type fakeTrader struct {
	intent  *models.OrderIntent
	attempt *models.PositionAttempt
	err     error
}

func (f *fakeTrader) Execute(ctx context.Context, intent *models.OrderIntent) (*models.PositionAttempt, error) {
	f.intent = intent
	if f.attempt == nil {
		f.attempt = models.NewPositionAttempt(intent)
	}
	return f.attempt, f.err
}

func serverConfig() *config.Config {
	return &config.Config{
		Tradeflow: config.TradeflowConfig{Name: "tradeflow", Version: "test"},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			RequestTimeout: time.Second,
		},
		Trade: config.TradeConfig{NotionalUSDT: 250, Leverage: 3},
	}
}

const validPayload = `{
	"ticker": "BTCUSDT.P",
	"side": "LONG",
	"entry": "25000",
	"tp1": "26000",
	"tp2": "27000",
	"winrate": "61",
	"stop": "24000"
}`

func postWebhook(t *testing.T, srv *Server, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestWebhookSuccess(t *testing.T) {
	trader := &fakeTrader{}
	srv := New(serverConfig(), trader)

	rec := postWebhook(t, srv, validPayload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["message"] != "Webhook received" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	if body["symbol"] != "BTCUSDT" {
		t.Errorf("unexpected symbol: %v", body["symbol"])
	}

	// Leverage and budget come from configuration, never from the payload.
	if trader.intent.Leverage != 3 {
		t.Errorf("intent leverage = %d, want 3", trader.intent.Leverage)
	}
	if !trader.intent.NotionalBudget.Equal(decimal.NewFromInt(250)) {
		t.Errorf("intent budget = %s, want 250", trader.intent.NotionalBudget)
	}
	if len(trader.intent.TakeProfits) != 2 {
		t.Errorf("take profits = %d, want 2", len(trader.intent.TakeProfits))
	}
}

func TestWebhookRejectsUnparseableBody(t *testing.T) {
	trader := &fakeTrader{}
	srv := New(serverConfig(), trader)

	rec := postWebhook(t, srv, `{"ticker": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if trader.intent != nil {
		t.Errorf("executor must not run for unparseable payloads")
	}
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	trader := &fakeTrader{}
	srv := New(serverConfig(), trader)

	rec := postWebhook(t, srv, `{"ticker": "BTCUSDT.P", "side": "LONG"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	fields, ok := body["validation_errors"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected per-field validation errors, got %v", body)
	}
	for _, f := range []string{"Entry", "TP1", "Stop"} {
		if _, present := fields[f]; !present {
			t.Errorf("missing validation error for %s: %v", f, fields)
		}
	}
	if trader.intent != nil {
		t.Errorf("executor must not run for invalid payloads")
	}
}

func TestWebhookRejectsBadSide(t *testing.T) {
	trader := &fakeTrader{}
	srv := New(serverConfig(), trader)

	payload := strings.Replace(validPayload, `"LONG"`, `"BUY"`, 1)
	rec := postWebhook(t, srv, payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookRejectsMalformedTicker(t *testing.T) {
	trader := &fakeTrader{}
	srv := New(serverConfig(), trader)

	payload := strings.Replace(validPayload, `"BTCUSDT.P"`, `"BTCUSDT"`, 1)
	rec := postWebhook(t, srv, payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "malformed signal" {
		t.Errorf("unexpected error: %v", body["error"])
	}
}

func TestWebhookErrorStatusMapping(t *testing.T) {
	cases := []struct {
		kind executor.Kind
		want int
	}{
		{executor.KindConflictingOpenOrders, http.StatusConflict},
		{executor.KindSizingError, http.StatusUnprocessableEntity},
		{executor.KindInvalidInstrumentRules, http.StatusUnprocessableEntity},
		{executor.KindLeverageError, http.StatusBadGateway},
		{executor.KindEntryRejected, http.StatusBadGateway},
		{executor.KindEntryFillTimeout, http.StatusBadGateway},
		{executor.KindProtectiveOrderError, http.StatusBadGateway},
		{executor.KindGatewayError, http.StatusBadGateway},
		{executor.KindUnrecoverableExposure, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			trader := &fakeTrader{err: &executor.Error{Kind: tc.kind, Stage: models.StateFailed}}
			srv := New(serverConfig(), trader)

			rec := postWebhook(t, srv, validPayload)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			body := decodeBody(t, rec)
			if body["error"] != string(tc.kind) {
				t.Errorf("error = %v, want %s", body["error"], tc.kind)
			}
			if _, ok := body["attempt_id"]; !ok {
				t.Errorf("failure response must still identify the attempt")
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := New(serverConfig(), &fakeTrader{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(serverConfig(), &fakeTrader{})

	// Ensure the counter has at least one child so it shows up in the scrape.
	postWebhook(t, srv, validPayload)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tradeflow_webhook_requests_total") {
		t.Errorf("metrics exposition missing webhook counter")
	}
}
