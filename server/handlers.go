package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tradeflow/executor"
	"tradeflow/logger"
	"tradeflow/metrics"
	"tradeflow/models"
)

func formatValidationError(err error) map[string]string {
	fields := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"payload": err.Error()}
	}
	for _, e := range verrs {
		fields[e.Field()] = "failed on tag '" + e.Tag() + "'"
	}
	return fields
}

// POST /webhook
func (s *Server) handleWebhook(c *gin.Context) {
	log := s.log.WithComponent("webhook")

	var signal models.WebhookSignal
	if err := c.ShouldBindJSON(&signal); err != nil {
		log.WithError(err).Warn("rejected unparseable payload")
		s.reply(c, http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.validate.Struct(signal); err != nil {
		log.WithError(err).Warn("rejected invalid payload")
		s.reply(c, http.StatusBadRequest, gin.H{"validation_errors": formatValidationError(err)})
		return
	}

	intent, err := signal.Normalize(s.cfg.Trade.Leverage, s.cfg.Trade.NotionalUSDT)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{"ticker": signal.Ticker}).
			Warn("rejected malformed signal")
		s.reply(c, http.StatusBadRequest, gin.H{
			"error": "malformed signal", "detail": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	attempt, err := s.trader.Execute(ctx, intent)
	if err != nil {
		kind := executor.KindOf(err)
		entry := log.WithError(err).WithFields(logger.Fields{
			"symbol": intent.Symbol,
			"kind":   string(kind),
		})
		if kind.ClientFault() {
			entry.Warn("attempt rejected")
		} else {
			entry.Error("attempt failed")
		}
		body := gin.H{
			"error":  string(kind),
			"detail": err.Error(),
			"symbol": intent.Symbol,
		}
		if attempt != nil {
			body["attempt_id"] = attempt.ID
		}
		s.reply(c, statusForKind(kind), body)
		return
	}

	s.reply(c, http.StatusOK, gin.H{
		"message":              "Webhook received",
		"attempt_id":           attempt.ID,
		"symbol":               attempt.Intent.Symbol,
		"side":                 string(attempt.Intent.Side),
		"quantity":             attempt.FilledQuantity.String(),
		"avg_fill_price":       attempt.AvgFillPrice.String(),
		"entry_order_id":       attempt.EntryOrderID,
		"take_profit_order_id": attempt.TakeProfitOrderID,
		"stop_loss_order_id":   attempt.StopLossOrderID,
	})
}

func (s *Server) reply(c *gin.Context, status int, body gin.H) {
	metrics.RecordWebhookRequest(status)
	c.JSON(status, body)
}

// statusForKind maps executor failure kinds onto HTTP statuses. Caller faults
// map to 4xx, exchange-side failures to 502, and anything that leaves the
// service in a state needing human attention to 500.
func statusForKind(kind executor.Kind) int {
	switch kind {
	case executor.KindMalformedSignal:
		return http.StatusBadRequest
	case executor.KindConflictingOpenOrders:
		return http.StatusConflict
	case executor.KindSizingError, executor.KindInvalidInstrumentRules:
		return http.StatusUnprocessableEntity
	case executor.KindLeverageError, executor.KindEntryRejected,
		executor.KindEntryNotFilled, executor.KindEntryFillTimeout,
		executor.KindProtectiveOrderError, executor.KindGatewayError:
		return http.StatusBadGateway
	case executor.KindUnrecoverableExposure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
