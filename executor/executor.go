package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/metrics"
	"tradeflow/models"
)

// Executor drives one order intent through the placement sequence:
// leverage → sizing → open-order precondition → market entry → fill wait →
// protective take-profit and stop-loss orders, with compensation when a step
// fails after the entry has filled. The guarantee it exists for: a filled
// entry never ends up without protective orders while the caller is told the
// attempt succeeded.
type Executor struct {
	gw    exchange.Gateway
	cfg   *config.Config
	log   *logger.Log
	locks *symbolLocks
}

func New(gw exchange.Gateway, cfg *config.Config) *Executor {
	return &Executor{
		gw:    gw,
		cfg:   cfg,
		log:   logger.GetLogger(),
		locks: newSymbolLocks(),
	}
}

// Execute runs the full state machine for one intent. The returned attempt
// always reflects the terminal state reached; on failure err is a *Error
// whose Kind identifies the failing stage.
func (e *Executor) Execute(ctx context.Context, intent *models.OrderIntent) (attempt *models.PositionAttempt, err error) {
	attempt = models.NewPositionAttempt(intent)
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(KindOf(err))
		}
		metrics.RecordAttempt(outcome, time.Since(start))
	}()

	// Same-symbol attempts serialize: the open-orders precondition below is
	// only meaningful if no concurrent attempt can submit between the check
	// and our own entry submission.
	lock := e.locks.get(intent.Symbol)
	lock.Lock()
	defer lock.Unlock()

	log := e.log.WithComponent("executor").WithFields(logger.Fields{
		"attempt": attempt.ID,
		"symbol":  intent.Symbol,
		"side":    string(intent.Side),
	})
	log.WithFields(logger.Fields{"leverage": intent.Leverage, "budget": intent.NotionalBudget.String()}).
		Info("position attempt started")

	// Intake → LeverageSet. No order exists yet, so a rejection here needs
	// no compensation.
	if gerr := e.gw.SetLeverage(ctx, intent.Symbol, intent.Leverage); gerr != nil {
		return attempt, e.fail(attempt, KindLeverageError, "", gerr)
	}
	e.transition(attempt, models.StateLeverageSet)

	// LeverageSet → Sized.
	rules, gerr := e.gw.SymbolRules(ctx, intent.Symbol)
	if gerr != nil {
		return attempt, e.fail(attempt, KindGatewayError, "fetching symbol rules", gerr)
	}
	price, gerr := e.gw.ReferencePrice(ctx, intent.Symbol)
	if gerr != nil {
		return attempt, e.fail(attempt, KindGatewayError, "fetching reference price", gerr)
	}
	qty, serr := ComputeQuantity(intent.NotionalBudget, price, rules.StepSize)
	if serr != nil {
		return attempt, e.failWith(attempt, serr)
	}
	if qty.Sign() <= 0 {
		return attempt, e.fail(attempt, KindSizingError,
			fmt.Sprintf("budget %s at price %s sizes to zero with step %s",
				intent.NotionalBudget, price, rules.StepSize), nil)
	}
	attempt.Quantity = qty
	e.transition(attempt, models.StateSized)

	// Precondition: refuse to stack a new position on top of unmanaged open
	// orders, since the new protective pair cannot be proven to match the
	// old exposure.
	open, gerr := e.gw.OpenOrders(ctx, intent.Symbol)
	if gerr != nil {
		return attempt, e.fail(attempt, KindGatewayError, "listing open orders", gerr)
	}
	if len(open) > 0 {
		return attempt, e.fail(attempt, KindConflictingOpenOrders,
			fmt.Sprintf("%d open orders already exist", len(open)), nil)
	}

	// Sized → EntrySubmitted. Submissions are never retried: a duplicate
	// market order is worse than a failed one.
	entry, gerr := e.gw.SubmitMarketOrder(ctx, intent.Symbol, intent.Side, qty)
	if gerr != nil {
		return attempt, e.fail(attempt, KindEntryRejected, "", gerr)
	}
	attempt.EntryOrderID = entry.ID
	e.transition(attempt, models.StateEntrySubmitted)

	// EntrySubmitted → EntryFilled.
	filled, werr := e.waitForFill(ctx, attempt)
	if werr != nil {
		return attempt, werr
	}
	attempt.AvgFillPrice = filled.AvgFillPrice
	attempt.FilledQuantity = filled.FilledQuantity
	if attempt.FilledQuantity.Sign() <= 0 {
		attempt.FilledQuantity = attempt.Quantity
	}
	e.transition(attempt, models.StateEntryFilled)
	log.WithFields(logger.Fields{
		"entry_order_id": attempt.EntryOrderID,
		"avg_fill_price": attempt.AvgFillPrice.String(),
		"filled_qty":     attempt.FilledQuantity.String(),
	}).Info("entry order filled")

	// EntryFilled → ProtectiveOrdersPlaced.
	if perr := e.placeProtectiveOrders(ctx, attempt, rules); perr != nil {
		return attempt, perr
	}

	e.transition(attempt, models.StateProtectiveOrdersPlaced)
	log.WithFields(logger.Fields{
		"take_profit_order_id": attempt.TakeProfitOrderID,
		"stop_loss_order_id":   attempt.StopLossOrderID,
	}).Info("position attempt completed")
	return attempt, nil
}

// waitForFill polls the entry order until it reaches a terminal status or
// the configured ceiling elapses. Status reads are the only calls that retry:
// a transient error just means the next tick polls again.
func (e *Executor) waitForFill(ctx context.Context, attempt *models.PositionAttempt) (models.ExchangeOrder, error) {
	symbol := attempt.Intent.Symbol
	deadline := time.NewTimer(e.cfg.Trade.FillWaitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.cfg.Trade.FillPollInterval)
	defer ticker.Stop()

	for {
		order, gerr := e.gw.OrderStatus(ctx, symbol, attempt.EntryOrderID)
		if gerr != nil {
			e.log.WithComponent("executor").WithError(gerr).WithFields(logger.Fields{
				"attempt": attempt.ID, "symbol": symbol, "order_id": attempt.EntryOrderID,
			}).Warn("entry status poll failed; retrying")
		} else {
			switch order.Status {
			case models.OrderStatusFilled:
				return order, nil
			case models.OrderStatusCanceled, models.OrderStatusExpired:
				// No position exists, nothing to compensate.
				return models.ExchangeOrder{}, e.fail(attempt, KindEntryNotFilled,
					fmt.Sprintf("entry order %d terminal status %s", order.ID, order.Status), nil)
			case models.OrderStatusRejected:
				return models.ExchangeOrder{}, e.fail(attempt, KindEntryRejected,
					fmt.Sprintf("entry order %d rejected after submission", order.ID), nil)
			}
		}

		select {
		case <-ctx.Done():
			return e.compensateFillTimeout(ctx, attempt, ctx.Err())
		case <-deadline.C:
			return e.compensateFillTimeout(ctx, attempt, nil)
		case <-ticker.C:
		}
	}
}

// compensateFillTimeout cancels an entry that did not fill inside the
// ceiling. A cancel race with a fill is resolved by re-reading the order: a
// fill discovered here is returned to the caller so the protective path still
// runs, instead of abandoning a live position.
func (e *Executor) compensateFillTimeout(ctx context.Context, attempt *models.PositionAttempt, cause error) (models.ExchangeOrder, error) {
	e.transition(attempt, models.StateCompensating)
	symbol := attempt.Intent.Symbol

	// The surrounding request context may already be dead; compensation gets
	// its own window so a client disconnect cannot leave the order dangling.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Exchange.Timeout)
	defer cancel()

	cancelErr := e.gw.CancelOrder(cctx, symbol, attempt.EntryOrderID)
	if cancelErr == nil {
		return models.ExchangeOrder{}, e.fail(attempt, KindEntryFillTimeout,
			fmt.Sprintf("entry order %d canceled after %s without fill", attempt.EntryOrderID, e.cfg.Trade.FillWaitTimeout),
			cause)
	}

	// Cancel failed: the order may have filled in the race.
	order, gerr := e.gw.OrderStatus(cctx, symbol, attempt.EntryOrderID)
	if gerr == nil && order.Status == models.OrderStatusFilled {
		e.log.WithComponent("executor").WithFields(logger.Fields{
			"attempt": attempt.ID, "symbol": symbol, "order_id": attempt.EntryOrderID,
		}).Warn("entry filled during timeout compensation; resuming protective placement")
		return order, nil
	}
	if gerr == nil && order.Status.Terminal() {
		// Canceled or expired through another path; no exposure remains.
		return models.ExchangeOrder{}, e.fail(attempt, KindEntryFillTimeout,
			fmt.Sprintf("entry order %d reached %s during compensation", attempt.EntryOrderID, order.Status), cause)
	}
	return models.ExchangeOrder{}, e.escalate(attempt,
		fmt.Sprintf("cancel of entry order %d failed and its status is unresolved", attempt.EntryOrderID),
		cancelErr)
}

// placeProtectiveOrders attaches the take-profit and stop-loss pair, sized to
// the filled quantity and opposite in side to the entry. Both legs are
// attempted even if the first fails, so the error reports the full picture;
// a one-sided outcome cancels the surviving leg before surfacing.
func (e *Executor) placeProtectiveOrders(ctx context.Context, attempt *models.PositionAttempt, rules models.SymbolRules) error {
	intent := attempt.Intent
	exitSide := intent.Side.Opposite()
	qty := attempt.FilledQuantity
	tpPrice := rules.SnapPrice(intent.FirstTakeProfit())
	slPrice := rules.SnapPrice(intent.StopPrice)

	tp, tpErr := e.gw.SubmitTriggerOrder(ctx, intent.Symbol, exitSide, models.OrderTypeTakeProfit, qty, tpPrice)
	if tpErr == nil {
		attempt.TakeProfitOrderID = tp.ID
	}
	sl, slErr := e.gw.SubmitTriggerOrder(ctx, intent.Symbol, exitSide, models.OrderTypeStop, qty, slPrice)
	if slErr == nil {
		attempt.StopLossOrderID = sl.ID
	}

	if tpErr == nil && slErr == nil {
		return nil
	}

	e.transition(attempt, models.StateCompensating)

	var failedLegs []string
	if tpErr != nil {
		failedLegs = append(failedLegs, fmt.Sprintf("take-profit: %v", tpErr))
	}
	if slErr != nil {
		failedLegs = append(failedLegs, fmt.Sprintf("stop-loss: %v", slErr))
	}
	detail := strings.Join(failedLegs, "; ")

	if tpErr != nil && slErr != nil {
		// Both legs failed on a filled entry: the market order is no longer
		// cancelable and there is no surviving leg to clean up.
		return e.escalate(attempt, "both protective legs failed, position is unprotected: "+detail, nil)
	}

	// Exactly one leg survived. Cancel it so the position is not left with a
	// lone one-sided protective order.
	survivingID := attempt.TakeProfitOrderID
	survivingLeg := "take-profit"
	if tpErr != nil {
		survivingID = attempt.StopLossOrderID
		survivingLeg = "stop-loss"
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Exchange.Timeout)
	defer cancel()
	if cancelErr := e.gw.CancelOrder(cctx, intent.Symbol, survivingID); cancelErr != nil {
		return e.escalate(attempt,
			fmt.Sprintf("%s; cancel of surviving %s order %d also failed", detail, survivingLeg, survivingID),
			cancelErr)
	}

	if survivingLeg == "take-profit" {
		attempt.TakeProfitOrderID = 0
	} else {
		attempt.StopLossOrderID = 0
	}
	return e.fail(attempt, KindProtectiveOrderError,
		fmt.Sprintf("%s; surviving %s order %d canceled, position has no protective orders", detail, survivingLeg, survivingID),
		nil)
}

func (e *Executor) transition(attempt *models.PositionAttempt, next models.AttemptState) {
	attempt.Transition(next)
	e.log.WithComponent("executor").WithFields(logger.Fields{
		"attempt": attempt.ID,
		"symbol":  attempt.Intent.Symbol,
		"state":   string(next),
	}).Info("state transition")
}

// fail marks the attempt failed and returns the tagged error.
func (e *Executor) fail(attempt *models.PositionAttempt, kind Kind, detail string, cause error) error {
	stage := attempt.State
	e.transition(attempt, models.StateFailed)
	ferr := &Error{Kind: kind, Stage: stage, Detail: detail, Err: cause}
	e.log.WithComponent("executor").WithError(ferr).WithFields(logger.Fields{
		"attempt": attempt.ID,
		"symbol":  attempt.Intent.Symbol,
		"kind":    string(kind),
		"stage":   string(stage),
	}).Error("position attempt failed")
	return ferr
}

func (e *Executor) failWith(attempt *models.PositionAttempt, err error) error {
	var terr *Error
	if errors.As(err, &terr) {
		return e.fail(attempt, terr.Kind, terr.Detail, terr.Err)
	}
	return e.fail(attempt, KindGatewayError, "", err)
}

// escalate is fail plus the operator alert: a live position exists that this
// service could not protect or flatten. A human has to intervene.
func (e *Executor) escalate(attempt *models.PositionAttempt, detail string, cause error) error {
	metrics.RecordUnrecoverableExposure()
	e.log.Alert("executor", detail, logger.Fields{
		"attempt":        attempt.ID,
		"symbol":         attempt.Intent.Symbol,
		"entry_order_id": fmt.Sprintf("%d", attempt.EntryOrderID),
	})
	return e.fail(attempt, KindUnrecoverableExposure, detail, cause)
}
