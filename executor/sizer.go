package executor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradeflow/models"
)

// ComputeQuantity converts a fixed quote-currency budget into an order
// quantity at the given price, rounded down to the step-size grid. Rounding
// is always toward zero: the result never spends more than the budget and
// never violates the exchange's precision rules. A zero result is valid
// output here; the caller decides whether that is a sizing failure.
func ComputeQuantity(budget, price, stepSize decimal.Decimal) (decimal.Decimal, error) {
	if price.Sign() <= 0 {
		return decimal.Zero, &Error{
			Kind:   KindInvalidInstrumentRules,
			Stage:  models.StateSized,
			Detail: fmt.Sprintf("price must be positive, got %s", price),
		}
	}
	if stepSize.Sign() <= 0 {
		return decimal.Zero, &Error{
			Kind:   KindInvalidInstrumentRules,
			Stage:  models.StateSized,
			Detail: fmt.Sprintf("stepSize must be positive, got %s", stepSize),
		}
	}
	if budget.Sign() <= 0 {
		return decimal.Zero, &Error{
			Kind:   KindInvalidInstrumentRules,
			Stage:  models.StateSized,
			Detail: fmt.Sprintf("budget must be positive, got %s", budget),
		}
	}

	raw := budget.Div(price)
	return raw.Div(stepSize).Floor().Mul(stepSize), nil
}
