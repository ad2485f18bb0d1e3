package withdrawal

import (
	"math"

	"investment-platform/config"
	"investment-platform/internal/faults"
)

// ComputeFee applies the payment method's fee policy to an amount and
// returns the fee and the net payout. The schedule is evaluated once at
// request creation; later schedule changes never touch an open request.
func ComputeFee(schedule map[string]config.FeePolicy, method string, amount float64) (fee, net float64, err error) {
	policy, ok := schedule[method]
	if !ok {
		return 0, 0, &faults.ValidationError{Field: "payment_method", Reason: "unsupported payment method"}
	}

	fee = roundCents(amount*policy.Percent/100.0 + policy.Flat)
	net = roundCents(amount - fee)

	if net <= 0 {
		return 0, 0, &faults.ValidationError{Field: "amount", Reason: "amount does not cover the withdrawal fee"}
	}

	return fee, net, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
