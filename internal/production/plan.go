package production

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxScaleSteps is how many ×10 steps the planner may take beyond the base
// interval before giving up.
const MaxScaleSteps = 9

var (
	// ErrPrecision is returned when a rate has no whole-cookie tick within
	// MaxScaleSteps scalings of the base interval, or when the tick amount
	// or interval does not fit in 64 bits.
	ErrPrecision = errors.New("production rate cannot be expressed in whole cookies")
	// ErrInvalidRate is returned for negative, NaN or infinite rates.
	ErrInvalidRate = errors.New("invalid production rate")
	// ErrInvalidTimeUnit is returned when the base interval is not positive.
	ErrInvalidTimeUnit = errors.New("time unit must be positive")
)

// Plan is a tick schedule: Amount cookies every Interval.
type Plan struct {
	Interval time.Duration
	Amount   int64
}

// PlanTick picks the shortest interval, starting at unit and growing by ×10,
// at which rate×interval is a whole number of cookies.
//
// The search works on the shortest decimal form of rate, so 0.1 plans as one
// cookie every ten units rather than chasing binary rounding noise. A rate of
// zero yields a plan with Amount 0.
func PlanTick(rate float64, unit time.Duration) (Plan, error) {
	if unit <= 0 {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidTimeUnit, unit)
	}
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}

	digits := strconv.FormatFloat(rate, 'f', -1, 64)
	whole, frac, _ := strings.Cut(digits, ".")
	steps := len(frac)
	if steps > MaxScaleSteps {
		return Plan{}, fmt.Errorf("%w: rate %s needs %d scaling steps", ErrPrecision, digits, steps)
	}

	amount, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: rate %s does not fit a tick amount: %v", ErrPrecision, digits, err)
	}

	scale := int64(math.Pow10(steps))
	if int64(unit) > math.MaxInt64/scale {
		return Plan{}, fmt.Errorf("%w: interval %v×%d overflows", ErrPrecision, unit, scale)
	}
	return Plan{Interval: unit * time.Duration(scale), Amount: amount}, nil
}
