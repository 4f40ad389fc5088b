package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidFeeSpec = errors.New("malformed fee specification")
	ErrFeeOverflow    = errors.New("computed fee does not fit in a minor-unit amount")
)

var oneHundred = decimal.NewFromInt(100)

// FeeCalculator computes the platform fee for a single charge.
//
// The fee specification is either "<number>%" for a percentage of the
// charge or "<number>" for a flat per-charge amount in major currency
// units. The minimum fee is a per-ticket amount in major units; the
// effective floor scales with the number of tickets.
type FeeCalculator struct {
	fee        decimal.Decimal
	minimumFee decimal.Decimal
	percentage bool
	numTickets int
}

func NewFeeCalculator(feeSpec, minimumFee string, numTickets int) (*FeeCalculator, error) {
	percentage := strings.HasSuffix(feeSpec, "%")

	feeStr := strings.TrimSpace(strings.TrimSuffix(feeSpec, "%"))
	if feeStr == "" {
		feeStr = "0"
	}
	fee, err := decimal.NewFromString(feeStr)
	if err != nil {
		return nil, fmt.Errorf("%w: fee %q", ErrInvalidFeeSpec, feeSpec)
	}

	minStr := strings.TrimSpace(minimumFee)
	if minStr == "" {
		minStr = "0"
	}
	minimum, err := decimal.NewFromString(minStr)
	if err != nil {
		return nil, fmt.Errorf("%w: minimum fee %q", ErrInvalidFeeSpec, minimumFee)
	}

	return &FeeCalculator{
		fee:        fee,
		minimumFee: minimum,
		percentage: percentage,
		numTickets: numTickets,
	}, nil
}

// Calculate returns the platform fee in minor units for a charge of
// amountMinor minor units: max(fee, minimum-per-ticket * tickets).
func (c *FeeCalculator) Calculate(amountMinor int64) (int64, error) {
	var result decimal.Decimal
	if c.percentage {
		// Rounded half-up to a whole minor unit.
		result = decimal.NewFromInt(amountMinor).Mul(c.fee).DivRound(oneHundred, 0)
	} else {
		result = unitToCents(c.fee)
	}

	floor := unitToCents(c.minimumFee).Mul(decimal.NewFromInt(int64(c.numTickets)))
	if floor.GreaterThan(result) {
		result = floor
	}

	if !result.BigInt().IsInt64() {
		return 0, ErrFeeOverflow
	}
	return result.IntPart(), nil
}

// CalculateFee is the one-shot form of the calculator.
func CalculateFee(feeSpec, minimumFee string, numTickets int, amountMinor int64) (int64, error) {
	calc, err := NewFeeCalculator(feeSpec, minimumFee, numTickets)
	if err != nil {
		return 0, err
	}
	return calc.Calculate(amountMinor)
}

// unitToCents converts a major-unit amount to minor units, rounding to
// two decimal places first so the result is always integral.
func unitToCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2).Mul(oneHundred)
}
