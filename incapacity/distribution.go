/*
distribution.go - Day-cost distribution between employer and insurer

THE RULE:
  The employer funds the first 2 calendar days of an incapacity episode
  at full base pay. Every day beyond day 2 is funded by the insurer
  (EPS/ARL) at the statutory percentage of the base daily value.

  The 2-day obligation is episode-wide, not per-record: a prórroga whose
  chain already accumulated 2 or more days is charged entirely to the
  insurer, no matter how long the prórroga itself is.

  Only insurer-funded days enter the payable-by-insurer amount:

    payable = insurer_days × daily_value × payment_percent
*/
package incapacity

import "github.com/shopspring/decimal"

// EmployerGraceDays is the number of days per episode funded by the
// employer before the insurer takes over.
const EmployerGraceDays = 2

// DefaultPaymentPercent is the statutory insurer payment percentage
// (two thirds of the base daily value) applied when none is supplied.
var DefaultPaymentPercent = decimal.New(6667, -4) // 0.6667

// Distribution is the computed cost split for one record.
type Distribution struct {
	EmployerDays  int
	InsurerDays   int
	PayableAmount decimal.Decimal
}

// Distribute splits totalDays between employer and insurer and computes
// the insurer-payable amount. Pure and deterministic.
//
// accumulatedBefore is the day total already accumulated by the episode
// before this record (zero for origin records). It only matters when
// isProrroga is true: an exhausted grace period sends the whole span to
// the insurer.
func Distribute(totalDays int, isProrroga bool, accumulatedBefore int, dailyValue, percent decimal.Decimal) Distribution {
	var employer, insurer int

	switch {
	case isProrroga && accumulatedBefore >= EmployerGraceDays:
		employer, insurer = 0, totalDays
	case totalDays <= EmployerGraceDays:
		employer, insurer = totalDays, 0
	default:
		employer, insurer = EmployerGraceDays, totalDays-EmployerGraceDays
	}

	payable := decimal.NewFromInt(int64(insurer)).Mul(dailyValue).Mul(percent)

	return Distribution{
		EmployerDays:  employer,
		InsurerDays:   insurer,
		PayableAmount: payable,
	}
}
