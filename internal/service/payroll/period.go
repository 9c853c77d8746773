package payroll

import (
	"time"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
)

// PeriodResolver derives billing-period boundaries and payment dates from a
// company's cutoff configuration.
type PeriodResolver struct {
}

func NewPeriodResolver() *PeriodResolver {
	return &PeriodResolver{}
}

// ResolvePeriod returns the billing period ending on the cutoff day of the
// given month. The period starts the day after the previous month's cutoff.
//
// A cutoff day beyond the length of a month is clamped to that month's last
// day, never rolled into the next month: cutoff 31 in February 2023 yields
// an end of 2023-02-28. The clamp is applied independently to the start and
// end months.
func (p *PeriodResolver) ResolvePeriod(cutoffDay, year, month int) (payroll.BillingPeriod, error) {
	if cutoffDay < 1 || cutoffDay > 31 {
		return payroll.BillingPeriod{}, payroll.ErrInvalidPeriodConfig
	}

	end := dateWithClampedDay(year, time.Month(month), cutoffDay)

	prev := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	prevCutoff := dateWithClampedDay(prev.Year(), prev.Month(), cutoffDay)
	start := prevCutoff.AddDate(0, 0, 1)

	return payroll.BillingPeriod{Start: start, End: end}, nil
}

// PaymentDate returns the payment date for a period: the company's payment
// day in the month following the period end, clamped to that month's length.
func (p *PeriodResolver) PaymentDate(period payroll.BillingPeriod, paymentDay int) (time.Time, error) {
	if paymentDay < 1 || paymentDay > 31 {
		return time.Time{}, payroll.ErrInvalidPeriodConfig
	}

	next := time.Date(period.End.Year(), period.End.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return dateWithClampedDay(next.Year(), next.Month(), paymentDay), nil
}

func dateWithClampedDay(year int, month time.Month, day int) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
