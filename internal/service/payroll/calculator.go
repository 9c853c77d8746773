package payroll

import (
	"fmt"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

var (
	// Standard monthly working hours used to derive hourly rates.
	standardMonthlyHours = decimal.NewFromInt(160)

	minutesPerHour = decimal.NewFromInt(60)

	incomeTaxRateKou  = decimal.RequireFromString("0.10")
	incomeTaxRateOtsu = decimal.RequireFromString("0.05")

	defaultOvertimeMultiplier = decimal.RequireFromString("1.25")
)

// Calculator computes payment items, deduction items and hourly rates from a
// compensation profile, an attendance aggregate and company rules. It is a
// pure transform: no I/O, no mutation, identical inputs give identical
// outputs.
type Calculator struct {
}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate builds the full payroll computation for one user and period.
//
// Monetary results are rounded per the profile's rounding policy (floor by
// default). A period with zero worked minutes yields an effective hourly
// rate of zero with ZeroWorkHours set; the division is never attempted.
func (c *Calculator) Calculate(
	profile payroll.CompensationProfile,
	agg payroll.AttendanceAggregate,
	rules payroll.CompanyRules,
) (payroll.PayrollComputation, error) {
	if profile.BaseSalary.IsNegative() {
		return payroll.PayrollComputation{}, fmt.Errorf("base salary for user %s is negative", profile.UserID)
	}

	round := profile.Rounding.Apply

	multiplier := profile.OvertimeMultiplier
	if multiplier.IsZero() {
		multiplier = defaultOvertimeMultiplier
	}

	baseHourly := profile.BaseSalary.Div(standardMonthlyHours)
	overtimeHours := decimal.NewFromInt(int64(agg.OvertimeMinutes)).Div(minutesPerHour)

	payment := payroll.PaymentItems{
		BaseSalary:        profile.BaseSalary,
		OvertimeAllowance: round(overtimeHours.Mul(baseHourly).Mul(multiplier)),
	}
	if rules.CommutingAllowanceEnabled {
		payment.CommutingAllowance = profile.CommutingAllowance
	} else {
		payment.CommutingAllowance = decimal.Zero
	}
	if rules.HousingAllowanceEnabled {
		payment.HousingAllowance = profile.HousingAllowance
	} else {
		payment.HousingAllowance = decimal.Zero
	}
	payment.TotalPayment = payment.BaseSalary.
		Add(payment.OvertimeAllowance).
		Add(payment.CommutingAllowance).
		Add(payment.HousingAllowance)

	incomeTaxRate := incomeTaxRateOtsu
	if profile.TaxCategory == payroll.TaxCategoryKou {
		incomeTaxRate = incomeTaxRateKou
	}

	deduction := payroll.DeductionItems{
		HealthInsurance:     round(profile.BaseSalary.Mul(rules.HealthInsuranceRate)),
		EmployeePension:     round(profile.BaseSalary.Mul(rules.EmployeePensionRate)),
		EmploymentInsurance: round(profile.BaseSalary.Mul(rules.EmploymentInsuranceRate)),
		IncomeTax:           round(payment.TotalPayment.Mul(incomeTaxRate)),
		ResidentTax:         round(payment.TotalPayment.Mul(rules.ResidentTaxRate)),
	}
	deduction.TotalDeduction = deduction.HealthInsurance.
		Add(deduction.EmployeePension).
		Add(deduction.EmploymentInsurance).
		Add(deduction.IncomeTax).
		Add(deduction.ResidentTax)

	net := payment.TotalPayment.Sub(deduction.TotalDeduction)

	comp := payroll.PayrollComputation{
		Payment:            payment,
		Deduction:          deduction,
		NetPayment:         net,
		BaseHourlyRate:     round(baseHourly),
		OvertimeHourlyRate: round(round(baseHourly).Mul(multiplier)),
	}

	totalMinutes := agg.TotalWorkMinutes()
	if totalMinutes > 0 {
		totalHours := decimal.NewFromInt(int64(totalMinutes)).Div(minutesPerHour)
		comp.EffectiveHourlyRate = round(net.Div(totalHours))
	} else {
		comp.EffectiveHourlyRate = decimal.Zero
		comp.ZeroWorkHours = true
	}

	return comp, nil
}
