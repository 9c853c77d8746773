package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
)

func testProfile() payroll.CompensationProfile {
	return payroll.CompensationProfile{
		UserID:             "user-1",
		CompanyID:          "company-1",
		BaseSalary:         decimal.NewFromInt(300000),
		OvertimeMultiplier: decimal.RequireFromString("1.25"),
		CommutingAllowance: decimal.NewFromInt(10000),
		HousingAllowance:   decimal.NewFromInt(20000),
		TaxCategory:        payroll.TaxCategoryKou,
		Rounding:           payroll.RoundingFloor,
	}
}

func testRules() payroll.CompanyRules {
	return payroll.CompanyRules{
		CompanyID:                 "company-1",
		CutoffDay:                 25,
		PaymentDay:                10,
		HealthInsuranceRate:       decimal.RequireFromString("0.05"),
		EmployeePensionRate:       decimal.RequireFromString("0.0915"),
		EmploymentInsuranceRate:   decimal.RequireFromString("0.006"),
		ResidentTaxRate:           decimal.RequireFromString("0.06"),
		CommutingAllowanceEnabled: true,
		HousingAllowanceEnabled:   true,
	}
}

func testAttendance() payroll.AttendanceAggregate {
	return payroll.AttendanceAggregate{
		UserID:          "user-1",
		NormalMinutes:   9600, // 160h
		OvertimeMinutes: 600,  // 10h
		WorkingDays:     20,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator()

	comp, err := calc.Calculate(testProfile(), testAttendance(), testRules())
	require.NoError(t, err)

	// 10h overtime at 300000/160 * 1.25 = 23437.5, floored.
	assertDecimal(t, "300000", comp.Payment.BaseSalary)
	assertDecimal(t, "23437", comp.Payment.OvertimeAllowance)
	assertDecimal(t, "10000", comp.Payment.CommutingAllowance)
	assertDecimal(t, "20000", comp.Payment.HousingAllowance)
	assertDecimal(t, "353437", comp.Payment.TotalPayment)

	assertDecimal(t, "15000", comp.Deduction.HealthInsurance)
	assertDecimal(t, "27450", comp.Deduction.EmployeePension)
	assertDecimal(t, "1800", comp.Deduction.EmploymentInsurance)
	assertDecimal(t, "35343", comp.Deduction.IncomeTax)
	assertDecimal(t, "21206", comp.Deduction.ResidentTax)
	assertDecimal(t, "100799", comp.Deduction.TotalDeduction)

	assertDecimal(t, "252638", comp.NetPayment)

	assertDecimal(t, "1875", comp.BaseHourlyRate)
	assertDecimal(t, "2343", comp.OvertimeHourlyRate)
	// 252638 over 170 worked hours.
	assertDecimal(t, "1486", comp.EffectiveHourlyRate)

	assert.False(t, comp.ZeroWorkHours)
}

func TestCalculate_NetInvariant(t *testing.T) {
	calc := NewCalculator()

	comp, err := calc.Calculate(testProfile(), testAttendance(), testRules())
	require.NoError(t, err)

	want := comp.Payment.TotalPayment.Sub(comp.Deduction.TotalDeduction)
	assert.True(t, want.Equal(comp.NetPayment))
}

func TestCalculate_Deterministic(t *testing.T) {
	calc := NewCalculator()

	first, err := calc.Calculate(testProfile(), testAttendance(), testRules())
	require.NoError(t, err)
	second, err := calc.Calculate(testProfile(), testAttendance(), testRules())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculate_TaxCategory(t *testing.T) {
	calc := NewCalculator()

	kou := testProfile()
	kou.TaxCategory = payroll.TaxCategoryKou
	otsu := testProfile()
	otsu.TaxCategory = payroll.TaxCategoryOtsu

	compKou, err := calc.Calculate(kou, testAttendance(), testRules())
	require.NoError(t, err)
	compOtsu, err := calc.Calculate(otsu, testAttendance(), testRules())
	require.NoError(t, err)

	assertDecimal(t, "35343", compKou.Deduction.IncomeTax)
	assertDecimal(t, "17671", compOtsu.Deduction.IncomeTax)
}

func TestCalculate_AllowancesGatedByRules(t *testing.T) {
	calc := NewCalculator()

	rules := testRules()
	rules.CommutingAllowanceEnabled = false
	rules.HousingAllowanceEnabled = false

	comp, err := calc.Calculate(testProfile(), testAttendance(), rules)
	require.NoError(t, err)

	assert.True(t, comp.Payment.CommutingAllowance.IsZero())
	assert.True(t, comp.Payment.HousingAllowance.IsZero())
	assertDecimal(t, "323437", comp.Payment.TotalPayment)
}

func TestCalculate_RoundingPolicy(t *testing.T) {
	calc := NewCalculator()

	ceil := testProfile()
	ceil.Rounding = payroll.RoundingCeil

	comp, err := calc.Calculate(ceil, testAttendance(), testRules())
	require.NoError(t, err)

	// 23437.5 rounds up under ceil.
	assertDecimal(t, "23438", comp.Payment.OvertimeAllowance)
	assertDecimal(t, "2344", comp.OvertimeHourlyRate)
}

func TestCalculate_DefaultOvertimeMultiplier(t *testing.T) {
	calc := NewCalculator()

	profile := testProfile()
	profile.OvertimeMultiplier = decimal.Zero

	comp, err := calc.Calculate(profile, testAttendance(), testRules())
	require.NoError(t, err)

	// Zero multiplier falls back to 1.25.
	assertDecimal(t, "23437", comp.Payment.OvertimeAllowance)
}

func TestCalculate_ZeroWorkHours(t *testing.T) {
	calc := NewCalculator()

	comp, err := calc.Calculate(testProfile(), payroll.AttendanceAggregate{UserID: "user-1"}, testRules())
	require.NoError(t, err)

	assert.True(t, comp.ZeroWorkHours)
	assert.True(t, comp.EffectiveHourlyRate.IsZero())
	// Fixed payment items still computed.
	assertDecimal(t, "300000", comp.Payment.BaseSalary)
	assert.True(t, comp.Payment.OvertimeAllowance.IsZero())
}

func TestCalculate_NegativeBaseSalary(t *testing.T) {
	calc := NewCalculator()

	profile := testProfile()
	profile.BaseSalary = decimal.NewFromInt(-1)

	_, err := calc.Calculate(profile, testAttendance(), testRules())
	assert.Error(t, err)
}
