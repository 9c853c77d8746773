package payroll

import (
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// Differ produces ordered, display-ready field changes between two versions
// of the same payroll record. It iterates fixed field registries, never
// arbitrary keys, so output order is deterministic and stable.
type Differ struct {
}

func NewDiffer() *Differ {
	return &Differ{}
}

type recordField struct {
	key    string
	label  string
	format func(r *payroll.PayrollRecord) string
}

type amountField struct {
	key   string
	label string
	value func(r *payroll.PayrollRecord) decimal.Decimal
}

type attendanceField struct {
	key    string
	label  string
	format func(a payroll.AttendanceAggregate) string
}

var recordRegistry = []recordField{
	{"status", "ステータス", func(r *payroll.PayrollRecord) string { return formatEnum(string(r.Status)) }},
	{"payment_date", "支払日", func(r *payroll.PayrollRecord) string { return formatDate(r.PaymentDate) }},
}

var paymentRegistry = []amountField{
	{"base_salary", "基本給", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Payment.BaseSalary }},
	{"overtime_allowance", "残業手当", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Payment.OvertimeAllowance }},
	{"commuting_allowance", "通勤手当", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Payment.CommutingAllowance }},
	{"housing_allowance", "住宅手当", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Payment.HousingAllowance }},
	{"total_payment", "支給合計", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Payment.TotalPayment }},
}

var deductionRegistry = []amountField{
	{"health_insurance", "健康保険料", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Deduction.HealthInsurance }},
	{"employee_pension", "厚生年金保険料", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Deduction.EmployeePension }},
	{"employment_insurance", "雇用保険料", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Deduction.EmploymentInsurance }},
	{"income_tax", "所得税", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Deduction.IncomeTax }},
	{"resident_tax", "住民税", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Deduction.ResidentTax }},
	{"total_deduction", "控除合計", func(r *payroll.PayrollRecord) decimal.Decimal { return r.Deduction.TotalDeduction }},
}

var netPaymentField = amountField{
	"net_payment", "差引支給額", func(r *payroll.PayrollRecord) decimal.Decimal { return r.NetPayment },
}

var attendanceRegistry = []attendanceField{
	{"normal_minutes", "普通勤務時間", func(a payroll.AttendanceAggregate) string { return formatMinutes(a.NormalMinutes) }},
	{"overtime_minutes", "残業時間", func(a payroll.AttendanceAggregate) string { return formatMinutes(a.OvertimeMinutes) }},
	{"holiday_minutes", "休日勤務時間", func(a payroll.AttendanceAggregate) string { return formatMinutes(a.HolidayMinutes) }},
	{"working_days", "出勤日数", func(a payroll.AttendanceAggregate) string { return formatDays(a.WorkingDays) }},
}

var hourlyRateRegistry = []amountField{
	{"base_hourly_rate", "基本時給", func(r *payroll.PayrollRecord) decimal.Decimal { return r.BaseHourlyRate }},
	{"overtime_hourly_rate", "残業時給", func(r *payroll.PayrollRecord) decimal.Decimal { return r.OvertimeHourlyRate }},
	{"effective_hourly_rate", "実効時給", func(r *payroll.PayrollRecord) decimal.Decimal { return r.EffectiveHourlyRate }},
}

// Diff compares two versions of the same logical record across all tracked
// fields. Inputs are never mutated; Diff(a, a) is always empty.
func (d *Differ) Diff(previous, current payroll.PayrollRecord) payroll.ChangeSet {
	var changes payroll.ChangeSet

	for _, f := range recordRegistry {
		from := f.format(&previous)
		to := f.format(&current)
		if from != to {
			changes = append(changes, payroll.FieldChange{Key: f.key, Label: f.label, From: from, To: to})
		}
	}

	changes = append(changes, d.diffItems(&previous, &current)...)
	changes = append(changes, diffAmount(&previous, &current, netPaymentField)...)

	if previous.Attendance != current.Attendance {
		for _, f := range attendanceRegistry {
			from := f.format(previous.Attendance)
			to := f.format(current.Attendance)
			if from != to {
				changes = append(changes, payroll.FieldChange{Key: f.key, Label: f.label, From: from, To: to})
			}
		}
	}

	changes = append(changes, diffAmounts(&previous, &current, hourlyRateRegistry)...)

	return changes
}

// DiffItems restricts the diff to the payment and deduction sub-objects.
// The recalculation preview shows only these.
func (d *Differ) DiffItems(previous, current payroll.PayrollRecord) payroll.ChangeSet {
	return d.diffItems(&previous, &current)
}

func (d *Differ) diffItems(previous, current *payroll.PayrollRecord) payroll.ChangeSet {
	var changes payroll.ChangeSet
	if !previous.Payment.Equal(current.Payment) {
		changes = append(changes, diffAmounts(previous, current, paymentRegistry)...)
	}
	if !previous.Deduction.Equal(current.Deduction) {
		changes = append(changes, diffAmounts(previous, current, deductionRegistry)...)
	}
	return changes
}

// fieldChangeFor formats a single tracked field from both snapshots,
// whether or not it differs. Used for single-field manual edits.
func fieldChangeFor(key string, previous, current *payroll.PayrollRecord) (payroll.FieldChange, bool) {
	for _, f := range recordRegistry {
		if f.key == key {
			return payroll.FieldChange{Key: f.key, Label: f.label, From: f.format(previous), To: f.format(current)}, true
		}
	}
	amountFields := make([]amountField, 0, len(paymentRegistry)+len(deductionRegistry)+len(hourlyRateRegistry)+1)
	amountFields = append(amountFields, paymentRegistry...)
	amountFields = append(amountFields, deductionRegistry...)
	amountFields = append(amountFields, netPaymentField)
	amountFields = append(amountFields, hourlyRateRegistry...)
	for _, f := range amountFields {
		if f.key == key {
			return payroll.FieldChange{Key: f.key, Label: f.label, From: formatYen(f.value(previous)), To: formatYen(f.value(current))}, true
		}
	}
	return payroll.FieldChange{}, false
}

func diffAmounts(previous, current *payroll.PayrollRecord, registry []amountField) payroll.ChangeSet {
	var changes payroll.ChangeSet
	for _, f := range registry {
		changes = append(changes, diffAmount(previous, current, f)...)
	}
	return changes
}

func diffAmount(previous, current *payroll.PayrollRecord, f amountField) payroll.ChangeSet {
	from := formatYen(f.value(previous))
	to := formatYen(f.value(current))
	if from == to {
		return nil
	}
	return payroll.ChangeSet{{Key: f.key, Label: f.label, From: from, To: to}}
}
