package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxCategory is the withholding-tax class on the employee's declaration (甲/乙).
type TaxCategory string

const (
	TaxCategoryKou  TaxCategory = "甲"
	TaxCategoryOtsu TaxCategory = "乙"
)

// RoundingPolicy controls how monetary results are rounded to whole yen.
type RoundingPolicy string

const (
	RoundingFloor RoundingPolicy = "floor"
	RoundingCeil  RoundingPolicy = "ceil"
	RoundingRound RoundingPolicy = "round"
)

// Apply rounds d to an integral amount according to the policy.
// An unknown or empty policy falls back to floor.
func (p RoundingPolicy) Apply(d decimal.Decimal) decimal.Decimal {
	switch p {
	case RoundingCeil:
		return d.Ceil()
	case RoundingRound:
		return d.Round(0)
	default:
		return d.Floor()
	}
}

// CompensationProfile - Per-employee fixed pay settings
type CompensationProfile struct {
	ID                 string
	UserID             string
	CompanyID          string
	BaseSalary         decimal.Decimal
	OvertimeMultiplier decimal.Decimal
	CommutingAllowance decimal.Decimal
	HousingAllowance   decimal.Decimal
	TaxCategory        TaxCategory
	Rounding           RoundingPolicy
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CompanyRules - Company-wide payroll configuration
type CompanyRules struct {
	ID                        string
	CompanyID                 string
	CutoffDay                 int
	PaymentDay                int
	HealthInsuranceRate       decimal.Decimal
	EmployeePensionRate       decimal.Decimal
	EmploymentInsuranceRate   decimal.Decimal
	ResidentTaxRate           decimal.Decimal
	CommutingAllowanceEnabled bool
	HousingAllowanceEnabled   bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// AttendanceAggregate - Summed attendance over one billing period for one user
type AttendanceAggregate struct {
	UserID          string `json:"user_id,omitempty"`
	NormalMinutes   int    `json:"normal_minutes"`
	OvertimeMinutes int    `json:"overtime_minutes"`
	HolidayMinutes  int    `json:"holiday_minutes"`
	WorkingDays     int    `json:"working_days"`
}

// TotalWorkMinutes returns the sum of all worked minutes in the period.
func (a AttendanceAggregate) TotalWorkMinutes() int {
	return a.NormalMinutes + a.OvertimeMinutes + a.HolidayMinutes
}

// BillingPeriod is the date range one payroll record covers.
// Immutable once derived for a given (cutoff day, year, month).
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

func (p BillingPeriod) String() string {
	return p.Start.Format("2006-01-02") + " 〜 " + p.End.Format("2006-01-02")
}

// PaymentItems - Flat payment breakdown
type PaymentItems struct {
	BaseSalary         decimal.Decimal `json:"base_salary"`
	OvertimeAllowance  decimal.Decimal `json:"overtime_allowance"`
	CommutingAllowance decimal.Decimal `json:"commuting_allowance"`
	HousingAllowance   decimal.Decimal `json:"housing_allowance"`
	TotalPayment       decimal.Decimal `json:"total_payment"`
}

// Equal reports whether both breakdowns carry the same amounts.
func (p PaymentItems) Equal(o PaymentItems) bool {
	return p.BaseSalary.Equal(o.BaseSalary) &&
		p.OvertimeAllowance.Equal(o.OvertimeAllowance) &&
		p.CommutingAllowance.Equal(o.CommutingAllowance) &&
		p.HousingAllowance.Equal(o.HousingAllowance) &&
		p.TotalPayment.Equal(o.TotalPayment)
}

// DeductionItems - Flat deduction breakdown
type DeductionItems struct {
	HealthInsurance     decimal.Decimal `json:"health_insurance"`
	EmployeePension     decimal.Decimal `json:"employee_pension"`
	EmploymentInsurance decimal.Decimal `json:"employment_insurance"`
	IncomeTax           decimal.Decimal `json:"income_tax"`
	ResidentTax         decimal.Decimal `json:"resident_tax"`
	TotalDeduction      decimal.Decimal `json:"total_deduction"`
}

func (d DeductionItems) Equal(o DeductionItems) bool {
	return d.HealthInsurance.Equal(o.HealthInsurance) &&
		d.EmployeePension.Equal(o.EmployeePension) &&
		d.EmploymentInsurance.Equal(o.EmploymentInsurance) &&
		d.IncomeTax.Equal(o.IncomeTax) &&
		d.ResidentTax.Equal(o.ResidentTax) &&
		d.TotalDeduction.Equal(o.TotalDeduction)
}

// PayrollComputation is the pure result of running the calculator.
type PayrollComputation struct {
	Payment             PaymentItems
	Deduction           DeductionItems
	NetPayment          decimal.Decimal
	BaseHourlyRate      decimal.Decimal
	OvertimeHourlyRate  decimal.Decimal
	EffectiveHourlyRate decimal.Decimal
	// ZeroWorkHours is set when the period has no worked minutes and the
	// effective hourly rate fell back to zero instead of dividing.
	ZeroWorkHours bool
}

// RecordStatus enum (未処理 → 承認待ち → 承認済み → 支払完了)
type RecordStatus string

const (
	StatusUnprocessed     RecordStatus = "未処理"
	StatusPendingApproval RecordStatus = "承認待ち"
	StatusApproved        RecordStatus = "承認済み"
	StatusPaid            RecordStatus = "支払完了"
)

// CanTransitionTo reports whether next is a legal status move. The
// progression is forward one step at a time; 承認待ち may be sent back to
// 未処理. Records are never deleted, only status-transitioned.
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	switch s {
	case StatusUnprocessed:
		return next == StatusPendingApproval
	case StatusPendingApproval:
		return next == StatusApproved || next == StatusUnprocessed
	case StatusApproved:
		return next == StatusPaid
	default:
		return false
	}
}

// FieldChange is one formatted field-level difference between two snapshots.
type FieldChange struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ChangeSet is an ordered list of field changes. Order follows the field
// registry and is significant for display.
type ChangeSet []FieldChange

// EditHistoryEntry - One immutable audit-log record. The ChangeSet is
// computed once at write time and persisted with the entry; readers never
// re-derive it from snapshots.
type EditHistoryEntry struct {
	ID         string       `json:"id"`
	EditedBy   string       `json:"edited_by"`
	EditedAt   time.Time    `json:"edited_at"`
	SourceID   string       `json:"source_id"`
	EditReason string       `json:"edit_reason"`
	Changes    ChangeSet    `json:"changes,omitempty"`
}

// PayrollRecord - One user's payroll for one billing period
type PayrollRecord struct {
	ID                  string
	UserID              string
	CompanyID           string
	Period              BillingPeriod
	PaymentDate         time.Time
	Attendance          AttendanceAggregate
	Payment             PaymentItems
	Deduction           DeductionItems
	NetPayment          decimal.Decimal
	BaseHourlyRate      decimal.Decimal
	OvertimeHourlyRate  decimal.Decimal
	EffectiveHourlyRate decimal.Decimal
	ZeroWorkHours       bool
	Status              RecordStatus
	EditHistory         []EditHistoryEntry
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// Clone returns a deep copy safe to mutate without touching the original.
func (r PayrollRecord) Clone() PayrollRecord {
	out := r
	if r.EditHistory != nil {
		out.EditHistory = make([]EditHistoryEntry, len(r.EditHistory))
		for i, e := range r.EditHistory {
			entry := e
			if e.Changes != nil {
				entry.Changes = make(ChangeSet, len(e.Changes))
				copy(entry.Changes, e.Changes)
			}
			out.EditHistory[i] = entry
		}
	}
	if r.EmployeeName != nil {
		name := *r.EmployeeName
		out.EmployeeName = &name
	}
	if r.EmployeeCode != nil {
		code := *r.EmployeeCode
		out.EmployeeCode = &code
	}
	return out
}

// ApplyComputation overwrites the record's computed fields with a fresh
// calculator result. Status and history are left alone.
func (r *PayrollRecord) ApplyComputation(c PayrollComputation, agg AttendanceAggregate) {
	r.Attendance = agg
	r.Payment = c.Payment
	r.Deduction = c.Deduction
	r.NetPayment = c.NetPayment
	r.BaseHourlyRate = c.BaseHourlyRate
	r.OvertimeHourlyRate = c.OvertimeHourlyRate
	r.EffectiveHourlyRate = c.EffectiveHourlyRate
	r.ZeroWorkHours = c.ZeroWorkHours
}
