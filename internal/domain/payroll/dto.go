package payroll

import (
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== COMPANY RULES DTOs ==========

type CompanyRulesResponse struct {
	ID                        string          `json:"id"`
	CompanyID                 string          `json:"company_id"`
	CutoffDay                 int             `json:"cutoff_day"`
	PaymentDay                int             `json:"payment_day"`
	HealthInsuranceRate       decimal.Decimal `json:"health_insurance_rate"`
	EmployeePensionRate       decimal.Decimal `json:"employee_pension_rate"`
	EmploymentInsuranceRate   decimal.Decimal `json:"employment_insurance_rate"`
	ResidentTaxRate           decimal.Decimal `json:"resident_tax_rate"`
	CommutingAllowanceEnabled bool            `json:"commuting_allowance_enabled"`
	HousingAllowanceEnabled   bool            `json:"housing_allowance_enabled"`
}

type UpdateCompanyRulesRequest struct {
	CutoffDay                 *int             `json:"cutoff_day,omitempty"`
	PaymentDay                *int             `json:"payment_day,omitempty"`
	HealthInsuranceRate       *decimal.Decimal `json:"health_insurance_rate,omitempty"`
	EmployeePensionRate       *decimal.Decimal `json:"employee_pension_rate,omitempty"`
	EmploymentInsuranceRate   *decimal.Decimal `json:"employment_insurance_rate,omitempty"`
	ResidentTaxRate           *decimal.Decimal `json:"resident_tax_rate,omitempty"`
	CommutingAllowanceEnabled *bool            `json:"commuting_allowance_enabled,omitempty"`
	HousingAllowanceEnabled   *bool            `json:"housing_allowance_enabled,omitempty"`
}

func (r *UpdateCompanyRulesRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.CutoffDay != nil && (*r.CutoffDay < 1 || *r.CutoffDay > 31) {
		errs = append(errs, validator.ValidationError{Field: "cutoff_day", Message: "must be between 1 and 31"})
	}
	if r.PaymentDay != nil && (*r.PaymentDay < 1 || *r.PaymentDay > 31) {
		errs = append(errs, validator.ValidationError{Field: "payment_day", Message: "must be between 1 and 31"})
	}
	if r.HealthInsuranceRate != nil && r.HealthInsuranceRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "health_insurance_rate", Message: "must be non-negative"})
	}
	if r.EmployeePensionRate != nil && r.EmployeePensionRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "employee_pension_rate", Message: "must be non-negative"})
	}
	if r.EmploymentInsuranceRate != nil && r.EmploymentInsuranceRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "employment_insurance_rate", Message: "must be non-negative"})
	}
	if r.ResidentTaxRate != nil && r.ResidentTaxRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "resident_tax_rate", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RECORD DTOs ==========

type GeneratePayrollRequest struct {
	Year    int      `json:"year"`
	Month   int      `json:"month"`
	UserIDs []string `json:"user_ids,omitempty"` // Empty = all active employees
}

func (r *GeneratePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2020 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be 2020 or later"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PaymentItemsResponse struct {
	BaseSalary         decimal.Decimal `json:"base_salary"`
	OvertimeAllowance  decimal.Decimal `json:"overtime_allowance"`
	CommutingAllowance decimal.Decimal `json:"commuting_allowance"`
	HousingAllowance   decimal.Decimal `json:"housing_allowance"`
	TotalPayment       decimal.Decimal `json:"total_payment"`
}

type DeductionItemsResponse struct {
	HealthInsurance     decimal.Decimal `json:"health_insurance"`
	EmployeePension     decimal.Decimal `json:"employee_pension"`
	EmploymentInsurance decimal.Decimal `json:"employment_insurance"`
	IncomeTax           decimal.Decimal `json:"income_tax"`
	ResidentTax         decimal.Decimal `json:"resident_tax"`
	TotalDeduction      decimal.Decimal `json:"total_deduction"`
}

type AttendanceResponse struct {
	NormalMinutes   int `json:"normal_minutes"`
	OvertimeMinutes int `json:"overtime_minutes"`
	HolidayMinutes  int `json:"holiday_minutes"`
	WorkingDays     int `json:"working_days"`
}

type PayrollRecordResponse struct {
	ID                  string                 `json:"id"`
	UserID              string                 `json:"user_id"`
	EmployeeName        string                 `json:"employee_name"`
	EmployeeCode        string                 `json:"employee_code"`
	PeriodStart         string                 `json:"period_start"`
	PeriodEnd           string                 `json:"period_end"`
	PaymentDate         string                 `json:"payment_date"`
	Attendance          AttendanceResponse     `json:"attendance"`
	Payment             PaymentItemsResponse   `json:"payment_items"`
	Deduction           DeductionItemsResponse `json:"deduction_items"`
	NetPayment          decimal.Decimal        `json:"net_payment"`
	BaseHourlyRate      decimal.Decimal        `json:"base_hourly_rate"`
	OvertimeHourlyRate  decimal.Decimal        `json:"overtime_hourly_rate"`
	EffectiveHourlyRate decimal.Decimal        `json:"effective_hourly_rate"`
	ZeroWorkHours       bool                   `json:"zero_work_hours,omitempty"`
	Status              string                 `json:"status"`
}

type PayrollFilter struct {
	PeriodYear  *int    `json:"period_year,omitempty"`
	PeriodMonth *int    `json:"period_month,omitempty"`
	Status      *string `json:"status,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
}

type ListPayrollRecordResponse struct {
	Data       []PayrollRecordResponse `json:"data"`
	TotalCount int64                   `json:"total_count"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
}

type EditHistoryResponse struct {
	ID         string    `json:"id"`
	EditedBy   string    `json:"edited_by"`
	EditedAt   string    `json:"edited_at"`
	SourceID   string    `json:"source_id,omitempty"`
	EditReason string    `json:"edit_reason"`
	Changes    ChangeSet `json:"changes,omitempty"`
}

type EditRecordFieldRequest struct {
	RecordID string          `json:"-"`
	Field    string          `json:"field"`
	Value    decimal.Decimal `json:"value"`
	Reason   string          `json:"reason"`
	EditedBy string          `json:"edited_by"`
}

func (r *EditRecordFieldRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.RecordID) {
		errs = append(errs, validator.ValidationError{Field: "record_id", Message: "is not a valid uuid"})
	}
	if validator.IsEmpty(r.Field) {
		errs = append(errs, validator.ValidationError{Field: "field", Message: "is required"})
	}
	if r.Value.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "value", Message: "must be non-negative"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}
	if validator.IsEmpty(r.EditedBy) {
		errs = append(errs, validator.ValidationError{Field: "edited_by", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateStatusRequest struct {
	RecordID string `json:"-"`
	Status   string `json:"status"`
	EditedBy string `json:"edited_by"`
}

func (r *UpdateStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.RecordID) {
		errs = append(errs, validator.ValidationError{Field: "record_id", Message: "is not a valid uuid"})
	}
	statuses := []string{
		string(StatusUnprocessed),
		string(StatusPendingApproval),
		string(StatusApproved),
		string(StatusPaid),
	}
	if !validator.IsInSlice(r.Status, statuses) {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "is not a valid payroll status"})
	}
	if validator.IsEmpty(r.EditedBy) {
		errs = append(errs, validator.ValidationError{Field: "edited_by", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RECALCULATION DTOs ==========

type RecalculationRequest struct {
	RecordIDs   []string `json:"record_ids"`
	RequestedBy string   `json:"requested_by"`
}

func (r *RecalculationRequest) Validate() error {
	var errs validator.ValidationErrors

	for _, id := range r.RecordIDs {
		if !validator.IsValidUUID(id) {
			errs = append(errs, validator.ValidationError{Field: "record_ids", Message: "contains an invalid uuid"})
			break
		}
	}
	if validator.IsEmpty(r.RequestedBy) {
		errs = append(errs, validator.ValidationError{Field: "requested_by", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ApplyRecalculationRequest struct {
	SessionID string `json:"-"`
	EditedBy  string `json:"edited_by"`
}

func (r *ApplyRecalculationRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.SessionID) {
		errs = append(errs, validator.ValidationError{Field: "session_id", Message: "is not a valid uuid"})
	}
	if validator.IsEmpty(r.EditedBy) {
		errs = append(errs, validator.ValidationError{Field: "edited_by", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CancelRecalculationRequest struct {
	SessionID string `json:"-"`
}

type RecordPreviewResponse struct {
	RecordID     string          `json:"record_id"`
	UserID       string          `json:"user_id"`
	EmployeeName string          `json:"employee_name,omitempty"`
	Changes      ChangeSet       `json:"changes"`
	NetBefore    decimal.Decimal `json:"net_before"`
	NetAfter     decimal.Decimal `json:"net_after"`
	NetDelta     decimal.Decimal `json:"net_delta"`
}

type RecordErrorResponse struct {
	RecordID string `json:"record_id"`
	Message  string `json:"message"`
}

type RecalculationPreviewResponse struct {
	SessionID         string                  `json:"session_id"`
	Records           []RecordPreviewResponse `json:"records"`
	Errors            []RecordErrorResponse   `json:"errors,omitempty"`
	AggregateNetDelta decimal.Decimal         `json:"aggregate_net_delta"`
}
