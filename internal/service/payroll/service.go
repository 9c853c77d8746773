package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/employee"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type PayrollServiceImpl struct {
	payrollRepo  payroll.PayrollRepository
	profileStore payroll.CompensationProfileStore
	rulesStore   payroll.CompanyRulesStore
	attendance   payroll.AttendanceProvider
	employeeRepo employee.EmployeeRepository
	resolver     *PeriodResolver
	calculator   *Calculator
	differ       *Differ
	history      *HistoryRecorder
	recalc       *RecalculationService
	logger       *slog.Logger
}

func NewPayrollService(
	uow payroll.UnitOfWork,
	payrollRepo payroll.PayrollRepository,
	profileStore payroll.CompensationProfileStore,
	rulesStore payroll.CompanyRulesStore,
	attendance payroll.AttendanceProvider,
	employeeRepo employee.EmployeeRepository,
	logger *slog.Logger,
) payroll.PayrollService {
	calculator := NewCalculator()
	differ := NewDiffer()
	history := NewHistoryRecorder()
	return &PayrollServiceImpl{
		payrollRepo:  payrollRepo,
		profileStore: profileStore,
		rulesStore:   rulesStore,
		attendance:   attendance,
		employeeRepo: employeeRepo,
		resolver:     NewPeriodResolver(),
		calculator:   calculator,
		differ:       differ,
		history:      history,
		recalc:       NewRecalculationService(uow, payrollRepo, profileStore, attendance, calculator, differ, history, logger),
		logger:       logger,
	}
}

// ========== COMPANY RULES ==========

func (s *PayrollServiceImpl) GetRules(ctx context.Context, companyID string) (payroll.CompanyRulesResponse, error) {
	rules, err := s.companyRules(ctx, companyID)
	if err != nil {
		return payroll.CompanyRulesResponse{}, err
	}
	return mapToRulesResponse(rules), nil
}

func (s *PayrollServiceImpl) UpdateRules(ctx context.Context, companyID string, req payroll.UpdateCompanyRulesRequest) (payroll.CompanyRulesResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.CompanyRulesResponse{}, err
	}

	current, err := s.companyRules(ctx, companyID)
	if err != nil {
		return payroll.CompanyRulesResponse{}, err
	}

	if req.CutoffDay != nil {
		current.CutoffDay = *req.CutoffDay
	}
	if req.PaymentDay != nil {
		current.PaymentDay = *req.PaymentDay
	}
	if req.HealthInsuranceRate != nil {
		current.HealthInsuranceRate = *req.HealthInsuranceRate
	}
	if req.EmployeePensionRate != nil {
		current.EmployeePensionRate = *req.EmployeePensionRate
	}
	if req.EmploymentInsuranceRate != nil {
		current.EmploymentInsuranceRate = *req.EmploymentInsuranceRate
	}
	if req.ResidentTaxRate != nil {
		current.ResidentTaxRate = *req.ResidentTaxRate
	}
	if req.CommutingAllowanceEnabled != nil {
		current.CommutingAllowanceEnabled = *req.CommutingAllowanceEnabled
	}
	if req.HousingAllowanceEnabled != nil {
		current.HousingAllowanceEnabled = *req.HousingAllowanceEnabled
	}
	if current.ID == "" {
		// First write for this company persists the defaults row.
		current.ID = newID()
	}

	updated, err := s.rulesStore.Upsert(ctx, current)
	if err != nil {
		return payroll.CompanyRulesResponse{}, err
	}

	return mapToRulesResponse(updated), nil
}

// companyRules loads the company's rules, falling back to defaults when
// none are configured yet.
func (s *PayrollServiceImpl) companyRules(ctx context.Context, companyID string) (payroll.CompanyRules, error) {
	rules, err := s.rulesStore.Get(ctx, companyID)
	if err != nil {
		if errors.Is(err, payroll.ErrCompanyRulesNotFound) {
			return defaultCompanyRules(companyID), nil
		}
		return payroll.CompanyRules{}, err
	}
	return rules, nil
}

func defaultCompanyRules(companyID string) payroll.CompanyRules {
	return payroll.CompanyRules{
		CompanyID:                 companyID,
		CutoffDay:                 25,
		PaymentDay:                10,
		HealthInsuranceRate:       decimal.Zero,
		EmployeePensionRate:       decimal.Zero,
		EmploymentInsuranceRate:   decimal.Zero,
		ResidentTaxRate:           decimal.Zero,
		CommutingAllowanceEnabled: true,
		HousingAllowanceEnabled:   true,
	}
}

// ========== RECORD GENERATION ==========

func (s *PayrollServiceImpl) GeneratePayroll(ctx context.Context, companyID string, req payroll.GeneratePayrollRequest) ([]payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rules, err := s.companyRules(ctx, companyID)
	if err != nil {
		return nil, err
	}

	period, err := s.resolver.ResolvePeriod(rules.CutoffDay, req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	paymentDate, err := s.resolver.PaymentDate(period, rules.PaymentDay)
	if err != nil {
		return nil, err
	}

	employees, err := s.employeeRepo.GetActiveByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	if len(req.UserIDs) > 0 {
		wanted := make(map[string]bool, len(req.UserIDs))
		for _, id := range req.UserIDs {
			wanted[id] = true
		}
		filtered := employees[:0]
		for _, emp := range employees {
			if wanted[emp.UserID] {
				filtered = append(filtered, emp)
			}
		}
		employees = filtered
	}

	var records []payroll.PayrollRecord
	for _, emp := range employees {
		// One record per user per billing period
		_, err := s.payrollRepo.GetByUserPeriod(ctx, emp.UserID, period, companyID)
		if err == nil {
			continue
		}
		if !errors.Is(err, payroll.ErrPayrollRecordNotFound) {
			return nil, fmt.Errorf("failed to check existing payroll record: %w", err)
		}

		profile, err := s.profileStore.Get(ctx, emp.UserID, companyID)
		if err != nil {
			if errors.Is(err, payroll.ErrMissingCompensationProfile) {
				continue
			}
			return nil, err
		}

		agg, err := s.attendance.Get(ctx, emp.UserID, companyID, period)
		if err != nil {
			return nil, fmt.Errorf("failed to get attendance for user %s: %w", emp.UserID, err)
		}

		comp, err := s.calculator.Calculate(profile, agg, rules)
		if err != nil {
			return nil, err
		}

		record := payroll.PayrollRecord{
			ID:          newID(),
			UserID:      emp.UserID,
			CompanyID:   companyID,
			Period:      period,
			PaymentDate: paymentDate,
			Status:      payroll.StatusUnprocessed,
		}
		record.ApplyComputation(comp, agg)

		created, err := s.payrollRepo.Create(ctx, record)
		if err != nil {
			if errors.Is(err, payroll.ErrPayrollRecordAlreadyExists) {
				continue
			}
			return nil, fmt.Errorf("failed to create payroll record for user %s: %w", emp.UserID, err)
		}
		records = append(records, created)
	}

	return mapToRecordResponses(records), nil
}

// ========== RECORD READS ==========

func (s *PayrollServiceImpl) GetRecord(ctx context.Context, id string, companyID string) (payroll.PayrollRecordResponse, error) {
	record, err := s.payrollRepo.GetByID(ctx, id, companyID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return mapToRecordResponse(record), nil
}

func (s *PayrollServiceImpl) ListRecords(ctx context.Context, companyID string, filter payroll.PayrollFilter) (payroll.ListPayrollRecordResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	records, totalCount, err := s.payrollRepo.List(ctx, companyID, filter)
	if err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	return payroll.ListPayrollRecordResponse{
		Data:       mapToRecordResponses(records),
		TotalCount: totalCount,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) GetEditHistory(ctx context.Context, id string, companyID string) ([]payroll.EditHistoryResponse, error) {
	record, err := s.payrollRepo.GetByID(ctx, id, companyID)
	if err != nil {
		return nil, err
	}

	result := make([]payroll.EditHistoryResponse, 0, len(record.EditHistory))
	for _, e := range record.EditHistory {
		result = append(result, payroll.EditHistoryResponse{
			ID:         e.ID,
			EditedBy:   e.EditedBy,
			EditedAt:   e.EditedAt.Format(time.RFC3339),
			SourceID:   e.SourceID,
			EditReason: e.EditReason,
			Changes:    e.Changes,
		})
	}
	return result, nil
}

// ========== MANUAL EDIT ==========

func (s *PayrollServiceImpl) EditRecordField(ctx context.Context, companyID string, req payroll.EditRecordFieldRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	record, err := s.payrollRepo.GetByID(ctx, req.RecordID, companyID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	if record.Status == payroll.StatusPaid {
		return payroll.PayrollRecordResponse{}, payroll.ErrRecordAlreadyPaid
	}

	edited := record.Clone()
	if err := applyManualEdit(&edited, req.Field, req.Value); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	change, ok := fieldChangeFor(req.Field, &record, &edited)
	if !ok {
		return payroll.PayrollRecordResponse{}, payroll.ErrUnknownEditField
	}
	if change.From == change.To {
		// Value unchanged, nothing to commit or audit.
		return mapToRecordResponse(record), nil
	}

	s.history.RecordManualEdit(&edited, req.EditedBy, req.Reason, payroll.ChangeSet{change})

	updated, err := s.payrollRepo.Update(ctx, edited)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return mapToRecordResponse(updated), nil
}

// applyManualEdit sets one editable field and recomputes the dependent
// totals so net_payment = total_payment - total_deduction always holds.
func applyManualEdit(r *payroll.PayrollRecord, field string, value decimal.Decimal) error {
	switch field {
	case "base_salary":
		r.Payment.BaseSalary = value
	case "overtime_allowance":
		r.Payment.OvertimeAllowance = value
	case "commuting_allowance":
		r.Payment.CommutingAllowance = value
	case "housing_allowance":
		r.Payment.HousingAllowance = value
	case "health_insurance":
		r.Deduction.HealthInsurance = value
	case "employee_pension":
		r.Deduction.EmployeePension = value
	case "employment_insurance":
		r.Deduction.EmploymentInsurance = value
	case "income_tax":
		r.Deduction.IncomeTax = value
	case "resident_tax":
		r.Deduction.ResidentTax = value
	default:
		return payroll.ErrUnknownEditField
	}

	r.Payment.TotalPayment = r.Payment.BaseSalary.
		Add(r.Payment.OvertimeAllowance).
		Add(r.Payment.CommutingAllowance).
		Add(r.Payment.HousingAllowance)
	r.Deduction.TotalDeduction = r.Deduction.HealthInsurance.
		Add(r.Deduction.EmployeePension).
		Add(r.Deduction.EmploymentInsurance).
		Add(r.Deduction.IncomeTax).
		Add(r.Deduction.ResidentTax)
	r.NetPayment = r.Payment.TotalPayment.Sub(r.Deduction.TotalDeduction)
	return nil
}

// ========== STATUS ==========

func (s *PayrollServiceImpl) UpdateStatus(ctx context.Context, companyID string, req payroll.UpdateStatusRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	record, err := s.payrollRepo.GetByID(ctx, req.RecordID, companyID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	next := payroll.RecordStatus(req.Status)
	if !record.Status.CanTransitionTo(next) {
		return payroll.PayrollRecordResponse{}, payroll.ErrInvalidStatusTransition
	}

	edited := record.Clone()
	edited.Status = next

	change, _ := fieldChangeFor("status", &record, &edited)
	s.history.RecordManualEdit(&edited, req.EditedBy, "ステータス変更", payroll.ChangeSet{change})

	updated, err := s.payrollRepo.Update(ctx, edited)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return mapToRecordResponse(updated), nil
}

// ========== RECALCULATION ==========

func (s *PayrollServiceImpl) RunRecalculation(ctx context.Context, companyID string, req payroll.RecalculationRequest) (payroll.RecalculationPreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RecalculationPreviewResponse{}, err
	}

	rules, err := s.companyRules(ctx, companyID)
	if err != nil {
		return payroll.RecalculationPreviewResponse{}, err
	}

	preview, err := s.recalc.Run(ctx, companyID, req.RecordIDs, rules)
	if err != nil {
		return payroll.RecalculationPreviewResponse{}, err
	}

	return mapToPreviewResponse(preview), nil
}

func (s *PayrollServiceImpl) ApplyRecalculation(ctx context.Context, companyID string, req payroll.ApplyRecalculationRequest) ([]payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	committed, err := s.recalc.Apply(ctx, companyID, req.SessionID, req.EditedBy)
	if err != nil {
		return nil, err
	}
	return mapToRecordResponses(committed), nil
}

func (s *PayrollServiceImpl) CancelRecalculation(ctx context.Context, companyID string, req payroll.CancelRecalculationRequest) error {
	return s.recalc.Cancel(ctx, companyID, req.SessionID)
}

// ========== HELPERS ==========

func mapToRulesResponse(r payroll.CompanyRules) payroll.CompanyRulesResponse {
	return payroll.CompanyRulesResponse{
		ID:                        r.ID,
		CompanyID:                 r.CompanyID,
		CutoffDay:                 r.CutoffDay,
		PaymentDay:                r.PaymentDay,
		HealthInsuranceRate:       r.HealthInsuranceRate,
		EmployeePensionRate:       r.EmployeePensionRate,
		EmploymentInsuranceRate:   r.EmploymentInsuranceRate,
		ResidentTaxRate:           r.ResidentTaxRate,
		CommutingAllowanceEnabled: r.CommutingAllowanceEnabled,
		HousingAllowanceEnabled:   r.HousingAllowanceEnabled,
	}
}

func mapToRecordResponse(r payroll.PayrollRecord) payroll.PayrollRecordResponse {
	employeeName := ""
	employeeCode := ""
	if r.EmployeeName != nil {
		employeeName = *r.EmployeeName
	}
	if r.EmployeeCode != nil {
		employeeCode = *r.EmployeeCode
	}

	return payroll.PayrollRecordResponse{
		ID:           r.ID,
		UserID:       r.UserID,
		EmployeeName: employeeName,
		EmployeeCode: employeeCode,
		PeriodStart:  r.Period.Start.Format("2006-01-02"),
		PeriodEnd:    r.Period.End.Format("2006-01-02"),
		PaymentDate:  r.PaymentDate.Format("2006-01-02"),
		Attendance: payroll.AttendanceResponse{
			NormalMinutes:   r.Attendance.NormalMinutes,
			OvertimeMinutes: r.Attendance.OvertimeMinutes,
			HolidayMinutes:  r.Attendance.HolidayMinutes,
			WorkingDays:     r.Attendance.WorkingDays,
		},
		Payment: payroll.PaymentItemsResponse{
			BaseSalary:         r.Payment.BaseSalary,
			OvertimeAllowance:  r.Payment.OvertimeAllowance,
			CommutingAllowance: r.Payment.CommutingAllowance,
			HousingAllowance:   r.Payment.HousingAllowance,
			TotalPayment:       r.Payment.TotalPayment,
		},
		Deduction: payroll.DeductionItemsResponse{
			HealthInsurance:     r.Deduction.HealthInsurance,
			EmployeePension:     r.Deduction.EmployeePension,
			EmploymentInsurance: r.Deduction.EmploymentInsurance,
			IncomeTax:           r.Deduction.IncomeTax,
			ResidentTax:         r.Deduction.ResidentTax,
			TotalDeduction:      r.Deduction.TotalDeduction,
		},
		NetPayment:          r.NetPayment,
		BaseHourlyRate:      r.BaseHourlyRate,
		OvertimeHourlyRate:  r.OvertimeHourlyRate,
		EffectiveHourlyRate: r.EffectiveHourlyRate,
		ZeroWorkHours:       r.ZeroWorkHours,
		Status:              string(r.Status),
	}
}

func mapToRecordResponses(records []payroll.PayrollRecord) []payroll.PayrollRecordResponse {
	result := make([]payroll.PayrollRecordResponse, 0, len(records))
	for _, r := range records {
		result = append(result, mapToRecordResponse(r))
	}
	return result
}

func mapToPreviewResponse(p *RecalculationPreview) payroll.RecalculationPreviewResponse {
	resp := payroll.RecalculationPreviewResponse{
		SessionID:         p.SessionID,
		AggregateNetDelta: p.AggregateNetDelta,
	}
	for _, e := range p.Entries {
		employeeName := ""
		if e.Original.EmployeeName != nil {
			employeeName = *e.Original.EmployeeName
		}
		resp.Records = append(resp.Records, payroll.RecordPreviewResponse{
			RecordID:     e.RecordID,
			UserID:       e.Original.UserID,
			EmployeeName: employeeName,
			Changes:      e.Changes,
			NetBefore:    e.Original.NetPayment,
			NetAfter:     e.Recomputed.NetPayment,
			NetDelta:     e.NetDelta,
		})
	}
	for _, e := range p.Errors {
		resp.Errors = append(resp.Errors, payroll.RecordErrorResponse{
			RecordID: e.RecordID,
			Message:  e.Err.Error(),
		})
	}
	return resp
}
