package payroll

import "context"

// PayrollService is the application-facing surface consumed by the HTTP
// handlers. Company and editor identity are explicit parameters, never
// ambient state.
type PayrollService interface {
	// Company rules
	GetRules(ctx context.Context, companyID string) (CompanyRulesResponse, error)
	UpdateRules(ctx context.Context, companyID string, req UpdateCompanyRulesRequest) (CompanyRulesResponse, error)

	// Records
	GeneratePayroll(ctx context.Context, companyID string, req GeneratePayrollRequest) ([]PayrollRecordResponse, error)
	GetRecord(ctx context.Context, id string, companyID string) (PayrollRecordResponse, error)
	ListRecords(ctx context.Context, companyID string, filter PayrollFilter) (ListPayrollRecordResponse, error)
	GetEditHistory(ctx context.Context, id string, companyID string) ([]EditHistoryResponse, error)
	EditRecordField(ctx context.Context, companyID string, req EditRecordFieldRequest) (PayrollRecordResponse, error)
	UpdateStatus(ctx context.Context, companyID string, req UpdateStatusRequest) (PayrollRecordResponse, error)

	// Batch recalculation
	RunRecalculation(ctx context.Context, companyID string, req RecalculationRequest) (RecalculationPreviewResponse, error)
	ApplyRecalculation(ctx context.Context, companyID string, req ApplyRecalculationRequest) ([]PayrollRecordResponse, error)
	CancelRecalculation(ctx context.Context, companyID string, req CancelRecalculationRequest) error
}
