package response

import (
	"errors"
	"net/http"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/employee"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Payroll domain errors
	case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrCompanyRulesNotFound):
		NotFound(w, "Company payroll rules not found")
	case errors.Is(err, payroll.ErrMissingCompensationProfile):
		NotFound(w, "Compensation profile not found")
	case errors.Is(err, payroll.ErrPayrollRecordAlreadyExists):
		Conflict(w, "Payroll record already exists for this period")
	case errors.Is(err, payroll.ErrRecordAlreadyPaid):
		Conflict(w, "Payroll record already paid")
	case errors.Is(err, payroll.ErrInvalidStatusTransition):
		Conflict(w, "Invalid payroll status transition")
	case errors.Is(err, payroll.ErrInvalidPeriodConfig):
		BadRequest(w, "Cutoff day must be between 1 and 31", nil)
	case errors.Is(err, payroll.ErrUnknownEditField):
		BadRequest(w, "Field is not editable", nil)

	// Recalculation session errors
	case errors.Is(err, payroll.ErrEmptySelection):
		BadRequest(w, "Recalculation requires at least one record", nil)
	case errors.Is(err, payroll.ErrConcurrentRecalculation):
		Conflict(w, "Another recalculation session holds one of the selected records")
	case errors.Is(err, payroll.ErrStaleRollbackState):
		Conflict(w, "No active recalculation session for this preview")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
