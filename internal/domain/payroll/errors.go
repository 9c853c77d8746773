package payroll

import "errors"

var (
	ErrInvalidPeriodConfig        = errors.New("cutoff day must be between 1 and 31")
	ErrMissingCompensationProfile = errors.New("compensation profile not found for user")
	ErrZeroWorkHours              = errors.New("total work hours is zero, effective hourly rate unavailable")
	ErrCompanyRulesNotFound       = errors.New("company payroll rules not found")
	ErrPayrollRecordNotFound      = errors.New("payroll record not found")
	ErrPayrollRecordAlreadyExists = errors.New("payroll record already exists for this period")
	ErrRecordAlreadyPaid          = errors.New("payroll record already paid, cannot modify")
	ErrInvalidStatusTransition    = errors.New("invalid payroll status transition")
	ErrUnknownEditField           = errors.New("field is not editable")

	// Recalculation session errors
	ErrEmptySelection          = errors.New("recalculation requires at least one record")
	ErrConcurrentRecalculation = errors.New("another recalculation session holds one of the selected records")
	ErrStaleRollbackState      = errors.New("no active recalculation session for this preview")
)
