package employee

import "context"

type EmployeeRepository interface {
	GetByUserID(ctx context.Context, userID string, companyID string) (Employee, error)
	GetActiveByCompanyID(ctx context.Context, companyID string) ([]Employee, error)
}
