package payroll

import "context"

// PayrollRepository persists payroll records. Implementations must treat
// EditHistory as append-only: Update replaces computed fields and status but
// never rewrites or prunes existing history entries.
type PayrollRepository interface {
	Create(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	GetByID(ctx context.Context, id string, companyID string) (PayrollRecord, error)
	GetByIDs(ctx context.Context, ids []string, companyID string) ([]PayrollRecord, error)
	GetByUserPeriod(ctx context.Context, userID string, period BillingPeriod, companyID string) (PayrollRecord, error)
	List(ctx context.Context, companyID string, filter PayrollFilter) ([]PayrollRecord, int64, error)
	Update(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
}

// CompensationProfileStore resolves a user's fixed pay settings.
type CompensationProfileStore interface {
	Get(ctx context.Context, userID string, companyID string) (CompensationProfile, error)
}

// CompanyRulesStore resolves company-wide payroll configuration.
type CompanyRulesStore interface {
	Get(ctx context.Context, companyID string) (CompanyRules, error)
	Upsert(ctx context.Context, rules CompanyRules) (CompanyRules, error)
}

// AttendanceProvider supplies summed attendance for a user over a billing
// period. Production backs this with the attendances table; tests and
// fixtures provide deterministic data behind the same interface.
type AttendanceProvider interface {
	Get(ctx context.Context, userID string, companyID string, period BillingPeriod) (AttendanceAggregate, error)
}

// UnitOfWork runs fn atomically when the backing store supports
// transactions. Stores without transactional semantics run fn directly and
// rely on the caller's compensating rollback.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}
