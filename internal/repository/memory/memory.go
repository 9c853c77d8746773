// Package memory provides map-backed implementations of the payroll stores.
// They back the test suites and the local fixture mode; behavior mirrors the
// postgresql package, including sentinel errors and deep-copy semantics.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/employee"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
)

// ========== UNIT OF WORK ==========

// UnitOfWork satisfies payroll.UnitOfWork without transactional backing:
// fn runs directly and partial failures fall to the caller's compensation.
type UnitOfWork struct{}

func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{}
}

func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ========== PAYROLL RECORDS ==========

type PayrollRepository struct {
	mu      sync.RWMutex
	records map[string]payroll.PayrollRecord
}

func NewPayrollRepository() *PayrollRepository {
	return &PayrollRepository{records: make(map[string]payroll.PayrollRecord)}
}

func (r *PayrollRepository) Create(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.records {
		if existing.UserID == record.UserID &&
			existing.CompanyID == record.CompanyID &&
			existing.Period.Start.Equal(record.Period.Start) &&
			existing.Period.End.Equal(record.Period.End) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
		}
	}
	r.records[record.ID] = record.Clone()
	return record.Clone(), nil
}

func (r *PayrollRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok || record.CompanyID != companyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return record.Clone(), nil
}

func (r *PayrollRepository) GetByIDs(ctx context.Context, ids []string, companyID string) ([]payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []payroll.PayrollRecord
	for _, id := range ids {
		if record, ok := r.records[id]; ok && record.CompanyID == companyID {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

func (r *PayrollRepository) GetByUserPeriod(ctx context.Context, userID string, period payroll.BillingPeriod, companyID string) (payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.records {
		if record.UserID == userID &&
			record.CompanyID == companyID &&
			record.Period.Start.Equal(period.Start) &&
			record.Period.End.Equal(period.End) {
			return record.Clone(), nil
		}
	}
	return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
}

func (r *PayrollRepository) List(ctx context.Context, companyID string, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []payroll.PayrollRecord
	for _, record := range r.records {
		if record.CompanyID != companyID {
			continue
		}
		if filter.PeriodYear != nil && record.Period.End.Year() != *filter.PeriodYear {
			continue
		}
		if filter.PeriodMonth != nil && int(record.Period.End.Month()) != *filter.PeriodMonth {
			continue
		}
		if filter.Status != nil && string(record.Status) != *filter.Status {
			continue
		}
		if filter.UserID != nil && record.UserID != *filter.UserID {
			continue
		}
		matched = append(matched, record.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Period.End.Equal(matched[j].Period.End) {
			return matched[i].Period.End.After(matched[j].Period.End)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *PayrollRepository) Update(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[record.ID]
	if !ok || existing.CompanyID != record.CompanyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	record.CreatedAt = existing.CreatedAt
	r.records[record.ID] = record.Clone()
	return record.Clone(), nil
}

// ========== COMPENSATION PROFILES ==========

type CompensationProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]payroll.CompensationProfile // keyed by user id
}

func NewCompensationProfileStore() *CompensationProfileStore {
	return &CompensationProfileStore{profiles: make(map[string]payroll.CompensationProfile)}
}

func (s *CompensationProfileStore) Put(profile payroll.CompensationProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
}

func (s *CompensationProfileStore) Get(ctx context.Context, userID string, companyID string) (payroll.CompensationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok || profile.CompanyID != companyID {
		return payroll.CompensationProfile{}, payroll.ErrMissingCompensationProfile
	}
	return profile, nil
}

// ========== COMPANY RULES ==========

type CompanyRulesStore struct {
	mu    sync.RWMutex
	rules map[string]payroll.CompanyRules // keyed by company id
}

func NewCompanyRulesStore() *CompanyRulesStore {
	return &CompanyRulesStore{rules: make(map[string]payroll.CompanyRules)}
}

func (s *CompanyRulesStore) Get(ctx context.Context, companyID string) (payroll.CompanyRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, ok := s.rules[companyID]
	if !ok {
		return payroll.CompanyRules{}, payroll.ErrCompanyRulesNotFound
	}
	return rules, nil
}

func (s *CompanyRulesStore) Upsert(ctx context.Context, rules payroll.CompanyRules) (payroll.CompanyRules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[rules.CompanyID] = rules
	return rules, nil
}

// ========== ATTENDANCE ==========

type AttendanceProvider struct {
	mu         sync.RWMutex
	aggregates map[string]payroll.AttendanceAggregate // keyed by user id
}

func NewAttendanceProvider() *AttendanceProvider {
	return &AttendanceProvider{aggregates: make(map[string]payroll.AttendanceAggregate)}
}

func (p *AttendanceProvider) Put(userID string, agg payroll.AttendanceAggregate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aggregates[userID] = agg
}

func (p *AttendanceProvider) Get(ctx context.Context, userID string, companyID string, period payroll.BillingPeriod) (payroll.AttendanceAggregate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	agg, ok := p.aggregates[userID]
	if !ok {
		return payroll.AttendanceAggregate{UserID: userID}, nil
	}
	return agg, nil
}

// ========== EMPLOYEES ==========

type EmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee // keyed by user id
}

func NewEmployeeRepository() *EmployeeRepository {
	return &EmployeeRepository{employees: make(map[string]employee.Employee)}
}

func (r *EmployeeRepository) Put(e employee.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[e.UserID] = e
}

func (r *EmployeeRepository) GetByUserID(ctx context.Context, userID string, companyID string) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.employees[userID]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *EmployeeRepository) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID == companyID && e.EmploymentStatus == "active" {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out, nil
}
