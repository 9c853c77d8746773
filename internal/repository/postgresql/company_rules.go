package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/database"
)

type companyRulesStore struct {
	db *database.DB
}

func NewCompanyRulesStore(db *database.DB) payroll.CompanyRulesStore {
	return &companyRulesStore{db: db}
}

const companyRulesColumns = `
	id, company_id, cutoff_day, payment_day,
	health_insurance_rate, employee_pension_rate, employment_insurance_rate, resident_tax_rate,
	commuting_allowance_enabled, housing_allowance_enabled,
	created_at, updated_at
`

func (s *companyRulesStore) Get(ctx context.Context, companyID string) (payroll.CompanyRules, error) {
	q := GetQuerier(ctx, s.db)

	query := `SELECT ` + companyRulesColumns + ` FROM company_payroll_rules WHERE company_id = $1`

	rules, err := scanCompanyRules(q.QueryRow(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.CompanyRules{}, payroll.ErrCompanyRulesNotFound
		}
		return payroll.CompanyRules{}, fmt.Errorf("failed to get company payroll rules: %w", err)
	}

	return rules, nil
}

func (s *companyRulesStore) Upsert(ctx context.Context, rules payroll.CompanyRules) (payroll.CompanyRules, error) {
	q := GetQuerier(ctx, s.db)

	query := `
		INSERT INTO company_payroll_rules (
			id, company_id, cutoff_day, payment_day,
			health_insurance_rate, employee_pension_rate, employment_insurance_rate, resident_tax_rate,
			commuting_allowance_enabled, housing_allowance_enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (company_id) DO UPDATE SET
			cutoff_day = EXCLUDED.cutoff_day,
			payment_day = EXCLUDED.payment_day,
			health_insurance_rate = EXCLUDED.health_insurance_rate,
			employee_pension_rate = EXCLUDED.employee_pension_rate,
			employment_insurance_rate = EXCLUDED.employment_insurance_rate,
			resident_tax_rate = EXCLUDED.resident_tax_rate,
			commuting_allowance_enabled = EXCLUDED.commuting_allowance_enabled,
			housing_allowance_enabled = EXCLUDED.housing_allowance_enabled,
			updated_at = NOW()
		RETURNING ` + companyRulesColumns

	result, err := scanCompanyRules(q.QueryRow(ctx, query,
		rules.ID, rules.CompanyID, rules.CutoffDay, rules.PaymentDay,
		rules.HealthInsuranceRate, rules.EmployeePensionRate,
		rules.EmploymentInsuranceRate, rules.ResidentTaxRate,
		rules.CommutingAllowanceEnabled, rules.HousingAllowanceEnabled,
	))
	if err != nil {
		return payroll.CompanyRules{}, fmt.Errorf("failed to upsert company payroll rules: %w", err)
	}

	return result, nil
}

func scanCompanyRules(row pgx.Row) (payroll.CompanyRules, error) {
	var rules payroll.CompanyRules
	err := row.Scan(
		&rules.ID, &rules.CompanyID, &rules.CutoffDay, &rules.PaymentDay,
		&rules.HealthInsuranceRate, &rules.EmployeePensionRate,
		&rules.EmploymentInsuranceRate, &rules.ResidentTaxRate,
		&rules.CommutingAllowanceEnabled, &rules.HousingAllowanceEnabled,
		&rules.CreatedAt, &rules.UpdatedAt,
	)
	return rules, err
}
