package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/database"
)

type compensationProfileStore struct {
	db *database.DB
}

func NewCompensationProfileStore(db *database.DB) payroll.CompensationProfileStore {
	return &compensationProfileStore{db: db}
}

func (s *compensationProfileStore) Get(ctx context.Context, userID string, companyID string) (payroll.CompensationProfile, error) {
	q := GetQuerier(ctx, s.db)

	query := `
		SELECT id, user_id, company_id, base_salary, overtime_multiplier,
			commuting_allowance, housing_allowance, tax_category, rounding,
			created_at, updated_at
		FROM compensation_profiles
		WHERE user_id = $1 AND company_id = $2
	`

	var (
		profile     payroll.CompensationProfile
		taxCategory string
		rounding    string
	)
	err := q.QueryRow(ctx, query, userID, companyID).Scan(
		&profile.ID, &profile.UserID, &profile.CompanyID,
		&profile.BaseSalary, &profile.OvertimeMultiplier,
		&profile.CommutingAllowance, &profile.HousingAllowance,
		&taxCategory, &rounding,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.CompensationProfile{}, payroll.ErrMissingCompensationProfile
		}
		return payroll.CompensationProfile{}, fmt.Errorf("failed to get compensation profile: %w", err)
	}
	profile.TaxCategory = payroll.TaxCategory(taxCategory)
	profile.Rounding = payroll.RoundingPolicy(rounding)

	return profile, nil
}
