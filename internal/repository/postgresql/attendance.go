package postgresql

import (
	"context"
	"fmt"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/database"
)

type attendanceProvider struct {
	db *database.DB
}

func NewAttendanceProvider(db *database.DB) payroll.AttendanceProvider {
	return &attendanceProvider{db: db}
}

// Get sums attendance rows for the billing period. A user with no rows in
// the window gets an all-zero aggregate, not an error.
func (p *attendanceProvider) Get(ctx context.Context, userID string, companyID string, period payroll.BillingPeriod) (payroll.AttendanceAggregate, error) {
	q := GetQuerier(ctx, p.db)

	query := `
		SELECT
			COALESCE(SUM(normal_minutes), 0),
			COALESCE(SUM(overtime_minutes), 0),
			COALESCE(SUM(holiday_minutes), 0),
			COUNT(*) FILTER (WHERE normal_minutes + overtime_minutes + holiday_minutes > 0)
		FROM attendances
		WHERE user_id = $1 AND company_id = $2
			AND work_date >= $3 AND work_date <= $4
	`

	agg := payroll.AttendanceAggregate{UserID: userID}
	err := q.QueryRow(ctx, query, userID, companyID, period.Start, period.End).Scan(
		&agg.NormalMinutes, &agg.OvertimeMinutes, &agg.HolidayMinutes, &agg.WorkingDays,
	)
	if err != nil {
		return payroll.AttendanceAggregate{}, fmt.Errorf("failed to aggregate attendance: %w", err)
	}

	return agg, nil
}
