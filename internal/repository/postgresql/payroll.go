package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/database"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const payrollRecordColumns = `
	pr.id, pr.user_id, pr.company_id, pr.period_start, pr.period_end, pr.payment_date,
	pr.attendance, pr.payment_items, pr.deduction_items,
	pr.net_payment, pr.base_hourly_rate, pr.overtime_hourly_rate, pr.effective_hourly_rate,
	pr.zero_work_hours, pr.status, pr.edit_history, pr.created_at, pr.updated_at,
	e.full_name, e.employee_code
`

const payrollRecordFrom = `
	FROM payroll_records pr
	LEFT JOIN employees e ON e.user_id = pr.user_id AND e.company_id = pr.company_id
`

func (r *payrollRepository) Create(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	attendance, paymentItems, deductionItems, editHistory, err := marshalRecordJSON(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	query := `
		INSERT INTO payroll_records (
			id, user_id, company_id, period_start, period_end, payment_date,
			attendance, payment_items, deduction_items,
			net_payment, base_hourly_rate, overtime_hourly_rate, effective_hourly_rate,
			zero_work_hours, status, edit_history
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	var id string
	err = q.QueryRow(ctx, query,
		record.ID, record.UserID, record.CompanyID,
		record.Period.Start, record.Period.End, record.PaymentDate,
		attendance, paymentItems, deductionItems,
		record.NetPayment, record.BaseHourlyRate, record.OvertimeHourlyRate, record.EffectiveHourlyRate,
		record.ZeroWorkHours, string(record.Status), editHistory,
	).Scan(&id)
	if err != nil {
		if strings.Contains(err.Error(), "uk_payroll_record_user_period") {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	return r.GetByID(ctx, id, record.CompanyID)
}

func (r *payrollRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + payrollRecordFrom + `
		WHERE pr.id = $1 AND pr.company_id = $2`

	record, err := scanPayrollRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return record, nil
}

func (r *payrollRepository) GetByIDs(ctx context.Context, ids []string, companyID string) ([]payroll.PayrollRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + payrollRecordFrom + `
		WHERE pr.id = ANY($1) AND pr.company_id = $2`

	rows, err := q.Query(ctx, query, ids, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		record, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *payrollRepository) GetByUserPeriod(ctx context.Context, userID string, period payroll.BillingPeriod, companyID string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + payrollRecordFrom + `
		WHERE pr.user_id = $1 AND pr.period_start = $2 AND pr.period_end = $3 AND pr.company_id = $4`

	record, err := scanPayrollRecord(q.QueryRow(ctx, query, userID, period.Start, period.End, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return record, nil
}

func (r *payrollRepository) List(ctx context.Context, companyID string, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := []string{"pr.company_id = $1"}
	args := []interface{}{companyID}

	if filter.PeriodYear != nil {
		args = append(args, *filter.PeriodYear)
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM pr.period_end) = $%d", len(args)))
	}
	if filter.PeriodMonth != nil {
		args = append(args, *filter.PeriodMonth)
		where = append(where, fmt.Sprintf("EXTRACT(MONTH FROM pr.period_end) = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("pr.status = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("pr.user_id = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var totalCount int64
	countQuery := `SELECT COUNT(*)` + payrollRecordFrom + ` WHERE ` + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := `SELECT ` + payrollRecordColumns + payrollRecordFrom + `
		WHERE ` + whereClause + `
		ORDER BY pr.period_end DESC, e.employee_code ASC
		LIMIT $` + fmt.Sprint(len(args)-1) + ` OFFSET $` + fmt.Sprint(len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		record, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, record)
	}
	return records, totalCount, rows.Err()
}

func (r *payrollRepository) Update(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	attendance, paymentItems, deductionItems, editHistory, err := marshalRecordJSON(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	query := `
		UPDATE payroll_records SET
			attendance = $1, payment_items = $2, deduction_items = $3,
			net_payment = $4, base_hourly_rate = $5, overtime_hourly_rate = $6,
			effective_hourly_rate = $7, zero_work_hours = $8, status = $9,
			edit_history = $10, updated_at = NOW()
		WHERE id = $11 AND company_id = $12
		RETURNING id
	`

	var id string
	err = q.QueryRow(ctx, query,
		attendance, paymentItems, deductionItems,
		record.NetPayment, record.BaseHourlyRate, record.OvertimeHourlyRate,
		record.EffectiveHourlyRate, record.ZeroWorkHours, string(record.Status),
		editHistory, record.ID, record.CompanyID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to update payroll record: %w", err)
	}

	return r.GetByID(ctx, id, record.CompanyID)
}

// ========== HELPERS ==========

func marshalRecordJSON(record payroll.PayrollRecord) (attendance, paymentItems, deductionItems, editHistory []byte, err error) {
	if attendance, err = json.Marshal(record.Attendance); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal attendance: %w", err)
	}
	if paymentItems, err = json.Marshal(record.Payment); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal payment items: %w", err)
	}
	if deductionItems, err = json.Marshal(record.Deduction); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal deduction items: %w", err)
	}
	if record.EditHistory == nil {
		record.EditHistory = []payroll.EditHistoryEntry{}
	}
	if editHistory, err = json.Marshal(record.EditHistory); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal edit history: %w", err)
	}
	return attendance, paymentItems, deductionItems, editHistory, nil
}

func scanPayrollRecord(row pgx.Row) (payroll.PayrollRecord, error) {
	var (
		record         payroll.PayrollRecord
		status         string
		attendance     []byte
		paymentItems   []byte
		deductionItems []byte
		editHistory    []byte
	)

	err := row.Scan(
		&record.ID, &record.UserID, &record.CompanyID,
		&record.Period.Start, &record.Period.End, &record.PaymentDate,
		&attendance, &paymentItems, &deductionItems,
		&record.NetPayment, &record.BaseHourlyRate, &record.OvertimeHourlyRate, &record.EffectiveHourlyRate,
		&record.ZeroWorkHours, &status, &editHistory,
		&record.CreatedAt, &record.UpdatedAt,
		&record.EmployeeName, &record.EmployeeCode,
	)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	record.Status = payroll.RecordStatus(status)

	if err := json.Unmarshal(attendance, &record.Attendance); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to unmarshal attendance: %w", err)
	}
	if err := json.Unmarshal(paymentItems, &record.Payment); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to unmarshal payment items: %w", err)
	}
	if err := json.Unmarshal(deductionItems, &record.Deduction); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to unmarshal deduction items: %w", err)
	}
	if err := json.Unmarshal(editHistory, &record.EditHistory); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to unmarshal edit history: %w", err)
	}

	return record, nil
}
