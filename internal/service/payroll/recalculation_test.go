package payroll

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/repository/memory"
)

const testCompanyID = "company-1"

type recalcFixture struct {
	repo       *memory.PayrollRepository
	profiles   *memory.CompensationProfileStore
	attendance *memory.AttendanceProvider
	svc        *RecalculationService
}

func newRecalcFixture() *recalcFixture {
	repo := memory.NewPayrollRepository()
	profiles := memory.NewCompensationProfileStore()
	attendance := memory.NewAttendanceProvider()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &recalcFixture{
		repo:       repo,
		profiles:   profiles,
		attendance: attendance,
		svc:        NewRecalculationService(memory.NewUnitOfWork(), repo, profiles, attendance, NewCalculator(), NewDiffer(), NewHistoryRecorder(), logger),
	}
}

// seedStaleRecord stores a record whose overtime allowance has not been
// recomputed yet: recalculation should land on the calculator's figures.
func (f *recalcFixture) seedStaleRecord(t *testing.T, id, userID string) payroll.PayrollRecord {
	t.Helper()

	record := payroll.PayrollRecord{
		ID:        id,
		UserID:    userID,
		CompanyID: testCompanyID,
		Period: payroll.BillingPeriod{
			Start: date(2024, time.February, 26),
			End:   date(2024, time.March, 25),
		},
		PaymentDate: date(2024, time.April, 10),
		Payment: payroll.PaymentItems{
			BaseSalary:         decimal.NewFromInt(300000),
			CommutingAllowance: decimal.NewFromInt(10000),
			HousingAllowance:   decimal.NewFromInt(20000),
			TotalPayment:       decimal.NewFromInt(330000),
		},
		NetPayment: decimal.NewFromInt(330000),
		Status:     payroll.StatusUnprocessed,
	}
	created, err := f.repo.Create(context.Background(), record)
	require.NoError(t, err)
	return created
}

func (f *recalcFixture) seedEmployee(t *testing.T, id, userID string) payroll.PayrollRecord {
	t.Helper()

	profile := testProfile()
	profile.UserID = userID
	f.profiles.Put(profile)

	agg := testAttendance()
	agg.UserID = userID
	f.attendance.Put(userID, agg)

	return f.seedStaleRecord(t, id, userID)
}

func TestRecalculation_PreviewAndApply(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")
	f.seedEmployee(t, "rec-2", "user-2")

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1", "rec-2"}, testRules())
	require.NoError(t, err)
	require.NotEmpty(t, preview.SessionID)
	require.Len(t, preview.Entries, 2)
	assert.Empty(t, preview.Errors)

	// Entries follow selection order.
	assert.Equal(t, "rec-1", preview.Entries[0].RecordID)
	assert.Equal(t, "rec-2", preview.Entries[1].RecordID)

	// Recomputed net is the calculator's figure; delta against the stale net.
	entry := preview.Entries[0]
	assertDecimal(t, "252638", entry.Recomputed.NetPayment)
	assertDecimal(t, "-77362", entry.NetDelta)
	assertDecimal(t, "-154724", preview.AggregateNetDelta)
	assert.NotEmpty(t, entry.Changes)

	// Committed state untouched until Apply.
	stored, err := f.repo.GetByID(ctx, "rec-1", testCompanyID)
	require.NoError(t, err)
	assertDecimal(t, "330000", stored.NetPayment)
	assert.Empty(t, stored.EditHistory)

	committed, err := f.svc.Apply(ctx, testCompanyID, preview.SessionID, "admin-1")
	require.NoError(t, err)
	require.Len(t, committed, 2)

	stored, err = f.repo.GetByID(ctx, "rec-1", testCompanyID)
	require.NoError(t, err)
	assertDecimal(t, "252638", stored.NetPayment)
	require.Len(t, stored.EditHistory, 1)
	assert.Equal(t, preview.SessionID, stored.EditHistory[0].SourceID)
	assert.Equal(t, "admin-1", stored.EditHistory[0].EditedBy)
	assert.NotEmpty(t, stored.EditHistory[0].EditReason)
	assert.Equal(t, stored.EditHistory[0].Changes, preview.Entries[0].Changes)
}

func TestRecalculation_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")
	f.seedEmployee(t, "rec-2", "user-2")
	// user-3 has a record but no compensation profile.
	f.seedStaleRecord(t, "rec-3", "user-3")

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1", "rec-2", "rec-3"}, testRules())
	require.NoError(t, err)
	require.Len(t, preview.Entries, 2)
	require.Len(t, preview.Errors, 1)
	assert.Equal(t, "rec-3", preview.Errors[0].RecordID)
	assert.ErrorIs(t, preview.Errors[0].Err, payroll.ErrMissingCompensationProfile)

	committed, err := f.svc.Apply(ctx, testCompanyID, preview.SessionID, "admin-1")
	require.NoError(t, err)
	assert.Len(t, committed, 2)

	// The failed record is left exactly as it was.
	stored, err := f.repo.GetByID(ctx, "rec-3", testCompanyID)
	require.NoError(t, err)
	assertDecimal(t, "330000", stored.NetPayment)
	assert.Empty(t, stored.EditHistory)
}

func TestRecalculation_PaidRecordRejected(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	record := f.seedEmployee(t, "rec-1", "user-1")
	record.Status = payroll.StatusPaid
	_, err := f.repo.Update(ctx, record)
	require.NoError(t, err)

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1"}, testRules())
	require.NoError(t, err)
	assert.Empty(t, preview.Entries)
	require.Len(t, preview.Errors, 1)
	assert.ErrorIs(t, preview.Errors[0].Err, payroll.ErrRecordAlreadyPaid)
}

func TestRecalculation_ZeroWorkHoursRejected(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")
	f.attendance.Put("user-1", payroll.AttendanceAggregate{UserID: "user-1"})

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1"}, testRules())
	require.NoError(t, err)
	assert.Empty(t, preview.Entries)
	require.Len(t, preview.Errors, 1)
	assert.ErrorIs(t, preview.Errors[0].Err, payroll.ErrZeroWorkHours)
}

func TestRecalculation_MissingRecord(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1", "rec-missing"}, testRules())
	require.NoError(t, err)
	require.Len(t, preview.Entries, 1)
	require.Len(t, preview.Errors, 1)
	assert.Equal(t, "rec-missing", preview.Errors[0].RecordID)
	assert.ErrorIs(t, preview.Errors[0].Err, payroll.ErrPayrollRecordNotFound)
}

func TestRecalculation_EmptySelection(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()

	_, err := f.svc.Run(ctx, testCompanyID, nil, testRules())
	assert.ErrorIs(t, err, payroll.ErrEmptySelection)

	_, err = f.svc.Run(ctx, testCompanyID, []string{""}, testRules())
	assert.ErrorIs(t, err, payroll.ErrEmptySelection)
}

func TestRecalculation_ConcurrentSessionsRejected(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")
	f.seedEmployee(t, "rec-2", "user-2")
	f.seedEmployee(t, "rec-3", "user-3")

	first, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1", "rec-2"}, testRules())
	require.NoError(t, err)

	// Overlapping selection is rejected outright.
	_, err = f.svc.Run(ctx, testCompanyID, []string{"rec-2", "rec-3"}, testRules())
	assert.ErrorIs(t, err, payroll.ErrConcurrentRecalculation)

	// A disjoint selection runs fine.
	second, err := f.svc.Run(ctx, testCompanyID, []string{"rec-3"}, testRules())
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, testCompanyID, first.SessionID, "admin-1")
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, testCompanyID, second.SessionID, "admin-1")
	require.NoError(t, err)
}

func TestRecalculation_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1"}, testRules())
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, testCompanyID, preview.SessionID))

	// No observable change, no audit entry.
	stored, err := f.repo.GetByID(ctx, "rec-1", testCompanyID)
	require.NoError(t, err)
	assertDecimal(t, "330000", stored.NetPayment)
	assert.Empty(t, stored.EditHistory)

	// Locks are released; a new session can take the record.
	_, err = f.svc.Run(ctx, testCompanyID, []string{"rec-1"}, testRules())
	require.NoError(t, err)
}

func TestRecalculation_StaleSession(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")

	_, err := f.svc.Apply(ctx, testCompanyID, "no-such-session", "admin-1")
	assert.ErrorIs(t, err, payroll.ErrStaleRollbackState)

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1"}, testRules())
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, testCompanyID, preview.SessionID, "admin-1")
	require.NoError(t, err)

	// A committed session cannot be applied or cancelled again.
	_, err = f.svc.Apply(ctx, testCompanyID, preview.SessionID, "admin-1")
	assert.ErrorIs(t, err, payroll.ErrStaleRollbackState)
	assert.ErrorIs(t, f.svc.Cancel(ctx, testCompanyID, preview.SessionID), payroll.ErrStaleRollbackState)
}

func TestRecalculation_WrongCompany(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1"}, testRules())
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, "another-company", preview.SessionID, "admin-1")
	assert.ErrorIs(t, err, payroll.ErrStaleRollbackState)
}

func TestRecalculation_DuplicateIDsCollapse(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")

	preview, err := f.svc.Run(ctx, testCompanyID, []string{"rec-1", "rec-1"}, testRules())
	require.NoError(t, err)
	assert.Len(t, preview.Entries, 1)
}

// gatedAttendance holds the first Get open until the context is cancelled,
// then answers normally. Later calls pass straight through.
type gatedAttendance struct {
	inner   *memory.AttendanceProvider
	started chan struct{}
	once    sync.Once
}

func (p *gatedAttendance) Get(ctx context.Context, userID string, companyID string, period payroll.BillingPeriod) (payroll.AttendanceAggregate, error) {
	var first bool
	p.once.Do(func() { first = true })
	if first {
		close(p.started)
		<-ctx.Done()
	}
	return p.inner.Get(ctx, userID, companyID, period)
}

func TestRecalculation_CancelDuringComputingRollsBack(t *testing.T) {
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")

	gated := &gatedAttendance{inner: f.attendance, started: make(chan struct{})}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewRecalculationService(memory.NewUnitOfWork(), f.repo, f.profiles, gated, NewCalculator(), NewDiffer(), NewHistoryRecorder(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-gated.started
		cancel()
	}()

	// The worker still produces a result after cancellation; the session must
	// resolve to a rollback anyway, never a preview.
	_, err := svc.Run(ctx, testCompanyID, []string{"rec-1"}, testRules())
	require.ErrorIs(t, err, context.Canceled)

	// All locks are released; a fresh session can take the record.
	preview, err := svc.Run(context.Background(), testCompanyID, []string{"rec-1"}, testRules())
	require.NoError(t, err)
	assert.Len(t, preview.Entries, 1)
}

// flakyRepo fails Update for one record id to force a mid-Apply failure.
type flakyRepo struct {
	*memory.PayrollRepository
	failID string
}

func (r *flakyRepo) Update(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	if record.ID == r.failID {
		return payroll.PayrollRecord{}, errors.New("write failed")
	}
	return r.PayrollRepository.Update(ctx, record)
}

func TestRecalculation_ApplyFailureRestoresCommittedRecords(t *testing.T) {
	ctx := context.Background()
	f := newRecalcFixture()
	f.seedEmployee(t, "rec-1", "user-1")
	f.seedEmployee(t, "rec-2", "user-2")

	repo := &flakyRepo{PayrollRepository: f.repo, failID: "rec-2"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewRecalculationService(memory.NewUnitOfWork(), repo, f.profiles, f.attendance, NewCalculator(), NewDiffer(), NewHistoryRecorder(), logger)

	preview, err := svc.Run(ctx, testCompanyID, []string{"rec-1", "rec-2"}, testRules())
	require.NoError(t, err)
	require.Len(t, preview.Entries, 2)

	_, err = svc.Apply(ctx, testCompanyID, preview.SessionID, "admin-1")
	require.Error(t, err)

	// The record committed before the failure is back at its snapshot.
	stored, err := f.repo.GetByID(ctx, "rec-1", testCompanyID)
	require.NoError(t, err)
	assertDecimal(t, "330000", stored.NetPayment)
	assert.Empty(t, stored.EditHistory)

	// The session is retired and its locks are released.
	_, err = svc.Apply(ctx, testCompanyID, preview.SessionID, "admin-1")
	assert.ErrorIs(t, err, payroll.ErrStaleRollbackState)
	_, err = svc.Run(ctx, testCompanyID, []string{"rec-1", "rec-2"}, testRules())
	require.NoError(t, err)
}
