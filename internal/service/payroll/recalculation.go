package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SessionState tracks where a recalculation session is in its lifecycle.
type SessionState string

const (
	StateSelecting  SessionState = "selecting"
	StateComputing  SessionState = "computing"
	StatePreviewing SessionState = "previewing"
	StateApplying   SessionState = "applying"
	StateCommitted  SessionState = "committed"
	StateCancelling SessionState = "cancelling"
	StateRolledBack SessionState = "rolled_back"
)

// PreviewEntry is one successfully recomputed record in a preview.
type PreviewEntry struct {
	RecordID   string
	Original   payroll.PayrollRecord
	Recomputed payroll.PayrollRecord
	Changes    payroll.ChangeSet
	NetDelta   decimal.Decimal
}

// PreviewError is one record that failed to recompute. The failure never
// aborts sibling records.
type PreviewError struct {
	RecordID string
	Err      error
}

// RecalculationPreview is the speculative result of a batch recalculation.
// Nothing observable changes until the preview is explicitly applied.
type RecalculationPreview struct {
	SessionID         string
	CompanyID         string
	Entries           []PreviewEntry
	Errors            []PreviewError
	AggregateNetDelta decimal.Decimal
}

type recalcSession struct {
	id         string
	companyID  string
	state      SessionState
	ids        []string
	rollback   map[string]payroll.PayrollRecord
	recomputed map[string]payroll.PayrollRecord
	preview    *RecalculationPreview
}

// RecalculationService runs the batch preview → apply/rollback workflow.
// Each record in a session is held under an exclusive lock; overlapping
// sessions are rejected rather than interleaved.
type RecalculationService struct {
	uow        payroll.UnitOfWork
	records    payroll.PayrollRepository
	profiles   payroll.CompensationProfileStore
	attendance payroll.AttendanceProvider
	calculator *Calculator
	differ     *Differ
	history    *HistoryRecorder
	logger     *slog.Logger

	mu       sync.Mutex
	locks    map[string]string // record id -> owning session id
	sessions map[string]*recalcSession
}

func NewRecalculationService(
	uow payroll.UnitOfWork,
	records payroll.PayrollRepository,
	profiles payroll.CompensationProfileStore,
	attendance payroll.AttendanceProvider,
	calculator *Calculator,
	differ *Differ,
	history *HistoryRecorder,
	logger *slog.Logger,
) *RecalculationService {
	return &RecalculationService{
		uow:        uow,
		records:    records,
		profiles:   profiles,
		attendance: attendance,
		calculator: calculator,
		differ:     differ,
		history:    history,
		logger:     logger,
		locks:      make(map[string]string),
		sessions:   make(map[string]*recalcSession),
	}
}

// Run recomputes the selected records speculatively and returns a preview.
// Committed state is untouched until Apply. Per-record failures (missing
// profile, zero work hours, already paid) land in the preview's error list;
// session-level failures roll the whole session back.
func (s *RecalculationService) Run(ctx context.Context, companyID string, ids []string, rules payroll.CompanyRules) (*RecalculationPreview, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, payroll.ErrEmptySelection
	}

	sess, err := s.acquire(companyID, ids)
	if err != nil {
		return nil, err
	}

	recs, err := s.records.GetByIDs(ctx, ids, companyID)
	if err != nil {
		s.release(sess, StateRolledBack)
		return nil, fmt.Errorf("failed to load records for recalculation: %w", err)
	}
	byID := make(map[string]payroll.PayrollRecord, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
		sess.rollback[r.ID] = r.Clone()
	}
	sess.state = StateComputing

	var (
		resMu      sync.Mutex
		recErrs    = make(map[string]error)
		recomputed = make(map[string]payroll.PayrollRecord)
	)
	fail := func(id string, err error) {
		resMu.Lock()
		recErrs[id] = err
		resMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			fail(id, payroll.ErrPayrollRecordNotFound)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if rec.Status == payroll.StatusPaid {
				fail(rec.ID, payroll.ErrRecordAlreadyPaid)
				return nil
			}

			profile, err := s.profiles.Get(gctx, rec.UserID, companyID)
			if err != nil {
				if errors.Is(err, payroll.ErrMissingCompensationProfile) {
					fail(rec.ID, err)
					return nil
				}
				return err
			}

			agg, err := s.attendance.Get(gctx, rec.UserID, companyID, rec.Period)
			if err != nil {
				return err
			}

			comp, err := s.calculator.Calculate(profile, agg, rules)
			if err != nil {
				fail(rec.ID, err)
				return nil
			}
			if comp.ZeroWorkHours {
				fail(rec.ID, payroll.ErrZeroWorkHours)
				return nil
			}

			next := rec.Clone()
			next.ApplyComputation(comp, agg)

			resMu.Lock()
			recomputed[rec.ID] = next
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Cancellation or a backend failure mid-Computing resolves to a
		// full rollback; no record stays locked.
		s.release(sess, StateRolledBack)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Cancellation that landed after the last worker returned still
		// resolves to a rollback, never a preview.
		s.release(sess, StateRolledBack)
		return nil, err
	}

	preview := &RecalculationPreview{
		SessionID:         sess.id,
		CompanyID:         companyID,
		AggregateNetDelta: decimal.Zero,
	}
	for _, id := range ids {
		if err, ok := recErrs[id]; ok {
			preview.Errors = append(preview.Errors, PreviewError{RecordID: id, Err: err})
			continue
		}
		original := sess.rollback[id]
		next := recomputed[id]
		delta := next.NetPayment.Sub(original.NetPayment)
		preview.Entries = append(preview.Entries, PreviewEntry{
			RecordID:   id,
			Original:   original.Clone(),
			Recomputed: next.Clone(),
			Changes:    s.differ.DiffItems(original, next),
			NetDelta:   delta,
		})
		preview.AggregateNetDelta = preview.AggregateNetDelta.Add(delta)
	}

	s.mu.Lock()
	sess.recomputed = recomputed
	sess.preview = preview
	sess.state = StatePreviewing
	s.mu.Unlock()

	s.logger.Info("recalculation preview ready",
		slog.String("session_id", sess.id),
		slog.String("company_id", companyID),
		slog.Int("records", len(preview.Entries)),
		slog.Int("errors", len(preview.Errors)),
	)

	return preview, nil
}

// Apply commits every successfully recomputed snapshot, appending one audit
// entry per record. Records that errored during Computing are left
// untouched. Apply without an active previewing session is rejected.
func (s *RecalculationService) Apply(ctx context.Context, companyID, sessionID, editedBy string) ([]payroll.PayrollRecord, error) {
	sess, err := s.transition(companyID, sessionID, StatePreviewing, StateApplying)
	if err != nil {
		return nil, err
	}

	committed := make([]payroll.PayrollRecord, 0, len(sess.preview.Entries))
	restorePoints := make(map[string]payroll.PayrollRecord, len(sess.preview.Entries))
	err = s.uow.Run(ctx, func(txCtx context.Context) error {
		for _, entry := range sess.preview.Entries {
			rec := sess.recomputed[entry.RecordID].Clone()
			s.history.RecordRecalculation(&rec, editedBy, sess.id, entry.Changes)

			updated, err := s.records.Update(txCtx, rec)
			if err != nil {
				return fmt.Errorf("failed to commit record %s: %w", entry.RecordID, err)
			}
			committed = append(committed, updated)
			restorePoints[entry.RecordID] = sess.rollback[entry.RecordID]
		}
		return nil
	})
	if err != nil {
		// A transactional store already rolled the writes back; the snapshot
		// rewrite covers stores without transaction support.
		s.restore(ctx, committed, restorePoints)
		s.release(sess, StateRolledBack)
		return nil, err
	}
	for _, entry := range sess.preview.Entries {
		delete(sess.rollback, entry.RecordID)
	}

	s.release(sess, StateCommitted)

	s.logger.Info("recalculation applied",
		slog.String("session_id", sess.id),
		slog.String("company_id", companyID),
		slog.Int("committed", len(committed)),
	)

	return committed, nil
}

// Cancel discards all recomputed state and releases every lock. It writes
// no audit entries; every record is left exactly as it was before
// Computing started.
func (s *RecalculationService) Cancel(ctx context.Context, companyID, sessionID string) error {
	sess, err := s.transition(companyID, sessionID, StatePreviewing, StateCancelling)
	if err != nil {
		return err
	}

	// Computing never mutated committed state, so restoring the rollback
	// map is discarding the staged snapshots.
	s.release(sess, StateRolledBack)

	s.logger.Info("recalculation cancelled",
		slog.String("session_id", sess.id),
		slog.String("company_id", companyID),
	)

	return nil
}

// acquire takes exclusive locks on every id or none of them.
func (s *RecalculationService) acquire(companyID string, ids []string) (*recalcSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, held := s.locks[id]; held {
			return nil, payroll.ErrConcurrentRecalculation
		}
	}

	sess := &recalcSession{
		id:        newID(),
		companyID: companyID,
		state:     StateSelecting,
		ids:       ids,
		rollback:  make(map[string]payroll.PayrollRecord),
	}
	for _, id := range ids {
		s.locks[id] = sess.id
	}
	s.sessions[sess.id] = sess
	return sess, nil
}

func (s *RecalculationService) transition(companyID, sessionID string, from, to SessionState) (*recalcSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.companyID != companyID || sess.state != from {
		return nil, payroll.ErrStaleRollbackState
	}
	sess.state = to
	return sess, nil
}

// release drops all of the session's locks and retires the session.
func (s *RecalculationService) release(sess *recalcSession, final SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sess.ids {
		if s.locks[id] == sess.id {
			delete(s.locks, id)
		}
	}
	sess.state = final
	delete(s.sessions, sess.id)
}

// restore puts already-committed records back to their pre-Computing
// snapshots after a partial Apply failure.
func (s *RecalculationService) restore(ctx context.Context, committed []payroll.PayrollRecord, restorePoints map[string]payroll.PayrollRecord) {
	for _, rec := range committed {
		snapshot, ok := restorePoints[rec.ID]
		if !ok {
			continue
		}
		if _, err := s.records.Update(ctx, snapshot); err != nil {
			s.logger.Error("failed to restore record after apply failure",
				slog.String("record_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
