package payroll

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
)

// HistoryRecorder appends audit-trail entries to payroll records. History is
// append-only and ordered by edit time; entries are never rewritten.
type HistoryRecorder struct {
	now func() time.Time
}

func NewHistoryRecorder() *HistoryRecorder {
	return &HistoryRecorder{now: time.Now}
}

// RecordManualEdit appends an entry for a single-field manual edit with the
// caller-supplied reason.
func (h *HistoryRecorder) RecordManualEdit(record *payroll.PayrollRecord, editedBy, reason string, changes payroll.ChangeSet) payroll.EditHistoryEntry {
	return h.append(record, editedBy, "", reason, changes)
}

// RecordRecalculation appends an entry for a batch recalculation. The reason
// is synthesized from the changed top-level field names; sourceID ties the
// entry back to the recalculation session that produced it.
func (h *HistoryRecorder) RecordRecalculation(record *payroll.PayrollRecord, editedBy, sourceID string, changes payroll.ChangeSet) payroll.EditHistoryEntry {
	return h.append(record, editedBy, sourceID, SynthesizeReason(changes), changes)
}

func (h *HistoryRecorder) append(record *payroll.PayrollRecord, editedBy, sourceID, reason string, changes payroll.ChangeSet) payroll.EditHistoryEntry {
	entry := payroll.EditHistoryEntry{
		ID:         newID(),
		EditedBy:   editedBy,
		EditedAt:   h.now(),
		SourceID:   sourceID,
		EditReason: reason,
		Changes:    changes,
	}
	record.EditHistory = append(record.EditHistory, entry)
	return entry
}

// SynthesizeReason joins the distinct display names of the changed fields,
// in change order, with the Japanese enumeration comma.
func SynthesizeReason(changes payroll.ChangeSet) string {
	var labels []string
	seen := make(map[string]bool)
	for _, c := range changes {
		if seen[c.Label] {
			continue
		}
		seen[c.Label] = true
		labels = append(labels, c.Label)
	}
	if len(labels) == 0 {
		return "変更なし"
	}
	return strings.Join(labels, "、") + "を変更"
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
