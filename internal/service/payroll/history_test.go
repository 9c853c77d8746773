package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
)

func fixedClockRecorder(at time.Time) *HistoryRecorder {
	h := NewHistoryRecorder()
	h.now = func() time.Time { return at }
	return h
}

func TestRecordManualEdit(t *testing.T) {
	editedAt := date(2024, time.April, 1)
	h := fixedClockRecorder(editedAt)
	record := testRecord()

	changes := payroll.ChangeSet{
		{Key: "overtime_allowance", Label: "残業手当", From: "¥23,437", To: "¥30,000"},
	}
	entry := h.RecordManualEdit(&record, "admin-1", "手当の訂正", changes)

	require.Len(t, record.EditHistory, 1)
	assert.Equal(t, entry, record.EditHistory[0])
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "admin-1", entry.EditedBy)
	assert.Equal(t, editedAt, entry.EditedAt)
	assert.Empty(t, entry.SourceID)
	assert.Equal(t, "手当の訂正", entry.EditReason)
	assert.Equal(t, changes, entry.Changes)
}

func TestRecordRecalculation(t *testing.T) {
	h := fixedClockRecorder(date(2024, time.April, 1))
	record := testRecord()

	changes := payroll.ChangeSet{
		{Key: "overtime_allowance", Label: "残業手当", From: "¥23,437", To: "¥25,000"},
		{Key: "total_payment", Label: "支給合計", From: "¥353,437", To: "¥355,000"},
	}
	entry := h.RecordRecalculation(&record, "admin-1", "session-1", changes)

	require.Len(t, record.EditHistory, 1)
	assert.Equal(t, "session-1", entry.SourceID)
	assert.Equal(t, "残業手当、支給合計を変更", entry.EditReason)
}

func TestHistoryAppendOnly(t *testing.T) {
	h := fixedClockRecorder(date(2024, time.April, 1))
	record := testRecord()

	first := h.RecordManualEdit(&record, "admin-1", "first", nil)
	second := h.RecordManualEdit(&record, "admin-2", "second", nil)

	require.Len(t, record.EditHistory, 2)
	assert.Equal(t, first, record.EditHistory[0])
	assert.Equal(t, second, record.EditHistory[1])
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSynthesizeReason(t *testing.T) {
	tests := []struct {
		name    string
		changes payroll.ChangeSet
		want    string
	}{
		{
			name:    "no changes",
			changes: nil,
			want:    "変更なし",
		},
		{
			name: "single field",
			changes: payroll.ChangeSet{
				{Key: "income_tax", Label: "所得税"},
			},
			want: "所得税を変更",
		},
		{
			name: "multiple fields keep change order",
			changes: payroll.ChangeSet{
				{Key: "overtime_allowance", Label: "残業手当"},
				{Key: "total_payment", Label: "支給合計"},
				{Key: "net_payment", Label: "差引支給額"},
			},
			want: "残業手当、支給合計、差引支給額を変更",
		},
		{
			name: "duplicate labels collapse",
			changes: payroll.ChangeSet{
				{Key: "income_tax", Label: "所得税"},
				{Key: "income_tax", Label: "所得税"},
				{Key: "resident_tax", Label: "住民税"},
			},
			want: "所得税、住民税を変更",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SynthesizeReason(tt.changes))
		})
	}
}
