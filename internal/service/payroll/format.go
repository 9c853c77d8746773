package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// unsetLabel is the single sentinel every formatter emits for missing or
// empty values, so "nil vs zero" never shows up as a spurious change.
const unsetLabel = "未設定"

// formatYen renders an integral yen amount as "¥1,234,567".
func formatYen(d decimal.Decimal) string {
	s := d.StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}

// formatMinutes renders a duration in minutes as "8時間30分".
func formatMinutes(minutes int) string {
	return fmt.Sprintf("%d時間%d分", minutes/60, minutes%60)
}

func formatDays(days int) string {
	return fmt.Sprintf("%d日", days)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return unsetLabel
	}
	return t.Format("2006-01-02")
}

func formatEnum(s string) string {
	if s == "" {
		return unsetLabel
	}
	return s
}
