package retention

import (
	"time"

	"github.com/fabriziosalmi/newsportal/internal/models"
)

// Cutoff returns the instant before which summaries are deletable:
// now minus days calendar days, in UTC.
func Cutoff(days int, now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}

// FormatCutoff renders t in the canonical created_at encoding so it can be
// compared byte-wise against stored values.
func FormatCutoff(t time.Time) string {
	return models.FormatTimestamp(t)
}
