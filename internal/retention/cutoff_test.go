package retention

import (
	"testing"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutoff_RoundTripsWithinTwoSeconds(t *testing.T) {
	for _, d := range []int{7, 30, 90, 180, 365} {
		now := time.Now()
		formatted := FormatCutoff(Cutoff(d, now))

		parsed, err := models.ParseTimestamp(formatted)
		require.NoError(t, err)

		want := now.UTC().AddDate(0, 0, -d)
		assert.WithinDuration(t, want, parsed, 2*time.Second, "days=%d", d)
	}
}

func TestCutoff_IsUTC(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	now := time.Date(2025, 11, 1, 3, 0, 0, 0, kst)

	got := Cutoff(30, now)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, "2025-10-01T18:00:00.000000Z", FormatCutoff(got))
}

func TestCutoff_SortsAgainstStoredValues(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	cutoff := FormatCutoff(Cutoff(30, now))

	older := models.FormatTimestamp(now.AddDate(0, 0, -31))
	newer := models.FormatTimestamp(now.AddDate(0, 0, -29))
	assert.Less(t, older, cutoff)
	assert.Greater(t, newer, cutoff)
}
