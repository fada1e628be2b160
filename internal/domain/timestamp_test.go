package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp(t *testing.T) {
	t.Run("same day, winter", func(t *testing.T) {
		// 20:00 UTC on Jan 2 is 15:00 EST; 10:00 AM EST is in the past.
		ref := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)
		got, ok := NormalizeTimestamp("10:00 AM", ref)

		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), got)
	})

	t.Run("previous-day rollback past midnight UTC", func(t *testing.T) {
		// 00:10 UTC on Jan 2 is still 19:10 EST on Jan 1. "11:45 PM" taken
		// as Jan 1 would be in the future, so it is Dec 31 23:45 EST.
		ref := time.Date(2024, 1, 2, 0, 10, 0, 0, time.UTC)
		got, ok := NormalizeTimestamp("11:45 PM", ref)

		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 1, 1, 4, 45, 0, 0, time.UTC), got)
	})

	t.Run("rollback is exactly 24 hours", func(t *testing.T) {
		ref := time.Date(2024, 1, 2, 0, 10, 0, 0, time.UTC)
		got, ok := NormalizeTimestamp("11:45 PM", ref)
		require.True(t, ok)

		naive := time.Date(2024, 1, 2, 4, 45, 0, 0, time.UTC) // Jan 1 23:45 EST
		assert.Equal(t, 24*time.Hour, naive.Sub(got))
	})

	t.Run("exactly the reference instant is not rolled back", func(t *testing.T) {
		ref := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC) // 10:00 AM EST
		got, ok := NormalizeTimestamp("10:00 AM", ref)

		require.True(t, ok)
		assert.Equal(t, ref, got)
	})

	t.Run("daylight saving offset", func(t *testing.T) {
		// July: New York is EDT (UTC-4).
		ref := time.Date(2024, 7, 4, 2, 0, 0, 0, time.UTC) // Jul 3 22:00 EDT
		got, ok := NormalizeTimestamp("9:30 PM", ref)

		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 7, 4, 1, 30, 0, 0, time.UTC), got)
	})

	t.Run("daylight saving rollback", func(t *testing.T) {
		ref := time.Date(2024, 7, 4, 4, 10, 0, 0, time.UTC) // Jul 4 00:10 EDT
		got, ok := NormalizeTimestamp("11:45 PM", ref)

		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 7, 4, 3, 45, 0, 0, time.UTC), got)
	})

	t.Run("tolerates case and padding", func(t *testing.T) {
		ref := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)

		want, ok := NormalizeTimestamp("10:00 AM", ref)
		require.True(t, ok)

		for _, input := range []string{"10:00 am", " 10:00 AM ", "10:00 Am"} {
			got, ok := NormalizeTimestamp(input, ref)
			require.True(t, ok, "input %q", input)
			assert.Equal(t, want, got)
		}
	})

	t.Run("seconds fixed at zero", func(t *testing.T) {
		ref := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)
		got, ok := NormalizeTimestamp("3:17 PM", ref)

		require.True(t, ok)
		assert.Zero(t, got.Second())
		assert.Zero(t, got.Nanosecond())
	})

	t.Run("malformed inputs", func(t *testing.T) {
		ref := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)

		for _, input := range []string{"", "25:00 PM", "11:45", "noonish", "11:45:30 PM"} {
			_, ok := NormalizeTimestamp(input, ref)
			assert.False(t, ok, "input %q", input)
		}
	})
}
