package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleIntervals(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		next time.Duration
	}{
		{DefaultSchedule, 10 * time.Minute},
		{"10m", 10 * time.Minute},
		{"interval:45s", 45 * time.Second},
		{"every:1h", time.Hour},
		{"00:10", 10 * time.Minute},
		{"01:30", 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			sch, err := ParseSchedule(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, base.Add(tt.next), sch.Next(base))
		})
	}
}

func TestParseScheduleCron(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 12, 3, 0, 0, time.UTC)

	sch, err := ParseSchedule("*/10 * * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC), sch.Next(base))

	sch, err = ParseSchedule("cron:@hourly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), sch.Next(base))

	sch, err = ParseSchedule("@every 10m")
	require.NoError(t, err)
	assert.Equal(t, base.Add(10*time.Minute), sch.Next(base))
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "0s", "500ms", "00:75", "cron:", "* * *"} {
		_, err := ParseSchedule(raw)
		assert.Error(t, err, raw)
	}
}
