package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFillMissingDays(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := []dailyRow{
		{Day: "2026-08-01", Count: 3},
		{Day: "2026-08-03 00:00:00", Count: 1}, // driver may append a time part
	}

	out := fillMissingDays(rows, start, 3)
	assert.Len(t, out, 4)
	assert.Equal(t, DailyCount{Date: "2026-08-01", Count: 3}, out[0])
	assert.Equal(t, DailyCount{Date: "2026-08-02", Count: 0}, out[1])
	assert.Equal(t, DailyCount{Date: "2026-08-03", Count: 1}, out[2])
	assert.Equal(t, DailyCount{Date: "2026-08-04", Count: 0}, out[3])
}

func TestFillMissingDaysEmpty(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := fillMissingDays(nil, start, 2)
	assert.Len(t, out, 3)
	for _, d := range out {
		assert.Zero(t, d.Count)
	}
}
