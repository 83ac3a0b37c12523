package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayStartIsLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2026, 3, 1, 1, 30, 0, 0, loc)

	got := dayStart(now)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, 0, got.Hour())

	// Truncating to 24h would land on UTC midnight, 08:00 the previous
	// local day here.
	utcTrunc := now.Truncate(24 * time.Hour)
	assert.True(t, got.After(utcTrunc))
}

func TestDayStartKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 8, 31, 23, 59, 0, 0, loc)

	got := dayStart(now)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, now.Day(), got.Day())
}
