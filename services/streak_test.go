package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		name string
		tz   string
		want string
	}{
		{"empty falls back to UTC", "", "UTC"},
		{"garbage falls back to UTC", "Not/AZone", "UTC"},
		{"valid IANA name", "Asia/Tokyo", "Asia/Tokyo"},
		{"explicit UTC", "UTC", "UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLocation(tt.tz).String())
		})
	}
}

func TestLocalDayDependsOnTimezone(t *testing.T) {
	// 23:30 UTC is already the next calendar day in Tokyo.
	instant := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-03-10", LocalDay(instant, time.UTC))
	assert.Equal(t, "2025-03-11", LocalDay(instant, ResolveLocation("Asia/Tokyo")))
	assert.Equal(t, "2025-03-10", PreviousLocalDay(instant, ResolveLocation("Asia/Tokyo")))
}

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name      string
		lastDate  string
		yesterday string
		current   int
		want      int
	}{
		{"first ever check-in", "", "2025-03-09", 0, 1},
		{"consecutive day continues", "2025-03-09", "2025-03-09", 4, 5},
		{"gap resets", "2025-03-05", "2025-03-09", 12, 1},
		{"future date resets", "2025-03-11", "2025-03-09", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.lastDate, tt.yesterday, tt.current))
		})
	}
}

func TestBonusDue(t *testing.T) {
	tests := []struct {
		name            string
		streak          int
		interval        int
		lastBonusStreak int
		want            bool
	}{
		{"first milestone", 7, 7, 0, true},
		{"second milestone", 14, 7, 7, true},
		{"between milestones", 8, 7, 7, false},
		{"already awarded at this streak", 7, 7, 7, false},
		{"zero streak never fires", 0, 7, 0, false},
		{"disabled interval", 7, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BonusDue(tt.streak, tt.interval, tt.lastBonusStreak))
		})
	}
}

func TestDaysUntilBonus(t *testing.T) {
	assert.Equal(t, 7, DaysUntilBonus(0, 7))
	assert.Equal(t, 1, DaysUntilBonus(6, 7))
	assert.Equal(t, 7, DaysUntilBonus(7, 7))
	assert.Equal(t, 4, DaysUntilBonus(10, 7))
	assert.Equal(t, 0, DaysUntilBonus(3, 0))
}
