package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTradingDay_NightSessionRollsToNextDay(t *testing.T) {
	// Monday 21:30 China time -> Tuesday's trading day.
	t1 := time.Date(2024, 1, 15, 21, 30, 0, 0, chinaLocation)
	assert.Equal(t, "20240116", TradingDay(t1))
}

func TestTradingDay_EarlyMorningStaysSameCalendarDay(t *testing.T) {
	t1 := time.Date(2024, 1, 16, 1, 0, 0, 0, chinaLocation)
	assert.Equal(t, "20240116", TradingDay(t1))
}

func TestTradingDay_DaySessionUnchanged(t *testing.T) {
	t1 := time.Date(2024, 1, 15, 10, 0, 0, 0, chinaLocation)
	assert.Equal(t, "20240115", TradingDay(t1))
}

func TestIsTradingTime(t *testing.T) {
	assert.True(t, IsTradingTime(time.Date(2024, 1, 15, 10, 0, 0, 0, chinaLocation)))
	assert.True(t, IsTradingTime(time.Date(2024, 1, 15, 21, 30, 0, 0, chinaLocation)))
	assert.True(t, IsTradingTime(time.Date(2024, 1, 16, 1, 0, 0, 0, chinaLocation)))
	assert.False(t, IsTradingTime(time.Date(2024, 1, 15, 17, 0, 0, 0, chinaLocation)))
}
