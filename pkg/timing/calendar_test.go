package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTimeService 模拟时间服务
type MockTimeService struct {
	current time.Time
}

func (m *MockTimeService) Now() time.Time {
	return m.current
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04:05", s, Location)
	require.NoError(t, err)
	return v
}

func TestMarketTime_IsTradingDay(t *testing.T) {
	mt := NewMarketTime(nil, "2025-10-01")

	tests := []struct {
		name     string
		date     string
		expected bool
	}{
		{"周一", "2025-09-01 10:00:00", true},
		{"周五", "2025-09-05 10:00:00", true},
		{"周六", "2025-09-06 10:00:00", false},
		{"周日", "2025-09-07 10:00:00", false},
		{"节假日", "2025-10-01 10:00:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mt.IsTradingDay(mustTime(t, tt.date)))
		})
	}
}

func TestMarketTime_UsesMarketTimezone(t *testing.T) {
	// UTC 周五 20:00 在 A股时区已是周六
	utc := time.Date(2025, 9, 5, 20, 0, 0, 0, time.UTC)
	mt := NewMarketTime(&MockTimeService{current: utc})

	assert.Equal(t, "2025-09-06", mt.Today())
	assert.False(t, mt.IsTradingToday())
}

func TestMarketTime_IsAfterClose(t *testing.T) {
	tests := []struct {
		name     string
		now      string
		expected bool
	}{
		{"收盘前", "2025-09-01 14:59:59", false},
		{"收盘时刻", "2025-09-01 15:00:00", true},
		{"晚间", "2025-09-01 22:00:00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := NewMarketTime(&MockTimeService{current: mustTime(t, tt.now)})
			assert.Equal(t, tt.expected, mt.IsAfterClose())
		})
	}
}

func TestMarketTime_PreviousTradingDay(t *testing.T) {
	mt := NewMarketTime(nil, "2025-09-05")

	tests := []struct {
		name     string
		from     string
		expected string
	}{
		{"周二取周一", "2025-09-02 10:00:00", "2025-09-01"},
		{"周一跳过周末和节假日", "2025-09-08 10:00:00", "2025-09-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mt.PreviousTradingDay(mustTime(t, tt.from))
			assert.Equal(t, tt.expected, got.Format(DateLayout))
		})
	}
}

func TestDateCloseTime(t *testing.T) {
	ct, err := DateCloseTime("2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, 15, ct.Hour())
	assert.Equal(t, time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC), ct.UTC())

	_, err = DateCloseTime("2025/09/01")
	assert.Error(t, err)
}
