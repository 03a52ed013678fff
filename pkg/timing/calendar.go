package timing

import (
	"time"
)

// DateLayout 交易日期的统一格式
const DateLayout = "2006-01-02"

// Location A股所在时区，固定 UTC+8，不依赖系统时区数据
var Location = time.FixedZone("CST", 8*3600)

// 收盘时间
const (
	closeHour   = 15
	closeMinute = 0
)

// TimeService 提供当前时间接口，用于mock测试
type TimeService interface {
	Now() time.Time
}

// SystemTimeService 使用系统实际时间
type SystemTimeService struct{}

func (s *SystemTimeService) Now() time.Time {
	return time.Now()
}

// MarketTime 交易日历。周末之外的休市日通过 holidays 补充。
type MarketTime struct {
	timeService TimeService
	holidays    map[string]struct{}
}

// NewMarketTime 创建交易日历，holidays 为 YYYY-MM-DD 格式的休市日
func NewMarketTime(timeService TimeService, holidays ...string) *MarketTime {
	if timeService == nil {
		timeService = &SystemTimeService{}
	}
	m := &MarketTime{
		timeService: timeService,
		holidays:    make(map[string]struct{}, len(holidays)),
	}
	for _, h := range holidays {
		m.holidays[h] = struct{}{}
	}
	return m
}

// DefaultMarketTime 使用系统时间、没有额外休市日的交易日历
func DefaultMarketTime() *MarketTime {
	return NewMarketTime(&SystemTimeService{})
}

// Now 返回当前时间（A股时区）
func (m *MarketTime) Now() time.Time {
	return m.timeService.Now().In(Location)
}

// Today 返回当前的交易日期字符串
func (m *MarketTime) Today() string {
	return m.Now().Format(DateLayout)
}

// IsTradingDay 判断是否是交易日：周一到周五且不在休市日列表中
func (m *MarketTime) IsTradingDay(t time.Time) bool {
	t = t.In(Location)
	weekday := t.Weekday()
	if weekday < time.Monday || weekday > time.Friday {
		return false
	}
	_, holiday := m.holidays[t.Format(DateLayout)]
	return !holiday
}

// IsTradingToday 判断今天是否是交易日
func (m *MarketTime) IsTradingToday() bool {
	return m.IsTradingDay(m.Now())
}

// IsAfterClose 判断当前是否已收盘
func (m *MarketTime) IsAfterClose() bool {
	now := m.Now()
	return !now.Before(CloseTime(now))
}

// PreviousTradingDay 返回 t 之前最近的一个交易日
func (m *MarketTime) PreviousTradingDay(t time.Time) time.Time {
	d := t.In(Location).AddDate(0, 0, -1)
	for !m.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, Location)
}

// CloseTime 返回 t 所在日期的收盘时间
func CloseTime(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), closeHour, closeMinute, 0, 0, Location)
}

// ParseDate 按 A股时区解析 YYYY-MM-DD
func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, Location)
}

// DateCloseTime 返回交易日期字符串对应的收盘时间
func DateCloseTime(date string) (time.Time, error) {
	t, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return CloseTime(t), nil
}
