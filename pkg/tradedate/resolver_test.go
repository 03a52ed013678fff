package tradedate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockdaily/pkg/source"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		fallback any
		want     string
		ok       bool
	}{
		{"横线日期", "2025-09-01.xlsx", nil, "2025-09-01", true},
		{"带后缀编号", "2025-09-01-5142.xlsx", nil, "2025-09-01", true},
		{"斜线日期", "2025/09/02 日报.xlsx", nil, "2025-09-02", true},
		{"反斜线日期", `2025\09\03.xlsx`, nil, "2025-09-03", true},
		{"取第一个匹配", "2025-09-01_2025-09-02.xlsx", nil, "2025-09-01", true},
		{"不做日历校验", "2025-13-45.xlsx", nil, "2025-13-45", true},
		{"文件名优先于数据列", "2025-09-01.xlsx", "2024-01-01", "2025-09-01", true},
		{"回退到数据列", "日报.xlsx", "2025-09-04 00:00:00", "2025-09-04", true},
		{"回退到时间值", "日报.xlsx", time.Date(2025, 9, 5, 0, 0, 0, 0, time.Local), "2025-09-05", true},
		{"回退到斜线文本", "日报.xlsx", "2025/09/06 15:00", "2025-09-06", true},
		{"回退到序列号", "日报.xlsx", 45905.0, "2025-09-05", true},
		{"回退到整数序列号", "日报.xlsx", 45905, "2025-09-05", true},
		{"回退到序列号文本", "日报.xlsx", "45905", "2025-09-05", true},
		{"序列号带时间", "日报.xlsx", "45905.625", "2025-09-05", true},
		{"序列号过小", "日报.xlsx", "0", "", false},
		{"序列号超出范围", "日报.xlsx", 1e9, "", false},
		{"无法解析的文本", "日报.xlsx", "abc", "", false},
		{"非法日历日期", "日报.xlsx", "2025-13-45", "", false},
		{"日期不在开头", "日报.xlsx", "截至 2025-09-05", "", false},
		{"回退到空值", "日报.xlsx", "  ", "", false},
		{"无法解析", "日报.xlsx", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.fileName, tt.fallback)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromSheet(t *testing.T) {
	sheet := source.NewSheet("/inbox/日报.xlsx",
		[]string{"交易日期", "股票代码"},
		[][]any{{"2025-09-08 15:00:00", "1"}, {"2025-09-09", "2"}})

	got, ok := FromSheet(sheet, "")
	assert.True(t, ok)
	assert.Equal(t, "2025-09-08", got)

	empty := source.NewSheet("/inbox/日报.xlsx", []string{"股票代码"}, nil)
	_, ok = FromSheet(empty, "交易日期")
	assert.False(t, ok)
}
