package export

import (
	"fmt"
	"math"
	"strconv"

	"stockdaily/pkg/model"
)

// 以“万”为单位存储的金额字段
var moneyFields = map[string]bool{
	model.FieldAuctionTodayVolume:     true,
	model.FieldAuctionYesterdayVolume: true,
	model.FieldRealMarketValue:        true,
	model.FieldMainNetAmount:          true,
	model.FieldAuctionNetAmount:       true,
	model.FieldAuctionMainNet:         true,
}

// 以百分数存储的字段
var percentFields = map[string]bool{
	model.FieldPriceChange:      true,
	model.FieldFlowRatio:        true,
	model.FieldNetRatio:         true,
	model.FieldTurnoverRate:     true,
	model.FieldRealTurnoverRate: true,
}

// FormatRatio 把前日对比比值显示为变化百分比：2.0 显示为 "+100.0%"，0.5 显示为 "-50.0%"
func FormatRatio(r *float64) string {
	if r == nil {
		return ""
	}
	change := (*r - 1) * 100
	if change == 0 {
		return "0%"
	}
	return fmt.Sprintf("%+.1f%%", change)
}

// FormatMoney 金额以万为单位，一万万及以上换算为亿
func FormatMoney(v float64) string {
	if v == 0 {
		return "0"
	}
	if math.Abs(v) >= 10000 {
		return fmt.Sprintf("%.1f亿", v/10000)
	}
	if math.Abs(v) >= 1 {
		return fmt.Sprintf("%.1f万", v)
	}
	return fmt.Sprintf("%.2f万", v)
}

// formatNumber 按数量级决定小数位
func formatNumber(v float64) string {
	switch a := math.Abs(v); {
	case a >= 1000:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case a >= 1:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
}

// FormatValue 返回列的展示文本，缺失值为空字符串
func FormatValue(r model.ComparisonResult, key string) string {
	num, text, isNum := rawValue(r, key)
	if !isNum {
		return text
	}
	if num == nil {
		return ""
	}
	switch {
	case key == model.FieldMainNetPrevRatio || key == model.FieldVolumePrevRatio:
		return FormatRatio(num)
	case moneyFields[key]:
		return FormatMoney(*num)
	case percentFields[key]:
		return fmt.Sprintf("%.2f%%", *num)
	default:
		return formatNumber(*num)
	}
}

// plainValue 导出用的值：数值保留全部精度，对比列为展示文本
func plainValue(r model.ComparisonResult, key string) (any, string) {
	num, text, isNum := rawValue(r, key)
	if !isNum {
		return text, text
	}
	if num == nil {
		return nil, ""
	}
	if key == model.FieldMainNetPrevRatio || key == model.FieldVolumePrevRatio {
		s := FormatRatio(num)
		return s, s
	}
	return *num, strconv.FormatFloat(*num, 'f', -1, 64)
}
