package export

import (
	"stockdaily/pkg/model"
)

// Column 导出或展示的一列
type Column struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// DefaultColumns 默认展示列，包含两列前日对比
var DefaultColumns = []Column{
	{model.FieldTradeDate, "交易日期"},
	{model.FieldStockCode, "股票代码"},
	{model.FieldStockName, "股票名称"},
	{model.FieldCurrentPrice, "当前价格"},
	{model.FieldPriceChange, "涨幅"},
	{model.FieldSector, "板块"},
	{model.FieldMainNetAmount, "主力净额"},
	{model.FieldMainNetPrevRatio, "主力净额前日对比"},
	{model.FieldAuctionTodayVolume, "成交额"},
	{model.FieldVolumePrevRatio, "成交额前日对比"},
	{model.FieldRealMarketValue, "实流市值"},
	{model.FieldFlowRatio, "净流占比"},
	{model.FieldNetRatio, "净成占比"},
	{model.FieldRealTurnoverRate, "实换手率"},
	{model.FieldTurnoverRate, "换手率"},
	{model.FieldVolumeRatio, "量比"},
	{model.FieldPopularityValue, "人气值"},
}

// ColumnsFor 按 key 选出列，未知的 key 被忽略；keys 为空时返回默认列
func ColumnsFor(keys []string) []Column {
	if len(keys) == 0 {
		return DefaultColumns
	}
	byKey := make(map[string]Column, len(DefaultColumns))
	for _, c := range DefaultColumns {
		byKey[c.Key] = c
	}
	cols := make([]Column, 0, len(keys))
	for _, k := range keys {
		if c, ok := byKey[k]; ok {
			cols = append(cols, c)
		} else if model.IsKnownField(k) {
			cols = append(cols, Column{Key: k, Title: k})
		}
	}
	return cols
}

// Titles 返回列标题
func Titles(cols []Column) []string {
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.Title
	}
	return titles
}

// rawValue 返回列的原始值：数值字段为 *float64，对比列为比值，其余为字符串
func rawValue(r model.ComparisonResult, key string) (num *float64, text string, isNum bool) {
	switch key {
	case model.FieldMainNetPrevRatio:
		return r.MainNetPrevRatio, "", true
	case model.FieldVolumePrevRatio:
		return r.VolumePrevRatio, "", true
	}
	if v, ok := r.Numeric(key); ok {
		return v, "", true
	}
	text, _ = r.Text(key)
	return nil, text, false
}
