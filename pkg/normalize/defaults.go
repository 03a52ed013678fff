package normalize

import "stockdaily/pkg/model"

// DefaultRules 日报导出的默认列映射。多个别名映射到同一字段时，源文件中先出现的列生效。
func DefaultRules() []ColumnRule {
	return []ColumnRule{
		{Label: "交易日期", Field: model.FieldTradeDate},
		{Label: "股票代码", Field: model.FieldStockCode},
		{Label: "股票名称", Field: model.FieldStockName},
		{Label: "当前价格", Field: model.FieldCurrentPrice},
		{Label: "涨幅", Field: model.FieldPriceChange},
		{Label: "描述", Field: model.FieldDescription},
		{Label: "板块", Field: model.FieldSector},

		{Label: "主力净额", Field: model.FieldMainNetAmount},
		{Label: "成交额", Field: model.FieldAuctionTodayVolume},
		{Label: "实流市值", Field: model.FieldRealMarketValue},
		{Label: "净流占比", Field: model.FieldFlowRatio},
		{Label: "净成占比", Field: model.FieldNetRatio},
		{Label: "实换手率", Field: model.FieldRealTurnoverRate},
		{Label: "换手率", Field: model.FieldTurnoverRate},
		{Label: "量比", Field: model.FieldVolumeRatio},
		{Label: "人气值", Field: model.FieldPopularityValue},

		// 竞价相关
		{Label: "竞价净额", Field: model.FieldAuctionNetAmount},
		{Label: "竞价增额", Field: model.FieldAuctionIncrease},
		{Label: "增额", Field: model.FieldAuctionMainNet},
		{Label: "今日成交额", Field: model.FieldAuctionTodayVolume},
		{Label: "昨日成交额", Field: model.FieldAuctionYesterdayVolume},
		{Label: "主力净额对比", Field: model.FieldMainNetRatio},
		{Label: "夹流比", Field: model.FieldFlowRatio},
		{Label: "买卖手", Field: model.FieldBuySellRatio},
		{Label: "入气值增幅", Field: model.FieldPopularityChange},
	}
}

// DefaultNormalizer 使用默认映射和数值字段的标准化器
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(NewColumnMapping(DefaultRules()), nil)
}
