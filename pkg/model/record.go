package model

import "time"

// 规范字段名，与 stock_daily 表的列名一致
const (
	FieldTradeDate              = "trade_date"
	FieldStockCode              = "stock_code"
	FieldStockName              = "stock_name"
	FieldCurrentPrice           = "current_price"
	FieldPriceChange            = "price_change"
	FieldDescription            = "description"
	FieldSector                 = "sector"
	FieldMainNetAmount          = "main_net_amount"
	FieldAuctionTodayVolume     = "auction_today_volume"
	FieldRealMarketValue        = "real_market_value"
	FieldFlowRatio              = "flow_ratio"
	FieldNetRatio               = "net_ratio"
	FieldRealTurnoverRate       = "real_turnover_rate"
	FieldTurnoverRate           = "turnover_rate"
	FieldVolumeRatio            = "volume_ratio"
	FieldPopularityValue        = "popularity_value"
	FieldAuctionNetAmount       = "auction_net_amount"
	FieldAuctionIncrease        = "auction_increase"
	FieldAuctionMainNet         = "auction_main_net"
	FieldAuctionYesterdayVolume = "auction_yesterday_volume"
	FieldMainNetRatio           = "main_net_ratio"
	FieldBuySellRatio           = "buy_sell_ratio"
	FieldPopularityChange       = "popularity_change"

	// 对比查询派生字段，不落库
	FieldMainNetPrevRatio = "main_net_prev_ratio"
	FieldVolumePrevRatio  = "volume_prev_ratio"
)

// NumericFields 全部数值型规范字段，按表结构顺序排列
var NumericFields = []string{
	FieldCurrentPrice,
	FieldPriceChange,
	FieldMainNetAmount,
	FieldAuctionTodayVolume,
	FieldRealMarketValue,
	FieldFlowRatio,
	FieldNetRatio,
	FieldRealTurnoverRate,
	FieldTurnoverRate,
	FieldVolumeRatio,
	FieldPopularityValue,
	FieldAuctionNetAmount,
	FieldAuctionMainNet,
	FieldAuctionYesterdayVolume,
	FieldMainNetRatio,
	FieldBuySellRatio,
	FieldPopularityChange,
}

// TextFields 文本型规范字段（不含主键字段）
var TextFields = []string{
	FieldStockName,
	FieldDescription,
	FieldSector,
	FieldAuctionIncrease,
}

// Record 单只股票在一个交易日的指标快照。
// 数值字段用指针表示，nil 表示缺失，与 0 区分。
type Record struct {
	ID        int64     `json:"id,omitempty"`
	TradeDate string    `json:"trade_date"`
	StockCode string    `json:"stock_code"`
	StockName string    `json:"stock_name"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	CurrentPrice *float64 `json:"current_price"`
	PriceChange  *float64 `json:"price_change"`
	Description  string   `json:"description"`
	Sector       string   `json:"sector"`

	MainNetAmount      *float64 `json:"main_net_amount"`
	AuctionTodayVolume *float64 `json:"auction_today_volume"`
	RealMarketValue    *float64 `json:"real_market_value"`
	FlowRatio          *float64 `json:"flow_ratio"`
	NetRatio           *float64 `json:"net_ratio"`
	RealTurnoverRate   *float64 `json:"real_turnover_rate"`
	TurnoverRate       *float64 `json:"turnover_rate"`
	VolumeRatio        *float64 `json:"volume_ratio"`
	PopularityValue    *float64 `json:"popularity_value"`

	AuctionNetAmount       *float64 `json:"auction_net_amount"`
	AuctionIncrease        string   `json:"auction_increase"`
	AuctionMainNet         *float64 `json:"auction_main_net"`
	AuctionYesterdayVolume *float64 `json:"auction_yesterday_volume"`
	MainNetRatio           *float64 `json:"main_net_ratio"`
	BuySellRatio           *float64 `json:"buy_sell_ratio"`
	PopularityChange       *float64 `json:"popularity_change"`
}

// numericSlot 返回数值字段对应的存储位置，未知字段返回 nil
func (r *Record) numericSlot(field string) **float64 {
	switch field {
	case FieldCurrentPrice:
		return &r.CurrentPrice
	case FieldPriceChange:
		return &r.PriceChange
	case FieldMainNetAmount:
		return &r.MainNetAmount
	case FieldAuctionTodayVolume:
		return &r.AuctionTodayVolume
	case FieldRealMarketValue:
		return &r.RealMarketValue
	case FieldFlowRatio:
		return &r.FlowRatio
	case FieldNetRatio:
		return &r.NetRatio
	case FieldRealTurnoverRate:
		return &r.RealTurnoverRate
	case FieldTurnoverRate:
		return &r.TurnoverRate
	case FieldVolumeRatio:
		return &r.VolumeRatio
	case FieldPopularityValue:
		return &r.PopularityValue
	case FieldAuctionNetAmount:
		return &r.AuctionNetAmount
	case FieldAuctionMainNet:
		return &r.AuctionMainNet
	case FieldAuctionYesterdayVolume:
		return &r.AuctionYesterdayVolume
	case FieldMainNetRatio:
		return &r.MainNetRatio
	case FieldBuySellRatio:
		return &r.BuySellRatio
	case FieldPopularityChange:
		return &r.PopularityChange
	}
	return nil
}

// Numeric 读取数值字段，第二个返回值表示字段是否为数值字段
func (r Record) Numeric(field string) (*float64, bool) {
	slot := r.numericSlot(field)
	if slot == nil {
		return nil, false
	}
	return *slot, true
}

// SetNumeric 设置数值字段，字段不是数值字段时返回 false
func (r *Record) SetNumeric(field string, v *float64) bool {
	slot := r.numericSlot(field)
	if slot == nil {
		return false
	}
	*slot = v
	return true
}

// Text 读取文本字段
func (r Record) Text(field string) (string, bool) {
	switch field {
	case FieldTradeDate:
		return r.TradeDate, true
	case FieldStockCode:
		return r.StockCode, true
	case FieldStockName:
		return r.StockName, true
	case FieldDescription:
		return r.Description, true
	case FieldSector:
		return r.Sector, true
	case FieldAuctionIncrease:
		return r.AuctionIncrease, true
	}
	return "", false
}

// SetText 设置文本字段
func (r *Record) SetText(field, v string) bool {
	switch field {
	case FieldTradeDate:
		r.TradeDate = v
	case FieldStockCode:
		r.StockCode = v
	case FieldStockName:
		r.StockName = v
	case FieldDescription:
		r.Description = v
	case FieldSector:
		r.Sector = v
	case FieldAuctionIncrease:
		r.AuctionIncrease = v
	default:
		return false
	}
	return true
}

// IsNumericField 判断字段是否为数值字段
func IsNumericField(field string) bool {
	var r Record
	return r.numericSlot(field) != nil
}

// IsKnownField 判断是否为可落库的规范字段
func IsKnownField(field string) bool {
	if IsNumericField(field) {
		return true
	}
	_, ok := Record{}.Text(field)
	return ok
}

// Float 便捷构造数值指针
func Float(v float64) *float64 {
	return &v
}
