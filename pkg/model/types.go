package model

import "time"

// ComparisonResult 带前一交易日对比列的查询结果，仅用于展示，不落库
type ComparisonResult struct {
	Record
	MainNetPrevRatio *float64 `json:"main_net_prev_ratio"`
	VolumePrevRatio  *float64 `json:"volume_prev_ratio"`
}

// ImportStatus 导入结果状态
type ImportStatus string

const (
	ImportSuccess ImportStatus = "success"
	ImportFailed  ImportStatus = "failed"
)

// ImportHistoryEntry 导入审计记录，只追加不修改
type ImportHistoryEntry struct {
	ID           int64        `json:"id"`
	ImportDate   time.Time    `json:"import_date"`
	FileName     string       `json:"file_name"`
	TradeDate    *string      `json:"trade_date"`
	RecordsCount int          `json:"records_count"`
	Status       ImportStatus `json:"status"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}

// Statistics 单个交易日的汇总统计
type Statistics struct {
	TradeDate              string  `json:"trade_date"`
	TotalCount             int     `json:"total_count"`
	PositiveNetInflowCount int     `json:"positive_net_inflow_count"`
	VolumeGrowthCount      int     `json:"volume_growth_count"`
	AvgTurnoverRate        float64 `json:"avg_turnover_rate"`
}

// Summary 数据库整体概况
type Summary struct {
	TotalRecords int    `json:"total_records"`
	DateCount    int    `json:"date_count"`
	MinDate      string `json:"min_date"`
	MaxDate      string `json:"max_date"`
}
