package storage

import (
	"context"

	"stockdaily/pkg/model"
)

// QueryFilter 按日期查询的可选过滤条件
type QueryFilter struct {
	Code   string `form:"code" json:"code"`     // 股票代码，精确匹配
	Sector string `form:"sector" json:"sector"` // 板块，子串匹配
	Limit  int    `form:"limit" json:"limit"`   // 0 表示不限制
}

// RecordWriter 导入流程依赖的写接口
type RecordWriter interface {
	UpsertBatch(ctx context.Context, records []model.Record, tradeDate string) (inserted, skipped int, err error)
	AddImportHistory(ctx context.Context, entry model.ImportHistoryEntry) error
}

// RecordReader 查询接口，供 API 和命令行使用
type RecordReader interface {
	QueryByDate(ctx context.Context, date string, filter QueryFilter) ([]model.Record, error)
	QueryByDateRange(ctx context.Context, start, end, code string) ([]model.Record, error)
	Search(ctx context.Context, keyword, date string) ([]model.Record, error)
	QueryWithComparison(ctx context.Context, date string, filter QueryFilter) ([]model.ComparisonResult, error)
	DistinctDates(ctx context.Context) ([]string, error)
	DistinctSectors(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context, date string) (*model.Statistics, error)
	ImportHistory(ctx context.Context, limit int) ([]model.ImportHistoryEntry, error)
}
