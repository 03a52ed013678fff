package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "stockdaily/pkg/error"
	"stockdaily/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "db", "stock.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(code, name, sector string, mainNet, volume *float64) model.Record {
	return model.Record{
		StockCode:          code,
		StockName:          name,
		Sector:             sector,
		MainNetAmount:      mainNet,
		AuctionTodayVolume: volume,
	}
}

func TestOpen_IdempotentSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.db")
	ctx := context.Background()

	s1, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	_, _, err = s1.UpsertBatch(ctx, []model.Record{rec("000001", "平安银行", "", nil, nil)}, "2025-09-01")
	require.NoError(t, err)
	require.NoError(t, s1.Close())
	require.NoError(t, s1.Close(), "重复关闭不报错")

	s2, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	dates, err := s2.DistinctDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09-01"}, dates)
}

func TestOpen_SingleConnection(t *testing.T) {
	s := openTestStore(t)
	assert.Equal(t, 1, s.db.Stats().MaxOpenConnections)

	ctx := context.Background()
	_, _, err := s.UpsertBatch(ctx, []model.Record{rec("000001", "平安银行", "", nil, nil)}, "2025-09-01")
	require.NoError(t, err)
	_, _, err = s.UpsertBatch(ctx, []model.Record{rec("000001", "平安银行", "", nil, nil)}, "2025-09-02")
	require.NoError(t, err)

	results, err := s.QueryWithComparison(ctx, "2025-09-02", QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestOpen_Failure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := Open(context.Background(), Config{Path: filepath.Join(blocker, "stock.db")})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, ErrStoreOpen))
}

func TestUpsertBatch_ReplaceOnCollision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := rec("000001", "平安银行", "金融", model.Float(100), nil)
	second := rec("000001", "平安银行A", "银行", model.Float(200), model.Float(5))
	second.AuctionIncrease = "3+"

	inserted, skipped, err := s.UpsertBatch(ctx, []model.Record{first}, "2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, skipped)

	inserted, _, err = s.UpsertBatch(ctx, []model.Record{second}, "2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	got, err := s.QueryByDate(ctx, "2025-09-01", QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1, "同一日期代码只保留一行")
	assert.Equal(t, "平安银行A", got[0].StockName)
	assert.Equal(t, "银行", got[0].Sector)
	assert.Equal(t, 200.0, *got[0].MainNetAmount)
	assert.Equal(t, 5.0, *got[0].AuctionTodayVolume)
	assert.Equal(t, "3+", got[0].AuctionIncrease)
	assert.Nil(t, got[0].TurnoverRate, "缺失值与0区分")
	assert.Equal(t, "2025-09-01", got[0].TradeDate)
	assert.NotZero(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestUpsertBatch_PartialFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []model.Record{
		rec("000001", "a", "", nil, nil),
		rec("", "缺代码", "", nil, nil),
		rec("000002", "b", "", nil, nil),
	}
	inserted, skipped, err := s.UpsertBatch(ctx, records, "2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, skipped)

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.Upserted)
	assert.Equal(t, int64(1), stats.Skipped)
}

func TestUpsertBatch_Misuse(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.UpsertBatch(context.Background(), nil, "")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, ErrInvalidArgument))

	require.NoError(t, s.Close())
	_, _, err = s.UpsertBatch(context.Background(), nil, "2025-09-01")
	assert.True(t, apperr.HasCode(err, ErrResourceClosed))
}

func TestQueryByDate_FiltersAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertBatch(ctx, []model.Record{
		rec("600000", "浦发银行", "金融、银行", nil, nil),
		rec("000002", "万科A", "地产", nil, nil),
		rec("000001", "平安银行", "金融、银行", nil, nil),
		rec("300750", "宁德时代", "新能源_电池", nil, nil),
	}, "2025-09-01")
	require.NoError(t, err)

	all, err := s.QueryByDate(ctx, "2025-09-01", QueryFilter{})
	require.NoError(t, err)
	codes := make([]string, len(all))
	for i, r := range all {
		codes[i] = r.StockCode
	}
	assert.True(t, sort.StringsAreSorted(codes), "默认按代码升序")
	assert.Equal(t, []string{"000001", "000002", "300750", "600000"}, codes)

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"精确代码", QueryFilter{Code: "000002"}, []string{"000002"}},
		{"代码不做子串匹配", QueryFilter{Code: "0000"}, nil},
		{"板块子串", QueryFilter{Sector: "银行"}, []string{"000001", "600000"}},
		{"板块下划线按字面匹配", QueryFilter{Sector: "源_电"}, []string{"300750"}},
		{"板块通配符不生效", QueryFilter{Sector: "%"}, nil},
		{"限制条数", QueryFilter{Limit: 2}, []string{"000001", "000002"}},
		{"组合条件", QueryFilter{Sector: "金融", Limit: 1}, []string{"000001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryByDate(ctx, "2025-09-01", tt.filter)
			require.NoError(t, err)
			var codes []string
			for _, r := range got {
				codes = append(codes, r.StockCode)
			}
			assert.Equal(t, tt.want, codes)
		})
	}

	_, err = s.QueryByDate(ctx, "", QueryFilter{})
	assert.True(t, apperr.HasCode(err, ErrInvalidArgument), "未指定日期属于调用错误")
}

func TestQueryByDateRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2025-09-01", "2025-09-02", "2025-09-03"} {
		_, _, err := s.UpsertBatch(ctx, []model.Record{
			rec("000002", "b", "", nil, nil),
			rec("000001", "a", "", nil, nil),
		}, d)
		require.NoError(t, err)
	}

	got, err := s.QueryByDateRange(ctx, "2025-09-02", "2025-09-03", "")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "2025-09-02", got[0].TradeDate)
	assert.Equal(t, "000001", got[0].StockCode)
	assert.Equal(t, "000002", got[1].StockCode)
	assert.Equal(t, "2025-09-03", got[3].TradeDate)

	got, err = s.QueryByDateRange(ctx, "2025-09-01", "2025-09-03", "000002")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertBatch(ctx, []model.Record{
		rec("000001", "平安银行", "", nil, nil),
		rec("HK00700", "Tencent", "", nil, nil),
	}, "2025-09-01")
	require.NoError(t, err)
	_, _, err = s.UpsertBatch(ctx, []model.Record{rec("000001", "平安银行", "", nil, nil)}, "2025-09-02")
	require.NoError(t, err)

	got, err := s.Search(ctx, "平安", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-09-02", got[0].TradeDate)

	got, err = s.Search(ctx, "tencent", "2025-09-01")
	require.NoError(t, err)
	require.Len(t, got, 1, "不区分大小写")
	assert.Equal(t, "HK00700", got[0].StockCode)

	got, err = s.Search(ctx, "hk007", "")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = s.Search(ctx, " ", "")
	assert.Error(t, err)
}

func TestDistinctSectors_Split(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertBatch(ctx, []model.Record{
		rec("000001", "a", "金融、地产", nil, nil),
		rec("000002", "b", "地产", nil, nil),
		rec("000003", "c", " 科技 、", nil, nil),
		rec("000004", "d", "", nil, nil),
	}, "2025-09-01")
	require.NoError(t, err)

	sectors, err := s.DistinctSectors(ctx)
	require.NoError(t, err)
	assert.Contains(t, sectors, "金融")
	assert.Contains(t, sectors, "地产")
	assert.Len(t, sectors, 3)
	assert.True(t, sort.StringsAreSorted(sectors))
}

func TestStatistics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r1 := rec("000001", "a", "", model.Float(10), model.Float(200))
	r1.AuctionYesterdayVolume = model.Float(100)
	r1.TurnoverRate = model.Float(1.234)
	r2 := rec("000002", "b", "", model.Float(-5), model.Float(50))
	r2.AuctionYesterdayVolume = model.Float(100)
	r2.TurnoverRate = model.Float(2.0)
	r3 := rec("000003", "c", "", nil, model.Float(10))

	_, _, err := s.UpsertBatch(ctx, []model.Record{r1, r2, r3}, "2025-09-01")
	require.NoError(t, err)

	stats, err := s.Statistics(ctx, "2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 1, stats.PositiveNetInflowCount)
	assert.Equal(t, 1, stats.VolumeGrowthCount, "昨日成交额缺失的行不计入")
	assert.Equal(t, 1.62, stats.AvgTurnoverRate, "平均值排除缺失值并保留两位小数")

	empty, err := s.Statistics(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalCount)
	assert.Equal(t, 0.0, empty.AvgTurnoverRate)
}

func TestDeleteByDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertBatch(ctx, []model.Record{rec("000001", "a", "", nil, nil), rec("000002", "b", "", nil, nil)}, "2025-09-01")
	require.NoError(t, err)
	_, _, err = s.UpsertBatch(ctx, []model.Record{rec("000001", "a", "", nil, nil)}, "2025-09-02")
	require.NoError(t, err)

	n, err := s.DeleteByDate(ctx, "2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	dates, err := s.DistinctDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09-02"}, dates)

	n, err = s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TotalRecords)
	assert.Equal(t, "", sum.MinDate)
}

func TestSummaryAndLatestDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LatestTradeDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, d := range []string{"2025-09-03", "2025-09-01"} {
		_, _, err := s.UpsertBatch(ctx, []model.Record{rec("000001", "a", "", nil, nil), rec("000002", "b", "", nil, nil)}, d)
		require.NoError(t, err)
	}

	latest, ok, err := s.LatestTradeDate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2025-09-03", latest)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalRecords)
	assert.Equal(t, 2, sum.DateCount)
	assert.Equal(t, "2025-09-01", sum.MinDate)
	assert.Equal(t, "2025-09-03", sum.MaxDate)
}

func TestImportHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	date := "2025-09-01"
	msg := "无法提取交易日期"
	require.NoError(t, s.AddImportHistory(ctx, model.ImportHistoryEntry{
		FileName: "2025-09-01.xlsx", TradeDate: &date, RecordsCount: 10, Status: model.ImportSuccess,
	}))
	require.NoError(t, s.AddImportHistory(ctx, model.ImportHistoryEntry{
		FileName: "日报.xlsx", Status: model.ImportFailed, ErrorMessage: &msg,
	}))

	entries, err := s.ImportHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "日报.xlsx", entries[0].FileName, "最新的记录在前")
	assert.Nil(t, entries[0].TradeDate)
	assert.Equal(t, model.ImportFailed, entries[0].Status)
	require.NotNil(t, entries[0].ErrorMessage)
	assert.Equal(t, msg, *entries[0].ErrorMessage)

	assert.Equal(t, 10, entries[1].RecordsCount)
	require.NotNil(t, entries[1].TradeDate)
	assert.Equal(t, date, *entries[1].TradeDate)
	assert.False(t, entries[1].ImportDate.IsZero())

	limited, err := s.ImportHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	ok, err := s.HasImported(ctx, "2025-09-01.xlsx")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasImported(ctx, "日报.xlsx")
	require.NoError(t, err)
	assert.False(t, ok, "失败的导入不算已导入")
}

func TestSplitSectors(t *testing.T) {
	assert.Equal(t, []string{"地产", "金融"}, SplitSectors([]string{"金融、地产", "地产、", ""}))
	assert.Empty(t, SplitSectors(nil))
}
