package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stockdaily/pkg/model"
)

// SectorSeparator 板块字段中多个板块之间的分隔符
const SectorSeparator = "、"

var (
	textColumns = []string{
		model.FieldStockName,
		model.FieldDescription,
		model.FieldSector,
		model.FieldAuctionIncrease,
	}

	insertColumns = append(append([]string{model.FieldTradeDate, model.FieldStockCode}, textColumns...), model.NumericFields...)

	upsertSQL = fmt.Sprintf("INSERT OR REPLACE INTO stock_daily (%s) VALUES (%s)",
		strings.Join(insertColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(insertColumns)), ", "))

	selectColumns = buildSelectColumns()
)

func buildSelectColumns() string {
	cols := []string{"id", model.FieldTradeDate, model.FieldStockCode}
	cols = append(cols, textColumns...)
	cols = append(cols, model.NumericFields...)
	cols = append(cols, "created_at")
	return strings.Join(cols, ", ")
}

// UpsertBatch 逐条插入或替换记录。单条失败只计入 skipped，不影响其余记录。
// 每条记录独立提交，不使用整批事务。
func (s *Store) UpsertBatch(ctx context.Context, records []model.Record, tradeDate string) (int, int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, 0, err
	}
	if tradeDate == "" {
		return 0, 0, errMissingDate("upsert")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// 文件级别的取消由调用方处理，单个文件内部不中断
	ctx = context.WithoutCancel(ctx)

	stmt, err := s.db.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return 0, 0, WrapStorageError(ErrStorageIO, "预编译插入语句失败", err)
	}
	defer stmt.Close()

	inserted, skipped := 0, 0
	for _, rec := range records {
		if rec.StockCode == "" {
			skipped++
			s.logger.WithField("trade_date", tradeDate).Warn("插入数据失败: 股票代码为空")
			continue
		}
		rec.TradeDate = tradeDate
		if _, err := stmt.ExecContext(ctx, upsertArgs(rec)...); err != nil {
			skipped++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"trade_date": tradeDate,
				"stock_code": rec.StockCode,
			}).Warn("插入数据失败")
			continue
		}
		inserted++
	}

	s.recordStats(int64(inserted), int64(skipped), 0)
	return inserted, skipped, nil
}

func upsertArgs(rec model.Record) []any {
	args := make([]any, 0, len(insertColumns))
	args = append(args, rec.TradeDate, rec.StockCode,
		nullText(rec.StockName), nullText(rec.Description), nullText(rec.Sector), rec.AuctionIncrease)
	for _, field := range model.NumericFields {
		v, _ := rec.Numeric(field)
		args = append(args, nullFloat(v))
	}
	return args
}

func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(v *float64) any {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return *v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.Record, error) {
	var (
		rec                          model.Record
		name, desc, sector, increase sql.NullString
		created                      sql.NullString
		nums                         = make([]sql.NullFloat64, len(model.NumericFields))
	)

	dest := []any{&rec.ID, &rec.TradeDate, &rec.StockCode, &name, &desc, &sector, &increase}
	for i := range nums {
		dest = append(dest, &nums[i])
	}
	dest = append(dest, &created)

	if err := row.Scan(dest...); err != nil {
		return rec, err
	}

	rec.StockName = name.String
	rec.Description = desc.String
	rec.Sector = sector.String
	rec.AuctionIncrease = increase.String
	for i, field := range model.NumericFields {
		if nums[i].Valid {
			v := nums[i].Float64
			rec.SetNumeric(field, &v)
		}
	}
	rec.CreatedAt = parseTimestamp(created.String)
	return rec, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05Z",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapStorageError(ErrStorageIO, "查询数据失败", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, WrapStorageError(ErrStorageIO, "读取数据行失败", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapStorageError(ErrStorageIO, "遍历数据行失败", err)
	}
	return records, nil
}

// likePattern 构造子串匹配模式，转义 LIKE 通配符
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// QueryByDate 按交易日期查询，默认按股票代码升序
func (s *Store) QueryByDate(ctx context.Context, date string, filter QueryFilter) ([]model.Record, error) {
	if date == "" {
		return nil, errMissingDate("query_by_date")
	}

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM stock_daily WHERE trade_date = ?")
	args := []any{date}

	if filter.Code != "" {
		b.WriteString(" AND stock_code = ?")
		args = append(args, filter.Code)
	}
	if filter.Sector != "" {
		b.WriteString(` AND sector LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Sector))
	}
	b.WriteString(" ORDER BY stock_code ASC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	return s.queryRecords(ctx, b.String(), args...)
}

// QueryByDateRange 按日期区间查询（闭区间），按日期、代码排序
func (s *Store) QueryByDateRange(ctx context.Context, start, end, code string) ([]model.Record, error) {
	if start == "" || end == "" {
		return nil, errMissingDate("query_by_date_range")
	}

	query := "SELECT " + selectColumns + " FROM stock_daily WHERE trade_date BETWEEN ? AND ?"
	args := []any{start, end}
	if code != "" {
		query += " AND stock_code = ?"
		args = append(args, code)
	}
	query += " ORDER BY trade_date, stock_code"

	return s.queryRecords(ctx, query, args...)
}

// Search 按代码或名称子串搜索，不区分大小写，可限定交易日期
func (s *Store) Search(ctx context.Context, keyword, date string) ([]model.Record, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, NewStorageError(ErrInvalidArgument, "搜索关键词不能为空")
	}

	pattern := likePattern(strings.ToLower(keyword))
	query := "SELECT " + selectColumns + ` FROM stock_daily WHERE (lower(stock_code) LIKE ? ESCAPE '\' OR lower(stock_name) LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if date != "" {
		query += " AND trade_date = ?"
		args = append(args, date)
	}
	query += " ORDER BY trade_date DESC, stock_code ASC"

	return s.queryRecords(ctx, query, args...)
}

// DistinctDates 返回所有已导入的交易日期，降序
func (s *Store) DistinctDates(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "SELECT DISTINCT trade_date FROM stock_daily ORDER BY trade_date DESC")
}

// LatestTradeDate 返回最新的交易日期
func (s *Store) LatestTradeDate(ctx context.Context) (string, bool, error) {
	dates, err := s.queryStrings(ctx, "SELECT MAX(trade_date) FROM stock_daily WHERE trade_date IS NOT NULL")
	if err != nil {
		return "", false, err
	}
	if len(dates) == 0 || dates[0] == "" {
		return "", false, nil
	}
	return dates[0], true, nil
}

// PreviousTradeDate 返回库中严格早于 date 的最近交易日期，不是日历上的前一天
func (s *Store) PreviousTradeDate(ctx context.Context, date string) (string, bool, error) {
	if date == "" {
		return "", false, errMissingDate("previous_trade_date")
	}
	dates, err := s.queryStrings(ctx,
		"SELECT DISTINCT trade_date FROM stock_daily WHERE trade_date < ? ORDER BY trade_date DESC LIMIT 1", date)
	if err != nil {
		return "", false, err
	}
	if len(dates) == 0 {
		return "", false, nil
	}
	return dates[0], true, nil
}

// DistinctSectors 返回所有板块。多板块字段按“、”拆分，去重后升序排列。
func (s *Store) DistinctSectors(ctx context.Context) ([]string, error) {
	raw, err := s.queryStrings(ctx, "SELECT DISTINCT sector FROM stock_daily WHERE sector IS NOT NULL AND sector != ''")
	if err != nil {
		return nil, err
	}
	return SplitSectors(raw), nil
}

// SplitSectors 拆分、去重并排序板块字符串
func SplitSectors(values []string) []string {
	set := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, SectorSeparator) {
			part = strings.TrimSpace(part)
			if part != "" {
				set[part] = struct{}{}
			}
		}
	}
	sectors := make([]string, 0, len(set))
	for sector := range set {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)
	return sectors
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapStorageError(ErrStorageIO, "查询失败", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, WrapStorageError(ErrStorageIO, "读取数据行失败", err)
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, WrapStorageError(ErrStorageIO, "遍历数据行失败", err)
	}
	return out, nil
}

// DeleteByDate 删除指定交易日期的全部记录，返回删除行数
func (s *Store) DeleteByDate(ctx context.Context, date string) (int64, error) {
	if date == "" {
		return 0, errMissingDate("delete_by_date")
	}
	return s.exec(ctx, "DELETE FROM stock_daily WHERE trade_date = ?", date)
}

// DeleteAll 清空全部日线数据，导入历史保留
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	return s.exec(ctx, "DELETE FROM stock_daily")
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, WrapStorageError(ErrStorageIO, "删除数据失败", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, WrapStorageError(ErrStorageIO, "获取影响行数失败", err)
	}
	s.recordStats(0, 0, n)
	s.logger.WithField("rows", n).Info("已删除数据")
	return n, nil
}

// Statistics 统计单个交易日：总数、主力净流入数、成交额增长数（对比库内昨日成交额列）、平均换手率
func (s *Store) Statistics(ctx context.Context, date string) (*model.Statistics, error) {
	if date == "" {
		return nil, errMissingDate("statistics")
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	const query = `
SELECT COUNT(*),
	COALESCE(SUM(CASE WHEN main_net_amount > 0 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN auction_today_volume > auction_yesterday_volume THEN 1 ELSE 0 END), 0),
	AVG(turnover_rate)
FROM stock_daily WHERE trade_date = ?`

	stats := &model.Statistics{TradeDate: date}
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, date).Scan(
		&stats.TotalCount, &stats.PositiveNetInflowCount, &stats.VolumeGrowthCount, &avg)
	if err != nil {
		return nil, WrapStorageError(ErrStorageIO, "统计数据失败", err)
	}
	if avg.Valid {
		stats.AvgTurnoverRate = math.Round(avg.Float64*100) / 100
	}
	return stats, nil
}

// Summary 返回数据库整体概况
func (s *Store) Summary(ctx context.Context) (*model.Summary, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var sum model.Summary
	var minDate, maxDate sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT trade_date), MIN(trade_date), MAX(trade_date) FROM stock_daily").
		Scan(&sum.TotalRecords, &sum.DateCount, &minDate, &maxDate)
	if err != nil {
		return nil, WrapStorageError(ErrStorageIO, "统计概况失败", err)
	}
	sum.MinDate = minDate.String
	sum.MaxDate = maxDate.String
	return &sum, nil
}
