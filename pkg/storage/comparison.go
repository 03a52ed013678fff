package storage

import (
	"context"

	"github.com/sirupsen/logrus"

	"stockdaily/pkg/model"
)

// QueryWithComparison 按日期查询并附加与前一交易日的对比列。
// 前一交易日取库内严格早于 date 的最近日期；没有前一交易日、前一日无数据、
// 代码不匹配、任一值缺失或前值为0时，对比值均为 nil。输出顺序与 QueryByDate 一致。
func (s *Store) QueryWithComparison(ctx context.Context, date string, filter QueryFilter) ([]model.ComparisonResult, error) {
	today, err := s.QueryByDate(ctx, date, filter)
	if err != nil {
		return nil, err
	}

	results := make([]model.ComparisonResult, len(today))
	for i, rec := range today {
		results[i] = model.ComparisonResult{Record: rec}
	}
	if len(today) == 0 {
		return results, nil
	}

	log := s.logger.WithField("trade_date", date)

	prevDate, ok, err := s.PreviousTradeDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("没有前一个交易日，对比列设为空")
		return results, nil
	}

	prev, err := s.QueryByDate(ctx, prevDate, QueryFilter{})
	if err != nil {
		return nil, err
	}
	if len(prev) == 0 {
		log.WithField("prev_date", prevDate).Warn("前一个交易日没有数据，对比列设为空")
		return results, nil
	}

	prevByCode := make(map[string]model.Record, len(prev))
	for _, rec := range prev {
		prevByCode[rec.StockCode] = rec
	}

	for i := range results {
		p, found := prevByCode[results[i].StockCode]
		if !found {
			continue
		}
		results[i].MainNetPrevRatio = ratio(results[i].MainNetAmount, p.MainNetAmount)
		results[i].VolumePrevRatio = ratio(results[i].AuctionTodayVolume, p.AuctionTodayVolume)
	}

	log.WithFields(logrus.Fields{
		"prev_date": prevDate,
		"rows":      len(results),
	}).Info("已计算与前一交易日的对比值")
	return results, nil
}

func ratio(today, prev *float64) *float64 {
	if today == nil || prev == nil || *prev == 0 {
		return nil
	}
	r := *today / *prev
	return &r
}
