package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"stockdaily/pkg/export"
	"stockdaily/pkg/model"
)

// 终端表格只显示常用列
var tableKeys = []string{
	model.FieldTradeDate,
	model.FieldStockCode,
	model.FieldStockName,
	model.FieldCurrentPrice,
	model.FieldPriceChange,
	model.FieldSector,
	model.FieldMainNetAmount,
	model.FieldAuctionTodayVolume,
	model.FieldTurnoverRate,
	model.FieldVolumeRatio,
}

func tableColumns(compare bool) []export.Column {
	if !compare {
		return export.ColumnsFor(tableKeys)
	}
	keys := make([]string, 0, len(tableKeys)+2)
	for _, k := range tableKeys {
		keys = append(keys, k)
		switch k {
		case model.FieldMainNetAmount:
			keys = append(keys, model.FieldMainNetPrevRatio)
		case model.FieldAuctionTodayVolume:
			keys = append(keys, model.FieldVolumePrevRatio)
		}
	}
	return export.ColumnsFor(keys)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printResults(w io.Writer, results []model.ComparisonResult, cols []export.Column) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "没有匹配的记录")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, strings.Join(export.Titles(cols), "\t"))
	cells := make([]string, len(cols))
	for _, r := range results {
		for i, c := range cols {
			cells[i] = export.FormatValue(r, c.Key)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "共 %d 条\n", len(results))
	return nil
}

func printRecords(w io.Writer, records []model.Record) error {
	results := make([]model.ComparisonResult, len(records))
	for i, r := range records {
		results[i] = model.ComparisonResult{Record: r}
	}
	return printResults(w, results, tableColumns(false))
}

func printLines(w io.Writer, lines []string, empty string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func printStatistics(w io.Writer, s *model.Statistics) {
	tw := newTable(w)
	fmt.Fprintf(tw, "交易日期\t%s\n", s.TradeDate)
	fmt.Fprintf(tw, "股票总数\t%d\n", s.TotalCount)
	fmt.Fprintf(tw, "主力净流入\t%d\n", s.PositiveNetInflowCount)
	fmt.Fprintf(tw, "成交额增长\t%d\n", s.VolumeGrowthCount)
	fmt.Fprintf(tw, "平均换手率\t%.2f%%\n", s.AvgTurnoverRate)
	tw.Flush()
}

func printHistory(w io.Writer, entries []model.ImportHistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "暂无导入记录")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "导入时间\t文件\t交易日期\t记录数\t状态\t错误")
	for _, e := range entries {
		date := "-"
		if e.TradeDate != nil {
			date = *e.TradeDate
		}
		msg := ""
		if e.ErrorMessage != nil {
			msg = *e.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ImportDate.Local().Format("2006-01-02 15:04:05"), e.FileName, date, e.RecordsCount, e.Status, msg)
	}
	return tw.Flush()
}
