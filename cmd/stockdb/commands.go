package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"stockdaily/pkg/export"
	"stockdaily/pkg/importer"
	"stockdaily/pkg/model"
	"stockdaily/pkg/source"
	"stockdaily/pkg/storage"
)

// parseArgs 解析参数，允许位置参数和 flag 交错出现
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// confirm 询问用户，只有输入 y 或 yes 时返回 true
func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *app) newImporter() *importer.Orchestrator {
	return importer.New(a.store, a.cfg.Normalizer(),
		importer.WithReader(a.cfg.Reader()),
		importer.WithFallbackColumn(a.cfg.Mapping.FallbackDateColumn),
	)
}

// runImport 同步导入并逐个文件打印进度
func (a *app) runImport(ctx context.Context, files []string) importer.BatchResult {
	events := make(chan importer.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			switch ev := e.(type) {
			case importer.ProgressEvent:
				fmt.Fprintf(a.out, "[%d/%d] %s\n", ev.Index, ev.Total, ev.FileName)
			case importer.FileEvent:
				mark := "✓"
				if !ev.OK {
					mark = "✗"
				}
				fmt.Fprintf(a.out, "  %s %s\n", mark, ev.Message)
			}
		}
	}()

	result := a.newImporter().Run(ctx, files, events)
	close(events)
	<-done
	return result
}

func (a *app) printBatch(result importer.BatchResult) {
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "导入完成: 成功 %d 个文件，失败 %d 个文件，共 %d 条记录\n",
		result.SuccessFiles, result.FailedFiles, result.TotalRecords)
	if result.State == importer.StateCancelled {
		fmt.Fprintln(a.out, "导入已取消，剩余文件未处理")
	}
}

func (a *app) printSummary(ctx context.Context, title string) (*model.Summary, error) {
	summary, err := a.store.Summary(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "%s: %d 条记录，%d 个交易日", title, summary.TotalRecords, summary.DateCount)
	if summary.DateCount > 0 {
		fmt.Fprintf(a.out, " (%s ~ %s)", summary.MinDate, summary.MaxDate)
	}
	fmt.Fprintln(a.out)
	return summary, nil
}

func cmdImport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "import")
	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("请指定要导入的文件")
	}

	result := a.runImport(ctx, files)
	a.printBatch(result)
	if result.FailedFiles > 0 && result.SuccessFiles == 0 {
		return fmt.Errorf("%d 个文件全部导入失败", result.FailedFiles)
	}
	return nil
}

func cmdReimport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "reimport")
	clearAll := fs.Bool("clear", false, "导入前清空全部数据")
	yes := fs.Bool("yes", false, "不再确认")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	dir := a.cfg.Import.Directory
	if len(pos) > 0 {
		dir = pos[0]
	}

	before, err := a.printSummary(ctx, "导入前")
	if err != nil {
		return err
	}

	files, err := source.ListFiles(dir, a.cfg.Import.Patterns)
	if err != nil {
		return fmt.Errorf("扫描目录 %s 失败: %w", dir, err)
	}
	fmt.Fprintf(a.out, "目录 %s 中找到 %d 个文件\n", dir, len(files))
	if len(files) == 0 {
		return nil
	}

	if *clearAll && before.TotalRecords > 0 {
		if !*yes && !a.confirm(fmt.Sprintf("将删除全部 %d 条记录，确认继续?", before.TotalRecords)) {
			fmt.Fprintln(a.out, "已取消")
			return nil
		}
		deleted, err := a.store.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "已清空 %d 条记录\n", deleted)
	}

	result := a.runImport(ctx, files)
	a.printBatch(result)

	_, err = a.printSummary(ctx, "导入后")
	return err
}

func cmdQuery(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "query")
	date := fs.String("date", "", "交易日期 YYYY-MM-DD")
	code := fs.String("code", "", "股票代码")
	sector := fs.String("sector", "", "板块（子串匹配）")
	limit := fs.Int("limit", 0, "最多返回条数")
	compare := fs.Bool("compare", false, "显示前日对比列")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *date == "" {
		return errors.New("请用 -date 指定交易日期")
	}

	filter := storage.QueryFilter{Code: *code, Sector: *sector, Limit: *limit}
	if *compare {
		results, err := a.store.QueryWithComparison(ctx, *date, filter)
		if err != nil {
			return err
		}
		return printResults(a.out, results, tableColumns(true))
	}

	records, err := a.store.QueryByDate(ctx, *date, filter)
	if err != nil {
		return err
	}
	return printRecords(a.out, records)
}

func cmdRange(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "range")
	start := fs.String("start", "", "开始日期")
	end := fs.String("end", "", "结束日期")
	code := fs.String("code", "", "股票代码")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *start == "" || *end == "" {
		return errors.New("请用 -start 和 -end 指定日期区间")
	}

	records, err := a.store.QueryByDateRange(ctx, *start, *end, *code)
	if err != nil {
		return err
	}
	return printRecords(a.out, records)
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "search")
	date := fs.String("date", "", "限定交易日期")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		return errors.New("请指定搜索关键词")
	}

	records, err := a.store.Search(ctx, strings.Join(pos, " "), *date)
	if err != nil {
		return err
	}
	return printRecords(a.out, records)
}

func cmdDates(ctx context.Context, a *app, args []string) error {
	dates, err := a.store.DistinctDates(ctx)
	if err != nil {
		return err
	}
	printLines(a.out, dates, "暂无数据")
	return nil
}

func cmdSectors(ctx context.Context, a *app, args []string) error {
	sectors, err := a.store.DistinctSectors(ctx)
	if err != nil {
		return err
	}
	printLines(a.out, sectors, "暂无板块")
	return nil
}

// latestOr 未指定日期时返回最新交易日
func (a *app) latestOr(ctx context.Context, date string) (string, error) {
	if date != "" {
		return date, nil
	}
	latest, ok, err := a.store.LatestTradeDate(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("数据库中暂无数据")
	}
	return latest, nil
}

func cmdStats(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "stats")
	date := fs.String("date", "", "交易日期，默认最新")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	d, err := a.latestOr(ctx, *date)
	if err != nil {
		return err
	}
	stats, err := a.store.Statistics(ctx, d)
	if err != nil {
		return err
	}
	printStatistics(a.out, stats)
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "delete")
	date := fs.String("date", "", "要删除的交易日期")
	yes := fs.Bool("yes", false, "不再确认")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *date == "" {
		return errors.New("请用 -date 指定交易日期")
	}

	if !*yes && !a.confirm(fmt.Sprintf("确认删除 %s 的全部数据?", *date)) {
		fmt.Fprintln(a.out, "已取消")
		return nil
	}
	deleted, err := a.store.DeleteByDate(ctx, *date)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "已删除 %s 的 %d 条记录\n", *date, deleted)
	return nil
}

func cmdHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "history")
	limit := fs.Int("limit", 20, "显示条数")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	entries, err := a.store.ImportHistory(ctx, *limit)
	if err != nil {
		return err
	}
	return printHistory(a.out, entries)
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "export")
	date := fs.String("date", "", "交易日期，默认最新")
	out := fs.String("out", "", "输出文件 (.xlsx 或 .csv)")
	code := fs.String("code", "", "股票代码")
	sector := fs.String("sector", "", "板块")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("请用 -out 指定输出文件")
	}

	d, err := a.latestOr(ctx, *date)
	if err != nil {
		return err
	}
	results, err := a.store.QueryWithComparison(ctx, d, storage.QueryFilter{Code: *code, Sector: *sector})
	if err != nil {
		return err
	}
	if err := export.Write(*out, results, export.DefaultColumns); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "已导出 %s 的 %d 条记录到 %s\n", d, len(results), filepath.Clean(*out))
	return nil
}
