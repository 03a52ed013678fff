package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"stockdaily/pkg/config"
	"stockdaily/pkg/logger"
	"stockdaily/pkg/storage"
)

const usage = `stockdb - 股票日线数据管理工具

用法:
  stockdb [-config 文件] [-db 数据库] [-log-level 级别] <命令> [参数]

命令:
  import FILE...                         导入一个或多个文件
  reimport DIR [-clear] [-yes]           重新导入目录下的全部文件
  query -date D [-code -sector -limit -compare]
  range -start D -end D [-code C]        按日期区间查询
  search KEYWORD [-date D]               按代码或名称搜索
  dates                                  列出已导入的交易日
  sectors                                列出全部板块
  stats [-date D]                        单日统计，默认最新交易日
  delete -date D [-yes]                  删除某个交易日的数据
  history [-limit N]                     导入历史
  export [-date D] -out FILE             导出为 xlsx 或 csv
`

// command 子命令
type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"import":   cmdImport,
	"reimport": cmdReimport,
	"query":    cmdQuery,
	"range":    cmdRange,
	"search":   cmdSearch,
	"dates":    cmdDates,
	"sectors":  cmdSectors,
	"stats":    cmdStats,
	"delete":   cmdDelete,
	"history":  cmdHistory,
	"export":   cmdExport,
}

// app 命令执行环境
type app struct {
	cfg   *config.Config
	store *storage.Store
	out   io.Writer
	in    io.Reader
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// run 解析全局参数，打开数据库并执行子命令
func run(ctx context.Context, args []string, out io.Writer, in io.Reader) error {
	fs := flag.NewFlagSet("stockdb", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "配置文件路径 (默认查找 ./config/stockdaily.yaml)")
	dbPath := fs.String("db", "", "数据库文件路径，覆盖配置")
	logLevel := fs.String("log-level", "", "日志级别 (debug, info, warn, error)")
	fs.Usage = func() { fmt.Fprint(out, usage) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("缺少命令")
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("未知命令: %s (可用: %v)", name, commandNames())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.SetDatabasePath(*dbPath)
	}
	if *logLevel != "" {
		cfg.SetLogLevel(*logLevel)
	}
	// 命令行输出走 stdout，日志默认写 stderr 避免混在表格里
	if cfg.Logger.Output == "" || cfg.Logger.Output == "stdout" {
		cfg.Logger.Output = "stderr"
	}
	logger.Init(cfg.Logger)

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	a := &app{cfg: cfg, store: store, out: out, in: in}
	return cmd(ctx, a, fs.Args()[1:])
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
