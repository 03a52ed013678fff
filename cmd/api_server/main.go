package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"stockdaily/pkg/api"
	"stockdaily/pkg/cache"
	"stockdaily/pkg/config"
	"stockdaily/pkg/importer"
	"stockdaily/pkg/logger"
	"stockdaily/pkg/scheduler"
	"stockdaily/pkg/sink"
	"stockdaily/pkg/storage"
)

var (
	configPath  = flag.String("config", "", "配置文件路径 (例如 /app/config/stockdaily.yaml)")
	logLevel    = flag.String("log-level", "", "日志级别 (debug, info, warn, error)")
	logFormat   = flag.String("log-format", "", "日志格式 (json or text)")
	port        = flag.String("port", "", "HTTP 监听端口")
	dbPath      = flag.String("db", "", "数据库文件路径")
	redisAddr   = flag.String("redis", "", "Redis 地址，指定后启用 Redis 导入事件")
	influxURL   = flag.String("influxdb-url", "", "InfluxDB URL，指定后启用指标写入")
	influxToken = flag.String("influxdb-token", "", "InfluxDB token")
)

const producer = "stockdaily-api"

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logger)
	log := logger.WithComponent("api_server")

	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("API server exited with error")
	}
	log.Info("已退出")
}

// loadConfig 加载配置文件，命令行参数优先
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	if *logLevel != "" {
		cfg.SetLogLevel(*logLevel)
	}
	if *logFormat != "" {
		cfg.Logger.Format = *logFormat
	}
	if *port != "" {
		cfg.SetServerPort(*port)
	}
	if *dbPath != "" {
		cfg.SetDatabasePath(*dbPath)
	}
	if *redisAddr != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = *redisAddr
	}
	if *influxURL != "" {
		cfg.InfluxDB.Enabled = true
		cfg.InfluxDB.URL = *influxURL
	}
	if *influxToken != "" {
		cfg.InfluxDB.Token = *influxToken
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	sinks, closeSinks := buildSinks(ctx, cfg, log)
	defer closeSinks()

	queryCache := cache.New(cfg.Cache)

	orch := importer.New(store, cfg.Normalizer(),
		importer.WithReader(cfg.Reader()),
		importer.WithFallbackColumn(cfg.Mapping.FallbackDateColumn),
		importer.WithSink(sinks),
		importer.WithOnComplete(func(result importer.BatchResult) {
			queryCache.Invalidate()
			log.WithFields(logrus.Fields{
				"batch_id":      result.BatchID,
				"state":         result.State,
				"success_files": result.SuccessFiles,
				"failed_files":  result.FailedFiles,
				"total_records": result.TotalRecords,
			}).Info("导入批次结束")
		}),
	)

	sched := scheduler.NewJobScheduler()
	sched.SetExecutor(scheduler.NewImportExecutor(orch, store, cfg.Calendar()))
	loaded := sched.LoadJobs(cfg.Jobs)
	log.WithField("jobs", loaded).Info("定时导入任务已加载")

	server := api.NewServer(store, orch,
		api.WithPort(cfg.Server.Port),
		api.WithCache(queryCache),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	g.Go(func() error {
		if err := sched.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		log.Info("收到退出信号，停止调度器...")
		stopImport(orch, log)
		return sched.Stop()
	})

	return g.Wait()
}

// stopImport 停止当前导入并等待正在处理的文件写完，数据库在此之后才关闭
func stopImport(orch *importer.Orchestrator, log *logrus.Entry) {
	task := orch.Current()
	if task == nil {
		return
	}
	task.Stop()
	select {
	case <-task.Done():
		return
	default:
	}
	log.WithField("batch_id", task.ID).Info("等待当前文件导入完成...")
	<-task.Done()
}

// buildSinks 按配置创建导入事件下游，连接失败的下游被跳过
func buildSinks(ctx context.Context, cfg *config.Config, log *logrus.Entry) (sink.Sink, func()) {
	var (
		sinks   []sink.Sink
		closers []func()
	)

	if cfg.Redis.Enabled {
		client, err := sink.DialRedis(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Warn("Redis 不可用，跳过导入事件发布")
		} else {
			redisSink := sink.NewRedisSink(client, cfg.Redis, producer)
			sinks = append(sinks, sink.NewBreaker(sink.NewRetry(redisSink, cfg.Retry), cfg.Breaker))
			closers = append(closers, func() { client.Close() })
			log.WithField("stream", redisSink.Stream()).Info("Redis 导入事件已启用")
		}
	}

	if cfg.InfluxDB.Enabled {
		client, influxSink, err := sink.DialInflux(ctx, cfg.InfluxDB)
		if err != nil {
			log.WithError(err).Warn("InfluxDB 不可用，跳过指标写入")
		} else {
			sinks = append(sinks, sink.NewBreaker(sink.NewRetry(influxSink, cfg.Retry), cfg.Breaker))
			closers = append(closers, client.Close)
			log.WithField("bucket", cfg.InfluxDB.Bucket).Info("InfluxDB 指标写入已启用")
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return nil, closeAll
	}
	return sink.NewMulti(sinks...), closeAll
}
