package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"stockdaily/pkg/cache"
	"stockdaily/pkg/logger"
	"stockdaily/pkg/model"
	"stockdaily/pkg/normalize"
	"stockdaily/pkg/scheduler"
	"stockdaily/pkg/sink"
	"stockdaily/pkg/source"
	"stockdaily/pkg/storage"
	"stockdaily/pkg/timing"
	"stockdaily/pkg/tradedate"
)

// EnvPrefix 环境变量前缀，例如 STOCKDAILY_DATABASE_PATH
const EnvPrefix = "STOCKDAILY"

// Config 主配置结构
type Config struct {
	// 数据库配置
	Database storage.Config `mapstructure:"database" json:"database"`

	// 日志配置
	Logger logger.Config `mapstructure:"logger" json:"logger"`

	// 列映射配置
	Mapping MappingConfig `mapstructure:"mapping" json:"mapping"`

	// 导入配置
	Import ImportConfig `mapstructure:"import" json:"import"`

	// HTTP 服务配置
	Server ServerConfig `mapstructure:"server" json:"server"`

	// 查询缓存配置
	Cache cache.Config `mapstructure:"cache" json:"cache"`

	// 导入事件下游
	Redis    sink.RedisConfig   `mapstructure:"redis" json:"redis"`
	InfluxDB sink.InfluxConfig  `mapstructure:"influxdb" json:"influxdb"`
	Breaker  sink.BreakerConfig `mapstructure:"breaker" json:"breaker"`
	Retry    sink.RetryConfig   `mapstructure:"retry" json:"retry"`

	// 定时导入任务
	Jobs []scheduler.JobConfig `mapstructure:"jobs" json:"jobs"`

	// 周末以外的休市日，YYYY-MM-DD
	Holidays []string `mapstructure:"holidays" json:"holidays"`
}

// MappingConfig 源列到规范字段的映射
type MappingConfig struct {
	Columns            []normalize.ColumnRule `mapstructure:"columns" json:"columns"`
	NumericFields      []string               `mapstructure:"numeric_fields" json:"numeric_fields"`
	FallbackDateColumn string                 `mapstructure:"fallback_date_column" json:"fallback_date_column"`
}

// ImportConfig 导入配置
type ImportConfig struct {
	Directory   string   `mapstructure:"directory" json:"directory"`       // 批量重新导入的默认目录
	Patterns    []string `mapstructure:"patterns" json:"patterns"`         // 扫描的文件模式
	CSVEncoding string   `mapstructure:"csv_encoding" json:"csv_encoding"` // utf-8 或 gbk
	SheetName   string   `mapstructure:"sheet_name" json:"sheet_name"`     // 为空时读取第一个工作表
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `mapstructure:"port" json:"port"`
	Mode string `mapstructure:"mode" json:"mode"` // debug, release, test
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Database: storage.DefaultConfig(),
		Logger: logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Mapping: MappingConfig{
			Columns:            normalize.DefaultRules(),
			NumericFields:      append([]string(nil), model.NumericFields...),
			FallbackDateColumn: tradedate.DefaultFallbackColumn,
		},
		Import: ImportConfig{
			Directory:   "data/imports",
			Patterns:    append([]string(nil), source.DefaultPatterns...),
			CSVEncoding: "utf-8",
		},
		Server: ServerConfig{
			Port: "8080",
			Mode: "release",
		},
		Cache: cache.DefaultConfig(),
		Redis: sink.RedisConfig{
			Addr:   "localhost:6379",
			Stream: "stream:stockdaily:imports",
			MaxLen: 10000,
		},
		InfluxDB: sink.InfluxConfig{
			URL:         "http://localhost:8086",
			Org:         "stockdaily",
			Bucket:      "stock_daily",
			Measurement: sink.DefaultMeasurement,
		},
		Breaker: sink.DefaultBreakerConfig(),
		Retry:   sink.DefaultRetryConfig(),
	}
}

// Load 加载配置：默认值 < 配置文件 < 环境变量。
// path 为空时在 ./config 和当前目录查找 stockdaily.yaml，找不到文件时使用默认值。
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stockdaily")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.fillLists()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 注册标量默认值，使环境变量可以覆盖它们
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.busy_timeout", d.Database.BusyTimeout)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output", d.Logger.Output)

	v.SetDefault("mapping.fallback_date_column", d.Mapping.FallbackDateColumn)

	v.SetDefault("import.directory", d.Import.Directory)
	v.SetDefault("import.csv_encoding", d.Import.CSVEncoding)
	v.SetDefault("import.sheet_name", d.Import.SheetName)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.stream", d.Redis.Stream)
	v.SetDefault("redis.max_len", d.Redis.MaxLen)

	v.SetDefault("influxdb.enabled", d.InfluxDB.Enabled)
	v.SetDefault("influxdb.url", d.InfluxDB.URL)
	v.SetDefault("influxdb.token", d.InfluxDB.Token)
	v.SetDefault("influxdb.org", d.InfluxDB.Org)
	v.SetDefault("influxdb.bucket", d.InfluxDB.Bucket)
	v.SetDefault("influxdb.measurement", d.InfluxDB.Measurement)

	v.SetDefault("breaker.max_requests", d.Breaker.MaxRequests)
	v.SetDefault("breaker.interval", d.Breaker.Interval)
	v.SetDefault("breaker.timeout", d.Breaker.Timeout)
	v.SetDefault("breaker.ready_to_trip", d.Breaker.ReadyToTrip)

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
}

// fillLists 列表类配置未提供时使用默认值，提供时整体替换
func (c *Config) fillLists() {
	d := Default()
	if len(c.Mapping.Columns) == 0 {
		c.Mapping.Columns = d.Mapping.Columns
	}
	if len(c.Mapping.NumericFields) == 0 {
		c.Mapping.NumericFields = d.Mapping.NumericFields
	}
	if len(c.Import.Patterns) == 0 {
		c.Import.Patterns = d.Import.Patterns
	}
	if len(c.Retry.Backoff) == 0 {
		c.Retry.Backoff = d.Retry.Backoff
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path cannot be empty")
	}

	if len(c.Mapping.Columns) == 0 {
		return errors.New("mapping columns cannot be empty")
	}
	hasCode := false
	for i, rule := range c.Mapping.Columns {
		if rule.Label == "" || rule.Field == "" {
			return fmt.Errorf("mapping column %d: label and field are required", i)
		}
		if !model.IsKnownField(rule.Field) {
			return fmt.Errorf("mapping column %q: unknown field %q", rule.Label, rule.Field)
		}
		if rule.Field == model.FieldStockCode {
			hasCode = true
		}
	}
	if !hasCode {
		return errors.New("mapping must contain a stock_code column")
	}
	for _, f := range c.Mapping.NumericFields {
		if !model.IsNumericField(f) {
			return fmt.Errorf("numeric field %q is not a numeric column", f)
		}
	}

	switch strings.ToLower(c.Import.CSVEncoding) {
	case "", "utf-8", "utf8", "gbk", "gb18030", "gb2312":
	default:
		return fmt.Errorf("unsupported csv encoding %q", c.Import.CSVEncoding)
	}

	if c.Server.Port == "" {
		return errors.New("server port cannot be empty")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis addr is required when redis is enabled")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		return errors.New("influxdb url, org and bucket are required when influxdb is enabled")
	}

	for _, job := range c.Jobs {
		if err := scheduler.ValidateJobConfig(job); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
	}

	for _, h := range c.Holidays {
		if _, err := timing.ParseDate(h); err != nil {
			return fmt.Errorf("invalid holiday %q: %w", h, err)
		}
	}

	return nil
}

// ColumnMapping 构造列映射
func (c *Config) ColumnMapping() *normalize.ColumnMapping {
	return normalize.NewColumnMapping(c.Mapping.Columns)
}

// Normalizer 构造记录标准化器
func (c *Config) Normalizer() *normalize.Normalizer {
	return normalize.NewNormalizer(c.ColumnMapping(), c.Mapping.NumericFields)
}

// Reader 构造源文件读取器
func (c *Config) Reader() source.Reader {
	return source.NewMultiReader(c.Import.SheetName, c.Import.CSVEncoding)
}

// Calendar 构造交易日历
func (c *Config) Calendar() *timing.MarketTime {
	return timing.NewMarketTime(nil, c.Holidays...)
}

// SetDatabasePath 设置数据库路径
func (c *Config) SetDatabasePath(path string) *Config {
	c.Database.Path = path
	return c
}

// SetLogLevel 设置日志级别
func (c *Config) SetLogLevel(level string) *Config {
	c.Logger.Level = level
	return c
}

// SetImportDirectory 设置导入目录
func (c *Config) SetImportDirectory(dir string) *Config {
	c.Import.Directory = dir
	return c
}

// SetServerPort 设置 HTTP 端口
func (c *Config) SetServerPort(port string) *Config {
	c.Server.Port = port
	return c
}

// AddJob 追加定时导入任务
func (c *Config) AddJob(job scheduler.JobConfig) *Config {
	c.Jobs = append(c.Jobs, job)
	return c
}
