package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"stockdaily/pkg/logger"
)

// Config 数据库配置
type Config struct {
	Path         string        `mapstructure:"path" json:"path"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout" json:"busy_timeout"`
	MaxOpenConns int           `mapstructure:"max_open_conns" json:"max_open_conns"`
}

// DefaultConfig 返回默认数据库配置
func DefaultConfig() Config {
	return Config{
		Path:         "data/stock_data.db",
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}
}

// Stats 写入统计
type Stats struct {
	Upserted  int64     `json:"upserted"`
	Skipped   int64     `json:"skipped"`
	Deleted   int64     `json:"deleted"`
	LastWrite time.Time `json:"last_write"`
}

// Store 基于 SQLite 的日线指标存储。
// 所有写操作经 writeMu 串行化；读操作不加锁，可能看到部分完成的批次。
type Store struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
	closed  atomic.Bool
	logger  *logrus.Entry

	statsMu sync.RWMutex
	stats   Stats
}

// Open 打开数据库并幂等地创建表结构，失败时返回 STORE_OPEN_FAILED 错误
func Open(ctx context.Context, cfg Config) (*Store, error) {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = def.BusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = def.MaxOpenConns
	}

	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, WrapStorageError(ErrStoreOpen, "解析数据库路径失败", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return nil, WrapStorageError(ErrStoreOpen, "创建数据库目录失败", err)
		}
		path = abs
	}

	db, err := sql.Open("sqlite", connectionString(path, cfg.BusyTimeout))
	if err != nil {
		return nil, WrapStorageError(ErrStoreOpen, "打开数据库失败", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, WrapStorageError(ErrStoreOpen, "连接数据库失败", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		logger: logger.WithComponent("storage"),
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, WrapStorageError(ErrStoreOpen, "初始化表结构失败", err)
	}

	s.logger.WithField("path", path).Info("数据库初始化成功")
	return s, nil
}

func connectionString(path string, busy time.Duration) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, sep, busy.Milliseconds())
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stock_daily (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_date TEXT NOT NULL,
	stock_code TEXT NOT NULL,
	stock_name TEXT,
	current_price REAL,
	price_change REAL,
	description TEXT,
	sector TEXT,
	main_net_amount REAL,
	auction_today_volume REAL,
	real_market_value REAL,
	flow_ratio REAL,
	net_ratio REAL,
	real_turnover_rate REAL,
	turnover_rate REAL,
	volume_ratio REAL,
	popularity_value REAL,
	auction_net_amount REAL,
	auction_increase TEXT,
	auction_main_net REAL,
	auction_yesterday_volume REAL,
	main_net_ratio REAL,
	buy_sell_ratio REAL,
	popularity_change REAL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(trade_date, stock_code)
);
CREATE INDEX IF NOT EXISTS idx_date ON stock_daily(trade_date);
CREATE INDEX IF NOT EXISTS idx_code ON stock_daily(stock_code);
CREATE INDEX IF NOT EXISTS idx_date_code ON stock_daily(trade_date, stock_code);
CREATE INDEX IF NOT EXISTS idx_sector ON stock_daily(sector);
CREATE INDEX IF NOT EXISTS idx_date_sector ON stock_daily(trade_date, sector);
CREATE TABLE IF NOT EXISTS import_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	import_date DATETIME DEFAULT CURRENT_TIMESTAMP,
	file_name TEXT,
	trade_date TEXT,
	records_count INTEGER,
	status TEXT,
	error_message TEXT
);
`

func (s *Store) initSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行建表语句失败: %w", err)
		}
	}
	return nil
}

// Path 返回数据库文件路径
func (s *Store) Path() string {
	return s.path
}

// Stats 返回写入统计
func (s *Store) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *Store) recordStats(upserted, skipped, deleted int64) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Upserted += upserted
	s.stats.Skipped += skipped
	s.stats.Deleted += deleted
	s.stats.LastWrite = time.Now()
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("数据库连接已关闭")
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return errClosed
	}
	return nil
}
