package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// 常用缓存键
const (
	KeyDates   = "dates"
	KeySectors = "sectors"
)

// Config 查询缓存配置
type Config struct {
	TTL             time.Duration `mapstructure:"ttl" json:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval"`
}

// DefaultConfig 默认缓存配置
func DefaultConfig() Config {
	return Config{
		TTL:             5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Size          int           `json:"size"`
	HitCount      int64         `json:"hit_count"`
	MissCount     int64         `json:"miss_count"`
	HitRate       float64       `json:"hit_rate"`
	TTL           time.Duration `json:"ttl"`
	Invalidations int64         `json:"invalidations"`
}

// QueryCache 缓存变化不频繁的查询结果（日期列表、板块列表）。
// 导入完成或删除数据后整体失效。
type QueryCache struct {
	store *gocache.Cache
	ttl   time.Duration

	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

// New 创建查询缓存
func New(cfg Config) *QueryCache {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	return &QueryCache{
		store: gocache.New(cfg.TTL, cfg.CleanupInterval),
		ttl:   cfg.TTL,
	}
}

// Get 读取缓存值
func (c *QueryCache) Get(key string) (any, bool) {
	v, found := c.store.Get(key)
	if found {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, found
}

// Set 写入缓存值，使用默认过期时间
func (c *QueryCache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Invalidate 清空全部缓存
func (c *QueryCache) Invalidate() {
	c.store.Flush()
	c.invalidations.Add(1)
}

// Stats 返回统计信息
func (c *QueryCache) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	stats := CacheStats{
		Size:          c.store.ItemCount(),
		HitCount:      hits,
		MissCount:     misses,
		TTL:           c.ttl,
		Invalidations: c.invalidations.Load(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// GetOrLoad 命中时返回缓存值，否则调用 load 并缓存结果。load 出错时不缓存。
func GetOrLoad[T any](c *QueryCache, key string, load func() (T, error)) (T, error) {
	if v, found := c.Get(key); found {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		c.store.Delete(key)
	}

	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}
