package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"stockdaily/pkg/logger"
)

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	MaxRequests uint32        `mapstructure:"max_requests" json:"max_requests"` // 半开状态下的最大请求数
	Interval    time.Duration `mapstructure:"interval" json:"interval"`         // 统计窗口时间
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`           // 熔断器打开后的超时时间
	ReadyToTrip uint32        `mapstructure:"ready_to_trip" json:"ready_to_trip"`
}

// DefaultBreakerConfig 默认熔断器配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: 3,
	}
}

// BreakerStats 熔断器统计信息
type BreakerStats struct {
	TotalRequests  int64     `json:"total_requests"`
	FailedRequests int64     `json:"failed_requests"`
	Rejected       int64     `json:"rejected"`
	LastFailure    time.Time `json:"last_failure"`
}

// Breaker 为下游加上熔断保护，下游持续失败时直接拒绝发布
type Breaker struct {
	sink Sink
	cb   *gobreaker.CircuitBreaker

	mu    sync.RWMutex
	stats BreakerStats
}

// NewBreaker 创建熔断器装饰
func NewBreaker(s Sink, cfg BreakerConfig) *Breaker {
	if cfg.ReadyToTrip == 0 {
		cfg.ReadyToTrip = DefaultBreakerConfig().ReadyToTrip
	}
	log := logger.WithComponent("sink.breaker")

	settings := gobreaker.Settings{
		Name:        s.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ReadyToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"sink": name,
				"from": from.String(),
				"to":   to.String(),
			}).Warn("熔断器状态变更")
		},
	}

	return &Breaker{
		sink: s,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *Breaker) Name() string {
	return fmt.Sprintf("breaker(%s)", b.sink.Name())
}

// Publish 通过熔断器发布
func (b *Breaker) Publish(ctx context.Context, notice ImportNotice) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.sink.Publish(ctx, notice)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.TotalRequests++
	if err != nil {
		b.stats.FailedRequests++
		b.stats.LastFailure = time.Now()
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			b.stats.Rejected++
		}
	}
	return err
}

// State 返回熔断器当前状态
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Stats 返回统计信息
func (b *Breaker) Stats() BreakerStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}
