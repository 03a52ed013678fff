package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stockdaily/pkg/logger"
)

// ErrorLevel 下游错误的严重级别
type ErrorLevel int

const (
	LevelFatal     ErrorLevel = iota // 连接被拒绝、域名不存在，重试无意义
	LevelTransient                   // 超时、连接中断，可重试
	LevelInvalid                     // 请求本身有问题
	LevelUnknown
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelFatal:
		return "fatal"
	case LevelTransient:
		return "transient"
	case LevelInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Classify 按错误内容判断级别
func Classify(err error) ErrorLevel {
	if err == nil {
		return LevelUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return LevelTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return LevelTransient
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "forbidden"):
		return LevelFatal
	}

	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "temporary failure"),
		strings.Contains(msg, "loading"), // redis 启动中
		strings.Contains(msg, "eof"):
		return LevelTransient
	}

	switch {
	case strings.Contains(msg, "invalid"),
		strings.Contains(msg, "bad request"),
		strings.Contains(msg, "unprocessable"):
		return LevelInvalid
	}

	return LevelUnknown
}

// RetryConfig 重试配置，Backoff 依次作为每次重试前的等待时间
type RetryConfig struct {
	MaxAttempts int             `mapstructure:"max_attempts" json:"max_attempts"`
	Backoff     []time.Duration `mapstructure:"backoff" json:"backoff"`
}

// DefaultRetryConfig 默认最多尝试 3 次
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     []time.Duration{500 * time.Millisecond, 2 * time.Second},
	}
}

// Retry 对可重试的错误按退避时间重发
type Retry struct {
	sink  Sink
	cfg   RetryConfig
	sleep func(ctx context.Context, d time.Duration) error
	log   *logrus.Entry
}

// NewRetry 包装 s。MaxAttempts 小于 1 时按 1 处理。
func NewRetry(s Sink, cfg RetryConfig) *Retry {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Retry{
		sink:  s,
		cfg:   cfg,
		sleep: sleepContext,
		log:   logger.WithComponent("sink.retry"),
	}
}

func (r *Retry) Name() string {
	return fmt.Sprintf("retry(%s)", r.sink.Name())
}

// Publish 发布，临时错误时重试
func (r *Retry) Publish(ctx context.Context, notice ImportNotice) error {
	var err error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if err = r.sink.Publish(ctx, notice); err == nil {
			return nil
		}

		level := Classify(err)
		if level != LevelTransient || attempt == r.cfg.MaxAttempts-1 {
			break
		}

		wait := r.backoff(attempt)
		r.log.WithError(err).WithFields(logrus.Fields{
			"sink":    r.sink.Name(),
			"attempt": attempt + 1,
			"wait":    wait,
		}).Warn("发布失败，等待重试")

		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
	return err
}

func (r *Retry) backoff(attempt int) time.Duration {
	if len(r.cfg.Backoff) == 0 {
		return 0
	}
	if attempt < len(r.cfg.Backoff) {
		return r.cfg.Backoff[attempt]
	}
	return r.cfg.Backoff[len(r.cfg.Backoff)-1]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
