package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"stockdaily/pkg/logger"
	"stockdaily/pkg/message"
)

// RedisConfig Redis Stream 下游配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
	Stream   string `mapstructure:"stream" json:"stream"`
	MaxLen   int64  `mapstructure:"max_len" json:"max_len"`
}

// StreamAdder 是 RedisSink 需要的最小客户端接口，*redis.Client 满足该接口
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisSink 将导入通知以标准消息格式写入 Redis Stream
type RedisSink struct {
	client   StreamAdder
	stream   string
	maxLen   int64
	producer string
	log      *logrus.Entry
}

// NewRedisSink 创建 Redis 下游，stream 为空时使用默认的导入流
func NewRedisSink(client StreamAdder, cfg RedisConfig, producer string) *RedisSink {
	stream := cfg.Stream
	if stream == "" {
		stream = message.GetStreamName(message.DataTypeImport)
	}
	return &RedisSink{
		client:   client,
		stream:   stream,
		maxLen:   cfg.MaxLen,
		producer: producer,
		log:      logger.WithComponent("sink.redis"),
	}
}

// DialRedis 连接 Redis 并检查连通性
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return client, nil
}

func (s *RedisSink) Name() string {
	return "redis"
}

// Stream 返回目标流名称
func (s *RedisSink) Stream() string {
	return s.stream
}

// Publish 发布一条导入消息
func (s *RedisSink) Publish(ctx context.Context, notice ImportNotice) error {
	msg := message.NewImportMessage(s.producer, notice)
	jsonData, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	result := s.client.XAdd(ctx, args)
	if err := result.Err(); err != nil {
		return fmt.Errorf("发布消息到 Redis Streams 失败: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"stream":    s.stream,
		"messageID": result.Val(),
		"file":      notice.FileName,
	}).Info("消息发布成功")
	return nil
}
