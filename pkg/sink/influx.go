package sink

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"stockdaily/pkg/logger"
	"stockdaily/pkg/model"
	"stockdaily/pkg/timing"
)

// DefaultMeasurement 写入 InfluxDB 的默认 measurement
const DefaultMeasurement = "stock_daily"

// InfluxConfig InfluxDB 下游配置
type InfluxConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	URL         string `mapstructure:"url" json:"url"`
	Token       string `mapstructure:"token" json:"-"`
	Org         string `mapstructure:"org" json:"org"`
	Bucket      string `mapstructure:"bucket" json:"bucket"`
	Measurement string `mapstructure:"measurement" json:"measurement"`
}

// PointWriter 是 InfluxSink 需要的写入接口，api.WriteAPIBlocking 满足该接口
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink 将每条记录的数值指标写成一个时序点
type InfluxSink struct {
	writer      PointWriter
	measurement string
	log         *logrus.Entry
}

// NewInfluxSink 创建 InfluxDB 下游
func NewInfluxSink(writer PointWriter, cfg InfluxConfig) *InfluxSink {
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &InfluxSink{
		writer:      writer,
		measurement: measurement,
		log:         logger.WithComponent("sink.influxdb"),
	}
}

// DialInflux 创建 InfluxDB 客户端并做健康检查，返回客户端供调用方关闭
func DialInflux(ctx context.Context, cfg InfluxConfig) (influxdb2.Client, *InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := client.Health(healthCtx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("连接 InfluxDB 失败: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, nil, fmt.Errorf("InfluxDB 健康检查失败: %s", health.Status)
	}

	writeAPI := client.WriteAPIBlocking(cfg.Org, cfg.Bucket)
	return client, NewInfluxSink(writeAPI, cfg), nil
}

func (s *InfluxSink) Name() string {
	return "influxdb"
}

// Publish 写入通知携带的全部记录，时间戳为交易日收盘时间
func (s *InfluxSink) Publish(ctx context.Context, notice ImportNotice) error {
	ts, err := timing.DateCloseTime(notice.TradeDate)
	if err != nil {
		return fmt.Errorf("交易日期格式错误 %q: %w", notice.TradeDate, err)
	}

	points := make([]*write.Point, 0, len(notice.Records))
	for _, rec := range notice.Records {
		if p := s.point(rec, ts); p != nil {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		s.log.WithField("file", notice.FileName).Debug("没有可写入的数值指标")
		return nil
	}

	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("写入 InfluxDB 失败: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"file":       notice.FileName,
		"trade_date": notice.TradeDate,
		"points":     len(points),
	}).Info("指标写入成功")
	return nil
}

// point 没有任何数值字段的记录返回 nil
func (s *InfluxSink) point(rec model.Record, ts time.Time) *write.Point {
	p := influxdb2.NewPointWithMeasurement(s.measurement).
		AddTag("stock_code", rec.StockCode).
		SetTime(ts)
	if rec.StockName != "" {
		p.AddTag("stock_name", rec.StockName)
	}
	if rec.Sector != "" {
		p.AddTag("sector", rec.Sector)
	}

	fields := 0
	for _, field := range model.NumericFields {
		if v, _ := rec.Numeric(field); v != nil {
			p.AddField(field, *v)
			fields++
		}
	}
	if fields == 0 {
		return nil
	}
	return p
}
