package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "stockdaily/pkg/error"
	"stockdaily/pkg/message"
	"stockdaily/pkg/model"
)

type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1700000000000-0", nil)
}

type fakeWriter struct {
	points []*write.Point
	err    error
}

func (f *fakeWriter) WritePoint(ctx context.Context, point ...*write.Point) error {
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, point...)
	return nil
}

type countingSink struct {
	name  string
	calls int
	err   error
}

func (c *countingSink) Name() string { return c.name }

func (c *countingSink) Publish(ctx context.Context, notice ImportNotice) error {
	c.calls++
	return c.err
}

func testNotice() ImportNotice {
	return ImportNotice{
		BatchID:   "batch-1",
		FileName:  "2025-09-01.xlsx",
		TradeDate: "2025-09-01",
		Inserted:  2,
		Records: []model.Record{
			{StockCode: "000001", StockName: "平安银行", Sector: "金融", MainNetAmount: model.Float(3e7), TurnoverRate: model.Float(1.5)},
			{StockCode: "000002", StockName: "万科A"},
		},
	}
}

func TestRedisSink_Publish(t *testing.T) {
	tests := []struct {
		name       string
		cfg        RedisConfig
		wantStream string
		wantMaxLen int64
	}{
		{"默认流名称", RedisConfig{}, message.ImportStream, 0},
		{"自定义流并限制长度", RedisConfig{Stream: "stream:custom", MaxLen: 1000}, "stream:custom", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeStream{}
			s := NewRedisSink(client, tt.cfg, "stockdb")
			require.NoError(t, s.Publish(context.Background(), testNotice()))

			require.Len(t, client.calls, 1)
			args := client.calls[0]
			assert.Equal(t, tt.wantStream, args.Stream)
			assert.Equal(t, tt.wantMaxLen, args.MaxLen)
			assert.Equal(t, tt.wantMaxLen > 0, args.Approx)

			values, ok := args.Values.(map[string]interface{})
			require.True(t, ok)
			msg, err := message.FromJSON(values["data"].(string))
			require.NoError(t, err)
			assert.NoError(t, msg.Validate())
			assert.Equal(t, "2025-09-01.xlsx", msg.Payload.FileName)
			assert.Equal(t, "stockdb", msg.Header.Producer)
		})
	}
}

func TestRedisSink_PublishError(t *testing.T) {
	s := NewRedisSink(&fakeStream{err: errors.New("connection refused")}, RedisConfig{}, "stockdb")
	err := s.Publish(context.Background(), testNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInfluxSink_Publish(t *testing.T) {
	w := &fakeWriter{}
	s := NewInfluxSink(w, InfluxConfig{})
	require.NoError(t, s.Publish(context.Background(), testNotice()))

	require.Len(t, w.points, 1, "没有数值指标的记录不写入")
	p := w.points[0]
	assert.Equal(t, DefaultMeasurement, p.Name())
	assert.Equal(t, time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC), p.Time().UTC())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"stock_code": "000001", "stock_name": "平安银行", "sector": "金融"}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Len(t, fields, 2)
	assert.Equal(t, 3e7, fields[model.FieldMainNetAmount])
	assert.Equal(t, 1.5, fields[model.FieldTurnoverRate])
}

func TestInfluxSink_Errors(t *testing.T) {
	t.Run("交易日期格式错误", func(t *testing.T) {
		notice := testNotice()
		notice.TradeDate = "20250901"
		assert.Error(t, NewInfluxSink(&fakeWriter{}, InfluxConfig{}).Publish(context.Background(), notice))
	})

	t.Run("写入失败", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("unauthorized")}
		assert.Error(t, NewInfluxSink(w, InfluxConfig{Measurement: "m"}).Publish(context.Background(), testNotice()))
	})

	t.Run("没有记录时不写入", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("不应被调用")}
		notice := testNotice()
		notice.Records = nil
		assert.NoError(t, NewInfluxSink(w, InfluxConfig{}).Publish(context.Background(), notice))
	})
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingSink{name: "flaky", err: errors.New("down")}
	b := NewBreaker(inner, BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, ReadyToTrip: 2})
	ctx := context.Background()

	assert.Error(t, b.Publish(ctx, testNotice()))
	assert.Error(t, b.Publish(ctx, testNotice()))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Publish(ctx, testNotice())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls, "熔断打开后不再调用下游")

	stats := b.Stats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, "breaker(flaky)", b.Name())
}

func TestMulti_Publish(t *testing.T) {
	ok := &countingSink{name: "ok"}
	bad := &countingSink{name: "bad", err: errors.New("boom")}
	m := NewMulti(bad, nil, ok)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "multi(bad,ok)", m.Name())

	err := m.Publish(context.Background(), testNotice())
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeSinkFailed))
	assert.Equal(t, 1, ok.calls, "单个下游失败不影响其余下游")

	assert.NoError(t, NewMulti().Publish(context.Background(), testNotice()))
}
