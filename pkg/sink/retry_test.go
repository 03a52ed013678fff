package sink

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorLevel
	}{
		// 致命
		{"连接拒绝", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), LevelFatal},
		{"主机未找到", errors.New("dial tcp: lookup influx: no such host"), LevelFatal},
		{"认证失败", errors.New("unauthorized access"), LevelFatal},

		// 可重试
		{"超时", errors.New("i/o timeout"), LevelTransient},
		{"上下文超时", fmt.Errorf("write: %w", context.DeadlineExceeded), LevelTransient},
		{"连接重置", errors.New("read tcp: connection reset by peer"), LevelTransient},
		{"管道断开", errors.New("write tcp: broken pipe"), LevelTransient},
		{"Redis 加载中", errors.New("LOADING Redis is loading the dataset in memory"), LevelTransient},

		// 请求问题
		{"无效参数", errors.New("invalid argument"), LevelInvalid},
		{"请求错误", errors.New("HTTP/1.1 400 Bad Request"), LevelInvalid},

		{"nil错误", nil, LevelUnknown},
		{"其他错误", errors.New("some other error"), LevelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err), "错误分类应匹配预期: %s", tt.name)
		})
	}
}

// flakySink 前 failures 次返回 err
type flakySink struct {
	failures int
	err      error
	calls    int
}

func (f *flakySink) Name() string { return "flaky" }

func (f *flakySink) Publish(ctx context.Context, notice ImportNotice) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func TestRetry_Publish(t *testing.T) {
	timeout := errors.New("i/o timeout")
	refused := errors.New("connection refused")

	tests := []struct {
		name      string
		inner     *flakySink
		cfg       RetryConfig
		wantErr   error
		wantCalls int
		wantWaits []time.Duration
	}{
		{"首次成功", &flakySink{}, DefaultRetryConfig(), nil, 1, nil},
		{"临时错误后成功", &flakySink{failures: 2, err: timeout}, DefaultRetryConfig(), nil, 3,
			[]time.Duration{500 * time.Millisecond, 2 * time.Second}},
		{"临时错误用尽次数", &flakySink{failures: 5, err: timeout}, DefaultRetryConfig(), timeout, 3,
			[]time.Duration{500 * time.Millisecond, 2 * time.Second}},
		{"致命错误不重试", &flakySink{failures: 5, err: refused}, DefaultRetryConfig(), refused, 1, nil},
		{"退避列表不足时沿用最后一项", &flakySink{failures: 3, err: timeout},
			RetryConfig{MaxAttempts: 4, Backoff: []time.Duration{time.Second}}, nil, 4,
			[]time.Duration{time.Second, time.Second, time.Second}},
		{"次数为零按一次处理", &flakySink{failures: 1, err: timeout}, RetryConfig{}, timeout, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(tt.inner, tt.cfg)
			var waits []time.Duration
			r.sleep = func(ctx context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			}

			err := r.Publish(context.Background(), testNotice())
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, tt.inner.calls)
			assert.Equal(t, tt.wantWaits, waits)
		})
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	inner := &flakySink{failures: 5, err: errors.New("i/o timeout")}
	r := NewRetry(inner, RetryConfig{MaxAttempts: 3, Backoff: []time.Duration{time.Hour}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Publish(ctx, testNotice())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "retry(flaky)", r.Name())
}
