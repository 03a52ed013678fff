package sink

import (
	"context"
	"errors"
	"strings"

	"stockdaily/pkg/message"
)

// ImportNotice 单个文件导入完成的通知
type ImportNotice = message.ImportNotice

// Sink 导入事件的下游。发布失败由调用方记录日志，不影响导入结果。
type Sink interface {
	Name() string
	Publish(ctx context.Context, notice ImportNotice) error
}

// Multi 将通知依次发布到多个下游，汇总所有错误
type Multi struct {
	sinks []Sink
}

// NewMulti 创建组合下游，忽略 nil
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len 返回下游数量
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Name 返回组合名称
func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Publish 单个下游失败不会阻止其余下游
func (m *Multi) Publish(ctx context.Context, notice ImportNotice) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, notice); err != nil {
			errs = append(errs, NewSinkError(s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
