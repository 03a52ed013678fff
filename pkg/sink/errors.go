package sink

import (
	apperr "stockdaily/pkg/error"
)

// SinkError 下游发布失败
type SinkError struct {
	apperr.BaseError
}

// NewSinkError 包装下游错误并记录下游名称
func NewSinkError(name string, cause error) *SinkError {
	e := &SinkError{
		BaseError: *apperr.WrapError(apperr.CodeSinkFailed, "发布到 "+name+" 失败", cause),
	}
	e.WithContext("sink", name)
	return e
}
