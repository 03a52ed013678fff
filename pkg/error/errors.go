package error

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

const (
	// CodeValidation 记录校验失败，例如缺少股票代码。
	CodeValidation ErrorCode = "VALIDATION_FAILED"
	// CodeDateUnresolved 无法从文件名或数据列解析交易日期。
	CodeDateUnresolved ErrorCode = "DATE_UNRESOLVED"
	// CodeSourceRead 读取源文件失败。
	CodeSourceRead ErrorCode = "SOURCE_READ_FAILED"
	// CodeUnsupportedFormat 不支持的源文件格式。
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// CodeBatchRunning 已有批量导入任务在运行。
	CodeBatchRunning ErrorCode = "BATCH_RUNNING"
	// CodeSinkFailed 事件下游发布失败。
	CodeSinkFailed ErrorCode = "SINK_FAILED"
	// CodeInvalidArgument 调用方参数错误。
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// BaseError 基础错误类型
type BaseError struct {
	Code      ErrorCode              `json:"code"`              // 错误的分类代码
	Message   string                 `json:"message"`           // 人类可读的错误信息
	Cause     error                  `json:"-"`                 // 导致此错误的原始错误
	Context   map[string]interface{} `json:"context,omitempty"` // 额外的上下文信息
	Timestamp time.Time              `json:"timestamp"`
}

// NewError 创建新的基础错误
func NewError(code ErrorCode, message string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// WrapError 包装现有错误
func WrapError(code ErrorCode, message string, cause error) *BaseError {
	e := NewError(code, message)
	e.Cause = cause
	return e
}

// Error 实现 error 接口
func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 支持错误包装
func (e *BaseError) Unwrap() error {
	return e.Cause
}

// Is 按错误代码比较
func (e *BaseError) Is(target error) bool {
	if t, ok := target.(*BaseError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext 为错误附加一个键值对形式的上下文信息。
func (e *BaseError) WithContext(key string, value interface{}) *BaseError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// coded 由所有嵌入 BaseError 的领域错误实现
type coded interface {
	ErrorCode() ErrorCode
}

// ErrorCode 返回错误代码
func (e *BaseError) ErrorCode() ErrorCode {
	return e.Code
}

// HasCode 判断错误链中是否存在指定代码的错误，支持 errors.Join 合并的错误
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if c, ok := err.(coded); ok && c.ErrorCode() == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
		return false
	default:
		return HasCode(errors.Unwrap(err), code)
	}
}

// CodeOf 返回错误链中第一个错误代码，没有则返回空字符串
func CodeOf(err error) ErrorCode {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}
