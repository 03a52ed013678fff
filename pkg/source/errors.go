package source

import (
	apperr "stockdaily/pkg/error"
)

// SourceError 源文件读取错误
type SourceError struct {
	apperr.BaseError
}

// NewReadError 创建读取失败错误
func NewReadError(path string, cause error) *SourceError {
	return &SourceError{
		BaseError: *apperr.WrapError(apperr.CodeSourceRead, "读取源文件失败", cause).WithContext("path", path),
	}
}

// NewUnsupportedError 创建格式不支持错误
func NewUnsupportedError(path string) *SourceError {
	return &SourceError{
		BaseError: *apperr.NewError(apperr.CodeUnsupportedFormat, "不支持的文件格式").WithContext("path", path),
	}
}
