package storage

import (
	apperr "stockdaily/pkg/error"
)

const (
	// ErrStoreOpen 无法打开或初始化数据库，属于致命错误。
	ErrStoreOpen apperr.ErrorCode = "STORE_OPEN_FAILED"
	// ErrStorageIO 表示发生了存储I/O错误。
	ErrStorageIO apperr.ErrorCode = "STORAGE_IO"
	// ErrResourceClosed 表示尝试访问已关闭的资源。
	ErrResourceClosed apperr.ErrorCode = "RESOURCE_CLOSED"
	// ErrInvalidArgument 调用方参数错误，例如未指定交易日期。
	ErrInvalidArgument = apperr.CodeInvalidArgument
)

// StorageError 存储层错误
type StorageError struct {
	apperr.BaseError
}

// NewStorageError 创建存储错误
func NewStorageError(code apperr.ErrorCode, message string) *StorageError {
	return &StorageError{
		BaseError: *apperr.NewError(code, message),
	}
}

// WrapStorageError 包装底层错误
func WrapStorageError(code apperr.ErrorCode, message string, cause error) *StorageError {
	return &StorageError{
		BaseError: *apperr.WrapError(code, message, cause),
	}
}

var errClosed = NewStorageError(ErrResourceClosed, "数据库已关闭")

func errMissingDate(op string) *StorageError {
	e := NewStorageError(ErrInvalidArgument, "交易日期不能为空")
	e.WithContext("op", op)
	return e
}
