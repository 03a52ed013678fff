package importer

import (
	apperr "stockdaily/pkg/error"
)

// ImportError 导入流程错误
type ImportError struct {
	apperr.BaseError
}

// ErrBatchRunning 已有导入任务在运行
var ErrBatchRunning = &ImportError{
	BaseError: *apperr.NewError(apperr.CodeBatchRunning, "已有导入任务正在运行"),
}

func newDateUnresolvedError(fileName string) *ImportError {
	e := &ImportError{
		BaseError: *apperr.NewError(apperr.CodeDateUnresolved, "无法从文件名或数据中提取交易日期"),
	}
	e.WithContext("file", fileName)
	return e
}
