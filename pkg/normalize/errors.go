package normalize

import (
	"fmt"

	apperr "stockdaily/pkg/error"
)

// ValidationError 记录级校验失败，例如缺少股票代码
type ValidationError struct {
	apperr.BaseError
	Row int
}

// NewValidationError 创建校验错误，row 为源文件中的数据行号（从1开始，0表示未知）
func NewValidationError(field string, row int, message string) *ValidationError {
	msg := message
	if row > 0 {
		msg = fmt.Sprintf("第 %d 行: %s", row, message)
	}
	return &ValidationError{
		BaseError: *apperr.NewError(apperr.CodeValidation, msg).WithContext("field", field),
		Row:       row,
	}
}
