package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"stockdaily/pkg/logger"
)

// XLSXReader 基于 excelize 的 xlsx 读取器
type XLSXReader struct {
	// SheetName 指定工作表，为空时取第一个工作表
	SheetName string
	logger    *logrus.Entry
}

// NewXLSXReader 创建 xlsx 读取器
func NewXLSXReader(sheetName string) *XLSXReader {
	return &XLSXReader{
		SheetName: sheetName,
		logger:    logger.WithComponent("source"),
	}
}

// Read 读取工作表。第一条非空行作为表头，空单元格记为 nil。
func (r *XLSXReader) Read(ctx context.Context, path string) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, NewReadError(path, err)
	}
	defer f.Close()

	sheetName := r.SheetName
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, NewReadError(path, fmt.Errorf("文件中没有工作表"))
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, NewReadError(path, err)
	}

	sheet := fromStringRows(path, rows)
	r.logger.WithFields(logrus.Fields{
		"file":    sheet.FileName,
		"sheet":   sheetName,
		"rows":    len(sheet.Rows),
		"columns": len(sheet.Header),
	}).Debug("解析xlsx完成")

	return sheet, nil
}

// fromStringRows 将字符串二维表转为 Sheet，xlsx 与 csv 共用
func fromStringRows(path string, rows [][]string) *Sheet {
	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return NewSheet(path, nil, nil)
	}

	header := make([]string, len(rows[headerIdx]))
	for i, label := range rows[headerIdx] {
		label = strings.TrimSpace(label)
		if label == "" {
			label = fmt.Sprintf("列%d", i+1)
		}
		header[i] = label
	}

	values := make([][]any, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if isBlankRow(row) {
			continue
		}
		vals := make([]any, len(row))
		for i, cell := range row {
			if strings.TrimSpace(cell) == "" {
				vals[i] = nil
				continue
			}
			vals[i] = cell
		}
		values = append(values, vals)
	}

	return NewSheet(path, header, values)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
