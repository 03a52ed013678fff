package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockdaily/pkg/model"
)

// SheetName 导出工作表名称
const SheetName = "日线数据"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Write 按扩展名导出到文件，支持 .xlsx 和 .csv
func Write(path string, results []model.ComparisonResult, cols []Column) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建导出目录失败: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, results, cols)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("创建导出文件失败: %w", err)
		}
		if err := WriteCSV(f, results, cols); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return fmt.Errorf("不支持的导出格式: %s", filepath.Ext(path))
}

// WriteXLSX 导出为 xlsx 文件
func WriteXLSX(path string, results []model.ComparisonResult, cols []Column) error {
	f, err := buildWorkbook(results, cols)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存导出文件失败: %w", err)
	}
	return nil
}

// WriteXLSXTo 将 xlsx 内容写入 w，供 HTTP 下载使用
func WriteXLSXTo(w io.Writer, results []model.ComparisonResult, cols []Column) error {
	f, err := buildWorkbook(results, cols)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出导出内容失败: %w", err)
	}
	return nil
}

func buildWorkbook(results []model.ComparisonResult, cols []Column) (*excelize.File, error) {
	if len(cols) == 0 {
		cols = DefaultColumns
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("设置工作表名称失败: %w", err)
	}

	header := Titles(cols)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("写入表头失败: %w", err)
	}

	for i, r := range results {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j], _ = plainValue(r, c.Key)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入第 %d 行失败: %w", i+1, err)
		}
	}
	return f, nil
}

// WriteCSV 导出为带 BOM 的 UTF-8 CSV，表格软件可直接识别中文表头
func WriteCSV(w io.Writer, results []model.ComparisonResult, cols []Column) error {
	if len(cols) == 0 {
		cols = DefaultColumns
	}
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("写入 BOM 失败: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Titles(cols)); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}
	record := make([]string, len(cols))
	for _, r := range results {
		for j, c := range cols {
			_, record[j] = plainValue(r, c.Key)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("写入数据失败: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
