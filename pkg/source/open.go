package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPatterns 默认扫描的文件类型
var DefaultPatterns = []string{"*.xlsx", "*.xlsm", "*.csv"}

// MultiReader 按扩展名分派到具体读取器
type MultiReader struct {
	XLSX *XLSXReader
	CSV  *CSVReader
}

// NewMultiReader 创建按扩展名分派的读取器
func NewMultiReader(sheetName, csvEncoding string) *MultiReader {
	return &MultiReader{
		XLSX: NewXLSXReader(sheetName),
		CSV:  NewCSVReader(csvEncoding),
	}
}

// Read 实现 Reader 接口
func (m *MultiReader) Read(ctx context.Context, path string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return m.XLSX.Read(ctx, path)
	case ".csv":
		return m.CSV.Read(ctx, path)
	}
	return nil, NewUnsupportedError(path)
}

// Open 使用默认设置读取单个文件
func Open(ctx context.Context, path string) (*Sheet, error) {
	return NewMultiReader("", "utf-8").Read(ctx, path)
}

// ListFiles 列出目录下匹配的文件，按文件名升序排列，忽略 Excel 临时文件
func ListFiles(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, NewReadError(dir, err)
	}

	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, NewReadError(dir, err)
		}
		for _, m := range matches {
			if strings.HasPrefix(filepath.Base(m), "~$") {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return files, nil
}
