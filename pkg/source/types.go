package source

import (
	"context"
	"path/filepath"
)

// Cell 源表格中的一个单元格，保留原始列名和原始值
type Cell struct {
	Label string
	Value any
}

// Row 一行源数据，单元格顺序与源文件列顺序一致
type Row []Cell

// Get 按列名取第一个匹配单元格的值
func (r Row) Get(label string) (any, bool) {
	for _, c := range r {
		if c.Label == label {
			return c.Value, true
		}
	}
	return nil, false
}

// Labels 返回该行的列名序列
func (r Row) Labels() []string {
	labels := make([]string, len(r))
	for i, c := range r {
		labels[i] = c.Label
	}
	return labels
}

// Sheet 一个源文件解析后的内容
type Sheet struct {
	Path     string
	FileName string
	Header   []string
	Rows     []Row
}

// NewSheet 由表头和二维值构造 Sheet，短行以 nil 补齐
func NewSheet(path string, header []string, values [][]any) *Sheet {
	s := &Sheet{
		Path:     path,
		FileName: filepath.Base(path),
		Header:   header,
		Rows:     make([]Row, 0, len(values)),
	}
	for _, vals := range values {
		row := make(Row, len(header))
		for i, label := range header {
			var v any
			if i < len(vals) {
				v = vals[i]
			}
			row[i] = Cell{Label: label, Value: v}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// Reader 把源文件读成有序行序列
type Reader interface {
	Read(ctx context.Context, path string) (*Sheet, error)
}

// ReaderFunc 函数适配器
type ReaderFunc func(ctx context.Context, path string) (*Sheet, error)

// Read 实现 Reader 接口
func (f ReaderFunc) Read(ctx context.Context, path string) (*Sheet, error) {
	return f(ctx, path)
}
