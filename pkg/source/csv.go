package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// CSVReader 读取导出的 csv 文件，支持 GBK 编码
type CSVReader struct {
	// Encoding utf-8 或 gbk
	Encoding string
}

// NewCSVReader 创建 csv 读取器
func NewCSVReader(encoding string) *CSVReader {
	return &CSVReader{Encoding: encoding}
}

// Read 读取 csv 文件
func (r *CSVReader) Read(ctx context.Context, path string) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, NewReadError(path, err)
	}
	defer f.Close()

	rows, err := r.decode(f)
	if err != nil {
		return nil, NewReadError(path, err)
	}
	return fromStringRows(path, rows), nil
}

func (r *CSVReader) decode(in io.Reader) ([][]string, error) {
	var src io.Reader = in
	switch strings.ToLower(r.Encoding) {
	case "gbk", "gb18030", "gb2312":
		src = transform.NewReader(in, simplifiedchinese.GBK.NewDecoder())
	}

	br := bufio.NewReader(src)
	// 去掉 UTF-8 BOM
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}
