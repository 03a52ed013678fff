package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"stockdaily/pkg/testkit"
)

func TestXLSXReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := testkit.WriteXLSX(t, dir, "2025-09-01.xlsx",
		[]string{"股票代码", "股票名称", "主力净额", ""},
		[][]any{
			{1, "平安银行", "3000万", nil},
			{"600000", "浦发银行", nil, "x"},
			{nil, nil, nil, nil},
		})

	sheet, err := NewXLSXReader("").Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "2025-09-01.xlsx", sheet.FileName)
	assert.Equal(t, []string{"股票代码", "股票名称", "主力净额", "列4"}, sheet.Header)
	require.Len(t, sheet.Rows, 2, "空行应被跳过")

	code, ok := sheet.Rows[0].Get("股票代码")
	assert.True(t, ok)
	assert.Equal(t, "1", code)

	amount, _ := sheet.Rows[1].Get("主力净额")
	assert.Nil(t, amount)
	assert.Equal(t, []string{"股票代码", "股票名称", "主力净额", "列4"}, sheet.Rows[1].Labels())
}

func TestXLSXReader_MissingFile(t *testing.T) {
	_, err := NewXLSXReader("").Read(context.Background(), "/nonexistent/2025-09-01.xlsx")
	require.Error(t, err)

	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestCSVReader_Encodings(t *testing.T) {
	content := "股票代码,股票名称,板块\n000001,平安银行,金融、银行\n"

	gbk, err := simplifiedchinese.GBK.NewEncoder().String(content)
	require.NoError(t, err)

	tests := []struct {
		name     string
		encoding string
		data     []byte
	}{
		{"UTF-8", "utf-8", []byte(content)},
		{"UTF-8 带BOM", "utf-8", append([]byte{0xEF, 0xBB, 0xBF}, content...)},
		{"GBK", "gbk", []byte(gbk)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testkit.WriteFile(t, t.TempDir(), "2025-09-01.csv", tt.data)
			sheet, err := NewCSVReader(tt.encoding).Read(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, []string{"股票代码", "股票名称", "板块"}, sheet.Header)
			require.Len(t, sheet.Rows, 1)
			name, _ := sheet.Rows[0].Get("股票名称")
			assert.Equal(t, "平安银行", name)
			sector, _ := sheet.Rows[0].Get("板块")
			assert.Equal(t, "金融、银行", sector)
		})
	}
}

func TestMultiReader_Dispatch(t *testing.T) {
	dir := t.TempDir()
	path := testkit.WriteFile(t, dir, "report.txt", []byte("x"))

	_, err := NewMultiReader("", "utf-8").Read(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNSUPPORTED_FORMAT")

	csvPath := testkit.WriteFile(t, dir, "2025-09-02.csv", []byte("股票代码\n1\n"))
	sheet, err := Open(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Len(t, sheet.Rows, 1)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	testkit.WriteFile(t, dir, "2025-09-02.xlsx", []byte("x"))
	testkit.WriteFile(t, dir, "2025-09-01.xlsx", []byte("x"))
	testkit.WriteFile(t, dir, "2025-09-03.csv", []byte("x"))
	testkit.WriteFile(t, dir, "~$2025-09-01.xlsx", []byte("x"))
	testkit.WriteFile(t, dir, "notes.txt", []byte("x"))

	files, err := ListFiles(dir, nil)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Contains(t, files[0], "2025-09-01.xlsx")
	assert.Contains(t, files[1], "2025-09-02.xlsx")
	assert.Contains(t, files[2], "2025-09-03.csv")

	_, err = ListFiles(dir+"/missing", nil)
	assert.Error(t, err)
}

func TestNewSheet_PadsShortRows(t *testing.T) {
	sheet := NewSheet("/tmp/a.xlsx", []string{"a", "b"}, [][]any{{"1"}})
	require.Len(t, sheet.Rows, 1)
	v, ok := sheet.Rows[0].Get("b")
	assert.True(t, ok)
	assert.Nil(t, v)
	_, ok = sheet.Rows[0].Get("c")
	assert.False(t, ok)
}
