package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockdaily/pkg/model"
)

func sampleResults() []model.ComparisonResult {
	return []model.ComparisonResult{
		{
			Record: model.Record{
				TradeDate:          "2025-09-02",
				StockCode:          "000001",
				StockName:          "平安银行",
				Sector:             "金融、银行",
				CurrentPrice:       model.Float(12.34),
				MainNetAmount:      model.Float(6000),
				AuctionTodayVolume: model.Float(12000),
				TurnoverRate:       model.Float(1.5),
			},
			MainNetPrevRatio: model.Float(2),
			VolumePrevRatio:  model.Float(0.5),
		},
		{
			Record: model.Record{TradeDate: "2025-09-02", StockCode: "000002", StockName: "万科A"},
		},
	}
}

func TestFormatRatio(t *testing.T) {
	tests := []struct {
		name  string
		ratio *float64
		want  string
	}{
		{"缺失", nil, ""},
		{"翻倍", model.Float(2), "+100.0%"},
		{"减半", model.Float(0.5), "-50.0%"},
		{"持平", model.Float(1), "0%"},
		{"小幅增长", model.Float(1.234), "+23.4%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRatio(tt.ratio))
		})
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want string
	}{
		{"零", 0, "0"},
		{"万", 3070, "3070.0万"},
		{"亿", 73153000, "7315.3亿"},
		{"负数亿", -12000, "-1.2亿"},
		{"小于一万元", 0.5, "0.50万"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.v))
		})
	}
}

func TestFormatValue(t *testing.T) {
	r := sampleResults()[0]

	assert.Equal(t, "000001", FormatValue(r, model.FieldStockCode))
	assert.Equal(t, "1.2亿", FormatValue(r, model.FieldAuctionTodayVolume))
	assert.Equal(t, "1.50%", FormatValue(r, model.FieldTurnoverRate))
	assert.Equal(t, "12.34", FormatValue(r, model.FieldCurrentPrice))
	assert.Equal(t, "+100.0%", FormatValue(r, model.FieldMainNetPrevRatio))
	assert.Equal(t, "", FormatValue(r, model.FieldVolumeRatio), "缺失值显示为空")
}

func TestColumnsFor(t *testing.T) {
	assert.Equal(t, DefaultColumns, ColumnsFor(nil))

	cols := ColumnsFor([]string{"stock_code", "unknown", "buy_sell_ratio"})
	assert.Equal(t, []Column{{"stock_code", "股票代码"}, {"buy_sell_ratio", "buy_sell_ratio"}}, cols)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	cols := ColumnsFor([]string{"stock_code", "stock_name", "main_net_amount", "main_net_prev_ratio"})
	require.NoError(t, WriteCSV(&buf, sampleResults(), cols))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"股票代码", "股票名称", "主力净额", "主力净额前日对比"},
		{"000001", "平安银行", "6000", "+100.0%"},
		{"000002", "万科A", "", ""},
	}, rows)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "export.xlsx")
	require.NoError(t, Write(path, sampleResults(), nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Titles(DefaultColumns), rows[0])
	assert.Equal(t, "000001", rows[1][1])
	assert.Equal(t, "+100.0%", rows[1][7])
	assert.Equal(t, "-50.0%", rows[1][9])

	v, err := f.GetCellValue(SheetName, "G2")
	require.NoError(t, err)
	assert.Equal(t, "6000", v, "数值列保持数值")
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "out.json"), sampleResults(), nil)
	assert.Error(t, err)
}
