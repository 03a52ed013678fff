package tradedate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"stockdaily/pkg/source"
)

// DefaultFallbackColumn 文件名中没有日期时读取的数据列
const DefaultFallbackColumn = "交易日期"

const (
	dateLayout = "2006-01-02"
	// 9999-12-31 之后的序列号
	maxSerial = 2958466
)

var (
	dashPattern  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	slashPattern = regexp.MustCompile(`(\d{4})[/\\](\d{2})[/\\](\d{2})`)
)

// FromFileName 从文件名中提取 YYYY-MM-DD 或 YYYY/MM/DD 形式的日期，不做日历校验
func FromFileName(fileName string) (string, bool) {
	for _, p := range []*regexp.Regexp{dashPattern, slashPattern} {
		if m := p.FindStringSubmatch(fileName); m != nil {
			return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]), true
		}
	}
	return "", false
}

// Resolve 优先使用文件名中的日期，其次使用数据列的值
func Resolve(fileName string, fallback any) (string, bool) {
	if d, ok := FromFileName(fileName); ok {
		return d, true
	}
	return fromValue(fallback)
}

// FromSheet 从源文件解析交易日期，回退列取第一行的值
func FromSheet(sheet *source.Sheet, fallbackColumn string) (string, bool) {
	if fallbackColumn == "" {
		fallbackColumn = DefaultFallbackColumn
	}
	var fallback any
	if len(sheet.Rows) > 0 {
		fallback, _ = sheet.Rows[0].Get(fallbackColumn)
	}
	return Resolve(sheet.FileName, fallback)
}

// fromValue 解析回退列的值：时间值、Excel 日期序列号，
// 或以 YYYY-MM-DD / YYYY/MM/DD 开头的文本。其余值视为无法解析
func fromValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if t.IsZero() {
			return "", false
		}
		return t.Format(dateLayout), true
	case float64:
		return fromSerial(t)
	case float32:
		return fromSerial(float64(t))
	case int:
		return fromSerial(float64(t))
	case int64:
		return fromSerial(float64(t))
	case string:
		return fromText(t)
	}
	return fromText(fmt.Sprint(v))
}

func fromText(s string) (string, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", false
	}
	token := fields[0]

	for _, layout := range []string{dateLayout, "2006/01/02"} {
		if d, err := time.Parse(layout, token); err == nil {
			return d.Format(dateLayout), true
		}
	}

	// 原始单元格值读取时日期列是序列号文本
	if serial, err := strconv.ParseFloat(token, 64); err == nil {
		return fromSerial(serial)
	}
	return "", false
}

func fromSerial(serial float64) (string, bool) {
	if math.IsNaN(serial) || serial < 1 || serial >= maxSerial {
		return "", false
	}
	d, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return d.Format(dateLayout), true
}
