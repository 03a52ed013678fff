package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	unitYi  = "亿"
	unitWan = "万"
	// 库内金额统一以“万”为单位，1亿 = 10000万
	yiToWan = 10000
)

// ParseWarning 数值无法解析时的诊断信息，不会中断处理
type ParseWarning struct {
	Field  string
	Value  any
	Reason string
}

func (w ParseWarning) String() string {
	if w.Field != "" {
		return fmt.Sprintf("%s: 无法解析数值 %q (%s)", w.Field, fmt.Sprint(w.Value), w.Reason)
	}
	return fmt.Sprintf("无法解析数值 %q (%s)", fmt.Sprint(w.Value), w.Reason)
}

// ParseNumeric 把单元格原始值转换为数值。
// 空值、"-" 返回 nil；含“亿”的值乘以 10000 转为万；含“万”的值去掉单位直接解析；
// 其余文本去掉千分位逗号和百分号后解析。无法解析时返回 nil 和一条警告。
func ParseNumeric(raw any) (*float64, *ParseWarning) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		if math.IsNaN(v) {
			return nil, nil
		}
		if math.IsInf(v, 0) {
			return nil, &ParseWarning{Value: raw, Reason: "无穷大"}
		}
		return &v, nil
	case float32:
		f := float64(v)
		if math.IsNaN(f) {
			return nil, nil
		}
		if math.IsInf(f, 0) {
			return nil, &ParseWarning{Value: raw, Reason: "无穷大"}
		}
		return &f, nil
	case int:
		f := float64(v)
		return &f, nil
	case int8:
		f := float64(v)
		return &f, nil
	case int16:
		f := float64(v)
		return &f, nil
	case int32:
		f := float64(v)
		return &f, nil
	case int64:
		f := float64(v)
		return &f, nil
	case uint:
		f := float64(v)
		return &f, nil
	case uint8:
		f := float64(v)
		return &f, nil
	case uint16:
		f := float64(v)
		return &f, nil
	case uint32:
		f := float64(v)
		return &f, nil
	case uint64:
		f := float64(v)
		return &f, nil
	case string:
		return parseNumericText(v)
	case fmt.Stringer:
		return parseNumericText(v.String())
	}
	return nil, &ParseWarning{Value: raw, Reason: fmt.Sprintf("不支持的类型 %T", raw)}
}

func parseNumericText(s string) (*float64, *ParseWarning) {
	text := strings.TrimSpace(s)
	if text == "" || text == "-" {
		return nil, nil
	}

	if strings.Contains(text, unitYi) {
		rest := stripUnit(text, unitYi)
		if rest != "" && rest != "-" {
			f, warn := parseFinite(s, rest)
			if warn != nil {
				return nil, warn
			}
			f *= yiToWan
			return &f, nil
		}
		text = rest
	}

	if strings.Contains(text, unitWan) {
		rest := stripUnit(text, unitWan)
		if rest != "" && rest != "-" {
			f, warn := parseFinite(s, rest)
			if warn != nil {
				return nil, warn
			}
			return &f, nil
		}
		text = rest
	}

	text = strings.TrimSpace(strings.NewReplacer(",", "", "%", "").Replace(text))
	if text == "" || text == "-" {
		return nil, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &ParseWarning{Value: s, Reason: "非数值文本"}
	}
	return &f, nil
}

// parseFinite 解析去掉单位后的文本，NaN 和无穷大按无法解析处理
func parseFinite(s, text string) (float64, *ParseWarning) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ParseWarning{Value: s, Reason: err.Error()}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ParseWarning{Value: s, Reason: "非数值文本"}
	}
	return f, nil
}

// stripUnit 去掉单位和千分位逗号，百分号保留给通用分支处理
func stripUnit(text, unit string) string {
	text = strings.ReplaceAll(text, unit, "")
	text = strings.ReplaceAll(text, ",", "")
	return strings.TrimSpace(text)
}
