package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stockdaily/pkg/logger"
	"stockdaily/pkg/model"
	"stockdaily/pkg/source"
)

const stockCodeWidth = 6

// Normalizer 把映射后的行转换为规范记录
type Normalizer struct {
	mapping       *ColumnMapping
	numericFields []string
	logger        *logrus.Entry
}

// NewNormalizer 创建记录标准化器。numericFields 为空时使用全部数值字段。
func NewNormalizer(mapping *ColumnMapping, numericFields []string) *Normalizer {
	if len(numericFields) == 0 {
		numericFields = model.NumericFields
	}
	return &Normalizer{
		mapping:       mapping,
		numericFields: numericFields,
		logger:        logger.WithComponent("normalize"),
	}
}

// Mapping 返回使用的列映射
func (n *Normalizer) Mapping() *ColumnMapping {
	return n.mapping
}

// NormalizeRow 标准化单行。股票代码缺失或为空时返回 *ValidationError。
func (n *Normalizer) NormalizeRow(raw RawRecord) (model.Record, []ParseWarning, error) {
	var rec model.Record

	code, ok := normalizeStockCode(raw[model.FieldStockCode])
	if !ok {
		return rec, nil, NewValidationError(model.FieldStockCode, 0, "股票代码为空")
	}
	rec.StockCode = code

	numeric := make(map[string]struct{}, len(n.numericFields))
	var warnings []ParseWarning
	for _, field := range n.numericFields {
		numeric[field] = struct{}{}
		v, present := raw[field]
		if !present {
			continue
		}
		parsed, warn := ParseNumeric(v)
		if warn != nil {
			warn.Field = field
			warnings = append(warnings, *warn)
		}
		if !rec.SetNumeric(field, parsed) {
			n.logger.Warnf("字段 %s 不是数值字段，已忽略", field)
		}
	}

	for field, v := range raw {
		if field == model.FieldStockCode || field == model.FieldTradeDate {
			continue
		}
		if _, isNumeric := numeric[field]; isNumeric {
			continue
		}
		if field == model.FieldAuctionIncrease {
			rec.AuctionIncrease = textValue(v)
			continue
		}
		rec.SetText(field, strings.TrimSpace(textValue(v)))
	}

	return rec, warnings, nil
}

// SheetResult 单个源文件的标准化结果
type SheetResult struct {
	Records    []model.Record
	Unmapped   []string
	Collisions []Collision
	Warnings   []ParseWarning
}

// NormalizeSheet 映射并标准化整个源文件。任意一行校验失败则整个文件失败。
func (n *Normalizer) NormalizeSheet(sheet *source.Sheet) (*SheetResult, error) {
	result := &SheetResult{Records: make([]model.Record, 0, len(sheet.Rows))}
	seenUnmapped := make(map[string]struct{})
	seenCollision := make(map[string]struct{})

	for i, row := range sheet.Rows {
		raw, unmapped, collisions := n.mapping.MapRow(row)
		for _, label := range unmapped {
			if _, ok := seenUnmapped[label]; !ok {
				seenUnmapped[label] = struct{}{}
				result.Unmapped = append(result.Unmapped, label)
			}
		}
		for _, c := range collisions {
			if _, ok := seenCollision[c.Label]; !ok {
				seenCollision[c.Label] = struct{}{}
				result.Collisions = append(result.Collisions, c)
			}
		}

		rec, warnings, err := n.NormalizeRow(raw)
		if err != nil {
			return nil, NewValidationError(model.FieldStockCode, i+1, "股票代码为空")
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.Records = append(result.Records, rec)
	}

	n.logDiagnostics(sheet.FileName, result)
	return result, nil
}

func (n *Normalizer) logDiagnostics(fileName string, result *SheetResult) {
	log := n.logger.WithField("file", fileName)
	for _, c := range result.Collisions {
		log.WithFields(logrus.Fields{
			"label": c.Label,
			"field": c.Field,
			"kept":  c.KeptLabel,
		}).Info("目标字段已存在，跳过重复列")
	}
	if len(result.Unmapped) > 0 {
		log.WithField("columns", result.Unmapped).Warn("以下列未配置映射，已忽略")
	}
	for _, w := range result.Warnings {
		log.Warn(w.String())
	}
	log.WithFields(logrus.Fields{
		"records":  len(result.Records),
		"unmapped": len(result.Unmapped),
		"warnings": len(result.Warnings),
	}).Debug("标准化完成")
}

// normalizeStockCode 纯数字（可带 .0 后缀）的代码左补零到6位，其余保持原样
func normalizeStockCode(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	code := strings.TrimSpace(textValue(v))
	if code == "" {
		return "", false
	}

	digits := strings.TrimSuffix(code, ".0")
	if digits != "" && isDigits(digits) {
		digits = strings.TrimLeft(digits, "0")
		if len(digits) < stockCodeWidth {
			digits = strings.Repeat("0", stockCodeWidth-len(digits)) + digits
		}
		return digits, true
	}
	return code, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// textValue 把原始值转为文本，nil 转为空串
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format("2006-01-02")
	}
	return fmt.Sprint(v)
}
