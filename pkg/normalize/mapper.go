package normalize

import (
	"stockdaily/pkg/source"
)

// ColumnRule 一条列名映射规则：源列名 -> 规范字段
type ColumnRule struct {
	Label string `mapstructure:"label" json:"label" yaml:"label"`
	Field string `mapstructure:"field" json:"field" yaml:"field"`
}

// ColumnMapping 有序的列名映射表。
// 同一源列名出现多次时以第一条为准；多个源列名可指向同一字段。
type ColumnMapping struct {
	rules  []ColumnRule
	lookup map[string]string
}

// NewColumnMapping 由有序规则构造映射表
func NewColumnMapping(rules []ColumnRule) *ColumnMapping {
	m := &ColumnMapping{
		rules:  make([]ColumnRule, 0, len(rules)),
		lookup: make(map[string]string, len(rules)),
	}
	for _, r := range rules {
		m.rules = append(m.rules, r)
		if _, exists := m.lookup[r.Label]; !exists {
			m.lookup[r.Label] = r.Field
		}
	}
	return m
}

// Rules 返回映射规则副本
func (m *ColumnMapping) Rules() []ColumnRule {
	out := make([]ColumnRule, len(m.rules))
	copy(out, m.rules)
	return out
}

// FieldFor 查询源列名对应的规范字段
func (m *ColumnMapping) FieldFor(label string) (string, bool) {
	f, ok := m.lookup[label]
	return f, ok
}

// Collision 同一行中多个源列映射到同一字段时，被丢弃的列
type Collision struct {
	Label     string
	Field     string
	KeptLabel string
}

// RawRecord 映射后的单行：规范字段 -> 原始值
type RawRecord map[string]any

// MapRow 按源行自身的列顺序逐列映射。
// 未配置的列记为 unmapped；同一字段已被先出现的列占用时，后出现的列被丢弃并记录冲突。
func (m *ColumnMapping) MapRow(row source.Row) (RawRecord, []string, []Collision) {
	out := make(RawRecord, len(row))
	owner := make(map[string]string, len(row))
	var unmapped []string
	var collisions []Collision

	for _, cell := range row {
		field, ok := m.lookup[cell.Label]
		if !ok {
			unmapped = append(unmapped, cell.Label)
			continue
		}
		if kept, taken := owner[field]; taken {
			collisions = append(collisions, Collision{Label: cell.Label, Field: field, KeptLabel: kept})
			continue
		}
		owner[field] = cell.Label
		out[field] = cell.Value
	}

	return out, unmapped, collisions
}
