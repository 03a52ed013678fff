package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		want     *float64
		wantWarn bool
	}{
		{"nil", nil, nil, false},
		{"空字符串", "", nil, false},
		{"空白", "   ", nil, false},
		{"横杠", "-", nil, false},
		{"整数", 42, f(42), false},
		{"int64", int64(-7), f(-7), false},
		{"浮点数", 3.14, f(3.14), false},
		{"NaN", math.NaN(), nil, false},
		{"正无穷", math.Inf(1), nil, true},
		{"无穷文本", "Inf", nil, true},
		{"带符号无穷文本", "+Inf", nil, true},
		{"负无穷文本", "-infinity", nil, true},
		{"NaN文本", "NaN", nil, true},
		{"无穷带单位", "Inf万", nil, true},
		{"无穷带亿", "-Inf亿", nil, true},
		{"普通文本数值", "12.5", f(12.5), false},
		{"千分位", "1,234.5", f(1234.5), false},
		{"百分号", "3.2%", f(3.2), false},
		{"负百分比", "-1.05%", f(-1.05), false},
		{"万单位", "3000万", f(3000), false},
		{"万单位带千分位", "1,200.5万", f(1200.5), false},
		{"负万", "-256.3万", f(-256.3), false},
		{"亿单位", "1.2亿", f(12000), false},
		{"负亿", "-0.5亿", f(-5000), false},
		{"亿单位带空格", " 2亿 ", f(20000), false},
		{"只有单位", "万", nil, false},
		{"横杠带单位", "-亿", nil, false},
		{"非数值文本", "停牌", nil, true},
		{"亿单位无法解析", "约1亿", nil, true},
		{"不支持的类型", true, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warn := ParseNumeric(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.want, *got, 1e-9)
			}
			assert.Equal(t, tt.wantWarn, warn != nil)
		})
	}
}

func TestParseNumeric_UnitProperties(t *testing.T) {
	prefixes := []string{"0", "1", "12.5", "3000", "-8.25", "1234.5678"}

	for _, p := range prefixes {
		plain, _ := ParseNumeric(p)
		require.NotNil(t, plain)

		wan, _ := ParseNumeric(p + "万")
		require.NotNil(t, wan, p)
		assert.Equal(t, *plain, *wan, "万单位不缩放: %s", p)

		yi, _ := ParseNumeric(p + "亿")
		require.NotNil(t, yi, p)
		assert.Equal(t, 10000**plain, *yi, "亿单位乘以10000: %s", p)
	}
}

func TestParseWarning_String(t *testing.T) {
	_, warn := ParseNumeric("停牌")
	require.NotNil(t, warn)
	warn.Field = "turnover_rate"
	assert.Contains(t, warn.String(), "turnover_rate")
	assert.Contains(t, warn.String(), "停牌")
}

func f(v float64) *float64 {
	return &v
}
