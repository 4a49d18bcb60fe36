package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		market    Market
		formatted string
	}{
		{"A股6位代码", "000001", A, "000001"},
		{"A股带后缀", "600036.SH", A, "600036"},
		{"科创板", "688981", A, "688981"},
		{"港股5位代码", "00700", HK, "00700.HK"},
		{"港股带后缀", "03690.HK", HK, "03690.HK"},
		{"美股代码", "TSLA", US, "TSLA"},
		{"美股带后缀", "BRK.B", US, "BRK.B"},
		{"空串默认美股", "", US, ""},
		{"4位数字默认美股", "1234", US, "1234"},
		{"7位数字默认美股", "1234567", US, "1234567"},
		{"混合字符默认美股", "60003a", US, "60003a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, formatted := Classify(tt.code)
			assert.Equal(t, tt.market, m)
			assert.Equal(t, tt.formatted, formatted)
		})
	}
}

func TestListKey(t *testing.T) {
	assert.Equal(t, "cn", A.ListKey())
	assert.Equal(t, "hk", HK.ListKey())
	assert.Equal(t, "us", US.ListKey())
}

func TestFromListKey(t *testing.T) {
	m, ok := FromListKey("CN")
	assert.True(t, ok)
	assert.Equal(t, A, m)

	m, ok = FromListKey("hk")
	assert.True(t, ok)
	assert.Equal(t, HK, m)

	_, ok = FromListKey("jp")
	assert.False(t, ok)
}
