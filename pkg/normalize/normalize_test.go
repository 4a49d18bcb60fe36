package normalize

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockline/pkg/core"
)

func vol(v int64) *int64 { return &v }

func TestNormalize_CanonicalColumns(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"date", "open", "high", "low", "close", "volume"},
		Rows: [][]string{
			{"2024-01-02", "10.1", "10.5", "10.0", "10.4", "12345"},
			{"2024-01-03", "10.4", "10.8", "10.3", "10.7", "23456"},
		},
	}

	bars := Normalize(table, "test")
	require.Len(t, bars, 2)
	assert.Equal(t, core.Bar{Date: "2024-01-02", Open: 10.1, High: 10.5, Low: 10.0, Close: 10.4, Volume: vol(12345)}, bars[0])
	assert.Equal(t, "2024-01-03", bars[1].Date)
}

func TestNormalize_ChineseColumns(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"日期", "开盘", "收盘", "最高", "最低", "成交量"},
		Rows: [][]string{
			{"2024-01-02", "1446.54", "1442.64", "1456.04", "1432.04", "42607"},
		},
	}

	bars := Normalize(table, "akshare")
	require.Len(t, bars, 1)
	assert.Equal(t, 1446.54, bars[0].Open)
	assert.Equal(t, 1442.64, bars[0].Close)
	assert.Equal(t, 1456.04, bars[0].High)
	assert.Equal(t, 1432.04, bars[0].Low)
	assert.Equal(t, vol(42607), bars[0].Volume)
}

func TestNormalize_UppercaseAndLastAlias(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"Date", "Open", "High", "Low", "last", "Volume"},
		Rows: [][]string{
			{"2024-01-02", "1", "2", "0.5", "1.5", "100"},
		},
	}

	bars := Normalize(table, "test")
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)
}

func TestNormalize_MissingRequiredColumn(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"date", "open", "high", "low"}, // 缺 close
		Rows: [][]string{
			{"2024-01-02", "1", "2", "0.5"},
		},
	}

	bars := Normalize(table, "test")
	assert.Empty(t, bars)
}

func TestNormalize_VolumeOmittedWhenColumnAbsent(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"date", "open", "high", "low", "close"},
		Rows: [][]string{
			{"2024-01-02", "1", "2", "0.5", "1.5"},
		},
	}

	bars := Normalize(table, "test")
	require.Len(t, bars, 1)
	assert.Nil(t, bars[0].Volume)
}

func TestNormalize_VolumeDefaultsToZero(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"date", "open", "high", "low", "close", "volume"},
		Rows: [][]string{
			{"2024-01-02", "1", "2", "0.5", "1.5", ""},
			{"2024-01-03", "1", "2", "0.5", "1.5", "n/a"},
			{"2024-01-04", "1", "2", "0.5", "1.5", "-5"},
		},
	}

	bars := Normalize(table, "test")
	require.Len(t, bars, 3)
	for _, b := range bars {
		assert.Equal(t, vol(0), b.Volume)
	}
}

func TestNormalize_DateTimeOfDayDiscarded(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"datetime", "open", "high", "low", "close"},
		Rows: [][]string{
			{"2024-01-02T00:00:00.000Z", "1", "2", "0.5", "1.5"},
			{"2024-01-03 15:00:00", "1", "2", "0.5", "1.5"},
		},
	}

	bars := Normalize(table, "tiingo")
	require.Len(t, bars, 2)
	assert.Equal(t, "2024-01-02", bars[0].Date)
	assert.Equal(t, "2024-01-03", bars[1].Date)
}

func TestNormalize_FloatVolume(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"date", "open", "high", "low", "close", "vol"},
		Rows: [][]string{
			{"2024-01-02", "1", "2", "0.5", "1.5", "12345.0"},
		},
	}

	bars := Normalize(table, "test")
	require.Len(t, bars, 1)
	assert.Equal(t, vol(12345), bars[0].Volume)
}

// 幂等性：已规范化的序列按规范列名回填后再次归一化，结果不变
func TestNormalize_Idempotent(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"日期", "开盘", "最高", "最低", "收盘", "成交量"},
		Rows: [][]string{
			{"2024-01-02", "10.1", "10.5", "10.0", "10.4", "12345"},
			{"2024-01-03", "10.4", "10.8", "10.3", "10.7", "23456"},
		},
	}

	first := Normalize(table, "test")
	require.NotEmpty(t, first)

	refed := &core.RawTable{Columns: []string{"date", "open", "high", "low", "close", "volume"}}
	for _, b := range first {
		refed.Rows = append(refed.Rows, []string{
			b.Date,
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close),
			formatInt(*b.Volume),
		})
	}

	second := Normalize(refed, "test")
	assert.Equal(t, first, second)
}

func TestNormalize_RaggedRowShortOfVolume(t *testing.T) {
	table := &core.RawTable{
		Columns: []string{"date", "open", "high", "low", "close", "volume"},
		Rows: [][]string{
			{"2024-01-02", "10.0", "11.0", "9.5", "10.5", "1000"},
			{"2024-01-03", "10.5", "11.2", "10.1", "11.0"}, // 行短在成交量列
			{"2024-01-04", "11.0"},                         // 行短在必需列
		},
	}

	bars := Normalize(table, "test")
	require.Len(t, bars, 2, "短于必需列的行被丢弃，短于成交量列的行保留")

	require.NotNil(t, bars[0].Volume)
	assert.Equal(t, int64(1000), *bars[0].Volume)

	require.NotNil(t, bars[1].Volume, "成交量列已识别，缺值行记0而非省略")
	assert.Equal(t, int64(0), *bars[1].Volume)
}

func TestNormalize_EmptyTable(t *testing.T) {
	assert.Empty(t, Normalize(nil, "test"))
	assert.Empty(t, Normalize(&core.RawTable{Columns: []string{"date"}}, "test"))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
