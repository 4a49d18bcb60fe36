package normalize

import (
	"strconv"
	"strings"
	"time"

	"stockline/pkg/core"
	"stockline/pkg/logger"
)

var log = logger.WithComponent("Normalizer")

// columnAliases 各规范字段可接受的源列名，按优先级排列，命中第一个即停。
// 包含主流数据源使用的大小写变体与中文列名。
var columnAliases = map[string][]string{
	"date":   {"date", "Date", "DATE", "datetime", "time", "日期"},
	"open":   {"open", "Open", "OPEN", "开盘"},
	"high":   {"high", "High", "HIGH", "最高"},
	"low":    {"low", "Low", "LOW", "最低"},
	"close":  {"close", "Close", "CLOSE", "last", "收盘"},
	"volume": {"volume", "Volume", "VOLUME", "vol", "成交量"},
}

// requiredFields date/open/high/low/close 缺一不可；volume 可选
var requiredFields = []string{"date", "open", "high", "low", "close"}

// dateLayouts 按尝试顺序排列的日期解析格式
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"20060102",
}

// Normalize 将适配器的原始表格转换为规范K线序列。
//
// 任一必需字段（date/open/high/low/close）无法从列名中识别时整体失败，
// 返回空序列，该数据源按失败处理，不输出部分记录。volume 列缺失时
// 省略该字段；存在但无法解析时记 0。行顺序原样保留，不在此处排序。
func Normalize(t *core.RawTable, source string) []core.Bar {
	if t.IsEmpty() {
		return nil
	}

	idx := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		idx[field] = -1
		for _, alias := range aliases {
			if i := t.ColumnIndex(alias); i >= 0 {
				idx[field] = i
				break
			}
		}
	}

	for _, field := range requiredFields {
		if idx[field] < 0 {
			log.Warnf("%s 数据源缺少 %s 列，放弃本次数据", source, field)
			return nil
		}
	}

	hasVolume := idx["volume"] >= 0

	bars := make([]core.Bar, 0, len(t.Rows))
	for _, row := range t.Rows {
		if !rowComplete(row, idx) {
			continue
		}

		date, ok := parseDate(row[idx["date"]])
		if !ok {
			log.Debugf("%s 数据源存在无法解析的日期: %q", source, row[idx["date"]])
			continue
		}

		bar := core.Bar{
			Date:  date,
			Open:  parseFloat(row[idx["open"]]),
			High:  parseFloat(row[idx["high"]]),
			Low:   parseFloat(row[idx["low"]]),
			Close: parseFloat(row[idx["close"]]),
		}
		if hasVolume {
			// 残缺行可能只短在可选列上，此时成交量按缺值记0
			v := int64(0)
			if idx["volume"] < len(row) {
				v = parseVolume(row[idx["volume"]])
			}
			bar.Volume = &v
		}
		bars = append(bars, bar)
	}

	return bars
}

// rowComplete 检查一行是否覆盖所有已识别的必需列
func rowComplete(row []string, idx map[string]int) bool {
	for _, field := range requiredFields {
		if idx[field] >= len(row) {
			return false
		}
	}
	return true
}

// parseDate 解析日期并丢弃时间部分，返回 YYYY-MM-DD
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format("2006-01-02"), true
		}
	}
	return "", false
}

// parseFloat 安全解析浮点数
func parseFloat(s string) float64 {
	val, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return val
}

// parseVolume 成交量解析为非负整数，空值或无法解析时记 0
func parseVolume(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0
		}
		return v
	}
	// 部分数据源以浮点形式返回成交量
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int64(f)
	}
	return 0
}
