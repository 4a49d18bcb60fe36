package kline

import "stockline/pkg/core"

// ClampWindow 把K线裁剪到[startDate, endDate]闭区间。
// 日期为 YYYY-MM-DD，字典序即时间序，直接比较字符串。
// 数据源偶尔会无视请求参数返回窗口外的行，这里统一兜底。
func ClampWindow(bars []core.Bar, startDate, endDate string) []core.Bar {
	var out []core.Bar
	for _, b := range bars {
		if b.Date >= startDate && b.Date <= endDate {
			out = append(out, b)
		}
	}
	return out
}
