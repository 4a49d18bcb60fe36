package core

import "stockline/pkg/market"

// Bar 单日K线记录，日期只保留日历日（YYYY-MM-DD），不带时间。
// 注意：low ≤ open,close ≤ high 不在本系统校验，个别数据源会返回
// 违反该关系的记录，这里原样透传。
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"` // 数据源无成交量列时省略
}

// KlineResult K线查询结果，每次请求新建，不做持久化。
type KlineResult struct {
	Code          string        `json:"code"`
	FormattedCode string        `json:"formatted_code"`
	Market        market.Market `json:"market"`
	DataSource    string        `json:"data_source"`
	Data          []Bar         `json:"data"`
	Error         string        `json:"error,omitempty"`
}

// StockListEntry 股票列表中的一条记录
type StockListEntry struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Market   string `json:"market"`
	FullCode string `json:"full_code"`
	Industry string `json:"industry"`
	ListDate string `json:"list_date"`
}

// StockListResult 某个市场的股票列表
type StockListResult struct {
	Market    string           `json:"market"`
	Count     int              `json:"count"`
	Stocks    []StockListEntry `json:"stocks"`
	Timestamp string           `json:"timestamp"`
	Source    string           `json:"source"`
}

// RawTable 适配器返回的原始表格数据。列名保留数据源原样
// （大小写、本地化名称均不做处理），由归一化层统一识别。
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// IsEmpty 判断表格是否无数据行
func (t *RawTable) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex 返回指定列名的下标，不存在时返回 -1
func (t *RawTable) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}
