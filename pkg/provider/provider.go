package provider

import (
	"context"

	"stockline/pkg/core"
	"stockline/pkg/market"
)

// FetchRequest K线适配器的统一入参。日期一律为 ISO YYYY-MM-DD，
// 各适配器自行转换成上游要求的编码（YYYYMMDD、Unix时间戳等）。
type FetchRequest struct {
	Code          string
	FormattedCode string
	Market        market.Market
	StartDate     string
	EndDate       string
}

// KlineFunc K线适配器的统一取数签名
type KlineFunc func(ctx context.Context, req FetchRequest) (*core.RawTable, error)

// ListFunc 股票列表适配器的统一取数签名
type ListFunc func(ctx context.Context) (*core.StockListResult, error)

// KlineSpec 一个具名K线数据源：可用性判断 + 取数函数。
// Available 在 Fetch 之前检查，避免对缺少密钥/网关的数据源发起网络请求。
type KlineSpec struct {
	Name      string
	Available func() bool
	Fetch     KlineFunc
}

// ListSpec 一个具名股票列表数据源
type ListSpec struct {
	Name      string
	Available func() bool
	Fetch     ListFunc
}
