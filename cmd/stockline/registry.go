package main

import (
	"stockline/pkg/config"
	"stockline/pkg/market"
	"stockline/pkg/provider"
	"stockline/pkg/provider/akshare"
	"stockline/pkg/provider/alphavantage"
	"stockline/pkg/provider/baostock"
	"stockline/pkg/provider/eastmoney"
	"stockline/pkg/provider/finnhub"
	"stockline/pkg/provider/sec"
	"stockline/pkg/provider/tiingo"
	"stockline/pkg/provider/yfinance"
)

// buildRegistry 组装全部数据源并设定各市场的回退顺序。
// 顺序与名称是对外契约，data_source字段会原样返回给调用方。
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	timeout := cfg.HTTP.Timeout
	ua := cfg.HTTP.UserAgent
	bk := breakerConfig(cfg)

	em := eastmoney.NewProvider(timeout, ua)
	ak := akshare.NewProvider(cfg.Gateways.AKTools, timeout, ua)
	bs := baostock.NewProvider(cfg.Gateways.Baostock, timeout, ua)
	yf := yfinance.NewProvider(timeout, ua)
	av := alphavantage.NewProvider(cfg.Keys.AlphaVantage, timeout, ua)
	tg := tiingo.NewProvider(cfg.Keys.Tiingo, timeout, ua)
	fh := finnhub.NewProvider(cfg.Keys.Finnhub, timeout, ua)
	secp := sec.NewProvider(timeout, ua)

	reg := provider.NewRegistry()

	klines := []provider.KlineSpec{
		{Name: "eastmoney_cn", Available: em.IsAvailable, Fetch: em.FetchKlineCN},
		{Name: "akshare", Available: ak.IsAvailable, Fetch: ak.FetchKlineCN},
		{Name: "baostock", Available: bs.IsAvailable, Fetch: bs.FetchKlineCN},
		{Name: "eastmoney_hk", Available: em.IsAvailable, Fetch: em.FetchKlineHK},
		{Name: "akshare_hk", Available: ak.IsAvailable, Fetch: ak.FetchKlineHK},
		{Name: "yfinance", Available: yf.IsAvailable, Fetch: yf.FetchKlineUS},
		{Name: "alpha_vantage", Available: av.IsAvailable, Fetch: av.FetchKlineUS},
		{Name: "tiingo", Available: tg.IsAvailable, Fetch: tg.FetchKlineUS},
		{Name: "finnhub", Available: fh.IsAvailable, Fetch: fh.FetchKlineUS},
	}
	for _, spec := range klines {
		if err := reg.RegisterKline(provider.WithBreaker(spec, bk)); err != nil {
			return nil, err
		}
	}

	lists := []provider.ListSpec{
		{Name: "eastmoney_list_cn", Available: em.IsAvailable, Fetch: em.FetchStockListCN},
		{Name: "akshare_list_cn", Available: ak.IsAvailable, Fetch: ak.FetchStockListCN},
		{Name: "baostock_list_cn", Available: bs.IsAvailable, Fetch: bs.FetchStockListCN},
		{Name: "eastmoney_list_hk", Available: em.IsAvailable, Fetch: em.FetchStockListHK},
		{Name: "akshare_list_hk", Available: ak.IsAvailable, Fetch: ak.FetchStockListHK},
		{Name: "sec_list_us", Available: secp.IsAvailable, Fetch: secp.FetchStockListUS},
		{Name: "finnhub_list_us", Available: fh.IsAvailable, Fetch: fh.FetchStockListUS},
	}
	for _, spec := range lists {
		if err := reg.RegisterList(spec); err != nil {
			return nil, err
		}
	}

	reg.SetKlineOrder(market.A, []string{"eastmoney_cn", "akshare", "baostock"})
	reg.SetKlineOrder(market.HK, []string{"eastmoney_hk", "akshare_hk"})
	// finnhub免费套餐无历史K线，注册但不进默认链路
	reg.SetKlineOrder(market.US, []string{"yfinance", "alpha_vantage", "tiingo"})

	reg.SetListOrder("cn", []string{"eastmoney_list_cn", "akshare_list_cn", "baostock_list_cn"})
	reg.SetListOrder("hk", []string{"eastmoney_list_hk", "akshare_list_hk"})
	reg.SetListOrder("us", []string{"sec_list_us", "finnhub_list_us"})

	return reg, nil
}
