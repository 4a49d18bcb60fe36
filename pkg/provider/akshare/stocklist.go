package akshare

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"stockline/pkg/core"
)

// FetchStockListCN 经网关调用 stock_info_a_code_name 获取A股全列表
func (p *Provider) FetchStockListCN(ctx context.Context) (*core.StockListResult, error) {
	body, err := p.get(ctx, p.baseURL+"/api/public/stock_info_a_code_name")
	if err != nil {
		return nil, err
	}

	items := gjson.ParseBytes(body)
	if !items.IsArray() {
		return nil, fmt.Errorf("akshare: unexpected stock list payload")
	}

	var stocks []core.StockListEntry
	for _, item := range items.Array() {
		code := strings.TrimSpace(item.Get("code").String())
		name := strings.TrimSpace(item.Get("name").String())
		if code == "" {
			continue
		}
		fullCode := code + ".SZ"
		if strings.HasPrefix(code, "6") {
			fullCode = code + ".SH"
		}
		stocks = append(stocks, core.StockListEntry{
			Code:     code,
			Name:     name,
			Market:   "cn",
			FullCode: fullCode,
		})
	}

	if len(stocks) == 0 {
		return nil, core.ErrEmptyResult
	}

	return &core.StockListResult{
		Market:    "cn",
		Count:     len(stocks),
		Stocks:    stocks,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Source:    "akshare",
	}, nil
}

// FetchStockListHK 经网关调用 stock_hk_spot_em 获取港股全列表。
// 该接口返回实时快照，这里只取代码与名称两列。
func (p *Provider) FetchStockListHK(ctx context.Context) (*core.StockListResult, error) {
	body, err := p.get(ctx, p.baseURL+"/api/public/stock_hk_spot_em?"+url.Values{}.Encode())
	if err != nil {
		return nil, err
	}

	items := gjson.ParseBytes(body)
	if !items.IsArray() {
		return nil, fmt.Errorf("akshare: unexpected hk stock list payload")
	}

	var stocks []core.StockListEntry
	for _, item := range items.Array() {
		code := strings.TrimSpace(item.Get("代码").String())
		name := strings.TrimSpace(item.Get("名称").String())
		if code == "" {
			continue
		}
		stocks = append(stocks, core.StockListEntry{
			Code:     code,
			Name:     name,
			Market:   "hk",
			FullCode: code + ".HK",
		})
	}

	if len(stocks) == 0 {
		return nil, core.ErrEmptyResult
	}

	return &core.StockListResult{
		Market:    "hk",
		Count:     len(stocks),
		Stocks:    stocks,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Source:    "akshare",
	}, nil
}
