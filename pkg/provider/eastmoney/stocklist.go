package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"stockline/pkg/core"
)

const (
	// fsCN 沪深主板、科创板、创业板、北交所
	fsCN = "m:0+t:6,m:0+t:13,m:0+t:80,m:1+t:2,m:1+t:23"
	// fsHK 港股主板+创业板
	fsHK = "m:128+t:3,m:128+t:4"

	listPageSize = 100 // clist接口单页上限
)

// FetchStockListCN 分页拉取A股全列表
func (p *Provider) FetchStockListCN(ctx context.Context) (*core.StockListResult, error) {
	entries, err := p.fetchList(ctx, fsCN, func(code, name string) core.StockListEntry {
		return core.StockListEntry{
			Code:     code,
			Name:     name,
			Market:   "cn",
			FullCode: cnFullCode(code),
		}
	})
	if err != nil {
		return nil, err
	}
	return listResult("cn", entries), nil
}

// FetchStockListHK 分页拉取港股全列表
func (p *Provider) FetchStockListHK(ctx context.Context) (*core.StockListResult, error) {
	entries, err := p.fetchList(ctx, fsHK, func(code, name string) core.StockListEntry {
		return core.StockListEntry{
			Code:     code,
			Name:     name,
			Market:   "hk",
			FullCode: code + ".HK",
		}
	})
	if err != nil {
		return nil, err
	}
	return listResult("hk", entries), nil
}

func (p *Provider) fetchList(ctx context.Context, fs string, build func(code, name string) core.StockListEntry) ([]core.StockListEntry, error) {
	var entries []core.StockListEntry
	seen := make(map[string]struct{})

	page := 1
	totalPages := 1
	for page <= totalPages {
		params := url.Values{}
		params.Set("pn", strconv.Itoa(page))
		params.Set("pz", strconv.Itoa(listPageSize))
		params.Set("po", "1")
		params.Set("np", "1")
		params.Set("fltt", "2")
		params.Set("invt", "2")
		params.Set("fid", "f3")
		params.Set("fs", fs)
		params.Set("fields", "f2,f3,f12,f14")

		body, err := p.get(ctx, p.listURL+"?"+params.Encode())
		if err != nil {
			return nil, err
		}

		if page == 1 {
			total := gjson.GetBytes(body, "data.total").Int()
			if total == 0 {
				return nil, core.ErrEmptyResult
			}
			totalPages = int((total + listPageSize - 1) / listPageSize)
			p.log.Infof("股票列表共 %d 条，%d 页", total, totalPages)
		}

		diff := gjson.GetBytes(body, "data.diff")
		if !diff.Exists() {
			return nil, fmt.Errorf("eastmoney: no data.diff on page %d", page)
		}
		for _, v := range diff.Array() {
			code := strings.TrimSpace(v.Get("f12").String())
			name := strings.TrimSpace(v.Get("f14").String())
			if code == "" || name == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			entries = append(entries, build(code, name))
		}

		page++
	}

	if len(entries) == 0 {
		return nil, core.ErrEmptyResult
	}
	return entries, nil
}

// cnFullCode 按代码前缀补交易所后缀
func cnFullCode(code string) string {
	switch {
	case strings.HasPrefix(code, "60"), strings.HasPrefix(code, "68"):
		return code + ".SH"
	case strings.HasPrefix(code, "00"), strings.HasPrefix(code, "30"):
		return code + ".SZ"
	case strings.HasPrefix(code, "8"), strings.HasPrefix(code, "4"), strings.HasPrefix(code, "920"):
		return code + ".BJ"
	default:
		return code + ".CN"
	}
}

func listResult(marketKey string, entries []core.StockListEntry) *core.StockListResult {
	return &core.StockListResult{
		Market:    marketKey,
		Count:     len(entries),
		Stocks:    entries,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Source:    "eastmoney",
	}
}
