package finnhub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"stockline/pkg/core"
	"stockline/pkg/logger"
	"stockline/pkg/provider"
)

var klineColumns = []string{"date", "open", "high", "low", "close", "volume"}

// Provider Finnhub数据提供商。免费套餐的candle接口基本拿不到历史
// 数据，K线只注册不进默认链路；股票列表接口免费可用。
type Provider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	log        *logrus.Entry
}

// NewProvider 创建Finnhub数据提供商
func NewProvider(apiKey string, timeout time.Duration, userAgent string) *Provider {
	return &Provider{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
		},
		baseURL:   "https://finnhub.io/api/v1",
		apiKey:    apiKey,
		userAgent: userAgent,
		log:       logger.WithComponent("FinnhubProvider"),
	}
}

// SetBaseURL 测试用
func (p *Provider) SetBaseURL(u string) {
	p.baseURL = strings.TrimRight(u, "/")
}

// IsAvailable 已配置API密钥即可用
func (p *Provider) IsAvailable() bool {
	return p.apiKey != ""
}

// FetchKlineUS 获取美股日K线。candle返回o/h/l/c/v/t并行数组，
// s字段非"ok"即失败。
func (p *Provider) FetchKlineUS(ctx context.Context, req provider.FetchRequest) (*core.RawTable, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %s: %w", req.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %s: %w", req.EndDate, err)
	}

	params := url.Values{}
	params.Set("symbol", req.FormattedCode)
	params.Set("resolution", "D")
	params.Set("from", strconv.FormatInt(start.Unix(), 10))
	params.Set("to", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	params.Set("token", p.apiKey)

	body, err := p.get(ctx, "/stock/candle?"+params.Encode())
	if err != nil {
		return nil, err
	}

	if status := gjson.GetBytes(body, "s").String(); status != "ok" {
		return nil, fmt.Errorf("finnhub candle status: %s", status)
	}

	timestamps := gjson.GetBytes(body, "t").Array()
	opens := gjson.GetBytes(body, "o").Array()
	highs := gjson.GetBytes(body, "h").Array()
	lows := gjson.GetBytes(body, "l").Array()
	closes := gjson.GetBytes(body, "c").Array()
	volumes := gjson.GetBytes(body, "v").Array()

	table := &core.RawTable{Columns: klineColumns}
	for i, ts := range timestamps {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		volume := ""
		if i < len(volumes) {
			volume = volumes[i].String()
		}
		table.Rows = append(table.Rows, []string{
			time.Unix(ts.Int(), 0).UTC().Format("2006-01-02"),
			opens[i].String(),
			highs[i].String(),
			lows[i].String(),
			closes[i].String(),
			volume,
		})
	}

	if table.IsEmpty() {
		return nil, core.ErrEmptyResult
	}
	return table, nil
}

// FetchStockListUS 获取美股全列表
func (p *Provider) FetchStockListUS(ctx context.Context) (*core.StockListResult, error) {
	params := url.Values{}
	params.Set("exchange", "US")
	params.Set("token", p.apiKey)

	body, err := p.get(ctx, "/stock/symbol?"+params.Encode())
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("finnhub unexpected symbol response")
	}

	var stocks []core.StockListEntry
	seen := make(map[string]bool)
	parsed.ForEach(func(_, item gjson.Result) bool {
		symbol := item.Get("symbol").String()
		if symbol == "" || seen[symbol] {
			return true
		}
		seen[symbol] = true
		stocks = append(stocks, core.StockListEntry{
			Code:     symbol,
			Name:     item.Get("description").String(),
			Market:   "us",
			FullCode: symbol,
		})
		return true
	})

	if len(stocks) == 0 {
		return nil, core.ErrEmptyResult
	}
	return &core.StockListResult{
		Market:    "us",
		Count:     len(stocks),
		Stocks:    stocks,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Source:    "finnhub",
	}, nil
}

func (p *Provider) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status error: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
