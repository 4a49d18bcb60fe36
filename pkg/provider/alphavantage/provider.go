package alphavantage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"stockline/pkg/core"
	"stockline/pkg/logger"
	"stockline/pkg/provider"
)

var klineColumns = []string{"date", "open", "high", "low", "close", "volume"}

// Provider Alpha Vantage数据提供商。TIME_SERIES_DAILY返回按日期为键
// 的无序对象，这里按日期升序重建行序，并在客户端裁剪日期窗口。
type Provider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	log        *logrus.Entry
}

// NewProvider 创建Alpha Vantage数据提供商
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
		baseURL:   "https://www.alphavantage.co",
		apiKey:    apiKey,
		userAgent: userAgent,
		log:       logger.WithComponent("AlphaVantageProvider"),
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

// FetchKlineUS 获取美股日K线
func (p *Provider) FetchKlineUS(ctx context.Context, req provider.FetchRequest) (*core.RawTable, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", req.FormattedCode)
	params.Set("outputsize", "full")
	params.Set("apikey", p.apiKey)

	body, err := p.get(ctx, "/query?"+params.Encode())
	if err != nil {
		return nil, err
	}

	// 限流和无效请求都以200返回，要看响应体
	if msg := gjson.GetBytes(body, "Error Message").String(); msg != "" {
		return nil, fmt.Errorf("alpha vantage error: %s", msg)
	}
	if note := gjson.GetBytes(body, "Note").String(); note != "" {
		return nil, fmt.Errorf("alpha vantage rate limited: %s", note)
	}
	if info := gjson.GetBytes(body, "Information").String(); info != "" {
		return nil, fmt.Errorf("alpha vantage rejected request: %s", info)
	}

	series := gjson.GetBytes(body, `Time Series (Daily)`)
	if !series.Exists() {
		return nil, core.ErrEmptyResult
	}

	type dayBar struct {
		date string
		vals []string
	}
	var days []dayBar
	series.ForEach(func(key, value gjson.Result) bool {
		date := key.String()
		if date < req.StartDate || date > req.EndDate {
			return true
		}
		days = append(days, dayBar{
			date: date,
			vals: []string{
				value.Get("1\\. open").String(),
				value.Get("2\\. high").String(),
				value.Get("3\\. low").String(),
				value.Get("4\\. close").String(),
				value.Get("5\\. volume").String(),
			},
		})
		return true
	})

	if len(days) == 0 {
		return nil, core.ErrEmptyResult
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date < days[j].date })

	table := &core.RawTable{Columns: klineColumns}
	for _, d := range days {
		table.Rows = append(table.Rows, append([]string{d.date}, d.vals...))
	}
	return table, nil
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
