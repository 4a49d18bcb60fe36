package tiingo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"stockline/pkg/core"
	"stockline/pkg/logger"
	"stockline/pkg/provider"
)

var klineColumns = []string{"date", "open", "high", "low", "close", "volume"}

// Provider Tiingo数据提供商，认证走Authorization: Token头
type Provider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	log        *logrus.Entry
}

// NewProvider 创建Tiingo数据提供商
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
		baseURL:   "https://api.tiingo.com",
		apiKey:    apiKey,
		userAgent: userAgent,
		log:       logger.WithComponent("TiingoProvider"),
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
	params.Set("startDate", req.StartDate)
	params.Set("endDate", req.EndDate)

	path := "/tiingo/daily/" + url.PathEscape(strings.ToLower(req.FormattedCode)) + "/prices?" + params.Encode()
	body, err := p.get(ctx, path)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		if msg := parsed.Get("detail").String(); msg != "" {
			return nil, fmt.Errorf("tiingo error: %s", msg)
		}
		return nil, fmt.Errorf("tiingo unexpected response")
	}

	table := &core.RawTable{Columns: klineColumns}
	for _, item := range parsed.Array() {
		table.Rows = append(table.Rows, []string{
			item.Get("date").String(), // "2024-01-02T00:00:00.000Z"
			item.Get("open").String(),
			item.Get("high").String(),
			item.Get("low").String(),
			item.Get("close").String(),
			item.Get("volume").String(),
		})
	}

	if table.IsEmpty() {
		return nil, core.ErrEmptyResult
	}
	return table, nil
}

func (p *Provider) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

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
