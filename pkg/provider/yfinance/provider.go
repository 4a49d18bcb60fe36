package yfinance

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

const (
	chartPath = "/v8/finance/chart/"

	maxRetries = 5
)

var klineColumns = []string{"date", "open", "high", "low", "close", "volume"}

// Provider 雅虎财经数据提供商，走v8 chart接口。雅虎对高频访问限流
// 较严，被限流时在适配器内部做有界重试，不向上层暴露。
type Provider struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	retryWait  time.Duration
	log        *logrus.Entry
}

// NewProvider 创建雅虎财经数据提供商
func NewProvider(timeout time.Duration, userAgent string) *Provider {
	return &Provider{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
		},
		baseURL:   "https://query1.finance.yahoo.com",
		userAgent: userAgent,
		retryWait: 5 * time.Second,
		log:       logger.WithComponent("YFinanceProvider"),
	}
}

// SetBaseURL 测试用
func (p *Provider) SetBaseURL(u string) {
	p.baseURL = strings.TrimRight(u, "/")
}

// IsAvailable 无需密钥，始终可用
func (p *Provider) IsAvailable() bool {
	return true
}

// FetchKlineUS 获取美股日K线
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
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	// 结束日加一天，chart接口的period2是排他的
	params.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")

	body, err := p.getWithRetry(ctx, chartPath+url.PathEscape(req.FormattedCode)+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		if msg := gjson.GetBytes(body, "chart.error.description").String(); msg != "" {
			return nil, fmt.Errorf("yahoo chart error: %s", msg)
		}
		return nil, core.ErrEmptyResult
	}

	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return nil, core.ErrEmptyResult
	}
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	table := &core.RawTable{Columns: klineColumns}
	for i, ts := range timestamps {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		// 停牌日各字段为null，跳过
		if opens[i].Type == gjson.Null || closes[i].Type == gjson.Null {
			continue
		}
		date := time.Unix(ts.Int(), 0).UTC().Format("2006-01-02")
		volume := ""
		if i < len(volumes) && volumes[i].Type != gjson.Null {
			volume = volumes[i].String()
		}
		table.Rows = append(table.Rows, []string{
			date,
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

// getWithRetry 执行GET，仅对限流(429)做有界线性退避重试
func (p *Provider) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt+1) * p.retryWait
			p.log.Warnf("雅虎接口限流，%v后第%d次重试", wait, attempt)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retryable, err := p.get(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("yahoo rate limited after %d attempts: %w", maxRetries, lastErr)
}

func (p *Provider) get(ctx context.Context, path string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("HTTP status error: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("HTTP status error: %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response failed: %w", err)
	}
	return body, false, nil
}
