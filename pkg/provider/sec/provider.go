package sec

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"stockline/pkg/core"
	"stockline/pkg/logger"
)

// Provider 美国证监会公开数据，无需密钥但必须带标识性User-Agent，
// 否则会被拒绝。company_tickers_exchange.json是fields+data的
// 列名加行数组结构。
type Provider struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	log        *logrus.Entry
}

// NewProvider 创建SEC数据提供商
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
		baseURL:   "https://www.sec.gov",
		userAgent: userAgent,
		log:       logger.WithComponent("SECProvider"),
	}
}

// SetBaseURL 测试用
func (p *Provider) SetBaseURL(u string) {
	p.baseURL = strings.TrimRight(u, "/")
}

// IsAvailable 公共端点，始终可用
func (p *Provider) IsAvailable() bool {
	return true
}

// FetchStockListUS 获取美股全列表
func (p *Provider) FetchStockListUS(ctx context.Context) (*core.StockListResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/files/company_tickers_exchange.json", nil)
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
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}

	fields := gjson.GetBytes(body, "fields").Array()
	tickerIdx, nameIdx := -1, -1
	for i, f := range fields {
		switch f.String() {
		case "ticker":
			tickerIdx = i
		case "name":
			nameIdx = i
		}
	}
	if tickerIdx < 0 || nameIdx < 0 {
		return nil, fmt.Errorf("sec ticker file missing expected fields")
	}

	var stocks []core.StockListEntry
	seen := make(map[string]bool)
	gjson.GetBytes(body, "data").ForEach(func(_, row gjson.Result) bool {
		cells := row.Array()
		if len(cells) <= tickerIdx || len(cells) <= nameIdx {
			return true
		}
		ticker := cells[tickerIdx].String()
		if ticker == "" || seen[ticker] {
			return true
		}
		seen[ticker] = true
		stocks = append(stocks, core.StockListEntry{
			Code:     ticker,
			Name:     cells[nameIdx].String(),
			Market:   "us",
			FullCode: ticker,
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
		Source:    "sec",
	}, nil
}
