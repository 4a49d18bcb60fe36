package akshare

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

// Provider akshare数据提供商。通过AKTools网关（akshare的HTTP封装服务）
// 访问，网关地址未配置时视为不可用，相当于原实现中库未安装的情形。
type Provider struct {
	httpClient *http.Client
	baseURL    string // AKTools网关地址，如 http://127.0.0.1:8080
	sinaHKURL  string // 港股实时行情兜底接口
	userAgent  string
	log        *logrus.Entry
}

// NewProvider 创建akshare数据提供商
func NewProvider(baseURL string, timeout time.Duration, userAgent string) *Provider {
	return &Provider{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		sinaHKURL: "https://hq.sinajs.cn/list=",
		userAgent: userAgent,
		log:       logger.WithComponent("AkshareProvider"),
	}
}

// SetSinaHKURL 重定向港股实时兜底接口，测试用
func (p *Provider) SetSinaHKURL(u string) {
	p.sinaHKURL = u
}

// IsAvailable 网关地址已配置即认为可用
func (p *Provider) IsAvailable() bool {
	return p.baseURL != ""
}

// FetchKlineCN 经网关调用 stock_zh_a_hist 获取A股日K线（前复权）。
// 返回的JSON对象使用中文键（日期/开盘/收盘/最高/最低/成交量），
// 原样装入RawTable交给归一化层识别。
func (p *Provider) FetchKlineCN(ctx context.Context, req provider.FetchRequest) (*core.RawTable, error) {
	params := url.Values{}
	params.Set("symbol", req.Code)
	params.Set("period", "daily")
	params.Set("start_date", strings.ReplaceAll(req.StartDate, "-", ""))
	params.Set("end_date", strings.ReplaceAll(req.EndDate, "-", ""))
	params.Set("adjust", "qfq")

	return p.fetchTable(ctx, "/api/public/stock_zh_a_hist", params)
}

// FetchKlineHK 经网关调用 stock_hk_hist 获取港股日K线；历史接口
// 失败时回退到新浪实时行情合成当日单条K线，与原实现行为一致。
func (p *Provider) FetchKlineHK(ctx context.Context, req provider.FetchRequest) (*core.RawTable, error) {
	params := url.Values{}
	params.Set("symbol", req.Code)
	params.Set("period", "daily")
	params.Set("start_date", strings.ReplaceAll(req.StartDate, "-", ""))
	params.Set("end_date", strings.ReplaceAll(req.EndDate, "-", ""))
	params.Set("adjust", "qfq")

	table, err := p.fetchTable(ctx, "/api/public/stock_hk_hist", params)
	if err == nil {
		return table, nil
	}
	p.log.Warnf("港股历史接口失败，尝试实时行情兜底: %v", err)

	return p.fetchHKRealtime(ctx, req.Code)
}

// fetchTable 请求网关并把JSON对象数组转为RawTable。
// 列名取首个对象的键并保持文档顺序，行按列名逐个取值。
func (p *Provider) fetchTable(ctx context.Context, path string, params url.Values) (*core.RawTable, error) {
	body, err := p.get(ctx, p.baseURL+path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("akshare: unexpected payload shape: %s", truncate(string(body), 120))
	}
	items := rows.Array()
	if len(items) == 0 {
		return nil, core.ErrEmptyResult
	}

	var columns []string
	items[0].ForEach(func(key, _ gjson.Result) bool {
		columns = append(columns, key.String())
		return true
	})
	if len(columns) == 0 {
		return nil, fmt.Errorf("akshare: rows carry no columns")
	}

	table := &core.RawTable{Columns: columns}
	for _, item := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = item.Get(col).String()
		}
		table.Rows = append(table.Rows, row)
	}

	p.log.Debugf("网关 %s 返回 %d 行", path, len(table.Rows))
	return table, nil
}

func (p *Provider) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
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
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
