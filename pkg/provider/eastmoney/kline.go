package eastmoney

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

// klineFields2 东方财富K线接口返回字段：
// f51日期 f52开盘 f53收盘 f54最高 f55最低 f56成交量 f57成交额
// f58振幅 f59涨跌幅 f60涨跌额 f61换手率
const klineFields2 = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"

// klineColumns 与上游逗号串的字段顺序一一对应
var klineColumns = []string{"date", "open", "close", "high", "low", "volume", "amount", "amplitude", "pct_change", "change", "turnover"}

// Provider 东方财富数据提供商，同时服务A股与港股的日K线及股票列表。
// 免费接口，无需密钥。
type Provider struct {
	httpClient *http.Client
	klineURL   string
	listURL    string
	userAgent  string
	log        *logrus.Entry
}

// NewProvider 创建东方财富数据提供商
func NewProvider(timeout time.Duration, userAgent string) *Provider {
	return &Provider{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
		},
		klineURL:  "https://push2his.eastmoney.com/api/qt/stock/kline/get",
		listURL:   "https://push2.eastmoney.com/api/qt/clist/get",
		userAgent: userAgent,
		log:       logger.WithComponent("EastmoneyProvider"),
	}
}

// SetBaseURLs 重定向上游地址，测试用
func (p *Provider) SetBaseURLs(klineURL, listURL string) {
	p.klineURL = klineURL
	p.listURL = listURL
}

// IsAvailable 东方财富不需要密钥，客户端存在即可用
func (p *Provider) IsAvailable() bool {
	return p.httpClient != nil
}

// FetchKlineCN 获取A股日K线。secid 前缀按代码首位推导：
// 60/68/900 → 上海(1.)，00/30/200 → 深圳(0.)，其余视为无法识别。
func (p *Provider) FetchKlineCN(ctx context.Context, req provider.FetchRequest) (*core.RawTable, error) {
	secid, err := cnSecID(req.Code)
	if err != nil {
		return nil, err
	}
	return p.fetchKline(ctx, secid, req)
}

// FetchKlineHK 获取港股日K线，市场代码116，股票代码补零到5位。
func (p *Provider) FetchKlineHK(ctx context.Context, req provider.FetchRequest) (*core.RawTable, error) {
	code := req.Code
	if idx := strings.Index(code, "."); idx >= 0 {
		code = code[:idx]
	}
	for len(code) < 5 {
		code = "0" + code
	}
	return p.fetchKline(ctx, "116."+code, req)
}

func (p *Provider) fetchKline(ctx context.Context, secid string, req provider.FetchRequest) (*core.RawTable, error) {
	params := url.Values{}
	params.Set("secid", secid)
	params.Set("klt", "101") // 日K线
	params.Set("fqt", "1")   // 前复权
	params.Set("beg", strings.ReplaceAll(req.StartDate, "-", ""))
	params.Set("end", strings.ReplaceAll(req.EndDate, "-", ""))
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", klineFields2)
	params.Set("lmt", "10000")

	body, err := p.get(ctx, p.klineURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	if rc := gjson.GetBytes(body, "rc"); rc.Exists() && rc.Int() != 0 {
		return nil, fmt.Errorf("eastmoney api error: rc=%d rt=%s", rc.Int(), gjson.GetBytes(body, "rt").String())
	}

	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return nil, fmt.Errorf("eastmoney: no data.klines for %s", secid)
	}

	table := &core.RawTable{Columns: klineColumns}
	for _, v := range klines.Array() {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 11 {
			continue
		}
		table.Rows = append(table.Rows, parts[:11])
	}

	if table.IsEmpty() {
		return nil, core.ErrEmptyResult
	}

	p.log.Debugf("获取 %s K线 %d 条", secid, len(table.Rows))
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
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	return body, nil
}

// cnSecID 按A股代码前缀推导东方财富 secid
func cnSecID(code string) (string, error) {
	switch {
	case strings.HasPrefix(code, "60"), strings.HasPrefix(code, "68"), strings.HasPrefix(code, "900"):
		return "1." + code, nil
	case strings.HasPrefix(code, "00"), strings.HasPrefix(code, "30"), strings.HasPrefix(code, "200"):
		return "0." + code, nil
	default:
		return "", fmt.Errorf("%w: unrecognized A-share code %s", core.ErrUnsupportedCode, code)
	}
}
