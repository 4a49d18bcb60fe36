package baostock

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

// klineFields 日线查询字段，与返回数据列一一对应
const klineFields = "date,open,high,low,close,volume"

// Provider baostock数据提供商，经HTTP网关访问。baostock要求每次调用
// 前登录、用后登出，会话句柄不可跨请求复用；这里把登录/登出收敛为
// 单次调用内的作用域获取，任何退出路径都保证登出。
type Provider struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	log        *logrus.Entry
}

// NewProvider 创建baostock数据提供商
func NewProvider(baseURL string, timeout time.Duration, userAgent string) *Provider {
	return &Provider{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		log:       logger.WithComponent("BaostockProvider"),
	}
}

// IsAvailable 网关地址已配置即认为可用
func (p *Provider) IsAvailable() bool {
	return p.baseURL != ""
}

// FetchKlineCN 获取A股日K线（不复权，baostock惯例adjustflag=3）
func (p *Provider) FetchKlineCN(ctx context.Context, req provider.FetchRequest) (*core.RawTable, error) {
	symbol, err := bsCode(req.Code)
	if err != nil {
		return nil, err
	}

	var table *core.RawTable
	err = p.withSession(ctx, func(token string) error {
		params := url.Values{}
		params.Set("token", token)
		params.Set("code", symbol)
		params.Set("fields", klineFields)
		params.Set("start_date", req.StartDate)
		params.Set("end_date", req.EndDate)
		params.Set("frequency", "d")
		params.Set("adjustflag", "3")

		body, err := p.get(ctx, "/query_history_k_data_plus?"+params.Encode())
		if err != nil {
			return err
		}
		if ec := gjson.GetBytes(body, "error_code").String(); ec != "0" {
			return fmt.Errorf("baostock query failed: %s %s", ec, gjson.GetBytes(body, "error_msg").String())
		}

		rows := gjson.GetBytes(body, "data")
		if !rows.IsArray() || len(rows.Array()) == 0 {
			return core.ErrEmptyResult
		}

		table = &core.RawTable{Columns: strings.Split(klineFields, ",")}
		for _, r := range rows.Array() {
			var row []string
			for _, cell := range r.Array() {
				row = append(row, cell.String())
			}
			if len(row) == len(table.Columns) {
				table.Rows = append(table.Rows, row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if table.IsEmpty() {
		return nil, core.ErrEmptyResult
	}
	return table, nil
}

// FetchStockListCN 获取A股全列表。当日无数据时向前回退最多7天，
// 覆盖周末与节假日。
func (p *Provider) FetchStockListCN(ctx context.Context) (*core.StockListResult, error) {
	var stocks []core.StockListEntry

	err := p.withSession(ctx, func(token string) error {
		for daysBack := 0; daysBack < 8; daysBack++ {
			day := time.Now().AddDate(0, 0, -daysBack).Format("2006-01-02")

			params := url.Values{}
			params.Set("token", token)
			params.Set("day", day)

			body, err := p.get(ctx, "/query_all_stock?"+params.Encode())
			if err != nil {
				return err
			}
			if ec := gjson.GetBytes(body, "error_code").String(); ec != "0" {
				return fmt.Errorf("baostock query_all_stock failed: %s", gjson.GetBytes(body, "error_msg").String())
			}

			rows := gjson.GetBytes(body, "data").Array()
			if len(rows) == 0 {
				p.log.Debugf("日期 %s 无股票列表数据，尝试前一交易日", day)
				continue
			}

			for _, r := range rows {
				cells := r.Array()
				if len(cells) < 3 {
					continue
				}
				bs := cells[0].String() // sh.600000 / sz.000001
				name := cells[2].String()

				var code, fullCode string
				switch {
				case strings.HasPrefix(bs, "sh."):
					code = bs[3:]
					fullCode = code + ".SH"
				case strings.HasPrefix(bs, "sz."):
					code = bs[3:]
					fullCode = code + ".SZ"
				default:
					continue
				}
				stocks = append(stocks, core.StockListEntry{
					Code:     code,
					Name:     name,
					Market:   "cn",
					FullCode: fullCode,
				})
			}
			return nil
		}
		return core.ErrEmptyResult
	})
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 {
		return nil, core.ErrEmptyResult
	}

	return &core.StockListResult{
		Market:    "cn",
		Count:     len(stocks),
		Stocks:    stocks,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Source:    "baostock",
	}, nil
}

// withSession 登录取会话令牌，执行fn后登出。登出在defer中执行，
// fn出错或中途返回都不会泄漏会话。
func (p *Provider) withSession(ctx context.Context, fn func(token string) error) error {
	body, err := p.post(ctx, "/login")
	if err != nil {
		return fmt.Errorf("baostock login failed: %w", err)
	}
	if ec := gjson.GetBytes(body, "error_code").String(); ec != "0" {
		return fmt.Errorf("baostock login rejected: %s %s", ec, gjson.GetBytes(body, "error_msg").String())
	}
	token := gjson.GetBytes(body, "token").String()

	defer func() {
		// 登出失败只记录，不影响调用结果
		if _, err := p.post(ctx, "/logout?token="+url.QueryEscape(token)); err != nil {
			p.log.Warnf("baostock登出失败: %v", err)
		}
	}()

	return fn(token)
}

func (p *Provider) get(ctx context.Context, path string) ([]byte, error) {
	return p.do(ctx, http.MethodGet, path)
}

func (p *Provider) post(ctx context.Context, path string) ([]byte, error) {
	return p.do(ctx, http.MethodPost, path)
}

func (p *Provider) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
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

// bsCode 转baostock代码：6开头 → sh.，0/3开头 → sz.
func bsCode(code string) (string, error) {
	if idx := strings.Index(code, "."); idx >= 0 {
		code = code[:idx]
	}
	switch {
	case strings.HasPrefix(code, "6"):
		return "sh." + code, nil
	case strings.HasPrefix(code, "0"), strings.HasPrefix(code, "3"):
		return "sz." + code, nil
	default:
		return "", fmt.Errorf("%w: baostock cannot determine exchange for %s", core.ErrUnsupportedCode, code)
	}
}
