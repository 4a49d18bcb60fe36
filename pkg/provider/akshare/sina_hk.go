package akshare

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"stockline/pkg/core"
)

// 新浪港股实时行情字段下标（rt_hk 格式）：
// 0英文名 1中文名 2今开 3昨收 4最高 5最低 6最新价 ... 12成交量
const (
	sinaHKFieldOpen   = 2
	sinaHKFieldHigh   = 4
	sinaHKFieldLow    = 5
	sinaHKFieldClose  = 6
	sinaHKFieldVolume = 12
	sinaHKMinFields   = 13
)

// fetchHKRealtime 从新浪行情取港股实时快照，合成当日一条K线。
// 响应为GBK编码的JS变量赋值文本。
func (p *Provider) fetchHKRealtime(ctx context.Context, code string) (*core.RawTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.sinaHKURL+"rt_hk"+code, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Referer", "https://finance.sina.com.cn/")

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

	return parseSinaHKQuote(gbkToUtf8(string(body)))
}

// parseSinaHKQuote 解析形如 var hq_str_rt_hk00700="TENCENT,腾讯控股,..." 的响应
func parseSinaHKQuote(data string) (*core.RawTable, error) {
	parts := strings.SplitN(data, "=", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("sina hk: malformed quote: %s", truncate(data, 80))
	}

	payload := strings.Trim(strings.TrimSpace(parts[1]), `";`)
	fields := strings.Split(payload, ",")
	if len(fields) < sinaHKMinFields {
		return nil, core.ErrEmptyResult
	}

	today := time.Now().Format("2006-01-02")
	return &core.RawTable{
		Columns: []string{"date", "open", "high", "low", "close", "volume"},
		Rows: [][]string{{
			today,
			fields[sinaHKFieldOpen],
			fields[sinaHKFieldHigh],
			fields[sinaHKFieldLow],
			fields[sinaHKFieldClose],
			fields[sinaHKFieldVolume],
		}},
	}, nil
}

// gbkToUtf8 将GBK编码转换为UTF-8
func gbkToUtf8(gbkStr string) string {
	if gbkStr == "" {
		return ""
	}
	reader := transform.NewReader(strings.NewReader(gbkStr), simplifiedchinese.GBK.NewDecoder())
	data, err := io.ReadAll(reader)
	if err != nil {
		return gbkStr
	}
	return string(data)
}
