package eastmoney

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockline/pkg/core"
	"stockline/pkg/market"
	"stockline/pkg/provider"
)

const klineBody = `{"rc":0,"data":{"code":"000001","name":"平安银行","klines":[
"2024-01-02,9.39,9.33,9.42,9.25,1234567,1152000000.00,1.81,-0.64,-0.06,0.64",
"2024-01-03,9.33,9.26,9.35,9.22,2345678,1020000000.00,1.39,-0.75,-0.07,1.21"
]}}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewProvider(5*time.Second, "stockline-test")
	p.httpClient = server.Client()
	p.SetBaseURLs(server.URL+"/kline", server.URL+"/clist")
	return p, server
}

func TestFetchKlineCN_Success(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "0.000001", q.Get("secid")) // 00 开头 → 深圳
		assert.Equal(t, "101", q.Get("klt"))
		assert.Equal(t, "1", q.Get("fqt"))
		assert.Equal(t, "20240101", q.Get("beg"))
		assert.Equal(t, "20240110", q.Get("end"))
		_, _ = w.Write([]byte(klineBody))
	})

	table, err := p.FetchKlineCN(context.Background(), provider.FetchRequest{
		Code:          "000001",
		FormattedCode: "000001",
		Market:        market.A,
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-10",
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "date", table.Columns[0])
	assert.Equal(t, "2024-01-02", table.Rows[0][0])
	assert.Equal(t, "9.39", table.Rows[0][1]) // open
	assert.Equal(t, "9.42", table.Rows[0][3]) // high
}

func TestFetchKlineCN_ShanghaiPrefix(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.600036", r.URL.Query().Get("secid"))
		_, _ = w.Write([]byte(klineBody))
	})

	_, err := p.FetchKlineCN(context.Background(), provider.FetchRequest{
		Code: "600036", StartDate: "2024-01-01", EndDate: "2024-01-10",
	})
	assert.NoError(t, err)
}

func TestFetchKlineCN_UnrecognizedCode(t *testing.T) {
	p := NewProvider(time.Second, "stockline-test")
	_, err := p.FetchKlineCN(context.Background(), provider.FetchRequest{Code: "123456"})
	assert.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedCode)
	assert.Contains(t, err.Error(), "unrecognized")
}

func TestFetchKlineHK_SecIDPadding(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "116.00700", r.URL.Query().Get("secid"))
		_, _ = w.Write([]byte(klineBody))
	})

	_, err := p.FetchKlineHK(context.Background(), provider.FetchRequest{
		Code: "700", StartDate: "2024-01-01", EndDate: "2024-01-10",
	})
	assert.NoError(t, err)
}

func TestFetchKline_APIError(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rc":100,"rt":"invalid secid"}`))
	})

	_, err := p.FetchKlineCN(context.Background(), provider.FetchRequest{
		Code: "600036", StartDate: "2024-01-01", EndDate: "2024-01-10",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rc=100")
}

func TestFetchKline_NoKlines(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rc":0,"data":null}`))
	})

	_, err := p.FetchKlineCN(context.Background(), provider.FetchRequest{
		Code: "600036", StartDate: "2024-01-01", EndDate: "2024-01-10",
	})
	assert.Error(t, err)
}

func TestFetchStockListCN_Paginated(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":{"total":120,"diff":[{"f12":"600036","f14":"招商银行"},{"f12":"000001","f14":"平安银行"}]}}`,
		"2": `{"data":{"total":120,"diff":[{"f12":"300750","f14":"宁德时代"},{"f12":"600036","f14":"招商银行"}]}}`,
	}
	var requested []string

	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		pn := r.URL.Query().Get("pn")
		requested = append(requested, pn)
		_, _ = w.Write([]byte(pages[pn]))
	})

	result, err := p.FetchStockListCN(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, requested)
	assert.Equal(t, "cn", result.Market)
	// 重复的600036被去重
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, "600036.SH", result.Stocks[0].FullCode)
	assert.Equal(t, "000001.SZ", result.Stocks[1].FullCode)
	assert.Equal(t, "eastmoney", result.Source)
}

func TestFetchStockListHK(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fsHK, r.URL.Query().Get("fs"))
		_, _ = w.Write([]byte(`{"data":{"total":1,"diff":[{"f12":"00700","f14":"腾讯控股"}]}}`))
	})

	result, err := p.FetchStockListHK(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "00700.HK", result.Stocks[0].FullCode)
	assert.Equal(t, "hk", result.Stocks[0].Market)
}

func TestFetchStockList_EmptyTotal(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"total":0,"diff":[]}}`))
	})

	_, err := p.FetchStockListCN(context.Background())
	assert.Error(t, err)
}
