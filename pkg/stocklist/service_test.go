package stocklist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockline/pkg/cache"
	"stockline/pkg/core"
	"stockline/pkg/provider"
)

func listResult(source string, codes ...string) *core.StockListResult {
	r := &core.StockListResult{Market: "cn", Source: source}
	for _, c := range codes {
		r.Stocks = append(r.Stocks, core.StockListEntry{Code: c, Market: "cn"})
	}
	r.Count = len(r.Stocks)
	return r
}

func TestResolve_FirstProviderWins(t *testing.T) {
	reg := provider.NewRegistry()
	calls := map[string]int{}

	for _, name := range []string{"em", "ak"} {
		name := name
		require.NoError(t, reg.RegisterList(provider.ListSpec{
			Name:      name,
			Available: func() bool { return true },
			Fetch: func(ctx context.Context) (*core.StockListResult, error) {
				calls[name]++
				return listResult(name, "600036"), nil
			},
		}))
	}
	reg.SetListOrder("cn", []string{"em", "ak"})

	result, err := NewService(reg, nil, 0).Resolve(context.Background(), "cn")
	require.NoError(t, err)
	assert.Equal(t, "em", result.Source)
	assert.Equal(t, 0, calls["ak"])
}

func TestResolve_FallsThrough(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, reg.RegisterList(provider.ListSpec{
		Name:      "broken",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context) (*core.StockListResult, error) {
			return nil, fmt.Errorf("upstream down")
		},
	}))
	require.NoError(t, reg.RegisterList(provider.ListSpec{
		Name:      "working",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context) (*core.StockListResult, error) {
			return listResult("working", "600036"), nil
		},
	}))
	reg.SetListOrder("cn", []string{"broken", "working"})

	result, err := NewService(reg, nil, 0).Resolve(context.Background(), "cn")
	require.NoError(t, err)
	assert.Equal(t, "working", result.Source)
}

func TestResolve_UnknownMarket(t *testing.T) {
	_, err := NewService(provider.NewRegistry(), nil, 0).Resolve(context.Background(), "jp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown market")
}

func TestResolve_AllFail(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, reg.RegisterList(provider.ListSpec{
		Name:      "broken",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context) (*core.StockListResult, error) {
			return nil, fmt.Errorf("upstream down")
		},
	}))
	reg.SetListOrder("cn", []string{"broken"})

	_, err := NewService(reg, nil, 0).Resolve(context.Background(), "cn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestResolve_CacheHit(t *testing.T) {
	reg := provider.NewRegistry()
	calls := 0
	require.NoError(t, reg.RegisterList(provider.ListSpec{
		Name:      "em",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context) (*core.StockListResult, error) {
			calls++
			return listResult("em", "600036", "000001"), nil
		},
	}))
	reg.SetListOrder("cn", []string{"em"})

	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	svc := NewService(reg, c, time.Minute)

	first, err := svc.Resolve(context.Background(), "cn")
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), "cn")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "第二次请求应命中缓存")
	assert.Equal(t, first.Count, second.Count)
	assert.Equal(t, "em", second.Source)
}

func TestWarm_RefreshesCache(t *testing.T) {
	reg := provider.NewRegistry()
	calls := 0
	require.NoError(t, reg.RegisterList(provider.ListSpec{
		Name:      "em",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context) (*core.StockListResult, error) {
			calls++
			return listResult("em", "600036"), nil
		},
	}))
	reg.SetListOrder("cn", []string{"em"})

	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	svc := NewService(reg, c, time.Minute)

	_, err := svc.Resolve(context.Background(), "cn")
	require.NoError(t, err)

	svc.Warm(context.Background(), "cn")
	assert.Equal(t, 2, calls, "预热应清缓存后回源")
}
