package provider

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockline/pkg/core"
)

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	spec := WithBreaker(KlineSpec{
		Name:      "flaky",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context, req FetchRequest) (*core.RawTable, error) {
			calls++
			return nil, fmt.Errorf("upstream down")
		},
	}, BreakerConfig{
		Enabled:     true,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: 3,
	})

	assert.True(t, spec.Available())
	for i := 0; i < 3; i++ {
		_, err := spec.Fetch(context.Background(), FetchRequest{})
		require.Error(t, err)
	}

	assert.False(t, spec.Available(), "连续失败达到阈值后应熔断")
	assert.Equal(t, 3, calls)

	// 熔断打开期间直接拒绝，不再触碰上游
	_, err := spec.Fetch(context.Background(), FetchRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBreaker_RequestLevelErrorsDoNotTrip(t *testing.T) {
	calls := 0
	spec := WithBreaker(KlineSpec{
		Name:      "sparse",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context, req FetchRequest) (*core.RawTable, error) {
			calls++
			if calls%2 == 0 {
				return nil, fmt.Errorf("%w: odd code", core.ErrUnsupportedCode)
			}
			return nil, core.ErrEmptyResult
		},
	}, BreakerConfig{
		Enabled:     true,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: 3,
	})

	// 冷门代码查不到数据是请求级结果，查再多次也不应拖垮整个数据源
	for i := 0; i < 10; i++ {
		_, err := spec.Fetch(context.Background(), FetchRequest{})
		require.Error(t, err)
	}

	assert.True(t, spec.Available(), "无数据/不支持的代码不应触发熔断")
	assert.Equal(t, 10, calls)
}

func TestWithBreaker_PassesThroughSuccess(t *testing.T) {
	want := &core.RawTable{Columns: []string{"date"}}
	spec := WithBreaker(KlineSpec{
		Name:      "healthy",
		Available: func() bool { return true },
		Fetch: func(ctx context.Context, req FetchRequest) (*core.RawTable, error) {
			return want, nil
		},
	}, DefaultBreakerConfig())

	got, err := spec.Fetch(context.Background(), FetchRequest{})
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.True(t, spec.Available())
}

func TestWithBreaker_Disabled(t *testing.T) {
	inner := KlineSpec{Name: "raw", Fetch: noopKline}
	spec := WithBreaker(inner, BreakerConfig{Enabled: false})
	assert.Equal(t, inner.Name, spec.Name)

	// 未启用时原样返回，不包熔断层
	_, err := spec.Fetch(context.Background(), FetchRequest{})
	require.NoError(t, err)
}

func TestWithBreaker_RespectsInnerAvailability(t *testing.T) {
	available := false
	spec := WithBreaker(KlineSpec{
		Name:      "keyed",
		Available: func() bool { return available },
		Fetch:     noopKline,
	}, DefaultBreakerConfig())

	assert.False(t, spec.Available())
	available = true
	assert.True(t, spec.Available())
}
