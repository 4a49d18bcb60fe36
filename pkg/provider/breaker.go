package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"stockline/pkg/core"
	"stockline/pkg/logger"
)

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"` // 半开状态下的最大请求数
	Interval    time.Duration `mapstructure:"interval"`     // 统计窗口时间
	Timeout     time.Duration `mapstructure:"timeout"`      // 熔断打开后的恢复时间
	ReadyToTrip uint32        `mapstructure:"ready_to_trip"` // 触发熔断的连续失败次数
}

// DefaultBreakerConfig 默认熔断器配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:     true,
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: 5,
	}
}

// WithBreaker 为K线数据源包一层熔断器。熔断打开期间 Available 返回
// false，解析器按不可用跳过，直接切到后备数据源而不是等超时。
func WithBreaker(spec KlineSpec, cfg BreakerConfig) KlineSpec {
	if !cfg.Enabled {
		return spec
	}

	log := logger.WithComponent("Breaker")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        spec.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ReadyToTrip
		},
		// 单只代码无数据或代码不被该源支持是请求级结果，
		// 不说明数据源故障，不计入熔断
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, core.ErrEmptyResult) ||
				errors.Is(err, core.ErrUnsupportedCode)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("数据源 %s 熔断器状态: %v -> %v", name, from, to)
		},
	})

	inner := spec
	return KlineSpec{
		Name: inner.Name,
		Available: func() bool {
			if cb.State() == gobreaker.StateOpen {
				return false
			}
			return inner.Available == nil || inner.Available()
		},
		Fetch: func(ctx context.Context, req FetchRequest) (*core.RawTable, error) {
			result, err := cb.Execute(func() (interface{}, error) {
				return inner.Fetch(ctx, req)
			})
			if err != nil {
				return nil, err
			}
			return result.(*core.RawTable), nil
		},
	}
}
