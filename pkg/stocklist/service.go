package stocklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"stockline/pkg/cache"
	"stockline/pkg/core"
	"stockline/pkg/logger"
	"stockline/pkg/market"
	"stockline/pkg/provider"
)

// ErrUnknownMarket 市场标识不在cn/hk/us之中
var ErrUnknownMarket = errors.New("unknown market")

// Service 股票列表解析服务。与K线解析同构：按市场的数据源链路
// 逐个尝试，首个成功即返回。列表体量大且一天内基本不变，
// 结果缓存一段时间。
type Service struct {
	reg      *provider.Registry
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logrus.Entry
}

// NewService 创建股票列表服务。cache可为nil，为nil时每次直连数据源。
func NewService(reg *provider.Registry, c cache.Cache, cacheTTL time.Duration) *Service {
	return &Service{
		reg:      reg,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      logger.WithComponent("StockListService"),
	}
}

// Resolve 获取某市场的股票列表。marketKey为cn/hk/us。
func (s *Service) Resolve(ctx context.Context, marketKey string) (*core.StockListResult, error) {
	if _, ok := market.FromListKey(marketKey); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, marketKey)
	}

	cacheKey := "stocklist:" + marketKey
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var result core.StockListResult
			if err := json.Unmarshal(data, &result); err == nil {
				s.log.Debugf("市场 %s 股票列表命中缓存，共%d只", marketKey, result.Count)
				return &result, nil
			}
			s.log.Warnf("缓存内容解析失败，回源: %v", err)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warnf("读取缓存失败，回源: %v", err)
		}
	}

	result, err := s.fetch(ctx, marketKey)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
				s.log.Warnf("写入缓存失败: %v", err)
			}
		}
	}
	return result, nil
}

// Warm 预热某市场的列表缓存，供定时任务调用
func (s *Service) Warm(ctx context.Context, marketKey string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "stocklist:"+marketKey); err != nil {
		s.log.Warnf("预热前清除缓存失败: %v", err)
	}
	if _, err := s.Resolve(ctx, marketKey); err != nil {
		s.log.Warnf("预热市场 %s 股票列表失败: %v", marketKey, err)
	}
}

func (s *Service) fetch(ctx context.Context, marketKey string) (*core.StockListResult, error) {
	order := s.reg.ListOrder(marketKey)
	var lastErr error

	for _, name := range order {
		spec, ok := s.reg.List(name)
		if !ok {
			s.log.Warnf("列表数据源 %s 未注册，跳过", name)
			continue
		}
		if spec.Available != nil && !spec.Available() {
			s.log.Debugf("列表数据源 %s 当前不可用，跳过", name)
			continue
		}

		result, err := spec.Fetch(ctx)
		if err != nil {
			lastErr = err
			s.log.Warnf("列表数据源 %s 获取 %s 失败: %v", name, marketKey, err)
			continue
		}
		if result == nil || len(result.Stocks) == 0 {
			lastErr = core.ErrEmptyResult
			continue
		}

		s.log.Infof("列表数据源 %s 命中市场 %s，共%d只", name, marketKey, result.Count)
		return result, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all stock list providers failed for %s: %w", marketKey, lastErr)
	}
	return nil, fmt.Errorf("no stock list provider available for %s", marketKey)
}
