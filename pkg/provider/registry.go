package provider

import (
	"fmt"

	"stockline/pkg/market"
)

// Registry K线与股票列表数据源的静态注册表。
// 进程启动时构建一次，之后只读；按名称查找替代了原实现中
// 依据字符串逐个分支的派发方式。
type Registry struct {
	klines     map[string]KlineSpec
	lists      map[string]ListSpec
	klineOrder map[market.Market][]string
	listOrder  map[string][]string // key: cn/hk/us
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		klines:     make(map[string]KlineSpec),
		lists:      make(map[string]ListSpec),
		klineOrder: make(map[market.Market][]string),
		listOrder:  make(map[string][]string),
	}
}

// RegisterKline 注册K线数据源，仅限启动阶段调用
func (r *Registry) RegisterKline(spec KlineSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("kline spec name cannot be empty")
	}
	if spec.Fetch == nil {
		return fmt.Errorf("kline spec %q has no fetch func", spec.Name)
	}
	r.klines[spec.Name] = spec
	return nil
}

// RegisterList 注册股票列表数据源，仅限启动阶段调用
func (r *Registry) RegisterList(spec ListSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("list spec name cannot be empty")
	}
	if spec.Fetch == nil {
		return fmt.Errorf("list spec %q has no fetch func", spec.Name)
	}
	r.lists[spec.Name] = spec
	return nil
}

// SetKlineOrder 设置某市场的默认数据源顺序。顺序即优先级，
// 解析器不做动态重排。
func (r *Registry) SetKlineOrder(m market.Market, names []string) {
	r.klineOrder[m] = names
}

// SetListOrder 设置某市场股票列表的默认数据源顺序
func (r *Registry) SetListOrder(marketKey string, names []string) {
	r.listOrder[marketKey] = names
}

// Kline 按名称查找K线数据源
func (r *Registry) Kline(name string) (KlineSpec, bool) {
	spec, ok := r.klines[name]
	return spec, ok
}

// List 按名称查找股票列表数据源
func (r *Registry) List(name string) (ListSpec, bool) {
	spec, ok := r.lists[name]
	return spec, ok
}

// KlineOrder 返回某市场的默认K线数据源顺序
func (r *Registry) KlineOrder(m market.Market) []string {
	return r.klineOrder[m]
}

// ListOrder 返回某市场的股票列表数据源顺序
func (r *Registry) ListOrder(marketKey string) []string {
	return r.listOrder[marketKey]
}
