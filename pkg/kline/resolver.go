package kline

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"stockline/pkg/core"
	"stockline/pkg/logger"
	"stockline/pkg/market"
	"stockline/pkg/normalize"
	"stockline/pkg/provider"
)

// Policy 解析策略。LookbackDays控制缺省起始日期向前回溯的天数；
// RejectEmptyWindow为真时，裁剪后为空视为该数据源失败并继续回退。
type Policy struct {
	LookbackDays      int  `mapstructure:"lookback_days"`
	RejectEmptyWindow bool `mapstructure:"reject_empty_window"`
}

// DefaultPolicy 缺省解析策略
func DefaultPolicy() Policy {
	return Policy{
		LookbackDays:      30,
		RejectEmptyWindow: true,
	}
}

// Resolver 按市场对应的数据源链路逐个尝试取K线，
// 取到第一份非空数据即停止。
type Resolver struct {
	reg    *provider.Registry
	policy Policy
	log    *logrus.Entry
	now    func() time.Time
}

// NewResolver 创建K线解析器
func NewResolver(reg *provider.Registry, policy Policy) *Resolver {
	return &Resolver{
		reg:    reg,
		policy: policy,
		log:    logger.WithComponent("KlineResolver"),
		now:    time.Now,
	}
}

// Resolve 解析一只股票的K线。startDate/endDate可为空，
// 为空时end取今天、start取end向前回溯policy.LookbackDays天。
// order为空时使用注册表中该市场的默认顺序。
//
// 链路中的单源失败只记日志并继续；全部失败时返回空数据，
// DataSource置"none"，Error带最后一个失败原因。
func (r *Resolver) Resolve(ctx context.Context, code, startDate, endDate string, order []string) core.KlineResult {
	mkt, formatted := market.Classify(code)
	startDate, endDate = r.defaultWindow(startDate, endDate)

	result := core.KlineResult{
		Code:          code,
		FormattedCode: formatted,
		Market:        mkt,
		DataSource:    "none",
		Data:          []core.Bar{},
	}

	if len(order) == 0 {
		order = r.reg.KlineOrder(mkt)
	}

	req := provider.FetchRequest{
		Code:          code,
		FormattedCode: formatted,
		Market:        mkt,
		StartDate:     startDate,
		EndDate:       endDate,
	}

	var lastErr error
	for _, name := range order {
		spec, ok := r.reg.Kline(name)
		if !ok {
			r.log.Warnf("数据源 %s 未注册，跳过", name)
			continue
		}
		if spec.Available != nil && !spec.Available() {
			r.log.Debugf("数据源 %s 当前不可用，跳过", name)
			continue
		}

		bars, err := r.fetchOne(ctx, spec, req)
		if err != nil {
			lastErr = err
			if errors.Is(err, core.ErrEmptyResult) {
				r.log.Debugf("数据源 %s 无 %s 数据", name, code)
			} else {
				r.log.Warnf("数据源 %s 获取 %s 失败: %v", name, code, err)
			}
			continue
		}

		r.log.Infof("数据源 %s 命中 %s，共%d条", name, code, len(bars))
		result.DataSource = name
		result.Data = bars
		return result
	}

	if lastErr != nil {
		result.Error = lastErr.Error()
	} else {
		result.Error = "no provider available for market " + string(mkt)
	}
	r.log.Warnf("所有数据源均未取到 %s 的K线: %s", code, result.Error)
	return result
}

// fetchOne 单数据源取数：取原始表、规整、裁剪窗口。
// 任一环节产出为空都算失败，交由上层回退。
func (r *Resolver) fetchOne(ctx context.Context, spec provider.KlineSpec, req provider.FetchRequest) ([]core.Bar, error) {
	table, err := spec.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if table == nil || table.IsEmpty() {
		return nil, core.ErrEmptyResult
	}

	bars := normalize.Normalize(table, spec.Name)
	if len(bars) == 0 {
		return nil, core.ErrEmptyResult
	}

	if r.policy.RejectEmptyWindow {
		bars = ClampWindow(bars, req.StartDate, req.EndDate)
		if len(bars) == 0 {
			return nil, core.ErrEmptyResult
		}
	} else {
		bars = ClampWindow(bars, req.StartDate, req.EndDate)
		if bars == nil {
			bars = []core.Bar{}
		}
	}
	return bars, nil
}

// defaultWindow 补全缺省日期窗口
func (r *Resolver) defaultWindow(startDate, endDate string) (string, string) {
	if endDate == "" {
		endDate = r.now().Format("2006-01-02")
	}
	if startDate == "" {
		end, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			end = r.now()
		}
		startDate = end.AddDate(0, 0, -r.policy.LookbackDays).Format("2006-01-02")
	}
	return startDate, endDate
}
