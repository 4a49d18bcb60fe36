package core

import "errors"

var (
	// ErrUnavailable 数据源缺少依赖或密钥，调用前即被跳过
	ErrUnavailable = errors.New("provider unavailable")

	// ErrEmptyResult 数据源可达但未返回任何数据（或过滤后为空）
	ErrEmptyResult = errors.New("provider returned no data")

	// ErrUnsupportedCode 代码不在该数据源的覆盖范围内。
	// 属于单次请求的结果，不代表数据源故障。
	ErrUnsupportedCode = errors.New("code not supported by provider")
)
