package market

import "strings"

// Market 市场类型
type Market string

const (
	// A 中国A股市场
	A Market = "A"
	// HK 香港市场
	HK Market = "HK"
	// US 美国市场
	US Market = "US"
)

// Classify 根据股票代码判断市场类型并生成规范代码。
//
// 规则（按顺序检查）：
//   - 去掉 "." 分隔的交易所后缀后为6位纯数字 → A股，规范代码为裸代码
//   - 5位纯数字 → 港股，规范代码为 裸代码+".HK"
//   - 其他 → 美股，代码原样保留
//
// 空串或无法识别的长度一律归为美股，这是对原始行为的保留，不做校验。
func Classify(code string) (Market, string) {
	bare := code
	if idx := strings.Index(code, "."); idx >= 0 {
		bare = code[:idx]
	}

	if isDigits(bare) {
		switch len(bare) {
		case 6:
			return A, bare
		case 5:
			return HK, bare + ".HK"
		}
	}

	return US, code
}

// isDigits 判断字符串是否为非空纯数字
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ListKey 返回市场在股票列表接口中的小写标识 (cn/hk/us)
func (m Market) ListKey() string {
	switch m {
	case A:
		return "cn"
	case HK:
		return "hk"
	default:
		return "us"
	}
}

// FromListKey 将列表接口的市场代码转换为市场类型，无法识别时 ok 为 false。
func FromListKey(key string) (Market, bool) {
	switch strings.ToLower(key) {
	case "cn":
		return A, true
	case "hk":
		return HK, true
	case "us":
		return US, true
	default:
		return "", false
	}
}
