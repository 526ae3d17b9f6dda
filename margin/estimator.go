package margin

import (
	"github.com/shopspring/decimal"

	"margin-desk-go/catalog"
)

// Estimate 计算初始保证金估算：
//
//	margin = mark_price × size × contract_value / leverage
//
// 结果保留两位小数，远离零舍入（对本系统只会出现的非负输入等价于四舍五入）。
// leverage <= 0、asset 为 nil 或 size <= 0 时返回 0，表示「信息不足」而不是故障。
// 纯函数：相同输入永远得到相同输出。
func Estimate(asset *catalog.Asset, size float64, leverage int) float64 {
	if asset == nil || leverage <= 0 || size <= 0 {
		return 0
	}
	notional := decimal.NewFromFloat(asset.MarkPrice).
		Mul(decimal.NewFromFloat(size)).
		Mul(decimal.NewFromFloat(asset.ContractValue))
	m, _ := notional.Div(decimal.NewFromInt(int64(leverage))).Round(2).Float64()
	return m
}
