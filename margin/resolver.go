package margin

import "margin-desk-go/catalog"

// ResolveLeverage 返回资产允许的有效杠杆：当前杠杆在 allowed_leverage 里就原样
// 保留，否则回退到首个（最低）档位。每次切换资产都要走一遍，包括首次选择。
// 纯函数且永不失败：目录保证 AllowedLeverage 非空。
func ResolveLeverage(asset catalog.Asset, leverage int) int {
	for _, l := range asset.AllowedLeverage {
		if l == leverage {
			return leverage
		}
	}
	return asset.AllowedLeverage[0]
}
