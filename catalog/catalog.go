package catalog

import (
	"context"
	"errors"
	"fmt"

	"margin-desk-go/gateway"
)

// Asset 一个可交易资产的不可变参数集。加载后不再修改，目录重载时整体换掉。
type Asset struct {
	Symbol          string
	MarkPrice       float64
	ContractValue   float64
	AllowedLeverage []int // 非空、保持服务端给定顺序，首元素是默认杠杆
}

// Source 抽象资产配置拉取；生产实现为 gateway.Client。
type Source interface {
	FetchAssets(ctx context.Context) ([]gateway.Asset, error)
}

var (
	// ErrNoAssets 配置服务可达但没有给出可用的资产列表。
	ErrNoAssets = errors.New("config service returned no usable assets")
	// ErrUnreachable 配置服务不可达或响应无法解析。
	ErrUnreachable = errors.New("config service unreachable")
)

// Catalog 保存一次加载的资产列表，保持服务端顺序。
type Catalog struct {
	assets []Asset
	index  map[string]int
}

// Load fetches the asset list exactly once per session start.
// 空列表、字段非法、传输失败都是终态错误：没有降级模式，调用方只能整体重启。
func Load(ctx context.Context, src Source) (*Catalog, error) {
	raw, err := src.FetchAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if len(raw) == 0 {
		return nil, ErrNoAssets
	}
	c := &Catalog{
		assets: make([]Asset, 0, len(raw)),
		index:  make(map[string]int, len(raw)),
	}
	for _, a := range raw {
		if err := validateAsset(a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoAssets, err)
		}
		if _, dup := c.index[a.Symbol]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %s", ErrNoAssets, a.Symbol)
		}
		lev := make([]int, len(a.AllowedLeverage))
		copy(lev, a.AllowedLeverage)
		c.index[a.Symbol] = len(c.assets)
		c.assets = append(c.assets, Asset{
			Symbol:          a.Symbol,
			MarkPrice:       a.MarkPrice,
			ContractValue:   a.ContractValue,
			AllowedLeverage: lev,
		})
	}
	return c, nil
}

func validateAsset(a gateway.Asset) error {
	if a.Symbol == "" {
		return errors.New("asset without symbol")
	}
	if a.MarkPrice <= 0 {
		return fmt.Errorf("asset %s mark_price must be > 0", a.Symbol)
	}
	if a.ContractValue <= 0 {
		return fmt.Errorf("asset %s contract_value must be > 0", a.Symbol)
	}
	if len(a.AllowedLeverage) == 0 {
		return fmt.Errorf("asset %s allowed_leverage must not be empty", a.Symbol)
	}
	for _, l := range a.AllowedLeverage {
		if l <= 0 {
			return fmt.Errorf("asset %s leverage %d must be > 0", a.Symbol, l)
		}
	}
	return nil
}

// First 返回列表首个资产，作为会话的初始默认选择。
func (c *Catalog) First() Asset {
	return cloneAsset(c.assets[0])
}

// Get 按 symbol 查找资产。
func (c *Catalog) Get(symbol string) (Asset, bool) {
	i, ok := c.index[symbol]
	if !ok {
		return Asset{}, false
	}
	return cloneAsset(c.assets[i]), true
}

// Assets 返回资产列表的深拷贝，保持加载顺序；调用方改不动目录本身。
func (c *Catalog) Assets() []Asset {
	out := make([]Asset, len(c.assets))
	for i, a := range c.assets {
		out[i] = cloneAsset(a)
	}
	return out
}

func cloneAsset(a Asset) Asset {
	lev := make([]int, len(a.AllowedLeverage))
	copy(lev, a.AllowedLeverage)
	a.AllowedLeverage = lev
	return a
}

// Len 返回资产数量。
func (c *Catalog) Len() int {
	return len(c.assets)
}
