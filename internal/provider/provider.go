// Package provider 定义数据源接口以及在线抓取的数据源实现
package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lucksec/gpuhunt/internal/domain"
)

// Provider 数据源接口
// Fetch 返回的报价必须已按价格升序排列，catalog 依赖这一约定做归并
type Provider interface {
	// Name 数据源名称（不区分大小写，全局唯一）
	Name() string

	// Fetch 获取报价；balance 为 true 时数据源可以按资源均衡策略收紧 CPU / 内存下限
	Fetch(ctx context.Context, f *domain.QueryFilter, balance bool) ([]domain.RawOffer, error)
}

// Filterer 可选的后处理接口，由调用方显式调用，catalog 不会调用
type Filterer interface {
	Filter(offers []domain.RawOffer) []domain.RawOffer
}

// SortByPrice 按价格稳定升序排序
func SortByPrice(offers []domain.RawOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].Price < offers[j].Price
	})
}

// Online 内置的在线数据源名称
var Online = []string{"coreweave", "crusoe", "hyperstack"}

// New 按名称创建内置的在线数据源
func New(name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "coreweave":
		return NewCoreWeave(opts), nil
	case "crusoe":
		return NewCrusoe(opts), nil
	case "hyperstack":
		return NewHyperstack(opts), nil
	default:
		return nil, fmt.Errorf("%w: 不支持的在线数据源: %s", domain.ErrValidation, name)
	}
}

// DedupeFilter 合并实例名称、区域、竞价属性都相同的报价，只保留价格最低的一条
// 输入需已按价格排序，输出保持原有顺序
func DedupeFilter(offers []domain.RawOffer) []domain.RawOffer {
	type key struct {
		name     string
		location string
		spot     bool
	}
	seen := make(map[key]struct{}, len(offers))
	result := make([]domain.RawOffer, 0, len(offers))
	for _, o := range offers {
		k := key{strings.ToLower(o.InstanceName), strings.ToLower(o.Location), o.Spot}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, o)
	}
	return result
}
