// Package constraints 实现报价与查询条件之间的匹配
package constraints

import (
	"strings"

	"github.com/lucksec/gpuhunt/internal/domain"
)

// Matches 判断报价是否满足查询条件
// 纯函数，不做任何 I/O；未设置的上下限不做限制。
// 报价自身缺失的数值字段（如 CPU 未知）不参与对应区间的比较，
// 计算能力例外：只要设置了计算能力上下限，缺少计算能力的报价一律不匹配。
func Matches(offer domain.Offer, f *domain.QueryFilter) bool {
	if f == nil {
		return true
	}

	if len(f.Providers) > 0 && !containsFold(f.Providers, offer.Provider) {
		return false
	}
	if !between(offer.Price, f.MinPrice, f.MaxPrice) {
		return false
	}
	if f.Spot != nil && offer.Spot != *f.Spot {
		return false
	}
	if offer.CPU != nil && !between(*offer.CPU, f.MinCPU, f.MaxCPU) {
		return false
	}
	if offer.Memory != nil && !between(*offer.Memory, f.MinMemory, f.MaxMemory) {
		return false
	}
	if offer.DiskSize != nil && !between(*offer.DiskSize, f.MinDiskSize, f.MaxDiskSize) {
		return false
	}

	if !between(offer.GPUCount, f.MinGPUCount, f.MaxGPUCount) {
		return false
	}
	if f.GPUVendor != domain.VendorUnspecified && offer.GPUVendor != f.GPUVendor {
		return false
	}
	if len(f.GPUNames) > 0 && !containsFold(f.GPUNames, offer.GPUName) {
		return false
	}
	if offer.GPUMemory != nil && !between(*offer.GPUMemory, f.MinGPUMemory, f.MaxGPUMemory) {
		return false
	}
	if total, ok := offer.TotalGPUMemory(); ok && !between(total, f.MinTotalGPUMemory, f.MaxTotalGPUMemory) {
		return false
	}

	if f.MinComputeCapability != nil || f.MaxComputeCapability != nil {
		if offer.ComputeCapability == nil {
			return false
		}
		if f.MinComputeCapability != nil && offer.ComputeCapability.Compare(*f.MinComputeCapability) < 0 {
			return false
		}
		if f.MaxComputeCapability != nil && offer.ComputeCapability.Compare(*f.MaxComputeCapability) > 0 {
			return false
		}
	}

	return true
}

// between 闭区间判断，nil 表示该侧不限制
func between[T int | float64](v T, lo, hi *T) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), s) {
			return true
		}
	}
	return false
}
