package constraints

import (
	"math"

	"github.com/lucksec/gpuhunt/internal/domain"
)

// Balancer 资源均衡策略
// 由在线数据源在发起查询前调用，根据所选 GPU 提高 CPU / 内存下限，
// 使返回的报价更接近该 GPU 的常见配置。实现只能收紧条件：
// 返回值的 MinCPU / MinMemory 不得低于输入值，其余字段保持不变。
type Balancer interface {
	Balance(f domain.QueryFilter) domain.QueryFilter
}

// BalancerFunc 将普通函数适配为 Balancer
// 返回值会经过 Tighten 校正，保证不会放宽调用方的条件
type BalancerFunc func(f domain.QueryFilter) domain.QueryFilter

// Balance 实现 Balancer
func (fn BalancerFunc) Balance(f domain.QueryFilter) domain.QueryFilter {
	return Tighten(f, fn(f.Clone()))
}

// DefaultMemoryPerCore 每个 CPU 核心对应的内存（GiB）
const DefaultMemoryPerCore = 8

// GPUMemoryBalancer 按显存推算内存和 CPU 下限的默认策略
// 只填充调用方未设置的下限，且不超过调用方设置的上限：
//
//	总显存 = MinTotalGPUMemory，或 max(MinGPUMemory, 所选型号中的最小显存) × max(1, MinGPUCount)
//	内存下限 = 2 × 总显存
//	CPU 下限 = ceil(内存下限 / MemoryPerCore)
type GPUMemoryBalancer struct {
	MemoryPerCore float64 // 为 0 时使用 DefaultMemoryPerCore
}

// Balance 实现 Balancer
func (b GPUMemoryBalancer) Balance(f domain.QueryFilter) domain.QueryFilter {
	out := f.Clone()

	perCore := b.MemoryPerCore
	if perCore <= 0 {
		perCore = DefaultMemoryPerCore
	}

	if out.MinMemory == nil {
		if total, ok := minTotalGPUMemory(f); ok {
			out.MinMemory = domain.Float(capFloat(2*total, f.MaxMemory))
		}
	}
	if out.MinCPU == nil && out.MinMemory != nil {
		out.MinCPU = domain.Int(capInt(int(math.Ceil(*out.MinMemory/perCore)), f.MaxCPU))
	}
	return Tighten(f, out)
}

// minTotalGPUMemory 从查询条件推算最小总显存，无 GPU 相关条件时返回 false
func minTotalGPUMemory(f domain.QueryFilter) (float64, bool) {
	if f.MinTotalGPUMemory != nil {
		return *f.MinTotalGPUMemory, true
	}

	perGPU := 0.0
	for _, name := range f.GPUNames {
		gpu, ok := domain.LookupGPU(name)
		if !ok {
			continue
		}
		// 多个型号时取最小显存，避免排除掉显存较小的型号
		if perGPU == 0 || gpu.Memory < perGPU {
			perGPU = gpu.Memory
		}
	}
	if f.MinGPUMemory != nil && *f.MinGPUMemory > perGPU {
		perGPU = *f.MinGPUMemory
	}
	if perGPU <= 0 {
		return 0, false
	}

	count := 1
	if f.MinGPUCount != nil && *f.MinGPUCount > count {
		count = *f.MinGPUCount
	}
	return perGPU * float64(count), true
}

// Tighten 以 orig 为基准校正 balanced：
// MinCPU / MinMemory 取两者较大值，其余字段一律恢复为 orig 的值
func Tighten(orig, balanced domain.QueryFilter) domain.QueryFilter {
	out := orig.Clone()
	if balanced.MinCPU != nil && (out.MinCPU == nil || *balanced.MinCPU > *out.MinCPU) {
		out.MinCPU = domain.Int(*balanced.MinCPU)
	}
	if balanced.MinMemory != nil && (out.MinMemory == nil || *balanced.MinMemory > *out.MinMemory) {
		out.MinMemory = domain.Float(*balanced.MinMemory)
	}
	return out
}

func capFloat(v float64, limit *float64) float64 {
	if limit != nil && v > *limit {
		return *limit
	}
	return v
}

func capInt(v int, limit *int) int {
	if limit != nil && v > *limit {
		return *limit
	}
	return v
}
