package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// QueryFilter 查询条件
// 所有上下限均为闭区间，nil 表示不限制；名称列表按不区分大小写的集合匹配
type QueryFilter struct {
	Providers []string `json:"providers,omitempty"`

	MinCPU *int `json:"min_cpu,omitempty"`
	MaxCPU *int `json:"max_cpu,omitempty"`

	MinMemory *float64 `json:"min_memory,omitempty"`
	MaxMemory *float64 `json:"max_memory,omitempty"`

	MinGPUCount *int `json:"min_gpu_count,omitempty"`
	MaxGPUCount *int `json:"max_gpu_count,omitempty"`

	GPUVendor AcceleratorVendor `json:"gpu_vendor,omitempty"`
	GPUNames  []string          `json:"gpu_names,omitempty"`

	MinGPUMemory *float64 `json:"min_gpu_memory,omitempty"`
	MaxGPUMemory *float64 `json:"max_gpu_memory,omitempty"`

	MinTotalGPUMemory *float64 `json:"min_total_gpu_memory,omitempty"`
	MaxTotalGPUMemory *float64 `json:"max_total_gpu_memory,omitempty"`

	MinDiskSize *float64 `json:"min_disk_size,omitempty"`
	MaxDiskSize *float64 `json:"max_disk_size,omitempty"`

	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`

	MinComputeCapability *ComputeCapability `json:"min_compute_capability,omitempty"`
	MaxComputeCapability *ComputeCapability `json:"max_compute_capability,omitempty"`

	Spot *bool `json:"spot,omitempty"`
}

// Validate 校验查询条件，任何错误都包装 ErrValidation
func (f *QueryFilter) Validate() error {
	if err := checkRange("cpu", f.MinCPU, f.MaxCPU); err != nil {
		return err
	}
	if err := checkRange("memory", f.MinMemory, f.MaxMemory); err != nil {
		return err
	}
	if err := checkRange("gpu_count", f.MinGPUCount, f.MaxGPUCount); err != nil {
		return err
	}
	if err := checkRange("gpu_memory", f.MinGPUMemory, f.MaxGPUMemory); err != nil {
		return err
	}
	if err := checkRange("total_gpu_memory", f.MinTotalGPUMemory, f.MaxTotalGPUMemory); err != nil {
		return err
	}
	if err := checkRange("disk_size", f.MinDiskSize, f.MaxDiskSize); err != nil {
		return err
	}
	if err := checkRange("price", f.MinPrice, f.MaxPrice); err != nil {
		return err
	}
	if f.MinComputeCapability != nil && f.MaxComputeCapability != nil &&
		f.MinComputeCapability.Compare(*f.MaxComputeCapability) > 0 {
		return fmt.Errorf("%w: compute_capability 下限 %s 大于上限 %s",
			ErrValidation, f.MinComputeCapability, f.MaxComputeCapability)
	}
	if !f.GPUVendor.IsValid() {
		return fmt.Errorf("%w: 未知的加速卡厂商 %s", ErrValidation, f.GPUVendor)
	}
	for _, name := range f.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: 云服务商名称为空", ErrValidation)
		}
	}
	return nil
}

func checkRange[T int | float64](field string, lo, hi *T) error {
	for _, v := range []*T{lo, hi} {
		if v == nil {
			continue
		}
		if f := float64(*v); math.IsNaN(f) || f < 0 {
			return fmt.Errorf("%w: %s 取值无效: %v", ErrValidation, field, *v)
		}
	}
	if lo != nil && hi != nil && cmp.Compare(*lo, *hi) > 0 {
		return fmt.Errorf("%w: %s 下限 %v 大于上限 %v", ErrValidation, field, *lo, *hi)
	}
	return nil
}

// Clone 深拷贝查询条件，保证每次查询持有独立的副本
func (f QueryFilter) Clone() QueryFilter {
	c := f
	c.Providers = slices.Clone(f.Providers)
	c.GPUNames = slices.Clone(f.GPUNames)
	c.MinCPU, c.MaxCPU = clonePtr(f.MinCPU), clonePtr(f.MaxCPU)
	c.MinMemory, c.MaxMemory = clonePtr(f.MinMemory), clonePtr(f.MaxMemory)
	c.MinGPUCount, c.MaxGPUCount = clonePtr(f.MinGPUCount), clonePtr(f.MaxGPUCount)
	c.MinGPUMemory, c.MaxGPUMemory = clonePtr(f.MinGPUMemory), clonePtr(f.MaxGPUMemory)
	c.MinTotalGPUMemory, c.MaxTotalGPUMemory = clonePtr(f.MinTotalGPUMemory), clonePtr(f.MaxTotalGPUMemory)
	c.MinDiskSize, c.MaxDiskSize = clonePtr(f.MinDiskSize), clonePtr(f.MaxDiskSize)
	c.MinPrice, c.MaxPrice = clonePtr(f.MinPrice), clonePtr(f.MaxPrice)
	c.MinComputeCapability = clonePtr(f.MinComputeCapability)
	c.MaxComputeCapability = clonePtr(f.MaxComputeCapability)
	c.Spot = clonePtr(f.Spot)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
