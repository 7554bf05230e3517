package main

import (
	"fmt"

	"github.com/lucksec/gpuhunt/internal/catalog"
	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/spf13/pflag"
)

// filterFlags 查询条件对应的命令行参数
// 只有显式指定的参数才会写入查询条件，未指定的保持为不限制
type filterFlags struct {
	providers []string
	gpuNames  []string
	gpuVendor string

	minCPU, maxCPU           int
	minGPUCount, maxGPUCount int

	minMemory, maxMemory                 float64
	minGPUMemory, maxGPUMemory           float64
	minTotalGPUMemory, maxTotalGPUMemory float64
	minDiskSize, maxDiskSize             float64
	minPrice, maxPrice                   float64

	minCC, maxCC string
	spot         bool
}

func (ff *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&ff.providers, "provider", "p", nil, "数据源名称，可重复或逗号分隔（默认全部）")
	fs.StringSliceVarP(&ff.gpuNames, "gpu", "g", nil, "GPU 型号，可重复或逗号分隔，如 H100,A100")
	fs.StringVar(&ff.gpuVendor, "gpu-vendor", "", "GPU 厂商: nvidia, amd, google, intel")

	fs.IntVar(&ff.minCPU, "min-cpu", 0, "最少 vCPU 数")
	fs.IntVar(&ff.maxCPU, "max-cpu", 0, "最多 vCPU 数")
	fs.IntVar(&ff.minGPUCount, "min-gpu-count", 0, "最少 GPU 数")
	fs.IntVar(&ff.maxGPUCount, "max-gpu-count", 0, "最多 GPU 数")

	fs.Float64Var(&ff.minMemory, "min-memory", 0, "最小内存 (GiB)")
	fs.Float64Var(&ff.maxMemory, "max-memory", 0, "最大内存 (GiB)")
	fs.Float64Var(&ff.minGPUMemory, "min-gpu-memory", 0, "单卡最小显存 (GiB)")
	fs.Float64Var(&ff.maxGPUMemory, "max-gpu-memory", 0, "单卡最大显存 (GiB)")
	fs.Float64Var(&ff.minTotalGPUMemory, "min-total-gpu-memory", 0, "总显存下限 (GiB)")
	fs.Float64Var(&ff.maxTotalGPUMemory, "max-total-gpu-memory", 0, "总显存上限 (GiB)")
	fs.Float64Var(&ff.minDiskSize, "min-disk", 0, "最小磁盘 (GB)")
	fs.Float64Var(&ff.maxDiskSize, "max-disk", 0, "最大磁盘 (GB)")
	fs.Float64Var(&ff.minPrice, "min-price", 0, "最低每小时价格 (USD)")
	fs.Float64Var(&ff.maxPrice, "max-price", 0, "最高每小时价格 (USD)")

	fs.StringVar(&ff.minCC, "min-cc", "", "最低 CUDA 计算能力，如 8.0")
	fs.StringVar(&ff.maxCC, "max-cc", "", "最高 CUDA 计算能力，如 9.0")
	fs.BoolVar(&ff.spot, "spot", false, "仅竞价实例（--spot=false 仅按需实例）")
}

// build 根据已设置的参数生成查询条件
func (ff *filterFlags) build(fs *pflag.FlagSet) (domain.QueryFilter, error) {
	var f domain.QueryFilter

	for _, p := range ff.providers {
		f.Providers = append(f.Providers, catalog.ProviderNames(p)...)
	}
	f.GPUNames = ff.gpuNames

	if fs.Changed("gpu-vendor") {
		v, err := domain.ParseAcceleratorVendor(ff.gpuVendor)
		if err != nil {
			return f, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		f.GPUVendor = v
	}

	ints := []struct {
		flag string
		val  int
		dst  **int
	}{
		{"min-cpu", ff.minCPU, &f.MinCPU}, {"max-cpu", ff.maxCPU, &f.MaxCPU},
		{"min-gpu-count", ff.minGPUCount, &f.MinGPUCount}, {"max-gpu-count", ff.maxGPUCount, &f.MaxGPUCount},
	}
	for _, p := range ints {
		if fs.Changed(p.flag) {
			*p.dst = domain.Int(p.val)
		}
	}

	floats := []struct {
		flag string
		val  float64
		dst  **float64
	}{
		{"min-memory", ff.minMemory, &f.MinMemory}, {"max-memory", ff.maxMemory, &f.MaxMemory},
		{"min-gpu-memory", ff.minGPUMemory, &f.MinGPUMemory}, {"max-gpu-memory", ff.maxGPUMemory, &f.MaxGPUMemory},
		{"min-total-gpu-memory", ff.minTotalGPUMemory, &f.MinTotalGPUMemory},
		{"max-total-gpu-memory", ff.maxTotalGPUMemory, &f.MaxTotalGPUMemory},
		{"min-disk", ff.minDiskSize, &f.MinDiskSize}, {"max-disk", ff.maxDiskSize, &f.MaxDiskSize},
		{"min-price", ff.minPrice, &f.MinPrice}, {"max-price", ff.maxPrice, &f.MaxPrice},
	}
	for _, p := range floats {
		if fs.Changed(p.flag) {
			*p.dst = domain.Float(p.val)
		}
	}

	ccs := []struct {
		flag string
		val  string
		dst  **domain.ComputeCapability
	}{
		{"min-cc", ff.minCC, &f.MinComputeCapability},
		{"max-cc", ff.maxCC, &f.MaxComputeCapability},
	}
	for _, p := range ccs {
		if !fs.Changed(p.flag) {
			continue
		}
		c, err := domain.ParseComputeCapability(p.val)
		if err != nil {
			return f, fmt.Errorf("%w: --%s: %v", domain.ErrValidation, p.flag, err)
		}
		*p.dst = &c
	}

	if fs.Changed("spot") {
		f.Spot = domain.Bool(ff.spot)
	}
	return f, nil
}
