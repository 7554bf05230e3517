package domain

import "strings"

// GPUInfo 常见 GPU 型号的规格
type GPUInfo struct {
	Name              string
	Vendor            AcceleratorVendor
	Memory            float64 // 最小规格显存 GiB
	ComputeCapability *ComputeCapability
}

func cc(major, minor int) *ComputeCapability {
	return &ComputeCapability{Major: major, Minor: minor}
}

// KnownGPUs 已知 GPU 列表
// 同一型号存在多种显存规格时取最小值（如 A100 40/80GB）
var KnownGPUs = []GPUInfo{
	{Name: "B200", Vendor: VendorNVIDIA, Memory: 180, ComputeCapability: cc(10, 0)},
	{Name: "GH200", Vendor: VendorNVIDIA, Memory: 96, ComputeCapability: cc(9, 0)},
	{Name: "H200", Vendor: VendorNVIDIA, Memory: 141, ComputeCapability: cc(9, 0)},
	{Name: "H100", Vendor: VendorNVIDIA, Memory: 80, ComputeCapability: cc(9, 0)},
	{Name: "H100NVL", Vendor: VendorNVIDIA, Memory: 94, ComputeCapability: cc(9, 0)},
	{Name: "A100", Vendor: VendorNVIDIA, Memory: 40, ComputeCapability: cc(8, 0)},
	{Name: "A40", Vendor: VendorNVIDIA, Memory: 48, ComputeCapability: cc(8, 6)},
	{Name: "A10", Vendor: VendorNVIDIA, Memory: 24, ComputeCapability: cc(8, 6)},
	{Name: "A10G", Vendor: VendorNVIDIA, Memory: 24, ComputeCapability: cc(8, 6)},
	{Name: "A6000", Vendor: VendorNVIDIA, Memory: 48, ComputeCapability: cc(8, 6)},
	{Name: "A5000", Vendor: VendorNVIDIA, Memory: 24, ComputeCapability: cc(8, 6)},
	{Name: "A4000", Vendor: VendorNVIDIA, Memory: 16, ComputeCapability: cc(8, 6)},
	{Name: "L40S", Vendor: VendorNVIDIA, Memory: 48, ComputeCapability: cc(8, 9)},
	{Name: "L40", Vendor: VendorNVIDIA, Memory: 48, ComputeCapability: cc(8, 9)},
	{Name: "L4", Vendor: VendorNVIDIA, Memory: 24, ComputeCapability: cc(8, 9)},
	{Name: "RTX4090", Vendor: VendorNVIDIA, Memory: 24, ComputeCapability: cc(8, 9)},
	{Name: "RTX3090", Vendor: VendorNVIDIA, Memory: 24, ComputeCapability: cc(8, 6)},
	{Name: "V100", Vendor: VendorNVIDIA, Memory: 16, ComputeCapability: cc(7, 0)},
	{Name: "T4", Vendor: VendorNVIDIA, Memory: 16, ComputeCapability: cc(7, 5)},
	{Name: "P100", Vendor: VendorNVIDIA, Memory: 16, ComputeCapability: cc(6, 0)},
	{Name: "MI300X", Vendor: VendorAMD, Memory: 192},
	{Name: "MI250X", Vendor: VendorAMD, Memory: 128},
	{Name: "tpu-v5e", Vendor: VendorGoogle, Memory: 16},
	{Name: "Gaudi2", Vendor: VendorIntel, Memory: 96},
}

// LookupGPU 按名称查找 GPU 规格（不区分大小写，忽略空格和连字符）
func LookupGPU(name string) (GPUInfo, bool) {
	key := normalizeGPUName(name)
	if key == "" {
		return GPUInfo{}, false
	}
	for _, gpu := range KnownGPUs {
		if normalizeGPUName(gpu.Name) == key {
			return gpu, true
		}
	}
	return GPUInfo{}, false
}

func normalizeGPUName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(name)
}
