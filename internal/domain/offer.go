package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AcceleratorVendor 加速卡厂商
type AcceleratorVendor string

const (
	VendorUnspecified AcceleratorVendor = ""
	VendorNVIDIA      AcceleratorVendor = "NVIDIA"
	VendorAMD         AcceleratorVendor = "AMD"
	VendorGoogle      AcceleratorVendor = "GOOGLE"
	VendorIntel       AcceleratorVendor = "INTEL"
)

// ParseAcceleratorVendor 解析厂商名称（不区分大小写），空字符串表示未指定
func ParseAcceleratorVendor(s string) (AcceleratorVendor, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return VendorUnspecified, nil
	case "NVIDIA":
		return VendorNVIDIA, nil
	case "AMD":
		return VendorAMD, nil
	case "GOOGLE":
		return VendorGoogle, nil
	case "INTEL":
		return VendorIntel, nil
	default:
		return VendorUnspecified, fmt.Errorf("未知的加速卡厂商: %s", s)
	}
}

// IsValid 检查厂商是否为已知取值
func (v AcceleratorVendor) IsValid() bool {
	switch v {
	case VendorUnspecified, VendorNVIDIA, VendorAMD, VendorGoogle, VendorIntel:
		return true
	}
	return false
}

// ComputeCapability NVIDIA 计算能力版本（如 8.0），按 (Major, Minor) 字典序比较
type ComputeCapability struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// ParseComputeCapability 解析 "8.0" 或 "9" 形式的计算能力
func ParseComputeCapability(s string) (ComputeCapability, error) {
	s = strings.TrimSpace(s)
	majorStr, minorStr, hasMinor := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil || major < 0 {
		return ComputeCapability{}, fmt.Errorf("无效的计算能力: %q", s)
	}
	minor := 0
	if hasMinor {
		minor, err = strconv.Atoi(minorStr)
		if err != nil || minor < 0 {
			return ComputeCapability{}, fmt.Errorf("无效的计算能力: %q", s)
		}
	}
	return ComputeCapability{Major: major, Minor: minor}, nil
}

// Compare 返回 -1、0、1
func (c ComputeCapability) Compare(o ComputeCapability) int {
	switch {
	case c.Major != o.Major:
		if c.Major < o.Major {
			return -1
		}
		return 1
	case c.Minor < o.Minor:
		return -1
	case c.Minor > o.Minor:
		return 1
	}
	return 0
}

func (c ComputeCapability) String() string {
	return fmt.Sprintf("%d.%d", c.Major, c.Minor)
}

// RawOffer 数据源返回的单条报价（尚未标记来源）
// 指针字段为 nil 表示数据源未提供该信息
type RawOffer struct {
	InstanceName      string             `json:"instance_name"`
	Location          string             `json:"location"`
	Price             float64            `json:"price"` // 每小时价格
	CPU               *int               `json:"cpu,omitempty"`
	Memory            *float64           `json:"memory,omitempty"` // GiB
	GPUCount          int                `json:"gpu_count"`
	GPUName           string             `json:"gpu_name,omitempty"`
	GPUMemory         *float64           `json:"gpu_memory,omitempty"` // 单卡显存 GiB
	GPUVendor         AcceleratorVendor  `json:"gpu_vendor,omitempty"`
	Spot              bool               `json:"spot"`
	DiskSize          *float64           `json:"disk_size,omitempty"` // GiB
	ComputeCapability *ComputeCapability `json:"compute_capability,omitempty"`
}

// Validate 检查报价自身的不变量
func (r RawOffer) Validate() error {
	if r.InstanceName == "" {
		return fmt.Errorf("缺少实例名称")
	}
	if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || r.Price < 0 {
		return fmt.Errorf("实例 %s 价格无效: %v", r.InstanceName, r.Price)
	}
	if r.GPUCount < 0 {
		return fmt.Errorf("实例 %s GPU 数量为负数: %d", r.InstanceName, r.GPUCount)
	}
	if r.GPUCount == 0 && (r.GPUName != "" || r.GPUMemory != nil) {
		return fmt.Errorf("实例 %s 没有 GPU，但设置了 GPU 名称或显存", r.InstanceName)
	}
	if !r.GPUVendor.IsValid() {
		return fmt.Errorf("实例 %s 加速卡厂商无效: %s", r.InstanceName, r.GPUVendor)
	}
	return nil
}

// TotalGPUMemory 返回总显存（GPU 数量 × 单卡显存），未知时第二个返回值为 false
func (r RawOffer) TotalGPUMemory() (float64, bool) {
	if r.GPUMemory == nil {
		return 0, false
	}
	return float64(r.GPUCount) * *r.GPUMemory, true
}

// Offer 标记了来源的最终报价
type Offer struct {
	Provider string `json:"provider"`
	RawOffer
}

// NewOffer 为数据源返回的报价标记来源
func NewOffer(provider string, raw RawOffer) Offer {
	return Offer{Provider: provider, RawOffer: raw}
}

// Int 返回 v 的指针
func Int(v int) *int { return &v }

// Float 返回 v 的指针
func Float(v float64) *float64 { return &v }

// Bool 返回 v 的指针
func Bool(v bool) *bool { return &v }
