package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CSVHeader 快照中每个云服务商表格的列名
// 列名和顺序是兼容性约定，读取时按列名解析
var CSVHeader = []string{
	"instance_name",
	"location",
	"price",
	"cpu",
	"memory",
	"gpu_count",
	"gpu_name",
	"gpu_memory",
	"gpu_vendor",
	"spot",
	"disk_size",
}

// ColumnComputeCapability 可选列，缺失时根据 GPU 型号推断
const ColumnComputeCapability = "compute_capability"

// ParseRow 将快照中的一行解析为报价
// 数值字段为空字符串时视为未设置；缺少实例名称或价格时返回 ErrParse
func ParseRow(row map[string]string) (RawOffer, error) {
	var r RawOffer
	var err error

	r.InstanceName = strings.TrimSpace(row["instance_name"])
	if r.InstanceName == "" {
		return RawOffer{}, fmt.Errorf("%w: 缺少 instance_name", ErrParse)
	}
	r.Location = strings.TrimSpace(row["location"])

	price := strings.TrimSpace(row["price"])
	if price == "" {
		return RawOffer{}, fmt.Errorf("%w: 实例 %s 缺少 price", ErrParse, r.InstanceName)
	}
	if r.Price, err = parseFinite(price); err != nil {
		return RawOffer{}, fmt.Errorf("%w: 实例 %s price 无效: %v", ErrParse, r.InstanceName, err)
	}

	if r.CPU, err = parseOptionalInt(row["cpu"]); err != nil {
		return RawOffer{}, fmt.Errorf("%w: 实例 %s cpu 无效: %v", ErrParse, r.InstanceName, err)
	}
	if r.Memory, err = parseOptionalFloat(row["memory"]); err != nil {
		return RawOffer{}, fmt.Errorf("%w: 实例 %s memory 无效: %v", ErrParse, r.InstanceName, err)
	}
	count, err := parseOptionalInt(row["gpu_count"])
	if err != nil {
		return RawOffer{}, fmt.Errorf("%w: 实例 %s gpu_count 无效: %v", ErrParse, r.InstanceName, err)
	}
	if count != nil {
		r.GPUCount = *count
	}
	if r.GPUCount > 0 {
		r.GPUName = strings.TrimSpace(row["gpu_name"])
		if r.GPUMemory, err = parseOptionalFloat(row["gpu_memory"]); err != nil {
			return RawOffer{}, fmt.Errorf("%w: 实例 %s gpu_memory 无效: %v", ErrParse, r.InstanceName, err)
		}
		if r.GPUVendor, err = ParseAcceleratorVendor(row["gpu_vendor"]); err != nil {
			return RawOffer{}, fmt.Errorf("%w: 实例 %s: %v", ErrParse, r.InstanceName, err)
		}
	}
	if spot := strings.TrimSpace(row["spot"]); spot != "" {
		if r.Spot, err = strconv.ParseBool(spot); err != nil {
			return RawOffer{}, fmt.Errorf("%w: 实例 %s spot 无效: %v", ErrParse, r.InstanceName, err)
		}
	}
	if r.DiskSize, err = parseOptionalFloat(row["disk_size"]); err != nil {
		return RawOffer{}, fmt.Errorf("%w: 实例 %s disk_size 无效: %v", ErrParse, r.InstanceName, err)
	}

	if v := strings.TrimSpace(row[ColumnComputeCapability]); v != "" && r.GPUCount > 0 {
		c, err := ParseComputeCapability(v)
		if err != nil {
			return RawOffer{}, fmt.Errorf("%w: 实例 %s: %v", ErrParse, r.InstanceName, err)
		}
		r.ComputeCapability = &c
	}
	r = r.WithKnownComputeCapability()

	if err := r.Validate(); err != nil {
		return RawOffer{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return r, nil
}

// WithKnownComputeCapability 为缺少计算能力的 NVIDIA 报价补充已知型号的计算能力
func (r RawOffer) WithKnownComputeCapability() RawOffer {
	if r.ComputeCapability != nil || r.GPUCount == 0 || r.GPUVendor != VendorNVIDIA {
		return r
	}
	if gpu, ok := LookupGPU(r.GPUName); ok && gpu.ComputeCapability != nil {
		c := *gpu.ComputeCapability
		r.ComputeCapability = &c
	}
	return r
}

// FormatRow 按 CSVHeader 的顺序格式化报价
func FormatRow(r RawOffer) []string {
	return []string{
		r.InstanceName,
		r.Location,
		formatFloat(r.Price),
		formatOptionalInt(r.CPU),
		formatOptionalFloat(r.Memory),
		strconv.Itoa(r.GPUCount),
		r.GPUName,
		formatOptionalFloat(r.GPUMemory),
		string(r.GPUVendor),
		strconv.FormatBool(r.Spot),
		formatOptionalFloat(r.DiskSize),
	}
}

func parseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v, nil
	}
	// 部分数据源输出 "8.0" 形式的整数
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("不是整数: %q", s)
	}
	v := int(f)
	return &v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseFinite 解析浮点数，拒绝 NaN 和 ±Inf
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("不是有限数值: %q", s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
