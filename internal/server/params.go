package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lucksec/gpuhunt/internal/domain"
)

// parseFilter 将查询参数解析为查询条件
// 列表参数既可以重复出现，也可以用逗号分隔；limit 不属于查询条件，单独返回
func parseFilter(q url.Values) (domain.QueryFilter, int, error) {
	var (
		f   domain.QueryFilter
		err error
	)

	f.Providers = listParam(q, "provider")
	f.GPUNames = listParam(q, "gpu_name")

	if v := q.Get("gpu_vendor"); v != "" {
		if f.GPUVendor, err = domain.ParseAcceleratorVendor(v); err != nil {
			return f, 0, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"min_cpu", &f.MinCPU}, {"max_cpu", &f.MaxCPU},
		{"min_gpu_count", &f.MinGPUCount}, {"max_gpu_count", &f.MaxGPUCount},
	}
	for _, p := range ints {
		if *p.dst, err = intParam(q, p.name); err != nil {
			return f, 0, err
		}
	}

	floats := []struct {
		name string
		dst  **float64
	}{
		{"min_memory", &f.MinMemory}, {"max_memory", &f.MaxMemory},
		{"min_gpu_memory", &f.MinGPUMemory}, {"max_gpu_memory", &f.MaxGPUMemory},
		{"min_total_gpu_memory", &f.MinTotalGPUMemory}, {"max_total_gpu_memory", &f.MaxTotalGPUMemory},
		{"min_disk_size", &f.MinDiskSize}, {"max_disk_size", &f.MaxDiskSize},
		{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice},
	}
	for _, p := range floats {
		if *p.dst, err = floatParam(q, p.name); err != nil {
			return f, 0, err
		}
	}

	if f.MinComputeCapability, err = ccParam(q, "min_compute_capability"); err != nil {
		return f, 0, err
	}
	if f.MaxComputeCapability, err = ccParam(q, "max_compute_capability"); err != nil {
		return f, 0, err
	}

	if v := q.Get("spot"); v != "" {
		spot, err := strconv.ParseBool(v)
		if err != nil {
			return f, 0, fmt.Errorf("%w: spot 取值无效: %q", domain.ErrValidation, v)
		}
		f.Spot = &spot
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return f, 0, fmt.Errorf("%w: limit 取值无效: %q", domain.ErrValidation, v)
		}
	}
	return f, limit, nil
}

func listParam(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(q url.Values, name string) (*int, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s 不是整数: %q", domain.ErrValidation, name, v)
	}
	return &n, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s 不是数字: %q", domain.ErrValidation, name, v)
	}
	return &n, nil
}

func ccParam(q url.Values, name string) (*domain.ComputeCapability, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	c, err := domain.ParseComputeCapability(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrValidation, name, err)
	}
	return &c, nil
}
