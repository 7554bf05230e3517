package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lucksec/gpuhunt/internal/domain"
)

func h100Offer() domain.Offer {
	return domain.NewOffer("crusoe", domain.RawOffer{
		InstanceName:      "h100-8x",
		Location:          "us-east",
		Price:             2.5,
		CPU:               domain.Int(96),
		Memory:            domain.Float(1024),
		GPUCount:          8,
		GPUName:           "H100",
		GPUMemory:         domain.Float(80),
		GPUVendor:         domain.VendorNVIDIA,
		DiskSize:          domain.Float(2000),
		ComputeCapability: &domain.ComputeCapability{Major: 9, Minor: 0},
	})
}

func TestMatches(t *testing.T) {
	cc := func(major, minor int) *domain.ComputeCapability {
		return &domain.ComputeCapability{Major: major, Minor: minor}
	}

	tests := []struct {
		name   string
		filter *domain.QueryFilter
		want   bool
	}{
		{"nil filter", nil, true},
		{"empty filter", &domain.QueryFilter{}, true},
		{"provider case-insensitive", &domain.QueryFilter{Providers: []string{"CRUSOE"}}, true},
		{"provider miss", &domain.QueryFilter{Providers: []string{"aws"}}, false},
		{"price inclusive lower", &domain.QueryFilter{MinPrice: domain.Float(2.5)}, true},
		{"price inclusive upper", &domain.QueryFilter{MaxPrice: domain.Float(2.5)}, true},
		{"price above max", &domain.QueryFilter{MaxPrice: domain.Float(2.49)}, false},
		{"cpu in range", &domain.QueryFilter{MinCPU: domain.Int(64), MaxCPU: domain.Int(128)}, true},
		{"cpu below min", &domain.QueryFilter{MinCPU: domain.Int(128)}, false},
		{"memory above max", &domain.QueryFilter{MaxMemory: domain.Float(512)}, false},
		{"gpu count", &domain.QueryFilter{MinGPUCount: domain.Int(8), MaxGPUCount: domain.Int(8)}, true},
		{"gpu count miss", &domain.QueryFilter{MaxGPUCount: domain.Int(4)}, false},
		{"gpu name case-insensitive", &domain.QueryFilter{GPUNames: []string{"a100", "h100"}}, true},
		{"gpu name miss", &domain.QueryFilter{GPUNames: []string{"A100"}}, false},
		{"vendor", &domain.QueryFilter{GPUVendor: domain.VendorNVIDIA}, true},
		{"vendor miss", &domain.QueryFilter{GPUVendor: domain.VendorAMD}, false},
		{"gpu memory", &domain.QueryFilter{MinGPUMemory: domain.Float(80)}, true},
		{"gpu memory miss", &domain.QueryFilter{MinGPUMemory: domain.Float(81)}, false},
		{"total gpu memory", &domain.QueryFilter{MinTotalGPUMemory: domain.Float(640), MaxTotalGPUMemory: domain.Float(640)}, true},
		{"total gpu memory miss", &domain.QueryFilter{MaxTotalGPUMemory: domain.Float(320)}, false},
		{"total independent of per-unit", &domain.QueryFilter{MaxGPUMemory: domain.Float(80), MinTotalGPUMemory: domain.Float(600)}, true},
		{"disk", &domain.QueryFilter{MaxDiskSize: domain.Float(1000)}, false},
		{"spot false", &domain.QueryFilter{Spot: domain.Bool(false)}, true},
		{"spot true", &domain.QueryFilter{Spot: domain.Bool(true)}, false},
		{"cc in range", &domain.QueryFilter{MinComputeCapability: cc(8, 0), MaxComputeCapability: cc(9, 0)}, true},
		{"cc below min", &domain.QueryFilter{MinComputeCapability: cc(9, 1)}, false},
		{"cc lexicographic", &domain.QueryFilter{MaxComputeCapability: cc(8, 9)}, false},
	}

	offer := h100Offer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(offer, tt.filter))
		})
	}
}

func TestMatches_UnknownFieldsDoNotRestrict(t *testing.T) {
	offer := domain.NewOffer("crusoe", domain.RawOffer{
		InstanceName: "A100-SXM",
		Price:        1.65,
		GPUCount:     1,
		GPUName:      "A100",
		GPUVendor:    domain.VendorNVIDIA,
	})
	f := &domain.QueryFilter{
		MinCPU:            domain.Int(8),
		MinMemory:         domain.Float(64),
		MinDiskSize:       domain.Float(100),
		MinGPUMemory:      domain.Float(40),
		MinTotalGPUMemory: domain.Float(40),
	}
	assert.True(t, Matches(offer, f))
}

func TestMatches_MissingComputeCapabilityFailsBound(t *testing.T) {
	offer := domain.NewOffer("crusoe", domain.RawOffer{
		InstanceName: "MI300X",
		Price:        3.45,
		GPUCount:     1,
		GPUName:      "MI300X",
		GPUVendor:    domain.VendorAMD,
	})
	assert.True(t, Matches(offer, &domain.QueryFilter{}))
	assert.False(t, Matches(offer, &domain.QueryFilter{
		MinComputeCapability: &domain.ComputeCapability{Major: 7},
	}))
	assert.False(t, Matches(offer, &domain.QueryFilter{
		MaxComputeCapability: &domain.ComputeCapability{Major: 10},
	}))
}

func TestMatches_NoGPUOffer(t *testing.T) {
	offer := domain.NewOffer("aws", domain.RawOffer{InstanceName: "m5.large", Price: 0.096, CPU: domain.Int(2)})
	assert.True(t, Matches(offer, &domain.QueryFilter{MaxGPUCount: domain.Int(0)}))
	assert.False(t, Matches(offer, &domain.QueryFilter{MinGPUCount: domain.Int(1)}))
	assert.False(t, Matches(offer, &domain.QueryFilter{GPUNames: []string{"T4"}}))
}
