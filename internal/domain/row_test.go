package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRow_Full(t *testing.T) {
	row := map[string]string{
		"instance_name": "p4d.24xlarge",
		"location":      "us-east-1",
		"price":         "32.77",
		"cpu":           "96",
		"memory":        "1152",
		"gpu_count":     "8",
		"gpu_name":      "A100",
		"gpu_memory":    "40",
		"gpu_vendor":    "nvidia",
		"spot":          "False",
		"disk_size":     "8000",
	}
	got, err := ParseRow(row)
	require.NoError(t, err)

	assert.Equal(t, "p4d.24xlarge", got.InstanceName)
	assert.Equal(t, "us-east-1", got.Location)
	assert.Equal(t, 32.77, got.Price)
	require.NotNil(t, got.CPU)
	assert.Equal(t, 96, *got.CPU)
	assert.Equal(t, 8, got.GPUCount)
	assert.Equal(t, VendorNVIDIA, got.GPUVendor)
	assert.False(t, got.Spot)
	require.NotNil(t, got.ComputeCapability, "A100 compute capability should be inferred")
	assert.Equal(t, ComputeCapability{Major: 8, Minor: 0}, *got.ComputeCapability)
	total, ok := got.TotalGPUMemory()
	assert.True(t, ok)
	assert.Equal(t, 320.0, total)
}

func TestParseRow_LenientNumbers(t *testing.T) {
	got, err := ParseRow(map[string]string{
		"instance_name": "cpu-small",
		"price":         "0.05",
		"cpu":           "2.0",
		"memory":        "",
		"gpu_count":     "",
		"spot":          "True",
	})
	require.NoError(t, err)
	require.NotNil(t, got.CPU)
	assert.Equal(t, 2, *got.CPU)
	assert.Nil(t, got.Memory)
	assert.Nil(t, got.DiskSize)
	assert.Equal(t, 0, got.GPUCount)
	assert.True(t, got.Spot)
}

func TestParseRow_NoGPUClearsGPUFields(t *testing.T) {
	got, err := ParseRow(map[string]string{
		"instance_name": "m5.large",
		"price":         "0.096",
		"gpu_count":     "0",
		"gpu_name":      "stale",
		"gpu_memory":    "16",
	})
	require.NoError(t, err)
	assert.Empty(t, got.GPUName)
	assert.Nil(t, got.GPUMemory)
}

func TestParseRow_Rejects(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]string
	}{
		{"missing name", map[string]string{"price": "1"}},
		{"missing price", map[string]string{"instance_name": "x"}},
		{"bad price", map[string]string{"instance_name": "x", "price": "abc"}},
		{"negative price", map[string]string{"instance_name": "x", "price": "-1"}},
		{"nan price", map[string]string{"instance_name": "x", "price": "NaN"}},
		{"inf price", map[string]string{"instance_name": "x", "price": "+Inf"}},
		{"negative inf price", map[string]string{"instance_name": "x", "price": "-inf"}},
		{"nan memory", map[string]string{"instance_name": "x", "price": "1", "memory": "nan"}},
		{"inf cpu", map[string]string{"instance_name": "x", "price": "1", "cpu": "Inf"}},
		{"fractional cpu", map[string]string{"instance_name": "x", "price": "1", "cpu": "2.5"}},
		{"bad spot", map[string]string{"instance_name": "x", "price": "1", "spot": "maybe"}},
		{"bad vendor", map[string]string{"instance_name": "x", "price": "1", "gpu_count": "1", "gpu_vendor": "acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRow(tt.row)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "got %v", err)
		})
	}
}

func TestRawOfferValidatePrice(t *testing.T) {
	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5} {
		r := RawOffer{InstanceName: "x", Price: price}
		assert.Error(t, r.Validate(), "price %v", price)
	}
	assert.NoError(t, RawOffer{InstanceName: "x", Price: 0}.Validate())
}

func TestFormatRow_MatchesHeader(t *testing.T) {
	raw := RawOffer{
		InstanceName: "H100-SXM",
		Location:     "US",
		Price:        2.5,
		GPUCount:     1,
		GPUName:      "H100",
		GPUMemory:    Float(80),
		GPUVendor:    VendorNVIDIA,
	}
	cells := FormatRow(raw)
	require.Len(t, cells, len(CSVHeader))

	row := make(map[string]string, len(cells))
	for i, name := range CSVHeader {
		row[name] = cells[i]
	}
	assert.Equal(t, "2.5", row["price"])
	assert.Equal(t, "", row["cpu"])
	assert.Equal(t, "false", row["spot"])

	back, err := ParseRow(row)
	require.NoError(t, err)
	assert.Equal(t, raw.InstanceName, back.InstanceName)
	assert.Equal(t, raw.Price, back.Price)
	assert.Equal(t, *raw.GPUMemory, *back.GPUMemory)
}
