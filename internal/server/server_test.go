package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucksec/gpuhunt/internal/catalog"
	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
	"github.com/lucksec/gpuhunt/internal/service"
)

type staticProvider struct {
	name   string
	offers []domain.RawOffer
}

func (p staticProvider) Name() string { return p.name }

func (p staticProvider) Fetch(context.Context, *domain.QueryFilter, bool) ([]domain.RawOffer, error) {
	return append([]domain.RawOffer(nil), p.offers...), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := catalog.NewRegistry()
	require.NoError(t, reg.Register(staticProvider{name: "live", offers: []domain.RawOffer{
		{InstanceName: "t4", Price: 0.4, GPUCount: 1, GPUName: "T4", GPUMemory: domain.Float(16), GPUVendor: domain.VendorNVIDIA},
		{InstanceName: "a100", Price: 1.2, GPUCount: 1, GPUName: "A100", GPUMemory: domain.Float(40), GPUVendor: domain.VendorNVIDIA},
		{InstanceName: "h100", Price: 2.5, GPUCount: 1, GPUName: "H100", GPUMemory: domain.Float(80), GPUVendor: domain.VendorNVIDIA, Spot: true},
	}}))
	c := catalog.New(catalog.Config{Offline: []string{"aws"}, Logger: logger.Nop()}, nil, reg)
	return NewServer(service.NewOfferService(c, logger.Nop()), "localhost:0", logger.Nop())
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleProviders(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/api/providers")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"aws","kind":"offline"},{"name":"live","kind":"online"}]`, w.Body.String())
}

func TestHandleOffers(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/offers?provider=live&min_gpu_memory=20")
	require.Equal(t, http.StatusOK, w.Code)

	var result service.QueryResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Offers, 2)
	assert.Equal(t, "a100", result.Offers[0].InstanceName)
	assert.Equal(t, "live", result.Offers[0].Provider)

	w = do(t, srv, http.MethodGet, "/api/offers?spot=false&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	require.Len(t, result.Offers, 1)
	assert.Equal(t, "t4", result.Offers[0].InstanceName)
	assert.Equal(t, 2, result.Count)
}

func TestHandleOffersBadRequest(t *testing.T) {
	srv := newTestServer(t)
	for _, target := range []string{
		"/api/offers?provider=not-a-real-source",
		"/api/offers?min_cpu=8&max_cpu=4",
		"/api/offers?min_price=abc",
		"/api/offers?spot=maybe",
		"/api/offers?gpu_vendor=acme",
		"/api/offers?min_compute_capability=x",
		"/api/offers?limit=-1",
		"/api/offers/summary?min_gpu_count=two",
	} {
		w := do(t, srv, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestHandleSummary(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/api/offers/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var summary service.SummaryResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.NotEmpty(t, summary.RequestID)
	assert.Equal(t, 3, summary.Count)
	require.NotNil(t, summary.Cheapest)
	assert.Equal(t, "t4", summary.Cheapest.InstanceName)
	assert.Equal(t, domain.PriceRange{Min: 0.4, Max: 2.5}, summary.PriceRange)
	assert.Equal(t, map[string]int{"live": 3}, summary.ByProvider)
}

func TestHandleCatalog(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/catalog")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"ONLINE_ONLY"}`, w.Body.String())

	w = do(t, srv, http.MethodPost, "/api/catalog/reload")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = do(t, srv, http.MethodGet, "/api/catalog/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestParseFilter(t *testing.T) {
	q := url.Values{
		"provider":               {"aws,gcp", "crusoe"},
		"gpu_name":               {"H100"},
		"gpu_vendor":             {"nvidia"},
		"min_cpu":                {"8"},
		"max_total_gpu_memory":   {"640"},
		"min_compute_capability": {"8.0"},
		"spot":                   {"true"},
		"limit":                  {"5"},
	}
	f, limit, err := parseFilter(q)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, []string{"aws", "gcp", "crusoe"}, f.Providers)
	assert.Equal(t, []string{"H100"}, f.GPUNames)
	assert.Equal(t, domain.VendorNVIDIA, f.GPUVendor)
	assert.Equal(t, 8, *f.MinCPU)
	assert.Nil(t, f.MaxCPU)
	assert.Equal(t, 640.0, *f.MaxTotalGPUMemory)
	assert.Equal(t, domain.ComputeCapability{Major: 8, Minor: 0}, *f.MinComputeCapability)
	assert.True(t, *f.Spot)
}
