package catalog

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
	"github.com/lucksec/gpuhunt/internal/repository"
)

// snapshotServer 模拟版本号和快照归档地址
type snapshotServer struct {
	*httptest.Server
	version     string
	archive     []byte
	versionHits atomic.Int32
	archiveHits atomic.Int32
	fail        atomic.Bool
	delay       time.Duration
}

func newSnapshotServer(t *testing.T, tables map[string][]domain.RawOffer) *snapshotServer {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, repository.WriteArchive(&buf, tables))
	s := &snapshotServer{version: "20240101", archive: buf.Bytes()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		s.versionHits.Add(1)
		if s.fail.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(s.version + "\n"))
	})
	mux.HandleFunc("GET /v1/{version}/catalog.zip", func(w http.ResponseWriter, r *http.Request) {
		s.archiveHits.Add(1)
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		if s.fail.Load() || r.PathValue("version") != s.version {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(s.archive)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *snapshotServer) loader(clock *fakeClock) *Loader {
	cfg := LoaderConfig{
		VersionURL: s.URL + "/version",
		ArchiveURL: s.URL + "/v1/{version}/catalog.zip",
		Client:     s.Client(),
		Logger:     logger.Nop(),
	}
	if clock != nil {
		cfg.Now = clock.Now
	}
	return NewLoader(cfg)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeProvider 可控的在线数据源
type fakeProvider struct {
	name   string
	offers []domain.RawOffer
	err    error
	delay  time.Duration
	panics bool

	calls atomic.Int32

	mu         sync.Mutex
	gotBalance bool
	gotFilter  *domain.QueryFilter

	active    *atomic.Int32
	maxActive *atomic.Int32
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(ctx context.Context, f *domain.QueryFilter, balance bool) ([]domain.RawOffer, error) {
	p.calls.Add(1)

	p.mu.Lock()
	p.gotBalance = balance
	if f != nil {
		clone := f.Clone()
		p.gotFilter = &clone
	}
	p.mu.Unlock()

	if p.active != nil {
		n := p.active.Add(1)
		defer p.active.Add(-1)
		for {
			m := p.maxActive.Load()
			if n <= m || p.maxActive.CompareAndSwap(m, n) {
				break
			}
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panics {
		panic("boom")
	}
	if p.err != nil {
		return nil, p.err
	}
	return append([]domain.RawOffer(nil), p.offers...), nil
}

func gpuOffer(name string, price float64, gpu string, count int, memory float64) domain.RawOffer {
	return domain.RawOffer{
		InstanceName: name,
		Location:     "us-east-1",
		Price:        price,
		CPU:          domain.Int(8 * count),
		Memory:       domain.Float(64 * float64(count)),
		GPUCount:     count,
		GPUName:      gpu,
		GPUMemory:    domain.Float(memory),
		GPUVendor:    domain.VendorNVIDIA,
	}
}

func sampleTables() map[string][]domain.RawOffer {
	spot := gpuOffer("h100.spot", 1.2, "H100", 1, 80)
	spot.Spot = true
	return map[string][]domain.RawOffer{
		"aws": {
			gpuOffer("g5.xlarge", 1.006, "A10G", 1, 24),
			spot,
			gpuOffer("h100.1x", 1.5, "H100", 1, 80),
			gpuOffer("h100.8x", 2.9, "H100", 8, 80),
			gpuOffer("p3.2xlarge", 3.06, "V100", 1, 16),
		},
		"gcp": {
			gpuOffer("n1-t4", 0.35, "T4", 1, 16),
			gpuOffer("a3-highgpu-1g", 1.8, "H100", 1, 80),
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Offline = []string{"aws", "gcp"}
	cfg.StrictOrdering = true
	cfg.Logger = logger.Nop()
	return cfg
}

func instanceNames(offers []domain.Offer) []string {
	names := make([]string, 0, len(offers))
	for _, o := range offers {
		names = append(names, o.InstanceName)
	}
	return names
}
