package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

func TestLoaderInitialState(t *testing.T) {
	l := NewLoader(LoaderConfig{Logger: logger.Nop()})
	s := l.State()
	assert.Nil(t, s.Snapshot)
	assert.True(t, s.LoadedAt.IsZero())
	assert.Equal(t, ModeStale, s.Mode)
}

func TestGetLatestVersion(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	l := srv.loader(nil)

	v, err := l.GetLatestVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20240101", v)

	srv.fail.Store(true)
	_, err = l.GetLatestVersion(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestLoad(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	clock := newFakeClock()
	l := srv.loader(clock)

	var reloaded []*State
	l.OnReload(func(s *State) { reloaded = append(reloaded, s) })

	require.NoError(t, l.Load(context.Background(), ""))
	s := l.State()
	assert.Equal(t, ModeFresh, s.Mode)
	assert.Equal(t, clock.Now(), s.LoadedAt)
	require.NotNil(t, s.Snapshot)
	assert.Equal(t, "20240101", s.Snapshot.Version)
	assert.Equal(t, []string{"aws", "gcp"}, s.Snapshot.Providers())
	require.Len(t, reloaded, 1)
	assert.Same(t, s, reloaded[0])

	// 指定版本时不请求版本号
	require.NoError(t, l.Load(context.Background(), "20240101"))
	assert.Equal(t, int32(1), srv.versionHits.Load())
	assert.Equal(t, int32(2), srv.archiveHits.Load())
}

func TestLoadUnknownVersionGoesOnlineOnly(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	l := srv.loader(nil)

	err := l.Load(context.Background(), "19700101")
	assert.ErrorIs(t, err, domain.ErrConnectivity)
	assert.Equal(t, ModeOnlineOnly, l.State().Mode)
}

func TestLoadFailureRetainsSnapshot(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	clock := newFakeClock()
	l := srv.loader(clock)
	require.NoError(t, l.Load(context.Background(), ""))
	before := l.State()

	srv.fail.Store(true)
	clock.Advance(DefaultReloadInterval + time.Second)
	assert.Error(t, l.MaybeReload(context.Background()))

	after := l.State()
	assert.Equal(t, ModeOnlineOnly, after.Mode)
	assert.Same(t, before.Snapshot, after.Snapshot)
	assert.Equal(t, before.LoadedAt, after.LoadedAt)
}

func TestMaybeReloadPolicy(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	clock := newFakeClock()
	l := srv.loader(clock)
	ctx := context.Background()

	require.NoError(t, l.MaybeReload(ctx))
	assert.Equal(t, int32(1), srv.archiveHits.Load())

	clock.Advance(DefaultReloadInterval)
	require.NoError(t, l.MaybeReload(ctx))
	assert.Equal(t, int32(1), srv.archiveHits.Load(), "恰好到达间隔时不重新加载")
	assert.Equal(t, ModeFresh, l.State().Mode)

	clock.Advance(time.Second)
	assert.Equal(t, ModeStale, l.State().Mode)
	require.NoError(t, l.MaybeReload(ctx))
	assert.Equal(t, int32(2), srv.archiveHits.Load())
	assert.Equal(t, ModeFresh, l.State().Mode)
}

func TestMaybeReloadOnlineOnlyNeverRetries(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	srv.fail.Store(true)
	clock := newFakeClock()
	l := srv.loader(clock)
	ctx := context.Background()

	assert.ErrorIs(t, l.MaybeReload(ctx), domain.ErrConnectivity)
	assert.Equal(t, ModeOnlineOnly, l.State().Mode)

	srv.fail.Store(false)
	clock.Advance(time.Hour)
	require.NoError(t, l.MaybeReload(ctx))
	assert.Equal(t, int32(1), srv.versionHits.Load())
	assert.Equal(t, ModeOnlineOnly, l.State().Mode)
	assert.Nil(t, l.State().Snapshot)
}

func TestMaybeReloadConcurrentCallersShareDownload(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	srv.delay = 50 * time.Millisecond
	l := srv.loader(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.MaybeReload(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), srv.archiveHits.Load())
	assert.Equal(t, ModeFresh, l.State().Mode)
}

func TestLoadCancelledKeepsMode(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	l := srv.loader(nil)

	var reloaded []*State
	l.OnReload(func(s *State) { reloaded = append(reloaded, s) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Load(ctx, ""))
	assert.Equal(t, ModeStale, l.State().Mode, "调用方取消不应切换到仅在线模式")
	assert.Empty(t, reloaded)

	require.NoError(t, l.Load(context.Background(), ""))
	assert.Equal(t, ModeFresh, l.State().Mode)
}

func TestMaybeReloadCallerDeadlineDoesNotAbortDownload(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	srv.delay = 100 * time.Millisecond
	l := srv.loader(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.MaybeReload(ctx), context.DeadlineExceeded)
	assert.NotEqual(t, ModeOnlineOnly, l.State().Mode)

	// 共享下载在后台继续完成
	require.Eventually(t, func() bool {
		return l.State().Mode == ModeFresh
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, l.MaybeReload(context.Background()))
	assert.Equal(t, int32(1), srv.archiveHits.Load())
}

func TestOnReloadReportsOnlineOnly(t *testing.T) {
	srv := newSnapshotServer(t, sampleTables())
	srv.fail.Store(true)
	l := srv.loader(nil)

	var reloaded []*State
	l.OnReload(func(s *State) { reloaded = append(reloaded, s) })

	assert.Error(t, l.MaybeReload(context.Background()))
	require.Len(t, reloaded, 1)
	assert.Equal(t, ModeOnlineOnly, reloaded[0].Mode)

	// 已处于仅在线模式时再次失败不重复通知
	assert.Error(t, l.Load(context.Background(), ""))
	assert.Len(t, reloaded, 1)

	srv.fail.Store(false)
	require.NoError(t, l.Load(context.Background(), ""))
	require.Len(t, reloaded, 2)
	assert.Equal(t, ModeFresh, reloaded[1].Mode)
}

func TestSnapshot(t *testing.T) {
	_, err := NewSnapshot("bad", []byte("not a zip"), logger.Nop())
	assert.ErrorIs(t, err, domain.ErrParse)

	var nilSnap *Snapshot
	offers, err := nilSnap.Offers("aws")
	assert.NoError(t, err)
	assert.Empty(t, offers)
	assert.Empty(t, nilSnap.Providers())

	srv := newSnapshotServer(t, sampleTables())
	l := srv.loader(nil)
	require.NoError(t, l.Load(context.Background(), ""))
	snap := l.State().Snapshot

	offers, err = snap.Offers("AWS")
	require.NoError(t, err)
	assert.Len(t, offers, 5)
	assert.True(t, IsSortedByPrice(offers))

	_, err = snap.Offers("azure")
	assert.Error(t, err)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "FRESH", ModeFresh.String())
	assert.Equal(t, "STALE", ModeStale.String())
	assert.Equal(t, "ONLINE_ONLY", ModeOnlineOnly.String())
}
