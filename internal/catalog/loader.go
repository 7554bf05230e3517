package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

const (
	// DefaultVersionURL 最新快照版本号地址
	DefaultVersionURL = "https://dstack-gpu-pricing.s3.eu-west-1.amazonaws.com/v1/version"

	// DefaultArchiveURL 快照归档地址，{version} 会被替换为版本号
	DefaultArchiveURL = "https://dstack-gpu-pricing.s3.eu-west-1.amazonaws.com/v1/{version}/catalog.zip"

	// DefaultReloadInterval 快照自动重新加载的间隔
	DefaultReloadInterval = 15 * time.Minute
)

// Mode 快照加载状态
type Mode int

const (
	// ModeStale 尚未加载或已超过重新加载间隔
	ModeStale Mode = iota
	// ModeFresh 快照已加载且在有效期内
	ModeFresh
	// ModeOnlineOnly 快照下载失败，不再自动重试
	ModeOnlineOnly
)

func (m Mode) String() string {
	switch m {
	case ModeFresh:
		return "FRESH"
	case ModeOnlineOnly:
		return "ONLINE_ONLY"
	default:
		return "STALE"
	}
}

// State 加载器的状态快照，发布后不再修改
type State struct {
	Snapshot *Snapshot
	LoadedAt time.Time
	Mode     Mode
}

// LoaderConfig 加载器配置
type LoaderConfig struct {
	VersionURL     string
	ArchiveURL     string
	ReloadInterval time.Duration
	Client         *http.Client
	Logger         logger.Logger

	// Now 时钟，为空时使用 time.Now（测试时注入）
	Now func() time.Time
}

// Loader 远程快照加载器
// 状态通过原子指针整体替换，读取方无需加锁；并发的重新加载请求合并为一次下载
type Loader struct {
	cfg       LoaderConfig
	state     atomic.Pointer[State]
	group     singleflight.Group
	mu        sync.Mutex
	listeners []func(*State)
}

// NewLoader 创建加载器，初始状态为未加载
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.VersionURL == "" {
		cfg.VersionURL = DefaultVersionURL
	}
	if cfg.ArchiveURL == "" {
		cfg.ArchiveURL = DefaultArchiveURL
	}
	if cfg.ReloadInterval <= 0 {
		cfg.ReloadInterval = DefaultReloadInterval
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Loader{cfg: cfg}
	l.state.Store(&State{Mode: ModeStale})
	return l
}

// State 返回当前状态
// 只有 FRESH 状态会在超过重新加载间隔后被报告为 STALE
func (l *Loader) State() *State {
	s := l.state.Load()
	if s.Mode == ModeFresh && l.expired(s) {
		return &State{Snapshot: s.Snapshot, LoadedAt: s.LoadedAt, Mode: ModeStale}
	}
	return s
}

// OnReload 注册快照状态变化后的回调，加载成功和切换到 ONLINE_ONLY 时都会触发
func (l *Loader) OnReload(fn func(*State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// GetLatestVersion 获取最新的快照版本号
func (l *Loader) GetLatestVersion(ctx context.Context) (string, error) {
	body, err := l.get(ctx, l.cfg.VersionURL)
	if err != nil {
		return "", fmt.Errorf("%w: 获取快照版本失败: %v", domain.ErrConnectivity, err)
	}
	version := strings.TrimSpace(string(body))
	if version == "" {
		return "", fmt.Errorf("%w: 快照版本为空", domain.ErrConnectivity)
	}
	return version, nil
}

// Load 下载指定版本的快照，version 为空时使用最新版本
// 成功后状态变为 FRESH；失败时切换到 ONLINE_ONLY，并保留原有快照
// ctx 被取消或超时导致的失败不改变状态
func (l *Loader) Load(ctx context.Context, version string) error {
	if err := l.load(ctx, version); err != nil {
		if ctx.Err() != nil {
			l.cfg.Logger.Debug("快照加载被取消: %v", err)
			return err
		}
		l.markOnlineOnly()
		l.cfg.Logger.Warn("快照加载失败，切换到仅在线模式: %v", err)
		return err
	}
	return nil
}

// MaybeReload 按重新加载策略刷新快照
// ONLINE_ONLY 状态下不再重试；未加载或超过重新加载间隔时下载最新快照
// 下载由所有等待方共享，不随某一个调用方的 ctx 取消，只受 HTTP 客户端超时限制；
// 调用方的 ctx 结束时立即返回 ctx.Err()，下载在后台继续
func (l *Loader) MaybeReload(ctx context.Context) error {
	if !l.needsReload() {
		return nil
	}
	detached := context.WithoutCancel(ctx)
	ch := l.group.DoChan("reload", func() (interface{}, error) {
		// 等待期间其他调用可能已经完成加载
		if !l.needsReload() {
			return nil, nil
		}
		return nil, l.Load(detached, "")
	})
	select {
	case res := <-ch:
		if res.Shared {
			l.cfg.Logger.Debug("复用进行中的快照加载")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) needsReload() bool {
	s := l.state.Load()
	if s.Mode == ModeOnlineOnly {
		return false
	}
	return s.LoadedAt.IsZero() || l.expired(s)
}

func (l *Loader) expired(s *State) bool {
	return !s.LoadedAt.IsZero() && l.cfg.Now().Sub(s.LoadedAt) > l.cfg.ReloadInterval
}

func (l *Loader) load(ctx context.Context, version string) error {
	if version == "" {
		v, err := l.GetLatestVersion(ctx)
		if err != nil {
			return err
		}
		version = v
	}

	url := strings.ReplaceAll(l.cfg.ArchiveURL, "{version}", version)
	l.cfg.Logger.Debug("下载快照 %s: %s", version, url)

	data, err := l.get(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: 下载快照 %s 失败: %v", domain.ErrConnectivity, version, err)
	}

	// 完整解析后再发布，读取方不会看到半成品
	snap, err := NewSnapshot(version, data, l.cfg.Logger)
	if err != nil {
		return err
	}

	state := &State{Snapshot: snap, LoadedAt: l.cfg.Now(), Mode: ModeFresh}
	l.state.Store(state)
	l.cfg.Logger.Info("快照 %s 加载完成，包含 %d 个云服务商", version, len(snap.Providers()))
	l.notify(state)
	return nil
}

func (l *Loader) markOnlineOnly() {
	prev := l.state.Load()
	state := &State{Snapshot: prev.Snapshot, LoadedAt: prev.LoadedAt, Mode: ModeOnlineOnly}
	l.state.Store(state)
	if prev.Mode != ModeOnlineOnly {
		l.notify(state)
	}
}

func (l *Loader) notify(state *State) {
	l.mu.Lock()
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}

func (l *Loader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("状态码 %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
