// Package catalog 实现报价查询引擎：快照加载、并发派发和按价格归并
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucksec/gpuhunt/internal/constraints"
	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
	"github.com/lucksec/gpuhunt/internal/provider"
)

// DefaultWorkers 默认并发任务数
const DefaultWorkers = 8

// OfflineProviders 快照中默认包含的云服务商
var OfflineProviders = []string{"aws", "azure", "datacrunch", "gcp", "lambdalabs", "oci", "runpod"}

// Config 查询引擎配置
type Config struct {
	// Offline 快照中的云服务商，为空时使用 OfflineProviders
	Offline []string

	// Workers 同时执行的任务数上限，<= 0 时使用 DefaultWorkers
	Workers int

	// FetchTimeout 单个在线数据源的超时时间，0 表示不限制
	FetchTimeout time.Duration

	// Balance 是否允许在线数据源按资源均衡策略收紧条件
	Balance bool

	// AutoReload 查询离线数据源前是否按策略刷新快照
	AutoReload bool

	// StrictOrdering 归并前检查每个列表是否有序，无序时记录日志并重新排序
	StrictOrdering bool

	Logger logger.Logger
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Offline:    append([]string(nil), OfflineProviders...),
		Workers:    DefaultWorkers,
		Balance:    true,
		AutoReload: true,
	}
}

// Catalog 报价查询引擎
type Catalog struct {
	cfg      Config
	offline  []string
	loader   *Loader
	registry *Registry
	log      logger.Logger
}

// New 创建查询引擎；loader 为空时离线数据源始终返回空结果，registry 为空时创建空注册表
func New(cfg Config, loader *Loader, registry *Registry) *Catalog {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	offline := cfg.Offline
	if len(offline) == 0 {
		offline = OfflineProviders
	}
	names := make([]string, 0, len(offline))
	for _, name := range offline {
		if n := normalizeName(name); n != "" && !slices.Contains(names, n) {
			names = append(names, n)
		}
	}

	return &Catalog{
		cfg:      cfg,
		offline:  names,
		loader:   loader,
		registry: registry,
		log:      cfg.Logger,
	}
}

// Registry 返回在线数据源注册表
func (c *Catalog) Registry() *Registry {
	return c.registry
}

// Loader 返回快照加载器（可能为空）
func (c *Catalog) Loader() *Loader {
	return c.loader
}

// Offline 返回离线数据源名称
func (c *Catalog) Offline() []string {
	return append([]string(nil), c.offline...)
}

// Providers 返回全部可查询的数据源名称：离线在前，在线按注册顺序在后
func (c *Catalog) Providers() []string {
	names := c.Offline()
	for _, name := range c.registry.Names() {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// task 单个派发任务
type task struct {
	name    string
	offline bool
	source  provider.Provider
}

// Query 查询满足条件的报价，结果按价格升序排列
// 参数校验失败时在派发任何任务之前返回 ErrValidation；单个数据源失败只影响该数据源的结果
func (c *Catalog) Query(ctx context.Context, f domain.QueryFilter) ([]domain.Offer, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	tasks, err := c.resolve(f.Providers)
	if err != nil {
		return nil, err
	}

	state := c.prepareOffline(ctx, tasks)

	results := make([][]domain.Offer, len(tasks))
	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	for i, t := range tasks {
		filter := f.Clone()
		g.Go(func() error {
			offers, err := c.run(ctx, t, &filter, state)
			if err != nil {
				c.log.Error("数据源 %s 查询失败: %v", t.name, err)
				return nil
			}
			results[i] = offers
			return nil
		})
	}
	_ = g.Wait()

	return MergeByPrice(results), nil
}

// resolve 将查询中的数据源名称解析为任务列表
// 未指定时依次为全部离线数据源和全部在线数据源；同名的离线和在线数据源都会被派发，离线在前
func (c *Catalog) resolve(names []string) ([]task, error) {
	if len(names) == 0 {
		names = c.Providers()
	}

	var (
		tasks []task
		seen  []string
	)
	for _, raw := range names {
		name := normalizeName(raw)
		if slices.Contains(seen, name) {
			continue
		}
		seen = append(seen, name)

		found := false
		if slices.Contains(c.offline, name) {
			tasks = append(tasks, task{name: name, offline: true})
			found = true
		}
		if p, ok := c.registry.Get(name); ok {
			tasks = append(tasks, task{name: name, source: p})
			found = true
		}
		if !found {
			return nil, fmt.Errorf("%w: 未知的数据源: %s", domain.ErrValidation, raw)
		}
	}
	return tasks, nil
}

// prepareOffline 需要时刷新快照，并读取一次加载器状态供本次查询使用
func (c *Catalog) prepareOffline(ctx context.Context, tasks []task) *State {
	if c.loader == nil {
		return &State{Mode: ModeOnlineOnly}
	}
	for _, t := range tasks {
		if !t.offline {
			continue
		}
		if c.cfg.AutoReload {
			if err := c.loader.MaybeReload(ctx); err != nil {
				c.log.Warn("快照刷新失败: %v", err)
			}
		}
		break
	}
	return c.loader.State()
}

// run 执行单个任务，panic 视为该数据源失败
func (c *Catalog) run(ctx context.Context, t task, f *domain.QueryFilter, state *State) (offers []domain.Offer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", domain.ErrSourceFetch, t.name, r)
		}
	}()

	start := time.Now()
	var raw []domain.RawOffer
	if t.offline {
		raw, err = c.readOffline(t.name, state)
	} else {
		raw, err = c.fetchOnline(ctx, t, f)
		if err != nil && !errors.Is(err, domain.ErrSourceFetch) {
			err = fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, t.name, err)
		}
	}
	if err != nil {
		return nil, err
	}

	if c.cfg.StrictOrdering && !IsSortedByPrice(raw) {
		c.log.Warn("数据源 %s 返回的报价未按价格排序，已重新排序", t.name)
		provider.SortByPrice(raw)
	}

	offers = make([]domain.Offer, 0, len(raw))
	for _, r := range raw {
		if err := r.Validate(); err != nil {
			c.log.Warn("数据源 %s 返回无效报价，已丢弃: %v", t.name, err)
			continue
		}
		offer := domain.NewOffer(t.name, r)
		if constraints.Matches(offer, f) {
			offers = append(offers, offer)
		}
	}
	c.log.Debug("数据源 %s 返回 %d 条报价，匹配 %d 条，耗时 %v", t.name, len(raw), len(offers), time.Since(start))
	return offers, nil
}

func (c *Catalog) readOffline(name string, state *State) ([]domain.RawOffer, error) {
	if state.Snapshot == nil {
		c.log.Warn("快照未加载（%s），离线数据源 %s 返回空结果", state.Mode, name)
		return nil, nil
	}
	offers, err := state.Snapshot.Offers(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, name, err)
	}
	return offers, nil
}

type fetchResult struct {
	offers []domain.RawOffer
	err    error
}

// fetchOnline 调用在线数据源；设置了超时时间时，超时视为该数据源失败
func (c *Catalog) fetchOnline(ctx context.Context, t task, f *domain.QueryFilter) ([]domain.RawOffer, error) {
	if c.cfg.FetchTimeout <= 0 {
		return t.source.Fetch(ctx, f, c.cfg.Balance)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("%w: %s: panic: %v", domain.ErrSourceFetch, t.name, r)}
			}
		}()
		offers, err := t.source.Fetch(ctx, f, c.cfg.Balance)
		done <- fetchResult{offers: offers, err: err}
	}()

	select {
	case res := <-done:
		return res.offers, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: 超过 %v 未返回", domain.ErrSourceFetch, t.name, c.cfg.FetchTimeout)
	}
}

// ProviderNames 解析逗号分隔的数据源列表
func ProviderNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := normalizeName(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
