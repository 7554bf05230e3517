package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lucksec/gpuhunt/internal/provider"
)

// Registry 在线数据源注册表
// 名称不区分大小写；Names 按注册顺序返回，决定默认查询时的派发顺序
type Registry struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
	order     []string
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]provider.Provider)}
}

// Register 注册数据源，名称重复时返回错误
func (r *Registry) Register(p provider.Provider) error {
	if p == nil {
		return fmt.Errorf("数据源为空")
	}
	key := normalizeName(p.Name())
	if key == "" {
		return fmt.Errorf("数据源名称为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[key]; ok {
		return fmt.Errorf("数据源 %s 已注册", p.Name())
	}
	r.providers[key] = p
	r.order = append(r.order, key)
	return nil
}

// Get 按名称（不区分大小写）获取数据源
func (r *Registry) Get(name string) (provider.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[normalizeName(name)]
	return p, ok
}

// Names 返回已注册的数据源名称（小写，按注册顺序）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
