package service

import (
	"fmt"
	"net/http"

	"github.com/lucksec/gpuhunt/internal/catalog"
	"github.com/lucksec/gpuhunt/internal/config"
	"github.com/lucksec/gpuhunt/internal/logger"
	"github.com/lucksec/gpuhunt/internal/provider"
)

// NewCatalog 按配置创建查询引擎，并注册配置中的在线数据源
func NewCatalog(cfg *config.Config, log logger.Logger) (*catalog.Catalog, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	client := &http.Client{Timeout: cfg.HTTP.Timeout}

	loader := catalog.NewLoader(catalog.LoaderConfig{
		VersionURL:     cfg.Catalog.VersionURL,
		ArchiveURL:     cfg.Catalog.ArchiveURL,
		ReloadInterval: cfg.Catalog.ReloadInterval,
		Client:         client,
		Logger:         log,
	})

	registry := catalog.NewRegistry()
	for _, name := range cfg.Query.OnlineProviders {
		p, err := NewProvider(name, client, log)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("注册数据源失败: %w", err)
		}
	}

	return catalog.New(catalog.Config{
		Offline:        cfg.Catalog.OfflineProviders,
		Workers:        cfg.Query.Workers,
		FetchTimeout:   cfg.Query.FetchTimeout,
		Balance:        cfg.Query.BalanceResources,
		AutoReload:     cfg.Catalog.AutoReload,
		StrictOrdering: cfg.Query.StrictOrdering,
		Logger:         log,
	}, loader, registry), nil
}

// NewProvider 创建内置的在线数据源
func NewProvider(name string, client *http.Client, log logger.Logger) (provider.Provider, error) {
	return provider.New(name, provider.Options{Client: client, Logger: log})
}
