package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lucksec/gpuhunt/internal/catalog"
	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

// OfferService 报价服务接口
type OfferService interface {
	// Query 查询满足条件的报价
	Query(ctx context.Context, f domain.QueryFilter) (*QueryResult, error)

	// Summarize 查询并汇总报价
	Summarize(ctx context.Context, f domain.QueryFilter) (*SummaryResult, error)

	// GetBestOption 获取价格最低的报价
	GetBestOption(ctx context.Context, f domain.QueryFilter) (*domain.Offer, error)

	// GetRecommendation 获取可读的推荐信息
	GetRecommendation(ctx context.Context, f domain.QueryFilter) (string, error)

	// Providers 列出全部可查询的数据源
	Providers() []ProviderInfo

	// Status 返回快照状态
	Status() CatalogStatus

	// Reload 立即下载最新快照
	Reload(ctx context.Context) (CatalogStatus, error)
}

// QueryResult 查询结果
type QueryResult struct {
	RequestID string         `json:"request_id"`
	Count     int            `json:"count"`
	Offers    []domain.Offer `json:"offers"`
	ElapsedMS int64          `json:"elapsed_ms"`
}

// SummaryResult 汇总结果
type SummaryResult struct {
	RequestID string `json:"request_id"`
	domain.OfferSummary
}

// ProviderInfo 数据源信息
type ProviderInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // offline 或 online
}

// CatalogStatus 快照状态
type CatalogStatus struct {
	Mode      string     `json:"mode"`
	Version   string     `json:"version,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Providers []string   `json:"providers,omitempty"` // 快照中包含的云服务商
}

// offerService 报价服务实现
type offerService struct {
	catalog *catalog.Catalog
	log     logger.Logger
}

// NewOfferService 创建报价服务实例
func NewOfferService(c *catalog.Catalog, log logger.Logger) OfferService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &offerService{catalog: c, log: log}
}

// Query 查询报价，每次查询分配一个请求 ID 用于关联日志
func (s *offerService) Query(ctx context.Context, f domain.QueryFilter) (*QueryResult, error) {
	id := uuid.New().String()
	start := time.Now()
	s.log.Debug("[%s] 开始查询: providers=%v gpu=%v", id, f.Providers, f.GPUNames)

	offers, err := s.catalog.Query(ctx, f)
	if err != nil {
		s.log.Warn("[%s] 查询失败: %v", id, err)
		return nil, err
	}

	elapsed := time.Since(start)
	s.log.Info("[%s] 查询完成，共 %d 条报价，耗时 %v", id, len(offers), elapsed)
	if offers == nil {
		offers = []domain.Offer{}
	}
	return &QueryResult{
		RequestID: id,
		Count:     len(offers),
		Offers:    offers,
		ElapsedMS: elapsed.Milliseconds(),
	}, nil
}

// Summarize 查询并汇总
func (s *offerService) Summarize(ctx context.Context, f domain.QueryFilter) (*SummaryResult, error) {
	result, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return &SummaryResult{
		RequestID:    result.RequestID,
		OfferSummary: domain.Summarize(result.Offers),
	}, nil
}

// GetBestOption 获取价格最低的报价
func (s *offerService) GetBestOption(ctx context.Context, f domain.QueryFilter) (*domain.Offer, error) {
	summary, err := s.Summarize(ctx, f)
	if err != nil {
		return nil, err
	}
	if summary.Cheapest == nil {
		return nil, fmt.Errorf("未找到满足条件的报价")
	}
	return summary.Cheapest, nil
}

// GetRecommendation 获取推荐信息
func (s *offerService) GetRecommendation(ctx context.Context, f domain.QueryFilter) (string, error) {
	summary, err := s.Summarize(ctx, f)
	if err != nil {
		return "", err
	}
	if summary.Cheapest == nil {
		return "", fmt.Errorf("未找到满足条件的报价")
	}

	best := summary.Cheapest
	return fmt.Sprintf(
		"推荐方案: %s/%s (%s)\n"+
			"  价格: %.4f USD/小时\n"+
			"  规格: %s\n"+
			"  区域: %s\n"+
			"  价格范围: %.4f - %.4f USD/小时（共 %d 条报价）",
		best.Provider,
		best.InstanceName,
		spotLabel(best.Spot),
		best.Price,
		DescribeResources(best.RawOffer),
		orDash(best.Location),
		summary.PriceRange.Min,
		summary.PriceRange.Max,
		summary.Count,
	), nil
}

// Providers 列出数据源
func (s *offerService) Providers() []ProviderInfo {
	offline := s.catalog.Offline()
	var infos []ProviderInfo
	for _, name := range s.catalog.Providers() {
		kind := "online"
		if slices.Contains(offline, name) {
			kind = "offline"
		}
		infos = append(infos, ProviderInfo{Name: name, Kind: kind})
	}
	return infos
}

// Status 返回快照状态
func (s *offerService) Status() CatalogStatus {
	loader := s.catalog.Loader()
	if loader == nil {
		return CatalogStatus{Mode: catalog.ModeOnlineOnly.String()}
	}
	return statusOf(loader.State())
}

// Reload 立即下载最新快照
func (s *offerService) Reload(ctx context.Context) (CatalogStatus, error) {
	loader := s.catalog.Loader()
	if loader == nil {
		return CatalogStatus{Mode: catalog.ModeOnlineOnly.String()}, fmt.Errorf("未配置快照加载器")
	}
	err := loader.Load(ctx, "")
	return statusOf(loader.State()), err
}

func statusOf(state *catalog.State) CatalogStatus {
	status := CatalogStatus{Mode: state.Mode.String()}
	if state.Snapshot != nil {
		status.Version = state.Snapshot.Version
		status.Providers = state.Snapshot.Providers()
	}
	if !state.LoadedAt.IsZero() {
		t := state.LoadedAt
		status.LoadedAt = &t
	}
	return status
}

// DescribeResources 返回报价规格的简短描述，如 "8x H100 80GB, 96 vCPU, 1024GB RAM"
func DescribeResources(o domain.RawOffer) string {
	desc := "CPU"
	if o.GPUCount > 0 {
		desc = fmt.Sprintf("%dx %s", o.GPUCount, orDash(o.GPUName))
		if o.GPUMemory != nil {
			desc += fmt.Sprintf(" %gGB", *o.GPUMemory)
		}
	}
	if o.CPU != nil {
		desc += fmt.Sprintf(", %d vCPU", *o.CPU)
	}
	if o.Memory != nil {
		desc += fmt.Sprintf(", %gGB RAM", *o.Memory)
	}
	if o.DiskSize != nil {
		desc += fmt.Sprintf(", %gGB disk", *o.DiskSize)
	}
	return desc
}

func spotLabel(spot bool) string {
	if spot {
		return "竞价"
	}
	return "按需"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
