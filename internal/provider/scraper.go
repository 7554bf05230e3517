package provider

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lucksec/gpuhunt/internal/constraints"
	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

// Options 在线数据源的公共配置
type Options struct {
	// Client HTTP 客户端，为空时使用 30 秒超时的默认客户端
	Client *http.Client

	// URL 覆盖默认的价格页面地址（测试时指向 httptest）
	URL string

	// Balancer 资源均衡策略，为空时使用 constraints.GPUMemoryBalancer
	Balancer constraints.Balancer

	// Logger 为空时使用默认日志
	Logger logger.Logger
}

// parseFunc 从价格页面解析报价
type parseFunc func(doc *goquery.Document, log logger.Logger) []domain.RawOffer

// pageScraper 抓取单个 HTML 价格页面的数据源
type pageScraper struct {
	name     string
	url      string
	client   *http.Client
	balancer constraints.Balancer
	log      logger.Logger
	parse    parseFunc
}

func newPageScraper(name, defaultURL string, opts Options, parse parseFunc) *pageScraper {
	s := &pageScraper{
		name:     name,
		url:      defaultURL,
		client:   opts.Client,
		balancer: opts.Balancer,
		log:      opts.Logger,
		parse:    parse,
	}
	if opts.URL != "" {
		s.url = opts.URL
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 30 * time.Second}
	}
	if s.balancer == nil {
		s.balancer = constraints.GPUMemoryBalancer{}
	}
	if s.log == nil {
		s.log = logger.GetLogger()
	}
	return s
}

// Name 返回数据源名称
func (s *pageScraper) Name() string {
	return s.name
}

// Fetch 抓取并解析价格页面，按（均衡后的）查询条件预筛选后按价格排序返回
func (s *pageScraper) Fetch(ctx context.Context, f *domain.QueryFilter, balance bool) ([]domain.RawOffer, error) {
	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, s.name, err)
	}

	offers := s.parse(doc, s.log)
	s.log.Debug("%s 页面解析出 %d 条报价", s.name, len(offers))

	if f != nil {
		narrowed := *f
		if balance {
			narrowed = s.balancer.Balance(*f)
		}
		offers = narrow(s.name, offers, &narrowed)
	}

	SortByPrice(offers)
	return offers, nil
}

// Filter 实现 Filterer
func (s *pageScraper) Filter(offers []domain.RawOffer) []domain.RawOffer {
	return DedupeFilter(offers)
}

// fetchDocument 获取价格页面
func (s *pageScraper) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	s.log.Debug("获取 %s 价格页面: %s", s.name, s.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "gpuhunt")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求价格页面失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("价格页面返回状态码 %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("解析价格页面失败: %w", err)
	}
	return doc, nil
}

// narrow 用查询条件预筛选报价，减少返回给 catalog 的数据量
func narrow(name string, offers []domain.RawOffer, f *domain.QueryFilter) []domain.RawOffer {
	result := offers[:0]
	for _, o := range offers {
		if constraints.Matches(domain.NewOffer(name, o), f) {
			result = append(result, o)
		}
	}
	return result
}

var (
	priceRe  = regexp.MustCompile(`\$?\s*([\d,]*\.?\d+)`)
	numberRe = regexp.MustCompile(`([\d,]*\.?\d+)`)
)

// parsePrice 从 "$2.10/hr" 形式的文本中提取价格
func parsePrice(text string) (float64, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseNumber 提取文本中的第一个数字，如 "80GB" -> 80
func parseNumber(text string) (float64, bool) {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// cellText 返回去除首尾空白的单元格文本
func cellText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// vendorOf 根据 GPU 型号推断厂商，未知型号视为 NVIDIA
func vendorOf(gpuName string) domain.AcceleratorVendor {
	if gpu, ok := domain.LookupGPU(gpuName); ok {
		return gpu.Vendor
	}
	if strings.HasPrefix(strings.ToUpper(gpuName), "MI") {
		return domain.VendorAMD
	}
	return domain.VendorNVIDIA
}
