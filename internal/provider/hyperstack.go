package provider

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

// HyperstackURL Hyperstack 价格页面
const HyperstackURL = "https://www.hyperstack.cloud/gpu-pricing"

// NewHyperstack 创建 Hyperstack 数据源
// 页面结构：table.sort-test-jquery，列依次为 GPU 型号、显存、最大 CPU、最大内存、每小时价格
func NewHyperstack(opts Options) Provider {
	return newPageScraper("hyperstack", HyperstackURL, opts, parseHyperstack)
}

func parseHyperstack(doc *goquery.Document, log logger.Logger) []domain.RawOffer {
	table := doc.Find("table.sort-test-jquery")
	if table.Length() == 0 {
		log.Warn("hyperstack: 未找到 GPU 价格表")
		return nil
	}

	var offers []domain.RawOffer
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		name := cellText(cells.Eq(0))
		fields := strings.Fields(name)
		if len(fields) < 2 {
			log.Warn("hyperstack: 无法识别型号 %q，跳过", name)
			return
		}
		vram, ok1 := parseNumber(cellText(cells.Eq(1)))
		cpu, ok2 := parseNumber(cellText(cells.Eq(2)))
		ram, ok3 := parseNumber(cellText(cells.Eq(3)))
		price, ok4 := parsePrice(cellText(cells.Eq(4)))
		if !ok1 || !ok2 || !ok3 || !ok4 {
			log.Warn("hyperstack: %s 数据解析失败，跳过", name)
			return
		}

		// "NVIDIA H100 SXM" -> "H100"
		gpuName := fields[1]
		offer := domain.RawOffer{
			InstanceName: name,
			Location:     "EU",
			Price:        price,
			CPU:          domain.Int(int(cpu)),
			Memory:       domain.Float(ram),
			GPUCount:     1,
			GPUName:      gpuName,
			GPUMemory:    domain.Float(vram),
			GPUVendor:    vendorOf(gpuName),
		}
		offers = append(offers, offer.WithKnownComputeCapability())
	})
	return offers
}
