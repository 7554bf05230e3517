package provider

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

// CoreWeaveURL CoreWeave 价格页面
const CoreWeaveURL = "https://www.coreweave.com/gpu-cloud-pricing"

// NewCoreWeave 创建 CoreWeave 数据源
// 页面结构：div.table-body 下每个 div.table-body-row 为一种 GPU，
// div.table-body-left 为型号，div.w-col-2 依次为显存、CPU、内存，最后一列为每 GPU 小时价格
func NewCoreWeave(opts Options) Provider {
	return newPageScraper("coreweave", CoreWeaveURL, opts, parseCoreWeave)
}

func parseCoreWeave(doc *goquery.Document, log logger.Logger) []domain.RawOffer {
	body := doc.Find("div.table-body")
	if body.Length() == 0 {
		log.Warn("coreweave: 未找到 GPU 价格区域")
		return nil
	}

	var offers []domain.RawOffer
	body.Find("div.table-body-row").Each(func(_ int, row *goquery.Selection) {
		name := cellText(row.Find("div.table-body-left").First())
		if name == "" {
			return
		}
		cols := row.Find("div.w-col-2")
		if cols.Length() < 4 {
			log.Warn("coreweave: %s 列数不足，跳过", name)
			return
		}

		priceText := cellText(cols.Last())
		if strings.EqualFold(priceText, "Contact Us") {
			return
		}
		price, ok := parsePrice(priceText)
		if !ok {
			return
		}
		gpuMemory, ok1 := parseNumber(cellText(cols.Eq(0)))
		cpu, ok2 := parseNumber(cellText(cols.Eq(1)))
		memory, ok3 := parseNumber(cellText(cols.Eq(2)))
		if !ok1 || !ok2 || !ok3 {
			log.Warn("coreweave: %s 规格解析失败，跳过", name)
			return
		}

		gpuName := strings.Fields(name)[0]
		offer := domain.RawOffer{
			InstanceName: name,
			Location:     "US",
			Price:        price,
			CPU:          domain.Int(int(cpu)),
			Memory:       domain.Float(memory),
			GPUCount:     1,
			GPUName:      gpuName,
			GPUMemory:    domain.Float(gpuMemory),
			GPUVendor:    vendorOf(gpuName),
		}
		offers = append(offers, offer.WithKnownComputeCapability())
	})
	return offers
}
