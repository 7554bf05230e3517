package provider

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
)

// CrusoeURL Crusoe Cloud 价格页面
const CrusoeURL = "https://crusoe.ai/cloud/"

// crusoeSpecs Crusoe 各型号实例附带的 CPU 核数和内存（GiB）
var crusoeSpecs = map[string]struct {
	cpu    int
	memory float64
}{
	"H200":   {96, 2048},
	"H100":   {96, 2048},
	"MI300X": {96, 2048},
	"A100":   {48, 1024},
	"L40S":   {48, 512},
	"A40":    {24, 256},
}

var termRe = regexp.MustCompile(`(?i)(\d+)\s*-?\s*(month|year)`)

// NewCrusoe 创建 Crusoe Cloud 数据源
// 页面结构：#gpu-pricing 下的表格，第一列为 GPU 型号（显存在 .bg-main-green/25 中），
// 后续各列依次为按需价格和不同期限的预留价格
func NewCrusoe(opts Options) Provider {
	return newPageScraper("crusoe", CrusoeURL, opts, parseCrusoe)
}

func parseCrusoe(doc *goquery.Document, log logger.Logger) []domain.RawOffer {
	section := doc.Find("#gpu-pricing")
	if section.Length() == 0 {
		log.Warn("crusoe: 未找到 GPU 价格区域")
		return nil
	}

	// 表头决定每一列对应的计费期限，空字符串表示按需
	var terms []string
	section.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		if i == 0 {
			return
		}
		terms = append(terms, termSuffix(cellText(th)))
	})
	if len(terms) == 0 {
		terms = []string{""}
	}

	var offers []domain.RawOffer
	section.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		info := cells.First()
		memoryText := info.Find(`[class~="bg-main-green/25"]`)
		if memoryText.Length() == 0 {
			return
		}
		gpuMemory, ok := parseNumber(memoryText.Text())
		if !ok {
			log.Warn("crusoe: 无法解析显存: %q", memoryText.Text())
			return
		}
		gpuName := crusoeGPUName(cellText(info))
		if gpuName == "" {
			return
		}

		for i, term := range terms {
			cell := cells.Eq(i + 1)
			if cell.Length() == 0 {
				break
			}
			text := cellText(cell)
			if strings.EqualFold(text, "Contact Us") {
				continue
			}
			price, ok := parsePrice(text)
			if !ok {
				continue
			}

			name := "crusoe-" + strings.ToLower(gpuName)
			if term != "" {
				name += "-" + term
			}
			offer := domain.RawOffer{
				InstanceName: name,
				Location:     "us-central",
				Price:        price,
				GPUCount:     1,
				GPUName:      gpuName,
				GPUMemory:    domain.Float(gpuMemory),
				GPUVendor:    vendorOf(gpuName),
			}
			if spec, ok := crusoeSpecs[gpuName]; ok {
				offer.CPU = domain.Int(spec.cpu)
				offer.Memory = domain.Float(spec.memory)
			}
			offers = append(offers, offer.WithKnownComputeCapability())
		}
	})
	return offers
}

// crusoeGPUName 从 "NVIDIA H100 80GB SXM" 中提取型号 "H100"
func crusoeGPUName(text string) string {
	var parts []string
	for _, part := range strings.Fields(text) {
		upper := strings.ToUpper(part)
		switch {
		case strings.HasSuffix(upper, "GB"):
		case upper == "SXM", upper == "PCIE", upper == "OAM":
		case upper == "NVIDIA", upper == "AMD":
		default:
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// termSuffix 将 "6 Month" / "1-Year" 形式的表头转换为 "reserved-6month"
func termSuffix(header string) string {
	m := termRe.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("reserved-%s%s", m[1], strings.ToLower(m[2]))
}
