package domain

// PriceRange 价格范围（每小时价格）
type PriceRange struct {
	Min float64 `json:"min"` // 最低每小时价格
	Max float64 `json:"max"` // 最高每小时价格
}

// OfferSummary 表示一次查询结果的价格汇总
type OfferSummary struct {
	Count      int            `json:"count"`       // 报价数量
	Cheapest   *Offer         `json:"cheapest"`    // 最优方案（价格最低）
	PriceRange PriceRange     `json:"price_range"` // 价格范围
	ByProvider map[string]int `json:"by_provider"` // 各云服务商的报价数量
}

// Summarize 汇总报价列表
// 价格相同时保留列表中靠前的报价作为最优方案
func Summarize(offers []Offer) OfferSummary {
	summary := OfferSummary{
		Count:      len(offers),
		ByProvider: make(map[string]int),
	}
	for i, offer := range offers {
		summary.ByProvider[offer.Provider]++
		if summary.Cheapest == nil || offer.Price < summary.Cheapest.Price {
			cheapest := offer
			summary.Cheapest = &cheapest
		}
		if i == 0 || offer.Price < summary.PriceRange.Min {
			summary.PriceRange.Min = offer.Price
		}
		if i == 0 || offer.Price > summary.PriceRange.Max {
			summary.PriceRange.Max = offer.Price
		}
	}
	return summary
}
