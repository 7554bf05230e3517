package catalog

import (
	"container/heap"

	"github.com/lucksec/gpuhunt/internal/domain"
)

// MergeByPrice 将多个已按价格升序排列的列表归并为一个列表
// 价格相同时，列表下标小的在前；同一列表内保持原有顺序
func MergeByPrice(lists [][]domain.Offer) []domain.Offer {
	total := 0
	h := make(mergeHeap, 0, len(lists))
	for i, l := range lists {
		total += len(l)
		if len(l) > 0 {
			h = append(h, cursor{list: i, offers: l})
		}
	}
	heap.Init(&h)

	out := make([]domain.Offer, 0, total)
	for h.Len() > 0 {
		c := &h[0]
		out = append(out, c.offers[c.pos])
		c.pos++
		if c.pos == len(c.offers) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return out
}

// IsSortedByPrice 检查报价是否按价格升序排列
func IsSortedByPrice(offers []domain.RawOffer) bool {
	for i := 1; i < len(offers); i++ {
		if offers[i].Price < offers[i-1].Price {
			return false
		}
	}
	return true
}

type cursor struct {
	list   int
	pos    int
	offers []domain.Offer
}

func (c cursor) price() float64 {
	return c.offers[c.pos].Price
}

type mergeHeap []cursor

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	pi, pj := h[i].price(), h[j].price()
	if pi != pj {
		return pi < pj
	}
	return h[i].list < h[j].list
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(cursor)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
