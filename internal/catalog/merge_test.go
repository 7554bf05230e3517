package catalog

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucksec/gpuhunt/internal/domain"
)

func offer(provider, name string, price float64) domain.Offer {
	return domain.NewOffer(provider, domain.RawOffer{InstanceName: name, Price: price})
}

func TestMergeByPrice(t *testing.T) {
	lists := [][]domain.Offer{
		{offer("a", "a1", 1), offer("a", "a2", 3), offer("a", "a3", 3)},
		nil,
		{offer("b", "b1", 0.5), offer("b", "b2", 3)},
		{offer("c", "c1", 2)},
	}

	got := MergeByPrice(lists)
	var names []string
	for _, o := range got {
		names = append(names, o.InstanceName)
	}
	assert.Equal(t, []string{"b1", "a1", "c1", "a2", "a3", "b2"}, names)
}

func TestMergeByPriceEmpty(t *testing.T) {
	assert.Empty(t, MergeByPrice(nil))
	assert.Empty(t, MergeByPrice([][]domain.Offer{nil, {}}))
}

// 随机生成有序列表，检查归并结果有序、元素不增不减，且同价时保持列表顺序和列表内顺序
func TestMergeByPriceRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		k := rng.Intn(6)
		lists := make([][]domain.Offer, k)
		var all []domain.Offer
		for i := range lists {
			n := rng.Intn(20)
			for j := 0; j < n; j++ {
				// 价格取整数，制造大量同价的情况
				o := offer(fmt.Sprintf("p%d", i), fmt.Sprintf("%d-%d", i, j), float64(rng.Intn(10)))
				lists[i] = append(lists[i], o)
			}
			sort.SliceStable(lists[i], func(a, b int) bool { return lists[i][a].Price < lists[i][b].Price })
			all = append(all, lists[i]...)
		}

		got := MergeByPrice(lists)
		require.Len(t, got, len(all))

		// 期望结果：按 (价格, 列表下标, 列表内位置) 排序
		type ranked struct {
			offer domain.Offer
			list  int
			pos   int
		}
		var want []ranked
		for i, l := range lists {
			for j, o := range l {
				want = append(want, ranked{o, i, j})
			}
		}
		sort.Slice(want, func(a, b int) bool {
			if want[a].offer.Price != want[b].offer.Price {
				return want[a].offer.Price < want[b].offer.Price
			}
			if want[a].list != want[b].list {
				return want[a].list < want[b].list
			}
			return want[a].pos < want[b].pos
		})
		for i := range want {
			require.Equal(t, want[i].offer.InstanceName, got[i].InstanceName, "round %d index %d", round, i)
		}
	}
}

func TestIsSortedByPrice(t *testing.T) {
	assert.True(t, IsSortedByPrice(nil))
	assert.True(t, IsSortedByPrice([]domain.RawOffer{{Price: 1}, {Price: 1}, {Price: 2}}))
	assert.False(t, IsSortedByPrice([]domain.RawOffer{{Price: 2}, {Price: 1}}))
}
