package tlru

import "time"

// item is a cached mask together with its position in the expiry heap, the
// index is maintained on every move so a TTL refresh can fix the heap in place
type item[TKey comparable, TFlag any] struct {
	key      TKey
	mask     TFlag
	expireAt time.Time
	index    int
}

// expiryHeap is a min-heap of cache items ordered by expiry time
type expiryHeap[TKey comparable, TFlag any] []*item[TKey, TFlag]

func (h expiryHeap[TKey, TFlag]) len() int {
	return len(h)
}

// peek the item that expires first without removing it
func (h expiryHeap[TKey, TFlag]) peek() *item[TKey, TFlag] {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

func (h *expiryHeap[TKey, TFlag]) push(it *item[TKey, TFlag]) {
	it.index = len(*h)
	*h = append(*h, it)
	h.siftUp(it.index)
}

// pop the item that expires first
func (h *expiryHeap[TKey, TFlag]) pop() *item[TKey, TFlag] {
	old := *h
	n := len(old)
	it := old[0]
	h.swap(0, n-1)
	old[n-1] = nil
	*h = old[:n-1]
	if n > 1 {
		h.siftDown(0)
	}
	it.index = -1
	return it
}

// fix restores heap order after the item at index i changed its expiry
func (h expiryHeap[TKey, TFlag]) fix(i int) {
	h.siftDown(i)
	h.siftUp(i)
}

func (h expiryHeap[TKey, TFlag]) less(i, j int) bool {
	return h[i].expireAt.Before(h[j].expireAt)
}

func (h expiryHeap[TKey, TFlag]) swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h expiryHeap[TKey, TFlag]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h expiryHeap[TKey, TFlag]) siftDown(i int) {
	n := len(h)
	for {
		smallest := i
		if left := 2*i + 1; left < n && h.less(left, smallest) {
			smallest = left
		}
		if right := 2*i + 2; right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}
