package iterator

import (
	"bytes"
	"container/heap"
)

// MergeIterator merges n homogeneous Iterators into one ordered stream,
// preserving a total order on (key, source_index): source 0 is the
// "newest" source, ties on key prefer the smaller source index, and every
// other source holding that key is silently advanced past it.
//
// Internally, a priority queue orders pending sources by (key, source
// index); the next element to emit is held outside the heap as current so
// that Key/Value are O(1) and the duplicate-skip loop in Next can compare
// against a stable reference while mutating the heap. This mirrors the
// teacher's container/heap-based merging iterator, generalized with the
// source-index tie-break and duplicate suppression a single-level
// compaction merge never needed.
type MergeIterator struct {
	h       mergeHeap
	current *heapItem
}

type heapItem struct {
	idx int
	it  Iterator
}

type mergeHeap []*heapItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	return itemLess(h[i], h[j])
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// itemLess orders by key, then by source index ascending (smaller index,
// i.e. newer source, sorts first on a tie).
func itemLess(a, b *heapItem) bool {
	c := bytes.Compare(a.it.Key(), b.it.Key())
	if c != 0 {
		return c < 0
	}
	return a.idx < b.idx
}

// NewMergeIterator constructs a MergeIterator over iters, where iters[i]'s
// position in the slice is its source index. An empty slice, or a slice in
// which every iterator is already invalid, yields a MergeIterator whose
// IsValid reports false.
func NewMergeIterator(iters []Iterator) *MergeIterator {
	mi := &MergeIterator{}
	if len(iters) == 0 {
		return mi
	}

	mi.h = make(mergeHeap, 0, len(iters))
	for i, it := range iters {
		if it.IsValid() {
			mi.h = append(mi.h, &heapItem{idx: i, it: it})
		}
	}

	if len(mi.h) == 0 {
		// Every supplied iterator is invalid. Installing one of them as
		// current (rather than leaving current nil) is observationally
		// equivalent to having no current at all, since IsValid guards
		// every read; it merely mirrors the source layout's choice of
		// representation for this state.
		mi.current = &heapItem{idx: 0, it: iters[0]}
		return mi
	}

	heap.Init(&mi.h)
	mi.current = heap.Pop(&mi.h).(*heapItem)
	return mi
}

// IsValid reports whether the iterator is positioned at a valid entry.
func (mi *MergeIterator) IsValid() bool {
	return mi.current != nil && mi.current.it.IsValid()
}

// Key returns the current entry's key, sourced from whichever input
// iterator holds the merge's current minimum.
func (mi *MergeIterator) Key() []byte {
	if mi.current == nil {
		return nil
	}
	return mi.current.it.Key()
}

// Value returns the current entry's value.
func (mi *MergeIterator) Value() []byte {
	if mi.current == nil {
		return nil
	}
	return mi.current.it.Value()
}

// NumActiveIterators returns the sum over current and every heap member of
// their own active-iterator counts, letting a merge-of-merges report its
// total fan-out.
func (mi *MergeIterator) NumActiveIterators() int {
	n := 0
	if mi.current != nil {
		n += mi.current.it.NumActiveIterators()
	}
	for _, item := range mi.h {
		n += item.it.NumActiveIterators()
	}
	return n
}

// Next advances the merge to its next distinct key. Any inner iterator's
// Next error is surfaced immediately; the MergeIterator is left in an
// unspecified-but-safe state afterward and must be discarded by the
// caller.
func (mi *MergeIterator) Next() error {
	if !mi.IsValid() {
		return nil
	}

	key := append([]byte(nil), mi.current.it.Key()...)

	// Advance, and drop, every other source still holding this key.
	for mi.h.Len() > 0 && bytes.Equal(mi.h[0].it.Key(), key) {
		top := mi.h[0]
		if err := top.it.Next(); err != nil {
			heap.Pop(&mi.h)
			return err
		}
		if top.it.IsValid() {
			heap.Fix(&mi.h, 0)
		} else {
			heap.Pop(&mi.h)
		}
	}

	if err := mi.current.it.Next(); err != nil {
		return err
	}

	if !mi.current.it.IsValid() {
		if mi.h.Len() > 0 {
			mi.current = heap.Pop(&mi.h).(*heapItem)
		}
		return nil
	}

	if mi.h.Len() > 0 && itemLess(mi.h[0], mi.current) {
		top := heap.Pop(&mi.h).(*heapItem)
		heap.Push(&mi.h, mi.current)
		mi.current = top
	}

	return nil
}
