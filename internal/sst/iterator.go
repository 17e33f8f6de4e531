package sst

import "github.com/aalhour/lsmtable/internal/block"

// Iterator is a cursor over all blocks of one SST, composing a block
// Iterator with the SST's block index. Its current key equals the smallest
// key >= the last-emitted key remaining in the SST; when IsValid is true,
// blockIdx < NumOfBlocks() and the inner block iterator is valid within
// that block.
//
// An Iterator is not safe for concurrent mutation; multiple iterators over
// the same SST may run concurrently in different goroutines, each owning
// its own cursor state.
type Iterator struct {
	sst       *SST
	blockIdx  int
	blockIter *block.Iterator
}

// CreateAndSeekToFirst builds an iterator positioned at the first entry of
// the SST's first block.
func CreateAndSeekToFirst(s *SST) (*Iterator, error) {
	it := &Iterator{sst: s}
	if s.NumOfBlocks() == 0 {
		return it, nil
	}
	blk, err := s.ReadBlockCached(0)
	if err != nil {
		return nil, err
	}
	it.blockIter = block.CreateAndSeekToFirst(blk)
	return it, nil
}

// CreateAndSeekToKey builds an iterator positioned at the smallest entry
// across all blocks whose key is greater than or equal to key. It selects
// the candidate block with SST.FindBlockIdx, seeks within it, and if the
// target falls past that block's last key, advances to the first entry of
// the following block.
func CreateAndSeekToKey(s *SST, key []byte) (*Iterator, error) {
	it := &Iterator{sst: s}
	if s.NumOfBlocks() == 0 {
		return it, nil
	}

	idx := s.FindBlockIdx(key)
	blk, err := s.ReadBlockCached(idx)
	if err != nil {
		return nil, err
	}
	it.blockIdx = idx
	it.blockIter = block.CreateAndSeekToKey(blk, key)

	if !it.blockIter.IsValid() {
		if err := it.advanceToNextBlock(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// advanceToNextBlock moves to block_idx+1 and seeks to its first entry, or
// marks the iterator invalid if no block remains.
func (it *Iterator) advanceToNextBlock() error {
	it.blockIdx++
	if it.blockIdx >= it.sst.NumOfBlocks() {
		it.blockIter = nil
		return nil
	}
	blk, err := it.sst.ReadBlockCached(it.blockIdx)
	if err != nil {
		return err
	}
	it.blockIter = block.CreateAndSeekToFirst(blk)
	return nil
}

// IsValid reports whether the iterator is positioned at a valid entry.
func (it *Iterator) IsValid() bool {
	return it.blockIter != nil && it.blockIter.IsValid()
}

// Key returns the current entry's key. The view is invalidated by the next
// call to Next.
func (it *Iterator) Key() []byte {
	if it.blockIter == nil {
		return nil
	}
	return it.blockIter.Key()
}

// Value returns the current entry's value. The view is invalidated by the
// next call to Next.
func (it *Iterator) Value() []byte {
	if it.blockIter == nil {
		return nil
	}
	return it.blockIter.Value()
}

// NumActiveIterators reports the number of leaf iterators this cursor
// represents, always 1 for an SST iterator.
func (it *Iterator) NumActiveIterators() int {
	return 1
}

// Next advances the inner block iterator; when it becomes invalid, Next
// advances to the first entry of the following block, if any.
func (it *Iterator) Next() error {
	if it.blockIter == nil {
		return nil
	}
	_ = it.blockIter.Next()
	if !it.blockIter.IsValid() {
		return it.advanceToNextBlock()
	}
	return nil
}
