package lsmtable

import (
	"bytes"

	"github.com/aalhour/lsmtable/internal/block"
	"github.com/aalhour/lsmtable/internal/iterator"
	"github.com/aalhour/lsmtable/internal/sst"
)

// Snapshot is an ordered view over a set of SSTs: index 0 is the newest
// (it wins ties on duplicate keys), matching the merge iterator's
// source-index convention in internal/iterator.
type Snapshot struct {
	ssts []*sst.SST
}

// NewSnapshot builds a Snapshot over ssts, ordered from newest (index 0)
// to oldest.
func NewSnapshot(ssts []*sst.SST) *Snapshot {
	return &Snapshot{ssts: ssts}
}

// Get implements the read path's get(key) data flow: each SST whose
// [FirstKey, LastKey] range could contain key is consulted, newest first;
// the Bloom filter rejects SSTs that cannot contain the key without a
// block read, and the first SST that actually holds an entry for key wins.
func (s *Snapshot) Get(key []byte) ([]byte, bool, error) {
	for _, table := range s.ssts {
		if bytes.Compare(key, table.FirstKey()) < 0 || bytes.Compare(key, table.LastKey()) > 0 {
			continue
		}
		if !table.MayContain(key) {
			continue
		}

		idx := table.FindBlockIdx(key)
		blk, err := table.ReadBlockCached(idx)
		if err != nil {
			return nil, false, err
		}
		it := block.CreateAndSeekToKey(blk, key)
		if it.IsValid() && bytes.Equal(it.Key(), key) {
			value := append([]byte(nil), it.Value()...)
			return value, true, nil
		}
	}
	return nil, false, nil
}

// NewIterator returns a merge iterator positioned at the first entry
// across all of the snapshot's SSTs, newest-source-wins on duplicate keys.
func (s *Snapshot) NewIterator() (*iterator.MergeIterator, error) {
	return s.buildMergeIterator(func(table *sst.SST) (iterator.Iterator, error) {
		return sst.CreateAndSeekToFirst(table)
	})
}

// Scan returns a merge iterator positioned at the smallest key across all
// of the snapshot's SSTs that is greater than or equal to key.
func (s *Snapshot) Scan(key []byte) (*iterator.MergeIterator, error) {
	return s.buildMergeIterator(func(table *sst.SST) (iterator.Iterator, error) {
		return sst.CreateAndSeekToKey(table, key)
	})
}

func (s *Snapshot) buildMergeIterator(seek func(*sst.SST) (iterator.Iterator, error)) (*iterator.MergeIterator, error) {
	iters := make([]iterator.Iterator, len(s.ssts))
	for i, table := range s.ssts {
		it, err := seek(table)
		if err != nil {
			return nil, err
		}
		iters[i] = it
	}
	return iterator.NewMergeIterator(iters), nil
}
