package block

import (
	"bytes"

	"github.com/aalhour/lsmtable/internal/encoding"
)

// entryHeader describes the fixed-width fields at the start of an entry;
// rest and value are the variable-length payloads that follow.
type entryHeader struct {
	overlapLen int
	restLen    int
	restStart  int
	valueLen   int
	valueStart int
}

// Iterator is a cursor over a decoded Block. It supports seeking to the
// first entry and seeking to the smallest entry whose key is greater than
// or equal to a target, then advancing sequentially.
//
// An Iterator is not safe for concurrent use; Next is the only mutating
// call and must be serialized by the caller. Key and Value return views
// that are invalidated by the next call to Next.
type Iterator struct {
	block    *Block
	idx      int
	curKey   []byte
	curValue []byte
}

// CreateAndSeekToFirst builds an iterator positioned at entry 0.
func CreateAndSeekToFirst(b *Block) *Iterator {
	it := &Iterator{block: b}
	it.seekToIdx(0)
	return it
}

// CreateAndSeekToKey builds an iterator positioned at the smallest entry
// whose key is greater than or equal to target. If no such entry exists,
// the returned iterator reports IsValid() == false.
func CreateAndSeekToKey(b *Block, target []byte) *Iterator {
	it := &Iterator{block: b}
	it.SeekToKey(target)
	return it
}

// IsValid reports whether the iterator is positioned at a valid entry.
func (it *Iterator) IsValid() bool {
	return it.idx >= 0 && it.idx < len(it.block.Offsets)
}

// Key returns the current entry's full, reconstructed key.
func (it *Iterator) Key() []byte {
	return it.curKey
}

// Value returns the current entry's value.
func (it *Iterator) Value() []byte {
	return it.curValue
}

// NumActiveIterators reports the number of leaf iterators this cursor
// represents, always 1 for a block iterator.
func (it *Iterator) NumActiveIterators() int {
	return 1
}

// Next advances to the next entry. It always returns a nil error; the
// error return exists to satisfy the common storage-iterator contract
// shared with iterators that do perform I/O.
func (it *Iterator) Next() error {
	it.seekToIdx(it.idx + 1)
	return nil
}

// SeekToKey repositions the iterator at the smallest entry whose key is
// greater than or equal to target, using a binary search over the block's
// offsets. Keys are compared without fully materializing every candidate.
func (it *Iterator) SeekToKey(target []byte) {
	offsets := it.block.Offsets
	lo, hi := 0, len(offsets)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if it.keyAtLess(mid, target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.seekToIdx(lo)
}

// keyAtLess reports whether the key at entry idx compares less than
// target, without allocating a full reconstruction when the comparison
// can be decided from the shared prefix and the rest bytes alone.
func (it *Iterator) keyAtLess(idx int, target []byte) bool {
	hdr, ok := it.parseHeader(idx)
	if !ok {
		return false
	}
	firstKey := it.firstKeyBytes()
	overlap := firstKey[:hdr.overlapLen]
	rest := it.block.Data[hdr.restStart : hdr.restStart+hdr.restLen]

	n := min(len(overlap), len(target))
	if c := bytes.Compare(overlap[:n], target[:n]); c != 0 {
		return c < 0
	}
	if len(overlap) != n {
		// overlap longer than target at the comparison boundary: key > target
		return false
	}
	remaining := target[n:]
	return bytes.Compare(rest, remaining) < 0
}

func (it *Iterator) firstKeyBytes() []byte {
	hdr, ok := it.parseHeader(0)
	if !ok {
		return nil
	}
	return it.block.Data[hdr.restStart : hdr.restStart+hdr.restLen]
}

func (it *Iterator) parseHeader(idx int) (entryHeader, bool) {
	if idx < 0 || idx >= len(it.block.Offsets) {
		return entryHeader{}, false
	}
	pos := int(it.block.Offsets[idx])
	data := it.block.Data

	overlapLen, err := encoding.DecodeFixed16(data[pos:])
	if err != nil {
		return entryHeader{}, false
	}
	pos += 2
	restLen, err := encoding.DecodeFixed16(data[pos:])
	if err != nil {
		return entryHeader{}, false
	}
	pos += 2
	restStart := pos
	pos += int(restLen)
	valueLen, err := encoding.DecodeFixed16(data[pos:])
	if err != nil {
		return entryHeader{}, false
	}
	pos += 2
	valueStart := pos

	return entryHeader{
		overlapLen: int(overlapLen),
		restLen:    int(restLen),
		restStart:  restStart,
		valueLen:   int(valueLen),
		valueStart: valueStart,
	}, true
}

// seekToIdx positions the cursor at idx and materializes its key and value,
// or marks the iterator invalid if idx is out of range.
func (it *Iterator) seekToIdx(idx int) {
	it.idx = idx
	hdr, ok := it.parseHeader(idx)
	if !ok {
		it.curKey = nil
		it.curValue = nil
		return
	}

	firstKey := it.firstKeyBytes()
	key := make([]byte, 0, hdr.overlapLen+hdr.restLen)
	key = append(key, firstKey[:hdr.overlapLen]...)
	key = append(key, it.block.Data[hdr.restStart:hdr.restStart+hdr.restLen]...)
	it.curKey = key
	it.curValue = it.block.Data[hdr.valueStart : hdr.valueStart+hdr.valueLen]
}
