package sst

import (
	"bytes"

	"github.com/aalhour/lsmtable/internal/checksum"
	"github.com/aalhour/lsmtable/internal/encoding"
)

// BlockMeta is a per-block index entry: the block's byte offset within the
// SST file, and its first and last keys. Across the ordered sequence of
// entries in one SST, Offset is strictly increasing, FirstKey[i] <=
// LastKey[i], and LastKey[i] < FirstKey[i+1] (blocks are disjoint and
// sorted in key order).
type BlockMeta struct {
	Offset   uint32
	FirstKey []byte
	LastKey  []byte
}

// EncodeBlockMeta serializes an ordered sequence of block metadata entries
// as: count (u32) ++ (offset:u32, first_key_len:u16, first_key,
// last_key_len:u16, last_key)... ++ crc32 (u32). The CRC covers everything
// between count and the CRC itself.
func EncodeBlockMeta(entries []BlockMeta) []byte {
	buf := encoding.PutFixed32(nil, uint32(len(entries)))
	bodyStart := len(buf)
	for _, e := range entries {
		buf = encoding.PutFixed32(buf, e.Offset)
		buf = encoding.PutFixed16(buf, uint16(len(e.FirstKey)))
		buf = append(buf, e.FirstKey...)
		buf = encoding.PutFixed16(buf, uint16(len(e.LastKey)))
		buf = append(buf, e.LastKey...)
	}
	crc := checksum.Value(buf[bodyStart:])
	buf = encoding.PutFixed32(buf, crc)
	return buf
}

// DecodeBlockMeta parses a meta section produced by EncodeBlockMeta,
// verifying its trailing CRC32. A checksum mismatch or a buffer truncated
// mid-entry is a fatal, caller-surfaced error.
func DecodeBlockMeta(buf []byte) ([]BlockMeta, error) {
	const countLen = 4
	if len(buf) < countLen+footerTrailerLen {
		return nil, ErrMalformedMeta
	}

	count, err := encoding.DecodeFixed32(buf[:countLen])
	if err != nil {
		return nil, ErrMalformedMeta
	}

	crcOffset := len(buf) - footerTrailerLen
	wantCRC, err := encoding.DecodeFixed32(buf[crcOffset:])
	if err != nil {
		return nil, ErrMalformedMeta
	}

	body := buf[countLen:crcOffset]
	if checksum.Value(body) != wantCRC {
		return nil, ErrChecksumMismatch
	}

	entries := make([]BlockMeta, 0, count)
	pos := 0
	for i := uint32(0); i < count; i++ {
		if pos+4+2 > len(body) {
			return nil, ErrMalformedMeta
		}
		offset, _ := encoding.DecodeFixed32(body[pos:])
		pos += 4

		flkLen, _ := encoding.DecodeFixed16(body[pos:])
		pos += 2
		if pos+int(flkLen) > len(body) {
			return nil, ErrMalformedMeta
		}
		firstKey := append([]byte(nil), body[pos:pos+int(flkLen)]...)
		pos += int(flkLen)

		if pos+2 > len(body) {
			return nil, ErrMalformedMeta
		}
		llkLen, _ := encoding.DecodeFixed16(body[pos:])
		pos += 2
		if pos+int(llkLen) > len(body) {
			return nil, ErrMalformedMeta
		}
		lastKey := append([]byte(nil), body[pos:pos+int(llkLen)]...)
		pos += int(llkLen)

		entries = append(entries, BlockMeta{Offset: offset, FirstKey: firstKey, LastKey: lastKey})
	}

	if pos != len(body) {
		return nil, ErrMalformedMeta
	}

	return entries, nil
}

// FindBlockIdx performs a binary search over metas for the largest index i
// such that metas[i].FirstKey <= key, returning 0 if key precedes every
// block's first key (or metas is empty).
func FindBlockIdx(metas []BlockMeta, key []byte) int {
	// lo ends up as the count of entries whose FirstKey <= key.
	lo, hi := 0, len(metas)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if bytes.Compare(metas[mid].FirstKey, key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0
	}
	return lo - 1
}
