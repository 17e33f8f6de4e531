// Package block implements the block codec: a compact, prefix-compressed,
// offset-indexed encoding of sorted key/value pairs. A Block is the unit of
// read, cache, and checksum for a sorted string table.
//
// Layout of an encoded block:
//
//	entries: [overlap_len:u16, rest_len:u16, rest_bytes, value_len:u16, value_bytes]...
//	offsets: u16 per entry, pointing into the entries region
//	count:   u16, number of entries
//
// The full key of entry i is first_key[0:overlap_len] ++ rest_bytes, where
// first_key is the key of entry 0 (whose overlap_len is always 0). This is
// restart-point prefix compression with a single restart point at entry 0;
// it differs from RocksDB's multi-restart-point block format.
//
// All integers are big-endian.
package block

import (
	"errors"

	"github.com/aalhour/lsmtable/internal/encoding"
)

// ErrMalformedBlock is returned when a byte buffer cannot be decoded as a
// block: it is too short, or the declared entry count does not fit the
// offsets region.
var ErrMalformedBlock = errors.New("block: malformed block buffer")

// Block is the decoded, in-memory representation of one data block.
type Block struct {
	// Data is the raw concatenated entries (see package doc for layout).
	Data []byte
	// Offsets holds one 16-bit offset per entry, pointing into Data.
	// Offsets is strictly increasing and has at least one element for any
	// block produced by Builder.
	Offsets []uint16
}

// Encode serializes the block to its on-disk byte layout: data, followed by
// the offset array, followed by the entry count.
func (b *Block) Encode() []byte {
	buf := make([]byte, 0, len(b.Data)+len(b.Offsets)*2+2)
	buf = append(buf, b.Data...)
	for _, off := range b.Offsets {
		buf = encoding.PutFixed16(buf, off)
	}
	buf = encoding.PutFixed16(buf, uint16(len(b.Offsets)))
	return buf
}

// Decode parses a block from its on-disk byte layout.
func Decode(buf []byte) (*Block, error) {
	if len(buf) < 2 {
		return nil, ErrMalformedBlock
	}

	countOffset := len(buf) - 2
	count, err := encoding.DecodeFixed16(buf[countOffset:])
	if err != nil {
		return nil, ErrMalformedBlock
	}

	offsetsSize := int(count) * 2
	if offsetsSize > countOffset {
		return nil, ErrMalformedBlock
	}
	offsetsStart := countOffset - offsetsSize

	offsets := make([]uint16, count)
	for i := range offsets {
		o, err := encoding.DecodeFixed16(buf[offsetsStart+i*2:])
		if err != nil {
			return nil, ErrMalformedBlock
		}
		offsets[i] = o
	}

	return &Block{
		Data:    buf[:offsetsStart],
		Offsets: offsets,
	}, nil
}

// NumEntries returns the number of entries in the block.
func (b *Block) NumEntries() int {
	return len(b.Offsets)
}
