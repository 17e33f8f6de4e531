// Package encoding provides the fixed-width integer encoding shared by the
// block, block-metadata, and Bloom filter codecs.
//
// Every multi-byte integer on disk is big-endian and a fixed width (u16 or
// u32); there are no varints in this format, unlike RocksDB's block codec.
package encoding

import (
	"encoding/binary"
	"errors"
)

// ErrBufferTooSmall is returned when a Decode* call does not have enough
// bytes remaining to read the requested field.
var ErrBufferTooSmall = errors.New("encoding: buffer too small")

// PutFixed16 appends a big-endian uint16 to dst and returns the result.
func PutFixed16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

// PutFixed32 appends a big-endian uint32 to dst and returns the result.
func PutFixed32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// DecodeFixed16 reads a big-endian uint16 from the front of src.
func DecodeFixed16(src []byte) (uint16, error) {
	if len(src) < 2 {
		return 0, ErrBufferTooSmall
	}
	return binary.BigEndian.Uint16(src), nil
}

// DecodeFixed32 reads a big-endian uint32 from the front of src.
func DecodeFixed32(src []byte) (uint32, error) {
	if len(src) < 4 {
		return 0, ErrBufferTooSmall
	}
	return binary.BigEndian.Uint32(src), nil
}
