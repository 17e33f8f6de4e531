// Package checksum provides the checksum and key-hashing primitives used to
// frame blocks, block metadata, and Bloom filter sections on disk.
//
// The on-disk checksum is plain CRC32 using the IEEE polynomial (the same
// default produced by widely used CRC32 crates), not RocksDB's
// Castagnoli-polynomial, masked CRC32C variant.
package checksum

import "hash/crc32"

// Value computes the IEEE CRC32 checksum of data.
func Value(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Extend computes the IEEE CRC32 of concat(A, data), where initCRC is the
// CRC32 of A.
func Extend(initCRC uint32, data []byte) uint32 {
	return crc32.Update(initCRC, crc32.IEEETable, data)
}
