// XXH3_64bits is used by HashKey to hash keys before Bloom filter insertion
// and lookup; it is not part of the on-disk checksum framing, which uses
// plain CRC32 (see crc32.go).
package checksum

import "github.com/zeebo/xxh3"

// XXH3_64bits returns the 64-bit XXH3 hash of data.
func XXH3_64bits(data []byte) uint64 {
	return xxh3.Hash(data)
}
