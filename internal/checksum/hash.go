package checksum

// HashKey returns a 32-bit hash of key suitable for Bloom filter insertion
// and lookup. It is built on XXH3_64bits, folding the 64-bit hash down to
// its low 32 bits, matching the convenience hash the SST builder uses when
// feeding keys into the Bloom filter.
func HashKey(key []byte) uint32 {
	return uint32(XXH3_64bits(key))
}
