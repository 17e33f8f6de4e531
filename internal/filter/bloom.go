// Package filter implements the Bloom filter used to reject SST lookups for
// keys that cannot possibly be present, without reading any data blocks.
//
// Filter encoding: filter_bytes ++ k (u8) ++ CRC32(filter_bytes ++ k) (u32,
// big-endian). This differs from RocksDB's FastLocalBloom, which is
// cache-line aligned, XXH3-probed, and framed with a five-byte metadata
// marker suffix instead of a CRC.
package filter

import (
	"errors"
	"math"

	"github.com/aalhour/lsmtable/internal/checksum"
	"github.com/aalhour/lsmtable/internal/encoding"
)

// ErrMalformedFilter is returned when a byte buffer is too short to contain
// a filter's k byte and CRC trailer.
var ErrMalformedFilter = errors.New("filter: malformed bloom filter buffer")

// ErrChecksumMismatch is returned when a decoded filter's CRC does not
// match its content.
var ErrChecksumMismatch = errors.New("filter: checksum mismatch")

// maxK is the largest number of hash functions a filter can be built with;
// decoding a filter with k > maxK degenerates it into an always-true
// filter, a forward-compatibility escape hatch.
const maxK = 30

// Bloom is a compact probabilistic set supporting membership queries with
// no false negatives.
type Bloom struct {
	filter []byte
	k      int
	// alwaysTrue is set when k was decoded greater than maxK: the filter
	// must report every query as a possible match.
	alwaysTrue bool
}

// BitsPerKey computes the bits-per-key parameter that achieves the
// requested false-positive rate fpr for n inserted keys.
func BitsPerKey(n int, fpr float64) int {
	if n <= 0 {
		return 0
	}
	size := -1.0 * math.Log(fpr) / (math.Ln2 * math.Ln2)
	bpk := int(math.Ceil(size))
	if bpk < 1 {
		bpk = 1
	}
	return bpk
}

// Build constructs a Bloom filter from a set of 32-bit key hashes. k is
// derived from bitsPerKey; nbits is sized to hold at least
// len(hashes) * bitsPerKey bits, rounded up to a byte multiple, with a
// floor of 64 bits.
func Build(hashes []uint32, bitsPerKey int) *Bloom {
	k := clamp(roundInt(float64(bitsPerKey)*0.69), 1, maxK)

	nbits := len(hashes) * bitsPerKey
	if nbits < 64 {
		nbits = 64
	}
	nbits = (nbits + 7) / 8 * 8

	b := &Bloom{
		filter: make([]byte, nbits/8),
		k:      k,
	}

	for _, h := range hashes {
		b.set(h, uint32(nbits))
	}

	return b
}

func (b *Bloom) set(h uint32, nbits uint32) {
	delta := rotateRight17(h)
	for i := 0; i < b.k; i++ {
		pos := (h + uint32(i)*delta) % nbits
		b.filter[pos/8] |= 1 << (pos % 8)
	}
}

// MayContain reports whether h may be a member of the set. A false return
// means h is definitely absent; a true return may be a false positive.
func (b *Bloom) MayContain(h uint32) bool {
	if b.alwaysTrue {
		return true
	}
	nbits := uint32(len(b.filter)) * 8
	if nbits == 0 {
		return false
	}
	delta := rotateRight17(h)
	for i := 0; i < b.k; i++ {
		pos := (h + uint32(i)*delta) % nbits
		if b.filter[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// Encode serializes the filter as filter_bytes ++ k ++ crc32(filter_bytes ++ k).
func (b *Bloom) Encode() []byte {
	k := b.k
	if b.alwaysTrue {
		k = maxK + 1
	}
	buf := make([]byte, 0, len(b.filter)+1+4)
	buf = append(buf, b.filter...)
	buf = append(buf, byte(k))
	crc := checksum.Value(buf)
	buf = encoding.PutFixed32(buf, crc)
	return buf
}

// Decode parses a filter section, verifying its trailing CRC. A decoded k
// greater than maxK degenerates the filter into one that always reports a
// possible match.
func Decode(buf []byte) (*Bloom, error) {
	if len(buf) < 1+4 {
		return nil, ErrMalformedFilter
	}

	crcOffset := len(buf) - 4
	wantCRC, err := encoding.DecodeFixed32(buf[crcOffset:])
	if err != nil {
		return nil, ErrMalformedFilter
	}
	body := buf[:crcOffset]
	if checksum.Value(body) != wantCRC {
		return nil, ErrChecksumMismatch
	}

	kOffset := crcOffset - 1
	k := int(body[kOffset])
	filterBytes := append([]byte(nil), body[:kOffset]...)

	if k > maxK {
		return &Bloom{alwaysTrue: true}, nil
	}

	return &Bloom{filter: filterBytes, k: k}, nil
}

func rotateRight17(h uint32) uint32 {
	return (h >> 17) | (h << 15)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
