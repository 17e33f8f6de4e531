package block

import (
	"github.com/aalhour/lsmtable/internal/encoding"
)

// Builder assembles a Block from sorted key/value pairs, applying
// restart-point prefix compression against the block's first key. Builder
// itself is a supporting piece used by the SST construction helpers and by
// tests; the full SST builder (block-boundary and Bloom sizing policy) is
// an external collaborator of this package.
type Builder struct {
	data     []byte
	offsets  []uint16
	firstKey []byte
}

// NewBuilder creates an empty block builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a key/value pair to the block being built. Keys must be added
// in strictly increasing order; Add does not itself enforce this, callers
// (the SST builder) are responsible for supplying sorted input.
func (b *Builder) Add(key, value []byte) {
	overlap := 0
	if b.firstKey != nil {
		overlap = commonPrefixLen(b.firstKey, key)
	} else {
		b.firstKey = append([]byte(nil), key...)
	}

	b.offsets = append(b.offsets, uint16(len(b.data)))

	rest := key[overlap:]
	b.data = encoding.PutFixed16(b.data, uint16(overlap))
	b.data = encoding.PutFixed16(b.data, uint16(len(rest)))
	b.data = append(b.data, rest...)
	b.data = encoding.PutFixed16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)
}

// IsEmpty reports whether no entries have been added yet.
func (b *Builder) IsEmpty() bool {
	return len(b.offsets) == 0
}

// EstimatedSize returns the approximate size in bytes the finished,
// encoded block will occupy.
func (b *Builder) EstimatedSize() int {
	return len(b.data) + len(b.offsets)*2 + 2
}

// Build finalizes the builder into a Block.
func (b *Builder) Build() *Block {
	return &Block{
		Data:    b.data,
		Offsets: b.offsets,
	}
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
