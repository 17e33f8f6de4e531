// Package iterator defines the storage iterator contract shared by block,
// SST, and merge iterators, and implements the n-way MergeIterator that
// composes homogeneous iterators into one ordered stream.
package iterator

// Iterator is the read-path cursor contract: a borrowed key/value view at
// the current position, validity, and forward advancement. All borrowed
// views returned by Key and Value are invalidated by the next call to
// Next.
type Iterator interface {
	// Key returns the current entry's key.
	Key() []byte

	// Value returns the current entry's value.
	Value() []byte

	// IsValid reports whether the iterator is positioned at a valid entry.
	IsValid() bool

	// Next advances to the next entry.
	Next() error

	// NumActiveIterators reports the number of leaf iterators this cursor
	// represents, letting nested merges report their total fan-out.
	NumActiveIterators() int
}
