// Package sst implements the on-disk sorted string table container: the
// block metadata index, the file-open protocol that bootstraps an SST from
// its trailing offsets, and cache-through block reads.
//
// File layout (bit-exact, all integers big-endian):
//
//	data blocks (variable)     |
//	meta section               | <- starts at block_meta_offset
//	u32 block_meta_offset      |
//	bloom section              | <- starts at bloom_offset
//	u32 bloom_offset           | <- last 4 bytes of the file
//
// Each data block on disk is encoded_block ++ u32 crc32(encoded_block).
package sst

import (
	"errors"

	"github.com/aalhour/lsmtable/internal/block"
	"github.com/aalhour/lsmtable/internal/cache"
	"github.com/aalhour/lsmtable/internal/checksum"
	"github.com/aalhour/lsmtable/internal/encoding"
	"github.com/aalhour/lsmtable/internal/filter"
	"github.com/aalhour/lsmtable/internal/logging"
	"github.com/aalhour/lsmtable/internal/vfs"
)

var (
	// ErrMalformedMeta indicates the file is too short to contain a valid
	// footer, a trailer offset or block range is out of bounds, or the meta
	// section doesn't decode. Bloom section decode failures are reported
	// with the filter package's own errors.
	ErrMalformedMeta = errors.New("sst: malformed meta or footer section")

	// ErrChecksumMismatch indicates a data block's or the block meta
	// section's trailing CRC32 does not match its bytes.
	ErrChecksumMismatch = errors.New("sst: block checksum mismatch")

	// ErrBlockIndexOutOfRange indicates ReadBlock was asked for a block
	// index outside [0, NumOfBlocks()).
	ErrBlockIndexOutOfRange = errors.New("sst: block index out of range")
)

const footerTrailerLen = 4

// OpenOptions controls how an SST is opened.
type OpenOptions struct {
	// Logger receives open/read/checksum-failure diagnostics. A nil Logger
	// is replaced by logging.OrDefault's WARN-level logger on stderr.
	Logger logging.Logger

	// BlockCache, if non-nil, is consulted by ReadBlockCached.
	BlockCache *cache.BlockCache

	// VerifyChecksums enables CRC32 verification of data blocks read via
	// ReadBlock/ReadBlockCached. Meta and Bloom section CRCs are always
	// verified during Open regardless of this flag, since a corrupt
	// footer cannot be safely parsed at all. The zero value is false, so a
	// zero OpenOptions does not verify data block CRCs; callers set it to
	// true to have every block read checked.
	VerifyChecksums bool
}

// SST is the in-memory representation of an opened sorted string table. It
// is immutable once opened; concurrent readers may share one SST across
// goroutines, each driving its own Iterator.
type SST struct {
	file vfs.RandomAccessFile
	size int64

	id uint64

	blockMeta       []BlockMeta
	blockMetaOffset uint32

	firstKey []byte
	lastKey  []byte

	bloom *filter.Bloom

	blockCache *cache.BlockCache
	logger     logging.Logger

	verifyChecksums bool

	// maxTs is reserved for a future multi-version extension; the builder
	// (out of scope here) populates it. Present readers always see 0.
	maxTs uint64
}

// Open bootstraps an SST from file, reading its trailer, Bloom filter, and
// block metadata. id is the engine-assigned identifier used to key cached
// blocks.
func Open(id uint64, file vfs.RandomAccessFile, opts OpenOptions) (*SST, error) {
	logger := logging.OrDefault(opts.Logger)
	size := file.Size()
	if size < footerTrailerLen {
		return nil, ErrMalformedMeta
	}

	// 1. Read last 4 bytes -> bloom_offset.
	var tail [footerTrailerLen]byte
	if _, err := file.ReadAt(tail[:], size-footerTrailerLen); err != nil {
		return nil, err
	}
	bloomOffset, err := encoding.DecodeFixed32(tail[:])
	if err != nil {
		return nil, ErrMalformedMeta
	}
	if int64(bloomOffset) > size-footerTrailerLen {
		return nil, ErrMalformedMeta
	}

	// 2. Read [bloom_offset, size-4) -> decode Bloom filter (verifies CRC).
	bloomBuf := make([]byte, size-footerTrailerLen-int64(bloomOffset))
	if _, err := file.ReadAt(bloomBuf, int64(bloomOffset)); err != nil {
		return nil, err
	}
	bloom, err := filter.Decode(bloomBuf)
	if err != nil {
		logger.Fatalf("%sid=%d bloom section decode failed: %v", logging.NSBloom, id, err)
		return nil, err
	}

	// 3. Read 4 bytes at bloom_offset-4 -> block_meta_offset.
	if int64(bloomOffset) < footerTrailerLen {
		return nil, ErrMalformedMeta
	}
	var metaOffBuf [footerTrailerLen]byte
	if _, err := file.ReadAt(metaOffBuf[:], int64(bloomOffset)-footerTrailerLen); err != nil {
		return nil, err
	}
	blockMetaOffset, err := encoding.DecodeFixed32(metaOffBuf[:])
	if err != nil {
		return nil, ErrMalformedMeta
	}
	if int64(blockMetaOffset) > int64(bloomOffset)-footerTrailerLen {
		return nil, ErrMalformedMeta
	}

	// 4. Read [block_meta_offset, bloom_offset-4) -> decode block meta
	// (verifies CRC).
	metaBuf := make([]byte, int64(bloomOffset)-footerTrailerLen-int64(blockMetaOffset))
	if _, err := file.ReadAt(metaBuf, int64(blockMetaOffset)); err != nil {
		return nil, err
	}
	metas, err := DecodeBlockMeta(metaBuf)
	if err != nil {
		logger.Fatalf("%sid=%d block meta decode failed: %v", logging.NSSST, id, err)
		return nil, err
	}
	if len(metas) == 0 {
		return nil, ErrMalformedMeta
	}

	s := &SST{
		file:            file,
		size:            size,
		id:              id,
		blockMeta:       metas,
		blockMetaOffset: blockMetaOffset,
		// 5. Cache first_key and last_key from meta[0] and meta[last].
		firstKey:        metas[0].FirstKey,
		lastKey:         metas[len(metas)-1].LastKey,
		bloom:           bloom,
		blockCache:      opts.BlockCache,
		logger:          logger,
		verifyChecksums: opts.VerifyChecksums,
		// 6. max_ts is reserved; readers always see 0 until the builder
		// populates it in a later format version.
		maxTs: 0,
	}

	logger.Infof("%sopened id=%d blocks=%d size=%d", logging.NSSST, id, len(metas), size)
	return s, nil
}

// ID returns the engine-assigned identifier this SST was opened with.
func (s *SST) ID() uint64 { return s.id }

// NumOfBlocks returns the number of data blocks in the SST.
func (s *SST) NumOfBlocks() int { return len(s.blockMeta) }

// FirstKey returns the smallest key stored in the SST.
func (s *SST) FirstKey() []byte { return s.firstKey }

// LastKey returns the largest key stored in the SST.
func (s *SST) LastKey() []byte { return s.lastKey }

// MaxTS returns the SST's reserved maximum-timestamp field. It is always 0
// in this format version.
func (s *SST) MaxTS() uint64 { return s.maxTs }

// MayContain reports whether key could be present in the SST, consulting
// the Bloom filter. A false result means key is definitely absent; an SST
// opened without a Bloom filter always returns true.
func (s *SST) MayContain(key []byte) bool {
	if s.bloom == nil {
		return true
	}
	return s.bloom.MayContain(checksum.HashKey(key))
}

// FindBlockIdx returns the largest index i such that
// block_meta[i].FirstKey <= key, or 0 if key precedes every block's first
// key. The result correctly seeds a subsequent block iterator seek: if key
// is strictly greater than block_meta[i].LastKey, the block iterator
// reports invalid and the caller (SST Iterator) advances to block i+1.
func (s *SST) FindBlockIdx(key []byte) int {
	return FindBlockIdx(s.blockMeta, key)
}

// ReadBlock reads and decodes block idx directly from the file, verifying
// its trailing CRC32 (unless opened with VerifyChecksums disabled).
func (s *SST) ReadBlock(idx int) (*block.Block, error) {
	if idx < 0 || idx >= len(s.blockMeta) {
		return nil, ErrBlockIndexOutOfRange
	}

	start := int64(s.blockMeta[idx].Offset)
	end := int64(s.blockMetaOffset)
	if idx+1 < len(s.blockMeta) {
		end = int64(s.blockMeta[idx+1].Offset)
	}
	if end-start < footerTrailerLen {
		return nil, ErrMalformedMeta
	}

	buf := make([]byte, end-start)
	if _, err := s.file.ReadAt(buf, start); err != nil {
		return nil, err
	}

	crcOffset := len(buf) - footerTrailerLen
	encodedBlock := buf[:crcOffset]

	if s.verifyChecksums {
		wantCRC, err := encoding.DecodeFixed32(buf[crcOffset:])
		if err != nil {
			return nil, ErrMalformedMeta
		}
		if checksum.Value(encodedBlock) != wantCRC {
			s.logger.Fatalf("%sid=%d block %d checksum mismatch", logging.NSSST, s.id, idx)
			return nil, ErrChecksumMismatch
		}
	}

	blk, err := block.Decode(encodedBlock)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// ReadBlockCached reads block idx through the attached block cache, if
// any, deduplicating concurrent loads for the same (id, idx) key. Without
// a cache attached, it behaves identically to ReadBlock.
func (s *SST) ReadBlockCached(idx int) (*block.Block, error) {
	if s.blockCache == nil {
		return s.ReadBlock(idx)
	}

	key := cache.Key{SSTID: s.id, BlockIdx: idx}
	v, err := s.blockCache.TryGetWith(key, func() (any, error) {
		return s.ReadBlock(idx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*block.Block), nil
}
