package sst

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/aalhour/lsmtable/internal/block"
	"github.com/aalhour/lsmtable/internal/cache"
	"github.com/aalhour/lsmtable/internal/checksum"
	"github.com/aalhour/lsmtable/internal/filter"
	"github.com/aalhour/lsmtable/internal/vfs"
)

// buildSSTFile assembles a complete SST file on disk from a list of
// blocks, each a list of (key, value) pairs already in sorted order, and
// returns the path. bitsPerKey controls the Bloom filter built over every
// key across all blocks.
func buildSSTFile(t *testing.T, dir, name string, blocks [][][2]string, bitsPerKey int) string {
	t.Helper()

	fs := vfs.Default()
	path := filepath.Join(dir, name)
	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var buf []byte
	var metas []BlockMeta
	var hashes []uint32

	for _, kvs := range blocks {
		offset := uint32(len(buf))
		b := block.NewBuilder()
		for _, kv := range kvs {
			b.Add([]byte(kv[0]), []byte(kv[1]))
			hashes = append(hashes, checksum.HashKey([]byte(kv[0])))
		}
		blk := b.Build()
		encoded := blk.Encode()
		buf = append(buf, encoded...)
		buf = appendU32(buf, checksum.Value(encoded))

		metas = append(metas, BlockMeta{
			Offset:   offset,
			FirstKey: []byte(kvs[0][0]),
			LastKey:  []byte(kvs[len(kvs)-1][0]),
		})
	}

	blockMetaOffset := uint32(len(buf))
	buf = append(buf, EncodeBlockMeta(metas)...)
	buf = appendU32(buf, blockMetaOffset)

	bloomOffset := uint32(len(buf))
	bl := filter.Build(hashes, bitsPerKey)
	buf = append(buf, bl.Encode()...)
	buf = appendU32(buf, bloomOffset)

	if _, err := f.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func openSST(t *testing.T, path string, opts OpenOptions) *SST {
	t.Helper()
	f, err := vfs.Default().OpenRandomAccess(path)
	if err != nil {
		t.Fatalf("OpenRandomAccess: %v", err)
	}
	s, err := Open(1, f, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

// buildTwoBlockSST builds an SST with two blocks: [("a","1"),("b","2")] and
// [("c","3"),("d","4")].
func buildTwoBlockSST(t *testing.T, dir string) *SST {
	t.Helper()
	blocks := [][][2]string{
		{{"a", "1"}, {"b", "2"}},
		{{"c", "3"}, {"d", "4"}},
	}
	path := buildSSTFile(t, dir, "s2.sst", blocks, 10)
	return openSST(t, path, OpenOptions{VerifyChecksums: true})
}

func TestSSTOpenMetadata(t *testing.T) {
	dir := t.TempDir()
	s := buildTwoBlockSST(t, dir)

	if string(s.FirstKey()) != "a" {
		t.Errorf("FirstKey = %q, want %q", s.FirstKey(), "a")
	}
	if string(s.LastKey()) != "d" {
		t.Errorf("LastKey = %q, want %q", s.LastKey(), "d")
	}
	if s.NumOfBlocks() != 2 {
		t.Errorf("NumOfBlocks = %d, want 2", s.NumOfBlocks())
	}
	if s.MaxTS() != 0 {
		t.Errorf("MaxTS = %d, want 0", s.MaxTS())
	}
}

func TestSSTFindBlockIdx(t *testing.T) {
	dir := t.TempDir()
	s := buildTwoBlockSST(t, dir)

	cases := []struct {
		key  string
		want int
	}{
		{"a", 0},
		{"b", 0},
		{"c", 1},
		{"e", 1},
		{"_", 0},
	}
	for _, tc := range cases {
		if got := s.FindBlockIdx([]byte(tc.key)); got != tc.want {
			t.Errorf("FindBlockIdx(%q) = %d, want %d", tc.key, got, tc.want)
		}
	}
}

// Seeking past the last key of one block must land in the next block.
func TestSSTSeekAcrossBlocks(t *testing.T) {
	dir := t.TempDir()
	s := buildTwoBlockSST(t, dir)

	it, err := CreateAndSeekToKey(s, []byte("b@"))
	if err != nil {
		t.Fatalf("CreateAndSeekToKey: %v", err)
	}
	if !it.IsValid() {
		t.Fatal("expected valid iterator")
	}
	if string(it.Key()) != "c" || string(it.Value()) != "3" {
		t.Fatalf("got (%q,%q), want (c,3)", it.Key(), it.Value())
	}
}

func TestSSTIteratorSeekToFirst(t *testing.T) {
	dir := t.TempDir()
	s := buildTwoBlockSST(t, dir)

	it, err := CreateAndSeekToFirst(s)
	if err != nil {
		t.Fatalf("CreateAndSeekToFirst: %v", err)
	}

	var got [][2]string
	for it.IsValid() {
		got = append(got, [2]string{string(it.Key()), string(it.Value())})
		if err := it.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	want := [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSSTSeekPastEnd(t *testing.T) {
	dir := t.TempDir()
	s := buildTwoBlockSST(t, dir)

	it, err := CreateAndSeekToKey(s, []byte("z"))
	if err != nil {
		t.Fatalf("CreateAndSeekToKey: %v", err)
	}
	if it.IsValid() {
		t.Fatal("expected invalid iterator past the last key")
	}
}

func TestSSTMayContain(t *testing.T) {
	dir := t.TempDir()
	s := buildTwoBlockSST(t, dir)

	if !s.MayContain([]byte("a")) {
		t.Error("MayContain(a) = false, want true (inserted key)")
	}
	if !s.MayContain([]byte("d")) {
		t.Error("MayContain(d) = false, want true (inserted key)")
	}
}

func TestSSTReadBlockCorruption(t *testing.T) {
	dir := t.TempDir()
	path := buildSSTFile(t, dir, "corrupt.sst", [][][2]string{{{"a", "1"}, {"b", "2"}}}, 10)

	raw, err := vfs.Default().OpenRandomAccess(path)
	if err != nil {
		t.Fatalf("OpenRandomAccess: %v", err)
	}
	s, err := Open(1, raw, OpenOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Flip a byte inside the first (and only) data block on disk, then
	// reopen against the corrupted copy.
	corruptPath := filepath.Join(dir, "corrupt2.sst")
	flipByteOnDisk(t, path, corruptPath, 0)

	raw2, err := vfs.Default().OpenRandomAccess(corruptPath)
	if err != nil {
		t.Fatalf("OpenRandomAccess: %v", err)
	}
	s2, err := Open(1, raw2, OpenOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open (trailer untouched): %v", err)
	}

	if _, err := s2.ReadBlock(0); err != ErrChecksumMismatch {
		t.Fatalf("ReadBlock after corruption: got %v, want ErrChecksumMismatch", err)
	}

	// Sanity: the uncorrupted copy still reads fine.
	if _, err := s.ReadBlock(0); err != nil {
		t.Fatalf("ReadBlock on clean file: %v", err)
	}
}

func flipByteOnDisk(t *testing.T, src, dst string, offset int64) {
	t.Helper()
	data := readAllFile(t, src)
	data[offset] ^= 0xFF
	writeAllFile(t, dst, data)
}

func readAllFile(t *testing.T, path string) []byte {
	t.Helper()
	f, err := vfs.Default().OpenRandomAccess(path)
	if err != nil {
		t.Fatalf("OpenRandomAccess: %v", err)
	}
	defer f.Close()
	buf := make([]byte, f.Size())
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	return buf
}

func writeAllFile(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := vfs.Default().Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSSTReadBlockCached(t *testing.T) {
	dir := t.TempDir()
	path := buildSSTFile(t, dir, "cached.sst", [][][2]string{{{"a", "1"}, {"b", "2"}}}, 10)

	f, err := vfs.Default().OpenRandomAccess(path)
	if err != nil {
		t.Fatalf("OpenRandomAccess: %v", err)
	}
	c := cache.NewBlockCache(16)
	s, err := Open(1, f, OpenOptions{VerifyChecksums: true, BlockCache: c})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	blk1, err := s.ReadBlockCached(0)
	if err != nil {
		t.Fatalf("ReadBlockCached: %v", err)
	}
	blk2, err := s.ReadBlockCached(0)
	if err != nil {
		t.Fatalf("ReadBlockCached: %v", err)
	}
	if blk1 != blk2 {
		t.Error("expected the same cached *block.Block pointer across calls")
	}
	if hits, _ := c.Stats(); hits == 0 {
		t.Error("expected at least one cache hit")
	}
}

func TestSSTTruncatedFileRejected(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.Default()
	path := filepath.Join(dir, "tiny.sst")
	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Too short to even contain a bloom_offset.
	if _, err := f.Write([]byte{0, 0}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	raw, err := fs.OpenRandomAccess(path)
	if err != nil {
		t.Fatalf("OpenRandomAccess: %v", err)
	}
	if _, err := Open(1, raw, OpenOptions{}); err == nil {
		t.Fatal("expected Open to fail on a truncated file")
	}
}
