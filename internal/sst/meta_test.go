package sst

import "testing"

func sampleMeta() []BlockMeta {
	return []BlockMeta{
		{Offset: 0, FirstKey: []byte("a"), LastKey: []byte("b")},
		{Offset: 100, FirstKey: []byte("c"), LastKey: []byte("d")},
		{Offset: 250, FirstKey: []byte("e"), LastKey: []byte("f")},
	}
}

// Decoding an encoded block meta section must reproduce the original entries.
func TestBlockMetaRoundTrip(t *testing.T) {
	want := sampleMeta()
	encoded := EncodeBlockMeta(want)

	got, err := DecodeBlockMeta(encoded)
	if err != nil {
		t.Fatalf("DecodeBlockMeta: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Offset != want[i].Offset {
			t.Errorf("entry %d: offset = %d, want %d", i, got[i].Offset, want[i].Offset)
		}
		if string(got[i].FirstKey) != string(want[i].FirstKey) {
			t.Errorf("entry %d: FirstKey = %q, want %q", i, got[i].FirstKey, want[i].FirstKey)
		}
		if string(got[i].LastKey) != string(want[i].LastKey) {
			t.Errorf("entry %d: LastKey = %q, want %q", i, got[i].LastKey, want[i].LastKey)
		}
	}
}

// Flipping a bit in the CRC-covered entries (everything after the count
// field) causes decode to fail with a checksum mismatch.
func TestBlockMetaCorruptedByteFailsChecksum(t *testing.T) {
	encoded := EncodeBlockMeta(sampleMeta())

	for _, idx := range []int{4, len(encoded) / 2, len(encoded) - 5} {
		corrupted := append([]byte(nil), encoded...)
		corrupted[idx] ^= 0x01
		if _, err := DecodeBlockMeta(corrupted); err != ErrChecksumMismatch {
			t.Errorf("flipping byte %d: got err %v, want ErrChecksumMismatch", idx, err)
		}
	}
}

func TestBlockMetaTruncatedBuffer(t *testing.T) {
	encoded := EncodeBlockMeta(sampleMeta())
	// Truncate mid-entry: the last four bytes are no longer the CRC, so
	// verification fails (ErrChecksumMismatch) before any entry is parsed.
	truncated := encoded[:len(encoded)-10]
	if _, err := DecodeBlockMeta(truncated); err == nil {
		t.Fatal("expected an error decoding a truncated meta buffer")
	}
}

func TestBlockMetaEmpty(t *testing.T) {
	encoded := EncodeBlockMeta(nil)
	got, err := DecodeBlockMeta(encoded)
	if err != nil {
		t.Fatalf("DecodeBlockMeta: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d entries, want 0", len(got))
	}
}

// FindBlockIdx picks the last block whose first key is <= the target.
func TestFindBlockIdx(t *testing.T) {
	metas := sampleMeta()

	cases := []struct {
		key  string
		want int
	}{
		{"a", 0},
		{"b", 0},
		{"bz", 0},
		{"c", 1},
		{"d5", 1},
		{"e", 2},
		{"zzz", 2},
		{"_", 0},
	}
	for _, tc := range cases {
		if got := FindBlockIdx(metas, []byte(tc.key)); got != tc.want {
			t.Errorf("FindBlockIdx(%q) = %d, want %d", tc.key, got, tc.want)
		}
	}
}
