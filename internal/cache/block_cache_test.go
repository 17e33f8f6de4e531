package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestBlockCacheLoadsOnceAndCaches(t *testing.T) {
	c := NewBlockCache(16)
	var loads int32

	key := Key{SSTID: 1, BlockIdx: 0}
	loader := func() (any, error) {
		atomic.AddInt32(&loads, 1)
		return "block-data", nil
	}

	for i := 0; i < 5; i++ {
		v, err := c.TryGetWith(key, loader)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.(string) != "block-data" {
			t.Fatalf("got %v", v)
		}
	}

	if loads != 1 {
		t.Fatalf("expected exactly 1 load, got %d", loads)
	}
}

func TestBlockCacheConcurrentLoadDeduplication(t *testing.T) {
	c := NewBlockCache(16)
	var loads int32
	start := make(chan struct{})

	key := Key{SSTID: 7, BlockIdx: 3}
	loader := func() (any, error) {
		<-start
		atomic.AddInt32(&loads, 1)
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.TryGetWith(key, loader)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[idx] = v.(int)
		}(i)
	}
	close(start)
	wg.Wait()

	if loads != 1 {
		t.Fatalf("expected exactly 1 concurrent load, got %d", loads)
	}
	for i, v := range results {
		if v != 42 {
			t.Fatalf("goroutine %d saw %d, want 42", i, v)
		}
	}
}

func TestBlockCacheLoadErrorsNotCached(t *testing.T) {
	c := NewBlockCache(16)
	key := Key{SSTID: 1, BlockIdx: 0}
	wantErr := errors.New("read failed")

	attempt := 0
	loader := func() (any, error) {
		attempt++
		if attempt == 1 {
			return nil, wantErr
		}
		return "ok", nil
	}

	_, err := c.TryGetWith(key, loader)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected load error, got %v", err)
	}

	v, err := c.TryGetWith(key, loader)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if v.(string) != "ok" {
		t.Fatalf("got %v", v)
	}
}

func TestBlockCacheEviction(t *testing.T) {
	c := NewBlockCache(2)
	load := func(v any) Loader {
		return func() (any, error) { return v, nil }
	}

	_, _ = c.TryGetWith(Key{SSTID: 1, BlockIdx: 0}, load("a"))
	_, _ = c.TryGetWith(Key{SSTID: 1, BlockIdx: 1}, load("b"))
	_, _ = c.TryGetWith(Key{SSTID: 1, BlockIdx: 2}, load("c"))

	if c.Len() != 2 {
		t.Fatalf("expected capacity-bounded length 2, got %d", c.Len())
	}

	var evictedLoads int32
	_, _ = c.TryGetWith(Key{SSTID: 1, BlockIdx: 0}, func() (any, error) {
		atomic.AddInt32(&evictedLoads, 1)
		return "a-reloaded", nil
	})
	if evictedLoads != 1 {
		t.Fatal("expected the oldest entry to have been evicted and reloaded")
	}
}
