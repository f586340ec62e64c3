package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fatimetou23083/CacheFlow/cache"
	testredis "github.com/fatimetou23083/CacheFlow/internal/testutil/rediscontainer"
)

func TestMain(m *testing.M) {
	if err := testredis.Setup(); err != nil {
		fmt.Println("redis store tests skipped:", err)
		os.Exit(0)
	}

	code := m.Run()

	if err := testredis.Teardown(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: failed to stop redis test container:", err)
	}

	os.Exit(code)
}

func TestStoreSetGetDelete(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := fmt.Sprintf("redis:test:%d", time.Now().UnixNano())
	value := []byte("some-payload")

	if err := store.Set(ctx, key, value, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	payload, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(payload) != string(value) {
		t.Fatalf("Get() = %q, want %q", payload, value)
	}

	deleted, err := store.Delete(ctx, key)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("Delete() = %d, want 1", deleted)
	}

	if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreTTL(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("redis:ttl:%d", time.Now().UnixNano())
	ttl := 200 * time.Millisecond

	if err := store.Set(ctx, key, []byte("value"), ttl); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(ttl + 100*time.Millisecond)

	if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestStoreSetIfAbsent(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("redis:nx:%d", time.Now().UnixNano())

	stored, err := store.SetIfAbsent(ctx, key, []byte("first"), time.Minute)
	if err != nil {
		t.Fatalf("SetIfAbsent() error = %v", err)
	}
	if !stored {
		t.Fatal("SetIfAbsent() on missing key must store")
	}

	stored, err = store.SetIfAbsent(ctx, key, []byte("second"), time.Minute)
	if err != nil {
		t.Fatalf("SetIfAbsent() error = %v", err)
	}
	if stored {
		t.Fatal("SetIfAbsent() on existing key must not store")
	}

	payload, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(payload) != "first" {
		t.Fatalf("Get() = %q, want the original value", payload)
	}
}

func TestStoreKeysAndBatchDelete(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	prefix := fmt.Sprintf("redis:scan:%d", time.Now().UnixNano())
	var keys []string
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("%s:%d", prefix, i)
		keys = append(keys, key)
		if err := store.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	matched, err := store.Keys(ctx, prefix+":*")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(matched) != 3 {
		t.Fatalf("Keys() = %v, want 3 matches", matched)
	}

	deleted, err := store.Delete(ctx, keys...)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != 3 {
		t.Fatalf("Delete() = %d, want 3", deleted)
	}

	matched, err = store.Keys(ctx, prefix+":*")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(matched) != 0 {
		t.Fatalf("Keys() after delete = %v, want none", matched)
	}
}

func TestStoreUnlink(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("redis:unlink:%d", time.Now().UnixNano())
	if err := store.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	removed, err := store.Unlink(ctx, key)
	if err != nil {
		t.Fatalf("Unlink() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Unlink() = %d, want 1", removed)
	}
}

func TestStorePing(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestStoreContextCancellation(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Set(ctx, "any", []byte("value"), 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStoreConcurrentSetGet(t *testing.T) {
	store := NewStore(Options{Addr: testredis.Addr()})

	const workers = 32
	const opsPerWorker = 100

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("redis:concurrent:%d:%d", worker, i)
				val := []byte(key)

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if err := store.Set(ctx, key, val, time.Second); err != nil {
					errCh <- fmt.Errorf("worker %d set failed: %w", worker, err)
					cancel()
					return
				}
				payload, err := store.Get(ctx, key)
				cancel()
				if err != nil {
					errCh <- fmt.Errorf("worker %d get failed: %w", worker, err)
					return
				}
				if string(payload) != string(val) {
					errCh <- fmt.Errorf("worker %d mismatch: got %q want %q", worker, payload, val)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent op failed: %v", err)
	}
}
