package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type weatherValue struct {
	City string  `json:"city"`
	Temp float64 `json:"temp"`
}

func newTestManager(fs *fakeStore, opts ...ManagerOption) *Manager {
	chain := WithEagerDeletes(WithStatistics(NewWriter(fs), NewStatisticsCollector()), fs)
	opts = append([]ManagerOption{WithLogger(discardLogger())}, opts...)
	return NewManager(chain, opts...)
}

func TestViewReadThrough(t *testing.T) {
	fs := newFakeStore()
	m := newTestManager(fs)
	view := NewView[weatherValue](m, "weather")
	ctx := context.Background()

	calls := 0
	producer := func(context.Context) (weatherValue, error) {
		calls++
		return weatherValue{City: "paris", Temp: 21.5}, nil
	}

	first, err := view.Get(ctx, "paris", producer)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("producer calls = %d, want exactly one on first miss", calls)
	}

	second, err := view.Get(ctx, "paris", producer)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("producer calls = %d, second Get must be served from cache", calls)
	}
	if first != second {
		t.Fatalf("Get() = %+v then %+v, want identical values", first, second)
	}

	if _, err := fs.Get(ctx, StoreKey("weather", "paris")); err != nil {
		t.Fatalf("store entry missing after read-through: %v", err)
	}
}

func TestViewProducerErrorWritesNothing(t *testing.T) {
	fs := newFakeStore()
	view := NewView[weatherValue](newTestManager(fs), "weather")

	boom := errors.New("upstream down")
	_, err := view.Get(context.Background(), "paris", func(context.Context) (weatherValue, error) {
		return weatherValue{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want producer error", err)
	}
	if sets := fs.commandsWithPrefix("SET"); len(sets) != 0 {
		t.Fatalf("producer failure must not write, got %v", sets)
	}
}

func TestViewUnlessPredicateSkipsStore(t *testing.T) {
	fs := newFakeStore()
	m := newTestManager(fs)
	view := NewView(m, "currencies", Unless(func(v []string) bool { return len(v) == 0 }))

	value, err := view.Get(context.Background(), "all", func(context.Context) ([]string, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(value) != 0 {
		t.Fatalf("Get() = %v, want the produced empty result", value)
	}
	if sets := fs.commandsWithPrefix("SET"); len(sets) != 0 {
		t.Fatalf("excluded result must not be stored, got %v", sets)
	}
}

func TestPutOverwritesWithoutMerge(t *testing.T) {
	fs := newFakeStore()
	view := NewView[weatherValue](newTestManager(fs), "weather")
	ctx := context.Background()

	if err := view.Put(ctx, "paris", weatherValue{City: "paris", Temp: 10}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := view.Put(ctx, "paris", weatherValue{City: "paris", Temp: 30}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := view.Get(ctx, "paris", func(context.Context) (weatherValue, error) {
		t.Fatal("producer must not run, entry exists")
		return weatherValue{}, nil
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Temp != 30 {
		t.Fatalf("Get().Temp = %v, want the second write only", got.Temp)
	}
}

func TestEvictAllInvalidatesEveryNamedCache(t *testing.T) {
	fs := newFakeStore()
	m := newTestManager(fs)
	ctx := context.Background()

	for _, pair := range []string{"USD+EUR", "USD+GBP"} {
		if err := m.PutBytes(ctx, "currency", pair, []byte("1")); err != nil {
			t.Fatalf("PutBytes() error = %v", err)
		}
	}
	if err := m.PutBytes(ctx, "currencies", "all", []byte("[]")); err != nil {
		t.Fatalf("PutBytes() error = %v", err)
	}

	if err := m.EvictAll(ctx, "currency", "currencies"); err != nil {
		t.Fatalf("EvictAll() error = %v", err)
	}

	for _, pattern := range []string{ClearPattern("currency"), ClearPattern("currencies")} {
		keys, err := fs.Keys(ctx, pattern)
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		if len(keys) != 0 {
			t.Fatalf("keys remaining after EvictAll: %v", keys)
		}
	}
	if dels := fs.commandsWithPrefix("DEL"); len(dels) != 2 {
		t.Fatalf("expected one batched DEL per cache, got %v", dels)
	}
}

func TestSeasonalTTLResolvedOnEveryWrite(t *testing.T) {
	fs := newFakeStore()
	now := date(2026, time.July, 15)
	m := newTestManager(fs, WithClock(func() time.Time { return now }))
	view := NewView[weatherValue](m, "weather")
	ctx := context.Background()

	if err := view.Put(ctx, "paris", weatherValue{City: "paris"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ttl := fs.ttls[StoreKey("weather", "paris")]; ttl != 5*time.Minute {
		t.Fatalf("summer write ttl = %v, want 5m", ttl)
	}

	// The same manager crossing a season boundary applies the new band
	// without being rebuilt.
	now = date(2027, time.January, 1)
	if err := view.Put(ctx, "oslo", weatherValue{City: "oslo"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ttl := fs.ttls[StoreKey("weather", "oslo")]; ttl != 30*time.Minute {
		t.Fatalf("winter write ttl = %v, want 30m", ttl)
	}
}

func TestTransientReadFailureDegradesToProducer(t *testing.T) {
	fs := newFakeStore()
	fs.getErr = errors.New("connection refused")
	view := NewView[weatherValue](newTestManager(fs), "weather")

	got, err := view.Get(context.Background(), "paris", func(context.Context) (weatherValue, error) {
		return weatherValue{City: "paris", Temp: 18}, nil
	})
	if err != nil {
		t.Fatalf("Get() with failing store = %v, want live computation", err)
	}
	if got.Temp != 18 {
		t.Fatalf("Get() = %+v, want the produced value", got)
	}
}

func TestManagerNamesAreTracked(t *testing.T) {
	fs := newFakeStore()
	m := newTestManager(fs)
	NewView[weatherValue](m, "weather")
	NewView[[]string](m, "currencies")

	names := m.Names()
	if len(names) != 2 || names[0] != "currencies" || names[1] != "weather" {
		t.Fatalf("Names() = %v, want sorted registered caches", names)
	}
}
