package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type progressStub struct {
	JobID string  `json:"job_id"`
	Pct   float64 `json:"pct"`
}

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := progressStub{JobID: "abc", Pct: 42.5}
	if err := mc.Set(ctx, "backtest:job:abc", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out progressStub
	if err := mc.Get(ctx, "backtest:job:abc", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var s string
	if err := mc.Get(context.Background(), "absent", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "signal:BTC", "x", time.Minute)
	_ = mc.Set(ctx, "signal:ETH", "y", time.Minute)
	_ = mc.Set(ctx, "candles:BTC", "z", time.Minute)

	if err := mc.DeleteByPattern(ctx, "signal:*"); err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}

	var s string
	if err := mc.Get(ctx, "signal:BTC", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected signal:BTC gone, got %v", err)
	}
	if err := mc.Get(ctx, "candles:BTC", &s); err != nil {
		t.Fatalf("candles:BTC should survive: %v", err)
	}
}

func TestMemoryCacheIncrement(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := mc.Increment(ctx, "hits")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}
