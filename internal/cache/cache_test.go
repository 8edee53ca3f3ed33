package cache

import (
	"context"
	"testing"
	"time"

	"clima/internal/models"
)

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New(10 * time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", models.Reading{City: "Vienna", TempC: 3})
	got, ok := c.Get(ctx, "k")
	if !ok || got.City != "Vienna" {
		t.Fatalf("expected hit, got %+v ok=%v", got, ok)
	}

	now = now.Add(11 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCacheSetEvictsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New(time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "old", models.Reading{City: "A"})
	now = now.Add(2 * time.Minute)
	c.Set(ctx, "new", models.Reading{City: "B"})
	if len(c.items) != 1 {
		t.Fatalf("expected expired entry to be evicted, have %d items", len(c.items))
	}
}

func TestKeys(t *testing.T) {
	if got := CoordsKey(47.49791, 19.04023); got != "coords:47.50,19.04" {
		t.Fatalf("unexpected coords key %q", got)
	}
	if CityKey("  New   York ") != CityKey("new york") {
		t.Fatalf("expected city keys to normalise case and whitespace")
	}
}

func TestNop(t *testing.T) {
	var n Nop
	n.Set(context.Background(), "k", models.Reading{City: "X"})
	if _, ok := n.Get(context.Background(), "k"); ok {
		t.Fatalf("expected miss")
	}
}
