package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/eleven-am/interview-coach/internal/shared"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestCache_SetGet(t *testing.T) {
	cache, mr := setupTestCache(t, time.Hour)
	ctx := context.Background()
	hash := hashText("resume")

	report := Report{Score: 50, Summary: "ok", Strengths: []string{"x"}}
	if err := cache.Set(ctx, hash, report); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("resume_score:" + hash) {
		t.Error("expected key under resume_score prefix")
	}
	if ttl := mr.TTL("resume_score:" + hash); ttl != time.Hour {
		t.Errorf("expected 1h ttl, got %v", ttl)
	}

	got, err := cache.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Score != 50 || got.Summary != "ok" || len(got.Strengths) != 1 {
		t.Errorf("unexpected report %+v", got)
	}
}

func TestCache_Miss(t *testing.T) {
	cache, _ := setupTestCache(t, time.Hour)

	_, err := cache.Get(context.Background(), "nope")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCache_Expires(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, "h", Report{Score: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := cache.Get(ctx, "h"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected expired entry, got %v", err)
	}
}

func TestNewCache_DefaultTTL(t *testing.T) {
	cache := NewCache(nil, 0)
	if cache.ttl != DefaultCacheTTL {
		t.Errorf("expected default ttl, got %v", cache.ttl)
	}
}

func TestHashText(t *testing.T) {
	a, b := hashText("same"), hashText("same")
	if a != b {
		t.Error("expected stable hash")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %d chars", len(a))
	}
	if hashText("other") == a {
		t.Error("expected different hash for different text")
	}
}
