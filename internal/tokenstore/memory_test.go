package tokenstore

import (
	"context"
	"testing"
	"time"
)

// testBackendContract checks behavior every Backend must share.
func testBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := b.Get(ctx, "s1", KeyToken); err != nil || ok {
		t.Fatalf("Get() on empty backend = %v, %v", ok, err)
	}

	if err := b.Set(ctx, "s1", map[string]string{KeyToken: "abc", KeyEmail: "a@example.com"}); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	if v, ok, err := b.Get(ctx, "s1", KeyToken); err != nil || !ok || v != "abc" {
		t.Fatalf("Get(token) = %q, %v, %v", v, ok, err)
	}

	if err := b.Set(ctx, "s1", map[string]string{KeyToken: "def"}); err != nil {
		t.Fatalf("Set() overwrite unexpected error: %v", err)
	}
	if v, _, _ := b.Get(ctx, "s1", KeyToken); v != "def" {
		t.Fatalf("Get(token) after overwrite = %q", v)
	}
	if v, _, _ := b.Get(ctx, "s1", KeyEmail); v != "a@example.com" {
		t.Fatalf("overwrite of token dropped user_email: %q", v)
	}

	if _, ok, _ := b.Get(ctx, "s2", KeyToken); ok {
		t.Fatal("scope s2 sees scope s1's value")
	}

	for i := 0; i < 2; i++ {
		if err := b.Delete(ctx, "s1", KeyToken, KeyEmail, KeyRole); err != nil {
			t.Fatalf("Delete() #%d unexpected error: %v", i+1, err)
		}
	}
	if _, ok, _ := b.Get(ctx, "s1", KeyToken); ok {
		t.Fatal("token still present after Delete()")
	}

	if err := b.Delete(ctx, "never-written", KeyToken); err != nil {
		t.Fatalf("Delete() on absent scope: %v", err)
	}
}

func TestMemoryBackend_Contract(t *testing.T) {
	testBackendContract(t, NewMemoryBackend(time.Hour))
}

func TestMemoryBackend_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewMemoryBackend(time.Minute)
	b.now = func() time.Time { return now }

	b.Set(ctx, "s1", map[string]string{KeyToken: "abc"})

	now = now.Add(59 * time.Second)
	if _, ok, _ := b.Get(ctx, "s1", KeyToken); !ok {
		t.Fatal("token expired early")
	}

	// the read above slid the expiry
	now = now.Add(59 * time.Second)
	if _, ok, _ := b.Get(ctx, "s1", KeyToken); !ok {
		t.Fatal("read did not refresh expiry")
	}

	now = now.Add(30 * time.Second)
	b.Set(ctx, "s1", map[string]string{KeyEmail: "a@example.com"})
	now = now.Add(59 * time.Second)
	if v, _, _ := b.Get(ctx, "s1", KeyEmail); v != "a@example.com" {
		t.Fatal("write did not refresh expiry")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := b.Get(ctx, "s1", KeyToken); ok {
		t.Fatal("token survived past its ttl")
	}
}

func TestMemoryBackend_Prune(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewMemoryBackend(time.Minute)
	b.now = func() time.Time { return now }

	b.Set(ctx, "old", map[string]string{KeyToken: "a"})
	now = now.Add(30 * time.Second)
	b.Set(ctx, "new", map[string]string{KeyToken: "b"})
	now = now.Add(45 * time.Second)

	n, err := b.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, ok, _ := b.Get(ctx, "new", KeyToken); !ok {
		t.Error("Prune() removed an unexpired scope")
	}
}
