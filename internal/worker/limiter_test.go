package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.WaitURL(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "api.exa.ai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewLimiter(0.001, 1)

	if !limiter.Allow("a.example") {
		t.Fatal("first call should be allowed")
	}
	if limiter.Allow("a.example") {
		t.Error("second call on same key should be throttled")
	}
	if !limiter.Allow("B.example") {
		t.Error("other key should have its own budget")
	}
	if limiter.Allow("b.EXAMPLE") {
		t.Error("keys should be case-insensitive")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("example.com") {
			t.Fatalf("call %d throttled with limiting disabled", i)
		}
	}

	var nilLimiter *Limiter
	if err := nilLimiter.Wait(context.Background(), "x"); err != nil {
		t.Errorf("nil limiter should not block: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.Allow("slow.example")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "slow.example"); err == nil {
		t.Error("expected error when context expires before clearance")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "http://example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestHostKey(t *testing.T) {
	host, err := HostKey("https://NASA.gov/mars?x=1")
	if err != nil {
		t.Fatalf("HostKey error: %v", err)
	}
	if host != "nasa.gov" {
		t.Errorf("HostKey = %q, want nasa.gov", host)
	}

	if _, err := HostKey("relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Sleep(ctx, time.Hour); err != context.Canceled {
		t.Fatalf("Sleep() = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Sleep() waited %v on a cancelled context", elapsed)
	}
}
