package llm

import (
	"testing"
	"time"
)

func TestGuard_OpensAndRecovers(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGuard(2, time.Minute)
	g.now = func() time.Time { return now }

	g.RecordFailure()
	if !g.Allow() {
		t.Fatal("one failure should not open the guard")
	}

	g.RecordFailure()
	if g.Allow() {
		t.Fatal("guard should be open after two failures")
	}
	if !g.DisabledUntil().Equal(now.Add(time.Minute)) {
		t.Errorf("unexpected disabled-until: %v", g.DisabledUntil())
	}

	now = now.Add(61 * time.Second)
	if !g.Allow() {
		t.Fatal("guard should allow calls after cooldown")
	}

	g.RecordSuccess()
	if !g.DisabledUntil().IsZero() {
		t.Error("success should reset the guard")
	}
}

func TestGuard_NilAndDisabled(t *testing.T) {
	var g *Guard
	g.RecordFailure()
	g.RecordSuccess()
	if !g.Allow() {
		t.Error("nil guard must allow calls")
	}

	off := NewGuard(0, time.Minute)
	for i := 0; i < 10; i++ {
		off.RecordFailure()
	}
	if !off.Allow() {
		t.Error("guard with no threshold must allow calls")
	}
}
