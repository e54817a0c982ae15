package supervisor

import (
	"testing"
	"time"
)

func TestDefaultBackoffDelays(t *testing.T) {
	b := DefaultBackoff()
	want := []time.Duration{
		200 * time.Millisecond,
		300 * time.Millisecond,
		450 * time.Millisecond,
		675 * time.Millisecond,
		1012500 * time.Microsecond,
		1500 * time.Millisecond,
		1500 * time.Millisecond,
	}
	for n, w := range want {
		if got := b.Delay(n); got != w {
			t.Errorf("Delay(%d) = %v, want %v", n, got, w)
		}
	}
}

func TestBackoffPolicyBound(t *testing.T) {
	b := DefaultBackoff()
	p := b.policy()
	waits := 0
	for {
		d, stop := p.Next()
		if stop {
			break
		}
		if d > 1500*time.Millisecond {
			t.Errorf("wait %d is %v, over the cap", waits, d)
		}
		waits++
		if waits > 100 {
			t.Fatal("policy never stops")
		}
	}
	// Eight attempts have seven waits between them.
	if waits != b.MaxAttempts-1 {
		t.Errorf("expected %d waits, got %d", b.MaxAttempts-1, waits)
	}
}
