package resilience

import (
	"testing"
	"time"
)

func TestKeyedLimiter_PerKeyBudget(t *testing.T) {
	k := NewKeyedLimiter(LimitConfig{Rate: 1, Burst: 2})
	now := time.Unix(1_700_000_000, 0)
	k.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !k.Allow("10.0.0.1") {
			t.Fatalf("request %d should fit the burst", i)
		}
	}
	if k.Allow("10.0.0.1") {
		t.Error("third request should be limited")
	}
	if !k.Allow("10.0.0.2") {
		t.Error("another client has its own bucket")
	}

	now = now.Add(time.Second)
	if !k.Allow("10.0.0.1") {
		t.Error("one token should have refilled after a second")
	}
}

func TestKeyedLimiter_DropsIdleBuckets(t *testing.T) {
	k := NewKeyedLimiter(LimitConfig{Rate: 5, TTL: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	k.now = func() time.Time { return now }

	k.Allow("a")
	k.Allow("b")
	if k.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", k.Len())
	}

	now = now.Add(2 * time.Minute)
	k.Allow("b")
	if k.Len() != 1 {
		t.Errorf("expected the idle bucket to be dropped, got %d", k.Len())
	}
}

func TestLimitConfig_Defaults(t *testing.T) {
	if (LimitConfig{}).Enabled() {
		t.Error("zero rate should be disabled")
	}
	k := NewKeyedLimiter(LimitConfig{Rate: 0.5})
	if k.cfg.Burst != 1 || k.cfg.TTL != 5*time.Minute {
		t.Errorf("unexpected defaults %+v", k.cfg)
	}
}
