package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/authconnect/component"
)

// Start starts c and stops it when the test ends. Stop errors fail the
// test.
func Start(t testing.TB, c component.Component) {
	t.Helper()
	if err := c.Start(t.Context()); err != nil {
		t.Fatalf("start %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		if err := c.Stop(context.Background()); err != nil {
			t.Errorf("stop %s: %v", c.Name(), err)
		}
	})
}

// Context is the test's context bounded by timeout, so a stuck provider
// fails the test instead of hanging it.
func Context(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(t.Context(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// Eventually polls cond every few milliseconds until it holds, failing the
// test with msg after timeout.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-tick.C:
		case <-deadline:
			if cond() {
				return
			}
			t.Fatalf("condition not met within %v: %s", timeout, msg)
		}
	}
}
