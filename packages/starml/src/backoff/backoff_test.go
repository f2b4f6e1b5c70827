package backoff_test

import (
	"errors"
	"testing"
	"time"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/backoff"
	"github.com/google/go-cmp/cmp"
)

var errBroken = errors.New("broken document")

// failUntilReady fails key every time the tracker allows it, recording each delay.
func failUntilReady(t *testing.T, tracker *backoff.Tracker[string], key string, failures int) []time.Duration {
	t.Helper()
	var waits []time.Duration
	for i := 0; i < failures; i++ {
		ran, err := tracker.TryRun(key, func() error { return errBroken })
		if !ran || !errors.Is(err, errBroken) {
			t.Fatalf("failure %d: ran=%v err=%v", i, ran, err)
		}
		state, ok := tracker.State(key)
		if !ok {
			t.Fatalf("failure %d: no backoff state", i)
		}
		waits = append(waits, state.Duration)
		tracker.Tick(state.Duration)
	}
	return waits
}

func TestTracker(t *testing.T) {
	t.Run("should grow delays by the rule up to the maximum", func(t *testing.T) {
		tracker := backoff.NewTracker[string](backoff.DefaultRule)
		got := failUntilReady(t, tracker, "menu", 6)
		expected := []time.Duration{
			50 * time.Millisecond,
			200 * time.Millisecond,
			800 * time.Millisecond,
			3200 * time.Millisecond,
			5 * time.Second,
			5 * time.Second,
		}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Errorf("delays mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should skip actions until the delay passes", func(t *testing.T) {
		tracker := backoff.NewTracker[string](backoff.DefaultRule)
		if _, err := tracker.TryRun("menu", func() error { return errBroken }); err == nil {
			t.Fatalf("expected the action error")
		}
		tracker.Tick(30 * time.Millisecond)
		calls := 0
		ran, err := tracker.TryRun("menu", func() error { calls++; return nil })
		if ran || err != nil || calls != 0 {
			t.Errorf("TryRun before the delay: ran=%v err=%v calls=%d", ran, err, calls)
		}
		tracker.Tick(20 * time.Millisecond)
		if !tracker.CanRun("menu") {
			t.Errorf("CanRun should be true once the delay has passed")
		}
	})

	t.Run("should reset after success", func(t *testing.T) {
		tracker := backoff.NewTracker[string](backoff.DefaultRule)
		failUntilReady(t, tracker, "menu", 3)
		ran, err := tracker.TryRun("menu", func() error { return nil })
		if !ran || err != nil {
			t.Fatalf("TryRun success: ran=%v err=%v", ran, err)
		}
		if tracker.Len() != 0 {
			t.Errorf("expected no pending keys after success")
		}
		got := failUntilReady(t, tracker, "menu", 1)
		if got[0] != 50*time.Millisecond {
			t.Errorf("first delay after reset = %v, want 50ms", got[0])
		}
	})

	t.Run("should track keys independently", func(t *testing.T) {
		tracker := backoff.NewTracker[string](backoff.DefaultRule)
		failUntilReady(t, tracker, "a", 2)
		if !tracker.CanRun("b") {
			t.Errorf("an unrelated key should run")
		}
		tracker.Remove("a")
		if !tracker.CanRun("a") {
			t.Errorf("a removed key should run")
		}
	})

	t.Run("should back off when the action panics", func(t *testing.T) {
		tracker := backoff.NewTracker[string](backoff.DefaultRule)
		func() {
			defer func() {
				if r := recover(); r != "boom" {
					t.Errorf("recovered %v, want the original panic", r)
				}
			}()
			tracker.TryRun("menu", func() error { panic("boom") })
		}()
		state, ok := tracker.State("menu")
		if !ok || state.Duration != 50*time.Millisecond {
			t.Errorf("State() = %+v, %v; want a 50ms backoff", state, ok)
		}
		if tracker.CanRun("menu") {
			t.Errorf("a panicking action should not run again before the delay")
		}
	})

	t.Run("should return results", func(t *testing.T) {
		tracker := backoff.NewTracker[int](backoff.Rule{Initial: time.Second, Max: time.Second, Multiplier: 2})
		result, ran, err := backoff.TryRunResult(tracker, 1, func() (string, error) { return "root", nil })
		if result != "root" || !ran || err != nil {
			t.Errorf("TryRunResult() = %q, %v, %v", result, ran, err)
		}
	})
}
