// Package backoff delays retries of failing operations by exponentially increasing intervals.
package backoff

import (
	"time"
)

// Rule computes the delay after each consecutive failure.
type Rule struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultRule waits 50ms after the first failure, multiplying by 4 up to 5s.
var DefaultRule = Rule{Initial: 50 * time.Millisecond, Max: 5 * time.Second, Multiplier: 4}

// First returns the delay after a first failure
func (r Rule) First() time.Duration {
	return min(r.Initial, r.Max)
}

// Next returns the delay following previous after another failure. The delay never decreases.
func (r Rule) Next(previous time.Duration) time.Duration {
	next := time.Duration(float64(previous) * r.Multiplier)
	if next < previous {
		next = previous
	}
	return min(next, r.Max)
}

// State is the backoff of one key: the current delay and the time waited so far.
type State struct {
	Duration time.Duration
	Elapsed  time.Duration
}

// Ready reports whether the delay has passed
func (s *State) Ready() bool {
	return s.Elapsed >= s.Duration
}

// Tracker tracks the backoff of failing operations by key.
type Tracker[K comparable] struct {
	rule   Rule
	states map[K]*State
}

// NewTracker creates a new Tracker using rule
func NewTracker[K comparable](rule Rule) *Tracker[K] {
	return &Tracker[K]{rule: rule, states: map[K]*State{}}
}

// Rule returns the rule in use
func (t *Tracker[K]) Rule() Rule {
	return t.rule
}

// Tick advances the time waited by every pending key.
func (t *Tracker[K]) Tick(elapsed time.Duration) {
	for _, state := range t.states {
		state.Elapsed += elapsed
	}
}

// CanRun reports whether key has no pending backoff, or its delay has passed.
func (t *Tracker[K]) CanRun(key K) bool {
	state, ok := t.states[key]
	return !ok || state.Ready()
}

// State returns the backoff of key, if it has one
func (t *Tracker[K]) State(key K) (State, bool) {
	state, ok := t.states[key]
	if !ok {
		return State{}, false
	}
	return *state, true
}

// Remove forgets any backoff of key
func (t *Tracker[K]) Remove(key K) {
	delete(t.states, key)
}

// Len returns the number of keys waiting on a backoff
func (t *Tracker[K]) Len() int {
	return len(t.states)
}

// TryRun runs action if key can run. Success clears the backoff of key; failure starts or
// lengthens it and returns the action's error. ran is false when the action was skipped.
func (t *Tracker[K]) TryRun(key K, action func() error) (ran bool, err error) {
	_, ran, err = TryRunResult(t, key, func() (struct{}, error) {
		return struct{}{}, action()
	})
	return ran, err
}

// TryRunResult is TryRun for actions that produce a result. A panicking action counts as a
// failure before the panic continues.
func TryRunResult[K comparable, T any](t *Tracker[K], key K, action func() (T, error)) (result T, ran bool, err error) {
	if !t.CanRun(key) {
		return result, false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			t.fail(key)
			panic(r)
		}
	}()
	result, err = action()
	if err != nil {
		t.fail(key)
		return result, true, err
	}
	delete(t.states, key)
	return result, true, nil
}

func (t *Tracker[K]) fail(key K) {
	state, ok := t.states[key]
	if !ok {
		t.states[key] = &State{Duration: t.rule.First()}
		return
	}
	state.Duration = t.rule.Next(state.Duration)
	state.Elapsed = 0
}
