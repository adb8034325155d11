package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WaitForCondition waits for a condition to be true, checking every 10ms
// Returns true if condition met, false if timeout
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}
		<-ticker.C
		if time.Now().After(deadline) {
			return condition()
		}
	}
}

// RequireEventually asserts that a condition becomes true within timeout and fails the test if not
func RequireEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	require.True(t, WaitForCondition(t, timeout, condition), "Condition not met within %v: %s", timeout, msg)
}

// WaitForState waits for a getter to return a specific state value
func WaitForState[T comparable](t *testing.T, timeout time.Duration, getter func() T, expected T) {
	t.Helper()
	RequireEventually(t, timeout, func() bool {
		return getter() == expected
	}, fmt.Sprintf("Expected state %v", expected))
}

// Receive waits for a value on ch and fails the test on timeout
func Receive[T any](t *testing.T, timeout time.Duration, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		var zero T
		require.FailNow(t, fmt.Sprintf("nothing received within %v", timeout))
		return zero
	}
}
