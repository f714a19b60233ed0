// Package ctest contains helpers shared across cocoon tests.
package ctest

import (
	"log/slog"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

// ScaleDuration is the base timeout used by the "soon" helpers.
// Values crossing goroutines through a scheduler loop
// are expected to arrive well within this window.
const ScaleDuration = 100 * time.Millisecond

// NewLogger returns a logger that writes through t.Log,
// so output is only shown for failed or verbose tests.
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t, slogt.Text())
}

// SendSoon sends v on ch, failing the test if the send blocks
// for longer than [ScaleDuration].
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	timer := time.NewTimer(ScaleDuration)
	defer timer.Stop()

	select {
	case ch <- v:
		// Okay.
	case <-timer.C:
		t.Fatalf("channel did not accept send within %s", ScaleDuration)
	}
}

// ReceiveSoon returns the next value from ch,
// failing the test if no value arrives within [ScaleDuration].
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(ScaleDuration)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("no value received within %s", ScaleDuration)
	}

	panic("unreachable")
}

// IsSending asserts that ch is immediately readable,
// which for a closed signal channel means it has been closed.
func IsSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		// Okay.
	default:
		t.Fatal("channel was not ready to receive")
	}
}

// NotSending asserts that ch has no value ready
// and is not closed.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("channel unexpectedly had a value ready")
	default:
		// Okay.
	}
}
