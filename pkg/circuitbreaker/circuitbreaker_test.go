package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func failing() error { return errUpstream }
func healthy() error { return nil }

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         50 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(failing), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.State(), "threshold reached must trip the breaker")

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls, "open breaker must not invoke the call")
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	cb := New(testConfig())

	require.Error(t, cb.Execute(failing))
	require.Error(t, cb.Execute(failing))
	require.NoError(t, cb.Execute(healthy))
	require.Error(t, cb.Execute(failing))
	require.Error(t, cb.Execute(failing))

	assert.Equal(t, StateClosed, cb.State(), "only consecutive failures count")
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	cb := New(testConfig())
	for i := 0; i < 3; i++ {
		_ = cb.Execute(failing)
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)

	require.NoError(t, cb.Execute(healthy))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(healthy))

	// The success threshold is met; the next call passes through closed.
	require.NoError(t, cb.Execute(healthy))
	assert.Equal(t, StateClosed, cb.State())
}

func TestFailedProbeReopens(t *testing.T) {
	cb := New(testConfig())
	for i := 0; i < 3; i++ {
		_ = cb.Execute(failing)
	}
	time.Sleep(60 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(failing), errUpstream)
	assert.Equal(t, StateOpen, cb.State())
}

func TestReset(t *testing.T) {
	cb := New(testConfig())
	for i := 0; i < 3; i++ {
		_ = cb.Execute(failing)
	}
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(healthy))
}
