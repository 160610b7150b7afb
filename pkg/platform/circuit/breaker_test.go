package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("fgs")
	assert.Equal(t, "fgs", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := New("fgs", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		degraded, change := b.RecordFailure()
		assert.False(t, degraded, "failure %d should not trip the breaker", i+1)
		assert.False(t, change.Opened)
	}

	degraded, change := b.RecordFailure()
	assert.True(t, degraded)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreakerRecoversAfterSuccesses(t *testing.T) {
	b := New("fgs", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	healthy, change := b.RecordSuccess()
	assert.False(t, healthy, "one success is not enough to close")
	assert.False(t, change.Closed)

	healthy, change = b.RecordSuccess()
	assert.True(t, healthy)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreakerSuccessClearsFailureStreak(t *testing.T) {
	b := New("fgs", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// The streak restarts, so two more failures stay under the threshold.
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreakerFailureClearsRecoveryStreak(t *testing.T) {
	b := New("fgs", WithFailureThreshold(1), WithSuccessThreshold(3))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()
	require.True(t, b.IsOpen())

	// A full run of successes is needed again.
	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreakerResetForcesClosed(t *testing.T) {
	b := New("fgs", WithFailureThreshold(1))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerStaysDegradedWhileOpen(t *testing.T) {
	b := New("fgs", WithFailureThreshold(1))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	degraded, change := b.RecordFailure()
	assert.True(t, degraded)
	assert.False(t, change.Opened, "an open breaker reports no transition")
}
