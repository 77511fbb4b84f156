package studyhall

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerStartIsIdempotent(t *testing.T) {
	p := NewPoller()
	defer p.StopAll()

	var ticks int64
	p.Start("notifications", 5*time.Millisecond, func() { atomic.AddInt64(&ticks, 1) })
	p.Start("notifications", time.Millisecond, func() { atomic.AddInt64(&ticks, 100) })
	p.Start("notifications", time.Millisecond, func() { atomic.AddInt64(&ticks, 100) })

	assert.Equal(t, 1, p.Active())
	assert.True(t, p.Running("notifications"))

	time.Sleep(30 * time.Millisecond)
	got := atomic.LoadInt64(&ticks)
	require.Greater(t, got, int64(0), "original feed keeps ticking")
	assert.Less(t, got, int64(100), "redundant starts never run")
}

func TestPollerStopIsImmediate(t *testing.T) {
	p := NewPoller()

	var ticks int64
	p.Start("chat:g1", 5*time.Millisecond, func() { atomic.AddInt64(&ticks, 1) })
	time.Sleep(20 * time.Millisecond)
	p.Stop("chat:g1")

	assert.False(t, p.Running("chat:g1"))
	settled := atomic.LoadInt64(&ticks)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt64(&ticks))

	// Stopping an unknown feed is a no-op.
	p.Stop("chat:g1")
	p.Stop("never-started")
}

func TestPollerStopAll(t *testing.T) {
	p := NewPoller()

	p.Start("a", time.Minute, func() {})
	p.Start("b", time.Minute, func() {})
	p.Start("c", time.Minute, func() {})
	require.Equal(t, 3, p.Active())

	p.StopAll()
	assert.Zero(t, p.Active())

	// The poller is reusable after StopAll.
	p.Start("a", time.Minute, func() {})
	assert.True(t, p.Running("a"))
	p.StopAll()
}
