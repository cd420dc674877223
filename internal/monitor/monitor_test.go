package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

func testMonitor(stall, max, check time.Duration) *DownloadMonitor {
	return New(Options{StallTimeout: stall, MaxDuration: max, CheckInterval: check}, nil)
}

func TestMonitor_StallAborts(t *testing.T) {
	m := testMonitor(30*time.Millisecond, time.Minute, 10*time.Millisecond)

	var cleaned atomic.Int32
	m.SetCleanup(func(tourID string) {
		assert.Equal(t, "t1", tourID)
		cleaned.Add(1)
	})

	ctx, cancel := context.WithCancelCause(context.Background())
	m.Register("t1", cancel)

	// No progress reports: the session must stall out.
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected stall abort")
	}

	require.ErrorIs(t, context.Cause(ctx), domain.ErrDownloadTimeout)
	assert.Eventually(t, func() bool { return cleaned.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestMonitor_ProgressKeepsSessionAlive(t *testing.T) {
	m := testMonitor(50*time.Millisecond, time.Minute, 10*time.Millisecond)

	ctx, cancel := context.WithCancelCause(context.Background())
	token := m.Register("t1", cancel)

	// Keep reporting progress past several stall windows.
	for i := 0; i < 10; i++ {
		m.ReportProgress("t1", float64(i*10))
		time.Sleep(15 * time.Millisecond)
	}

	require.NoError(t, ctx.Err(), "session with steady progress must not be aborted")

	progress, ok := m.Progress("t1")
	require.True(t, ok)
	assert.Equal(t, 90.0, progress)

	m.Complete("t1", token)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestMonitor_MaxDurationAborts(t *testing.T) {
	m := testMonitor(time.Minute, 40*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithCancelCause(context.Background())
	m.Register("t1", cancel)

	// Progress keeps flowing, but the hard cap still fires.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			m.ReportProgress("t1", 50)
			time.Sleep(5 * time.Millisecond)
		}
	}()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected max duration abort")
	}
	<-done

	require.ErrorIs(t, context.Cause(ctx), domain.ErrDownloadTimeout)
}

func TestMonitor_CompleteStopsHealthChecks(t *testing.T) {
	m := testMonitor(20*time.Millisecond, time.Minute, 5*time.Millisecond)

	ctx, cancel := context.WithCancelCause(context.Background())
	token := m.Register("t1", cancel)
	m.Complete("t1", token)

	// Well past the stall window: nothing may fire after completion.
	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, ctx.Err())
	assert.Equal(t, 0, m.ActiveCount())
}

func TestMonitor_RegisterSupersedesPriorSession(t *testing.T) {
	m := testMonitor(time.Minute, time.Minute, 10*time.Millisecond)

	ctx1, cancel1 := context.WithCancelCause(context.Background())
	token1 := m.Register("t1", cancel1)

	ctx2, cancel2 := context.WithCancelCause(context.Background())
	token2 := m.Register("t1", cancel2)
	require.NotEqual(t, token1, token2)

	// First session is aborted, second keeps running.
	require.ErrorIs(t, context.Cause(ctx1), domain.ErrDownloadAborted)
	require.NoError(t, ctx2.Err())
	assert.Equal(t, 1, m.ActiveCount())

	m.Complete("t1", token2)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestMonitor_StaleCompleteKeepsReplacementSupervised(t *testing.T) {
	m := testMonitor(30*time.Millisecond, time.Minute, 10*time.Millisecond)

	_, cancel1 := context.WithCancelCause(context.Background())
	token1 := m.Register("t1", cancel1)

	ctx2, cancel2 := context.WithCancelCause(context.Background())
	m.Register("t1", cancel2)

	// The superseded download unwinds and completes with its stale token;
	// the replacement's session must survive.
	m.Complete("t1", token1)
	assert.Equal(t, 1, m.ActiveCount())

	progress, ok := m.Progress("t1")
	require.True(t, ok)
	assert.Equal(t, 0.0, progress)

	// And the replacement is still supervised: with no progress it must
	// stall out rather than run unwatched.
	select {
	case <-ctx2.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected replacement session to stay under stall supervision")
	}
	require.ErrorIs(t, context.Cause(ctx2), domain.ErrDownloadTimeout)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestMonitor_ExplicitAbort(t *testing.T) {
	m := testMonitor(time.Minute, time.Minute, 10*time.Millisecond)

	ctx, cancel := context.WithCancelCause(context.Background())
	m.Register("t1", cancel)

	require.True(t, m.Abort("t1"))
	require.ErrorIs(t, context.Cause(ctx), domain.ErrDownloadAborted)

	// Aborting an unknown session reports false.
	assert.False(t, m.Abort("t1"))
}
