package poller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestLoop_TicksAtInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var ticks atomic.Int32

	loop := NewLoop(clock, 2*time.Second, func(context.Context) { ticks.Add(1) }, testLogger())
	loop.Start(context.Background())
	defer loop.Stop()

	if got := ticks.Load(); got != 0 {
		t.Fatalf("ticks before advance = %d, want 0", got)
	}

	clock.Advance(2 * time.Second)
	waitFor(t, func() bool { return ticks.Load() == 1 })

	clock.Advance(2 * time.Second)
	waitFor(t, func() bool { return ticks.Load() == 2 })
}

func TestLoop_NoTicksAfterStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var ticks atomic.Int32

	loop := NewLoop(clock, time.Second, func(context.Context) { ticks.Add(1) }, testLogger())
	loop.Start(context.Background())

	clock.Advance(time.Second)
	waitFor(t, func() bool { return ticks.Load() == 1 })

	loop.Stop()

	clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != 1 {
		t.Errorf("ticks after stop = %d, want 1", got)
	}
}

// TestLoop_StopBeforeStart verifies that Stop on a loop that was never
// started returns immediately and a later Start is a no-op.
func TestLoop_StopBeforeStart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var ticks atomic.Int32

	loop := NewLoop(clock, time.Second, func(context.Context) { ticks.Add(1) }, testLogger())
	loop.Stop()
	loop.Start(context.Background())
	loop.Stop()

	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != 0 {
		t.Errorf("ticks = %d, want 0", got)
	}
}

// TestLoop_StopTwice verifies that Stop() is idempotent.
func TestLoop_StopTwice(t *testing.T) {
	loop := NewLoop(clockwork.NewFakeClock(), time.Second, func(context.Context) {}, testLogger())
	loop.Start(context.Background())

	loop.Stop()
	loop.Stop()
}

// TestLoop_StartTwice verifies that a second Start does not spawn a second
// ticking goroutine.
func TestLoop_StartTwice(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var ticks atomic.Int32

	loop := NewLoop(clock, time.Second, func(context.Context) { ticks.Add(1) }, testLogger())
	loop.Start(context.Background())
	loop.Start(context.Background())
	defer loop.Stop()

	clock.Advance(time.Second)
	waitFor(t, func() bool { return ticks.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != 1 {
		t.Errorf("ticks = %d, want 1", got)
	}
}

// TestLoop_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not race or deadlock.
func TestLoop_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 100; i++ {
		loop := NewLoop(clockwork.NewFakeClock(), time.Second, func(context.Context) {}, testLogger())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			loop.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			loop.Stop()
		}()
		wg.Wait()

		loop.Stop()
	}
}

func TestLoop_ParentContextCancellation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var ticks atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(clock, time.Second, func(context.Context) { ticks.Add(1) }, testLogger())
	loop.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		loop.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return after context cancellation")
	}
}

func TestLoop_RecoversFromPanic(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var ticks atomic.Int32

	loop := NewLoop(clock, time.Second, func(context.Context) {
		if ticks.Add(1) == 1 {
			panic("first tick explodes")
		}
	}, testLogger())
	loop.Start(context.Background())
	defer loop.Stop()

	clock.Advance(time.Second)
	waitFor(t, func() bool { return ticks.Load() == 1 })

	clock.Advance(time.Second)
	waitFor(t, func() bool { return ticks.Load() == 2 })
}

func TestLoop_Defaults(t *testing.T) {
	loop := NewLoop(nil, time.Minute, func(context.Context) {}, nil)
	if loop.Interval() != time.Minute {
		t.Errorf("Interval() = %v, want 1m", loop.Interval())
	}
	loop.Start(nil)
	loop.Stop()
}
