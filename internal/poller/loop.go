package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// TickFunc is invoked on every tick of a [Loop].
type TickFunc func(ctx context.Context)

// Loop invokes a function at a fixed interval.
//
// Ticks are issued on schedule regardless of what the previous tick started;
// there is no completion-based backoff. A single Loop never runs two ticks at
// once. The first tick happens one interval after [Loop.Start]; callers that
// want an immediate action perform it themselves.
//
// All lifecycle methods are safe for concurrent use.
type Loop struct {
	clock    clockwork.Clock
	interval time.Duration
	tick     TickFunc
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewLoop creates a [Loop] that calls tick every interval.
//
// A nil clock uses the real clock; a nil logger uses [slog.Default].
// interval must be positive.
func NewLoop(clock clockwork.Clock, interval time.Duration, tick TickFunc, logger *slog.Logger) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		clock:    clock,
		interval: interval,
		tick:     tick,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Interval returns the tick interval.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Start arms the ticker and begins ticking in a background goroutine.
//
// The ticker is created before Start returns, so a fake clock advanced after
// Start observes it. Start is idempotent; calling it after [Loop.Stop] is a
// no-op. A nil ctx is treated as context.Background().
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || l.stopped {
		return
	}
	l.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, l.cancel = context.WithCancel(ctx)
	ticker := l.clock.NewTicker(l.interval)

	go func() {
		defer close(l.done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				// a stop may race with a pending tick
				if ctx.Err() != nil {
					return
				}
				l.safeTick(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for a tick in progress to return.
//
// Stop is idempotent and safe to call before Start. Stop must not be called
// from inside the loop's own tick function.
func (l *Loop) Stop() {
	l.mu.Lock()
	wasStarted := l.started
	if !l.stopped {
		l.stopped = true
		if l.cancel != nil {
			l.cancel()
		}
	}
	l.mu.Unlock()

	if wasStarted {
		<-l.done
	}
}

// safeTick runs the tick function with panic recovery so a misbehaving tick
// cannot kill the loop. The stack is logged under a correlation ID.
func (l *Loop) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	l.tick(ctx)
}
