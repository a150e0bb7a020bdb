package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/vixen/internal/jsonp"
	"github.com/jpalmerr/vixen/internal/poller"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultEvalTimeout    = 5 * time.Second
)

// ErrorHandler receives failures that happen after a request was issued.
type ErrorHandler func(req Request, err error)

// HTTPConfig configures an [HTTP] transport. Zero values select defaults.
type HTTPConfig struct {
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration

	// EvalTimeout bounds evaluation of each response script. Defaults to 5s.
	EvalTimeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string

	// HTTP2 enables HTTP/2 negotiation.
	HTTP2 bool

	// MaxBodySize limits response bodies. Defaults to 1MB.
	MaxBodySize int64

	// Logger receives transport events. Defaults to slog.Default().
	Logger *slog.Logger

	// OnError receives asynchronous failures. Defaults to logging at Warn.
	OnError ErrorHandler
}

// HTTP is a [Transport] that performs real HTTP requests.
//
// Each issued request runs in its own goroutine. Poll responses are
// evaluated as JavaScript with the request's callback reference bound to its
// Deliver function; signal responses are discarded. Requests are detached
// from the issuing context's cancellation. [HTTP.Cancel] and a replacing
// request with the same ID only stop tracking a request: a response already
// on its way is still evaluated, the way a loading script still runs after its
// element is removed. Only closing the transport aborts requests.
type HTTP struct {
	client      *poller.Client
	timeout     time.Duration
	evalTimeout time.Duration
	headers     map[string]string
	logger      *slog.Logger
	onError     ErrorHandler

	mu      sync.Mutex
	flights map[uint64]context.CancelFunc // every running request, by sequence
	tracked map[string]uint64             // request ID to its latest sequence
	seq     uint64
	closed  bool
	wg      sync.WaitGroup
}

// NewHTTP creates an [HTTP] transport.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	client, err := poller.NewClient(poller.ClientConfig{
		HTTP2:       cfg.HTTP2,
		MaxBodySize: cfg.MaxBodySize,
	})
	if err != nil {
		return nil, err
	}

	t := &HTTP{
		client:      client,
		timeout:     cfg.Timeout,
		evalTimeout: cfg.EvalTimeout,
		headers:     copyHeaders(cfg.Headers),
		logger:      cfg.Logger,
		onError:     cfg.OnError,
		flights:     make(map[uint64]context.CancelFunc),
		tracked:     make(map[string]uint64),
	}
	if t.timeout <= 0 {
		t.timeout = defaultRequestTimeout
	}
	if t.evalTimeout <= 0 {
		t.evalTimeout = defaultEvalTimeout
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.onError == nil {
		t.onError = func(req Request, err error) {
			t.logger.Warn("request failed", "id", req.ID, "url", req.URL, "error", err.Error())
		}
	}
	return t, nil
}

// IssueRequest starts req in the background.
//
// A request already in flight under the same ID stops being tracked but is
// left to complete.
func (t *HTTP) IssueRequest(ctx context.Context, req Request) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		return ErrClosed
	}
	t.seq++
	seq := t.seq
	t.flights[seq] = cancel
	t.tracked[req.ID] = seq
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer t.finish(req.ID, seq)
		t.run(reqCtx, req)
	}()
	return nil
}

// Cancel stops tracking the request issued under id. The request itself is
// not aborted, so a response that arrives later is still delivered. Unknown
// ids are ignored.
func (t *HTTP) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tracked, id)
}

// InFlight returns the number of tracked requests currently in progress.
func (t *HTTP) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracked)
}

// Running returns the number of request goroutines that have not exited,
// tracked or not.
func (t *HTTP) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flights)
}

// Shutdown stops accepting requests and waits for in-flight ones to finish.
//
// If ctx expires first, the remaining requests are cancelled and ctx's error
// is returned once they have exited.
func (t *HTTP) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		t.cancelAll()
		<-done
		err = ctx.Err()
	}

	t.client.Close()
	return err
}

// Close cancels every in-flight request and waits for them to exit.
// Safe to call multiple times.
func (t *HTTP) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.cancelAll()
	t.wg.Wait()
	t.client.Close()
	return nil
}

func (t *HTTP) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, cancel := range t.flights {
		cancel()
	}
}

// finish releases the request's context and drops its tracking entry unless
// a newer request took over the ID.
func (t *HTTP) finish(id string, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cancel, ok := t.flights[seq]; ok {
		cancel()
		delete(t.flights, seq)
	}
	if t.tracked[id] == seq {
		delete(t.tracked, id)
	}
}

// run performs the request and hands the response to the callback.
func (t *HTTP) run(ctx context.Context, req Request) {
	resp := t.client.Fetch(ctx, req.URL, t.headers, t.timeout)

	if ctx.Err() != nil {
		t.logger.Debug("request cancelled", "id", req.ID, "url", req.URL)
		return
	}
	if resp.Error != nil {
		t.onError(req, resp.Error)
		return
	}

	t.logger.Debug("request completed",
		"id", req.ID,
		"url", req.URL,
		"status_code", resp.StatusCode,
		"latency_ms", resp.Latency.Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.onError(req, fmt.Errorf("unexpected status code %d", resp.StatusCode))
		return
	}
	if req.IsSignal() {
		return
	}
	if err := jsonp.Evaluate(resp.Body, req.Callback, req.Deliver, t.evalTimeout); err != nil {
		t.onError(req, err)
	}
}

func copyHeaders(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
