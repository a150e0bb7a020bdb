package vixen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/vixen/internal/ident"
	"github.com/jpalmerr/vixen/internal/jsonp"
	"github.com/jpalmerr/vixen/internal/poller"
)

var (
	// ErrIdentifierExhausted is returned when no unique identifier could be
	// generated within the configured number of attempts.
	ErrIdentifierExhausted = ident.ErrExhausted

	// ErrClientClosed is returned by operations on a closed [Client].
	ErrClientClosed = errors.New("vixen: client closed")

	// ErrNilCallback is returned by [Client.Init] when no callback is given.
	ErrNilCallback = errors.New("vixen: callback cannot be nil")
)

// Callback receives the arguments a poll response passed to its callback
// reference.
//
// Arguments arrive in their Go form: objects as map[string]any, arrays as
// []any, integers as int64, other numbers as float64.
type Callback func(args ...any)

// pollHandle is one active poller.
type pollHandle struct {
	id       string
	location string
	param    string
	interval time.Duration
	url      string
	ref      string
	callback Callback
	loop     *poller.Loop

	mu      sync.Mutex
	removed bool
}

// remove marks the handle so no further request is issued for it.
func (h *pollHandle) remove() {
	h.mu.Lock()
	h.removed = true
	h.mu.Unlock()
}

// PollerInfo is a read-only snapshot of an active poller.
type PollerInfo struct {
	Location string
	ID       string
	Interval time.Duration
	Param    string
	URL      string
}

// Client is a registry of pollers and signallers bound to one [Transport].
//
// Each location has at most one active poller, created by [Client.Init] and
// removed by [Client.Destroy], and at most one signaller identifier, created
// on the first [Client.Signal] and kept for the client's lifetime. Clients are
// independent of each other; nothing is shared at package level.
//
// All methods are safe for concurrent use.
type Client struct {
	namespace     string
	transport     Transport
	ownsTransport bool
	ids           *ident.Generator
	clock         clockwork.Clock
	logger        *slog.Logger
	escapePayload bool

	mu         sync.Mutex
	pollers    map[string]*pollHandle
	signallers map[string]string
	callbacks  map[string]Callback
	closed     bool
}

// New creates a [Client] with the given options.
//
// Without [WithTransport] the client creates and owns an HTTP transport,
// which [Client.Close] shuts down. Defaults:
//   - Namespace: "Vixen"
//   - Identifier prefix: "vixen"
//   - Identifier attempts: 32
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		namespace:   DefaultNamespace,
		idPrefix:    ident.DefaultPrefix,
		maxAttempts: ident.DefaultMaxAttempts,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	c := &Client{
		namespace:     cfg.namespace,
		transport:     cfg.transport,
		ids:           ident.New(cfg.idPrefix, cfg.maxAttempts, cfg.random),
		clock:         clock,
		logger:        logger,
		escapePayload: cfg.escapePayload,
		pollers:       make(map[string]*pollHandle),
		signallers:    make(map[string]string),
		callbacks:     make(map[string]Callback),
	}

	if c.transport == nil {
		t, err := NewHTTPTransport(HTTPTransportConfig{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to create http transport: %w", err)
		}
		c.transport = t
		c.ownsTransport = true
	}

	return c, nil
}

// Init starts polling location, delivering responses to callback.
//
// The poller issues one request immediately, before Init returns, and then
// one every interval (2s unless [WithInterval] says otherwise). Each request
// targets location + "?" + param + "=" + namespace + ".callbacks." + id.
//
// Calling Init for a location that already has a poller stops that poller
// and replaces it with a new one under a fresh identifier.
func (c *Client) Init(location string, callback Callback, opts ...CallOption) error {
	if callback == nil {
		return ErrNilCallback
	}
	cfg := applyCallOptions(opts)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}

	id, err := c.ids.Next(c.pollerIDTaken)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("init %s: %w", location, err)
	}

	ref := jsonp.Reference(c.namespace, id)
	h := &pollHandle{
		id:       id,
		location: location,
		param:    cfg.param,
		interval: cfg.interval,
		url:      pollURL(location, cfg.param, ref),
		ref:      ref,
		callback: callback,
	}
	h.loop = poller.NewLoop(c.clock, h.interval, func(ctx context.Context) {
		c.poll(ctx, h)
	}, c.logger)

	prev := c.pollers[location]
	if prev != nil {
		delete(c.callbacks, prev.id)
	}
	c.pollers[location] = h
	c.callbacks[id] = callback
	c.mu.Unlock()

	if prev != nil {
		prev.remove()
		prev.loop.Stop()
		c.logger.Debug("poller replaced", "location", location, "old_id", prev.id, "id", id)
	}

	c.logger.Debug("poller started",
		"location", location,
		"id", id,
		"interval", h.interval.String(),
	)

	// A concurrent Destroy or Close may already have removed h.
	h.mu.Lock()
	if h.removed {
		h.mu.Unlock()
		return nil
	}
	h.loop.Start(context.Background())
	h.mu.Unlock()

	c.poll(context.Background(), h)
	return nil
}

// Destroy stops the poller for location and forgets its callback.
//
// Destroy waits for a poll in progress to finish; no poll is issued for the
// location once it returns. Requests already handed to the transport are not
// retracted, so their callback may still fire. Unknown locations are a no-op.
func (c *Client) Destroy(location string) {
	c.mu.Lock()
	h, ok := c.pollers[location]
	if ok {
		delete(c.pollers, location)
		delete(c.callbacks, h.id)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	h.remove()
	h.loop.Stop()
	c.logger.Debug("poller destroyed", "location", location, "id", h.id)
}

// Signal sends data to location without expecting a response.
//
// The request targets location + "?" + param + "=" + data. The payload is
// concatenated as given unless the client was built with
// [WithPayloadEscaping]. All signals to one location share an identifier, so
// each call replaces the previous one rather than accumulating.
func (c *Client) Signal(location, data string, opts ...CallOption) error {
	cfg := applyCallOptions(opts)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}

	id, ok := c.signallers[location]
	if !ok {
		var err error
		id, err = c.ids.Next(c.signalIDTaken)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("signal %s: %w", location, err)
		}
		c.signallers[location] = id
	}
	c.mu.Unlock()

	req := Request{
		ID:  id,
		URL: signalURL(location, cfg.param, data, c.escapePayload),
	}

	c.transport.Cancel(id)
	if err := c.transport.IssueRequest(context.Background(), req); err != nil {
		return fmt.Errorf("signal %s: %w", location, err)
	}
	return nil
}

// Callbacks returns a snapshot of the callback registry keyed by identifier.
func (c *Client) Callbacks() map[string]Callback {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := make(map[string]Callback, len(c.callbacks))
	for id, cb := range c.callbacks {
		cp[id] = cb
	}
	return cp
}

// Poller returns the active poller for location, if any.
func (c *Client) Poller(location string) (PollerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.pollers[location]
	if !ok {
		return PollerInfo{}, false
	}
	return h.info(), true
}

// Pollers returns all active pollers sorted by location.
func (c *Client) Pollers() []PollerInfo {
	c.mu.Lock()
	infos := make([]PollerInfo, 0, len(c.pollers))
	for _, h := range c.pollers {
		infos = append(infos, h.info())
	}
	c.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Location < infos[j].Location })
	return infos
}

// SignalID returns the identifier used for signals to location, if one has
// been generated.
func (c *Client) SignalID(location string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.signallers[location]
	return id, ok
}

// Namespace returns the JavaScript namespace callback references live under.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close destroys every poller and rejects further Init and Signal calls.
//
// If the client created its own transport, Close also closes it. Close is
// idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handles := make([]*pollHandle, 0, len(c.pollers))
	for _, h := range c.pollers {
		handles = append(handles, h)
	}
	c.pollers = make(map[string]*pollHandle)
	c.callbacks = make(map[string]Callback)
	c.mu.Unlock()

	for _, h := range handles {
		h.remove()
		h.loop.Stop()
	}

	if closer, ok := c.transport.(interface{ Close() error }); ok && c.ownsTransport {
		return closer.Close()
	}
	return nil
}

// poll removes the poller's previous request and issues a new one. Nothing
// is issued once the poller has been destroyed or replaced.
func (c *Client) poll(ctx context.Context, h *pollHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.removed {
		return
	}

	c.transport.Cancel(h.id)

	req := Request{
		ID:       h.id,
		URL:      h.url,
		Callback: h.ref,
		Deliver:  func(args ...any) { c.invokeCallbackSafe(h, args) },
	}
	if err := c.transport.IssueRequest(ctx, req); err != nil {
		c.logger.Warn("poll request not issued",
			"location", h.location,
			"id", h.id,
			"error", err.Error(),
		)
	}
}

// invokeCallbackSafe calls the poller's callback with panic recovery.
// Panics are logged with a correlation ID and do not propagate.
func (c *Client) invokeCallbackSafe(h *pollHandle, args []any) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("poll callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"location", h.location,
				"id", h.id,
				"stack", string(debug.Stack()),
			)
		}
	}()
	h.callback(args...)
}

// pollerIDTaken reports whether id belongs to an active poller. Callers hold c.mu.
func (c *Client) pollerIDTaken(id string) bool {
	for _, h := range c.pollers {
		if h.id == id {
			return true
		}
	}
	return false
}

// signalIDTaken reports whether id belongs to a signaller. Callers hold c.mu.
func (c *Client) signalIDTaken(id string) bool {
	for _, existing := range c.signallers {
		if existing == id {
			return true
		}
	}
	return false
}

func (h *pollHandle) info() PollerInfo {
	return PollerInfo{
		Location: h.location,
		ID:       h.id,
		Interval: h.interval,
		Param:    h.param,
		URL:      h.url,
	}
}
