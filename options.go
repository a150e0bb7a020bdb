package vixen

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/vixen/internal/jsonp"
)

// DefaultNamespace is the JavaScript object callback references live under.
const DefaultNamespace = "Vixen"

// clientConfig holds mutable state during Client construction.
type clientConfig struct {
	namespace     string
	idPrefix      string
	maxAttempts   int
	random        func() float64
	transport     Transport
	clock         clockwork.Clock
	logger        *slog.Logger
	escapePayload bool
}

// Option is a function that configures a [Client] during construction.
//
// Options return an error if validation fails, which [New] passes on.
type Option func(*clientConfig) error

// WithTransport sets the [Transport] requests are issued through.
//
// The caller keeps ownership: [Client.Close] does not close it.
//
// Example:
//
//	doc := vixen.NewDocumentTransport(nil)
//	client, err := vixen.New(vixen.WithTransport(doc))
//
// Returns an error if the transport is nil.
func WithTransport(t Transport) Option {
	return func(cfg *clientConfig) error {
		if t == nil {
			return errors.New("transport cannot be nil")
		}
		cfg.transport = t
		return nil
	}
}

// WithNamespace sets the JavaScript namespace used in callback references.
//
// Poll requests name their callback as <namespace>.callbacks.<id>, so the
// endpoint's response must call that path. Defaults to "Vixen".
//
// Returns an error unless the namespace is a dotted path of JavaScript
// identifiers.
func WithNamespace(namespace string) Option {
	return func(cfg *clientConfig) error {
		if !jsonp.ValidReference(namespace) {
			return errors.New("namespace must be a dotted path of JavaScript identifiers")
		}
		cfg.namespace = namespace
		return nil
	}
}

// WithIDPrefix sets the prefix of generated identifiers. Defaults to "vixen".
//
// Returns an error unless the prefix is a JavaScript identifier, since
// identifiers end up in callback references.
func WithIDPrefix(prefix string) Option {
	return func(cfg *clientConfig) error {
		if !jsonp.ValidReference(prefix) || strings.Contains(prefix, ".") {
			return errors.New("id prefix must be a JavaScript identifier")
		}
		cfg.idPrefix = prefix
		return nil
	}
}

// WithMaxIDAttempts bounds how many identifiers are generated before giving
// up with [ErrIdentifierExhausted]. Defaults to 32.
//
// Returns an error if n is zero or negative.
func WithMaxIDAttempts(n int) Option {
	return func(cfg *clientConfig) error {
		if n <= 0 {
			return errors.New("max id attempts must be positive")
		}
		cfg.maxAttempts = n
		return nil
	}
}

// WithRandomSource replaces the random source used for identifiers.
// The function must return values in [0, 1) and be safe for concurrent use.
//
// Returns an error if the function is nil.
func WithRandomSource(random func() float64) Option {
	return func(cfg *clientConfig) error {
		if random == nil {
			return errors.New("random source cannot be nil")
		}
		cfg.random = random
		return nil
	}
}

// WithClock sets the clock driving poll intervals.
//
// Tests pass a clockwork fake clock to advance time by hand.
//
// Returns an error if the clock is nil.
func WithClock(clock clockwork.Clock) Option {
	return func(cfg *clientConfig) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = clock
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithPayloadEscaping query-escapes signal payloads before they are
// appended to the URL. By default payloads are concatenated verbatim.
func WithPayloadEscaping() Option {
	return func(cfg *clientConfig) error {
		cfg.escapePayload = true
		return nil
	}
}
