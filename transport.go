package vixen

import (
	"log/slog"
	"time"

	"github.com/jpalmerr/vixen/internal/transport"
)

// Request describes one injected request: its identifier, its full URL,
// and for polls the callback reference and the function receiving the
// response arguments.
type Request = transport.Request

// Transport issues the requests produced by pollers and signallers.
//
// IssueRequest stands in for appending a <script> element and must return
// without waiting for the response. Cancel stands in for removing the element
// bearing an identifier and must ignore unknown identifiers.
type Transport = transport.Transport

// HTTPTransport fetches requests over HTTP and evaluates poll responses as
// JSONP scripts. See [NewHTTPTransport].
type HTTPTransport = transport.HTTP

// DocumentTransport records requests as <script> elements in an HTML
// document head. See [NewDocumentTransport].
type DocumentTransport = transport.Document

// Script is a script element held by a [DocumentTransport].
type Script = transport.Script

// ErrTransportClosed is returned when a request is issued on a closed
// transport.
var ErrTransportClosed = transport.ErrClosed

// HTTPTransportConfig configures [NewHTTPTransport]. Zero values select
// defaults.
type HTTPTransportConfig struct {
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration

	// EvalTimeout bounds evaluation of each poll response. Defaults to 5s.
	EvalTimeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string

	// HTTP2 enables HTTP/2 negotiation with TLS endpoints.
	HTTP2 bool

	// MaxBodySize limits response bodies. Defaults to 1MB.
	MaxBodySize int64

	// Logger receives transport events. Defaults to slog.Default().
	Logger *slog.Logger

	// OnError receives network, status and script failures that happen after
	// a request was issued. Defaults to logging at Warn.
	OnError func(req Request, err error)
}

// NewHTTPTransport creates an [HTTPTransport].
//
// Example:
//
//	t, err := vixen.NewHTTPTransport(vixen.HTTPTransportConfig{
//	    Timeout: 30 * time.Second,
//	    Headers: map[string]string{"Authorization": "Bearer token"},
//	})
//	client, err := vixen.New(vixen.WithTransport(t))
//	defer t.Shutdown(ctx)
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	var onError transport.ErrorHandler
	if cfg.OnError != nil {
		onError = cfg.OnError
	}
	return transport.NewHTTP(transport.HTTPConfig{
		Timeout:     cfg.Timeout,
		EvalTimeout: cfg.EvalTimeout,
		Headers:     cfg.Headers,
		HTTP2:       cfg.HTTP2,
		MaxBodySize: cfg.MaxBodySize,
		Logger:      cfg.Logger,
		OnError:     onError,
	})
}

// NewDocumentTransport creates a [DocumentTransport] over a blank HTML page.
//
// When next is non-nil every request and cancellation is forwarded to it
// after the document is updated, so the document mirrors what a browser
// would hold while next does the loading.
func NewDocumentTransport(next Transport) *DocumentTransport {
	return transport.NewDocument(next)
}
