// Package transport issues the requests produced by Vixen pollers and
// signallers.
//
// A [Transport] stands in for a browser's script-tag injection: issuing a
// request corresponds to appending a <script> element, cancelling one to
// removing the element bearing its id. Two implementations are provided:
//
//   - [HTTP]: fetches the URL and evaluates the JSONP response with goja
//   - [Document]: maintains an HTML document whose <head> holds the script
//     elements, optionally forwarding each request to another Transport
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned when a request is issued on a closed transport.
var ErrClosed = errors.New("transport closed")

// Request describes one injected request.
type Request struct {
	// ID identifies the injection point. At most one request per ID is
	// expected to be live; issuing a new one replaces the old.
	ID string

	// URL is the complete request URL, built by literal concatenation.
	URL string

	// Callback is the JavaScript reference the response script is expected
	// to call, such as "Vixen.callbacks.vixen_123". Empty for signals.
	Callback string

	// Deliver receives the arguments the response script passed to
	// Callback. nil for signals.
	Deliver func(args ...any)
}

// IsSignal reports whether the request expects no response.
func (r Request) IsSignal() bool {
	return r.Callback == ""
}

// Transport issues and cancels injected requests.
//
// Implementations must be safe for concurrent use.
type Transport interface {
	// IssueRequest starts req and returns without waiting for a response.
	// It must not call req.Deliver before returning. The returned error
	// reports only failures to start the request.
	IssueRequest(ctx context.Context, req Request) error

	// Cancel removes the request issued under id, if any. A response already
	// on its way may still be delivered.
	Cancel(id string)
}
