// Package poller provides the timing and HTTP plumbing behind Vixen pollers.
//
// This package is internal to Vixen. The main components are:
//
//   - [Loop]: fixed-interval ticker driving one poller's requests
//   - [Client]: HTTP client wrapper with per-request timeouts and size limits
//   - [Response]: result of a single HTTP request
//
// Users of the vixen library should not need to interact with this package
// directly. Pollers are created through the root package's Client.
package poller
