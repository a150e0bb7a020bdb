// Package vixen emulates long-polling over JSONP and sends one-way signals.
//
// A poller repeatedly requests a location, naming a callback in a query
// parameter; the endpoint answers with a script that calls that callback
// with the response data. A signaller sends a payload in the query parameter
// and ignores whatever comes back.
//
// # Quick Start
//
//	client, _ := vixen.New()
//	defer client.Close()
//
//	// GET updates.php?jsonp=Vixen.callbacks.vixen_<digits> now and every 500ms
//	client.Init("https://example.com/updates.php", func(args ...any) {
//	    fmt.Println("update:", args)
//	}, vixen.WithInterval(500*time.Millisecond))
//
//	// GET notify.php?url_param={"typing":true}
//	client.Signal("https://example.com/notify.php", `{"typing":true}`, vixen.WithParam("url_param"))
//
//	client.Destroy("https://example.com/updates.php")
//
// # Endpoint Contract
//
// A poll endpoint reads the parameter (default "jsonp"), whose value is a
// callback reference such as Vixen.callbacks.vixen_123, and responds with
// JavaScript calling it:
//
//	Vixen.callbacks.vixen_123({"message": "hello"});
//
// Because every poller gets its own reference, the endpoint cannot be a
// static file. Signal endpoints produce no meaningful output.
//
// # Transports
//
// Requests go through a [Transport]. [NewHTTPTransport] performs the
// requests and runs poll responses in an embedded JavaScript engine, handing
// the callback's arguments straight to the poller that asked.
// [NewDocumentTransport] keeps an HTML document whose head holds one
// <script> element per live request, exactly as a browser page would.
//
// # Architecture
//
// The internal packages are:
//
//   - internal/ident: identifier generation with bounded retries
//   - internal/poller: interval loop and HTTP client
//   - internal/jsonp: JSONP script evaluation
//   - internal/transport: HTTP and document transports
//   - internal/store, internal/server: the reference relay endpoint served
//     by the vixen command
package vixen
