// Package server provides the reference JSONP relay endpoint served by the
// vixen command.
//
// The relay keeps the latest payload signalled on each channel:
//
//   - Signals: GET /signal/{channel}?jsonp=<data> stores data, 204
//   - Polls: GET /poll/{channel}?jsonp=<ref> answers "<ref>(<message>);"
//   - REST API: JSON endpoint at "/api/messages" for a snapshot
//   - Server-Sent Events: new messages at "/api/sse"
//   - Dashboard: embedded HTML viewer at "/"
//
// Poll responses call the reference with a JSON object
// {"channel","data","received_at"}, or null when nothing has been signalled
// on the channel yet. The server supports graceful shutdown via context
// cancellation, with a 5-second timeout for in-flight requests.
package server
