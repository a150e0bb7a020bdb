// Package store keeps the messages relayed by the reference JSONP endpoint.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: Bounded in-memory implementation with pub/sub
//   - [Message]: Latest payload signalled on a channel
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
package store
