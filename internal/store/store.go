package store

import "time"

// Message is the latest payload signalled on a channel.
//
// Message is the relay's storage representation, serialized as JSON both in
// JSONP poll responses and over the REST and SSE endpoints.
type Message struct {
	// Channel names the relay channel the payload was signalled on.
	Channel string `json:"channel"`

	// Data is the raw signalled payload, exactly as received.
	Data string `json:"data"`

	// ReceivedAt is when the relay accepted the signal.
	ReceivedAt time.Time `json:"received_at"`
}

// Store defines the interface for storing and subscribing to messages.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a message and notifies all subscribers.
	// Messages are keyed by Channel; later updates replace earlier ones.
	Update(msg Message)

	// Get returns the latest message for a channel.
	Get(channel string) (Message, bool)

	// GetAll returns the latest message of every retained channel, least
	// recently updated first. The returned slice is a snapshot.
	GetAll() []Message

	// Subscribe returns a channel that receives new messages.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Message

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Message)
}
