package store

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of channels a [MemoryStore] retains by default.
const DefaultCapacity = 1024

// subscriberBuffer is the per-subscriber channel buffer.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Messages are kept in an LRU cache keyed by channel, so a relay that sees
// an unbounded number of channel names holds at most capacity of them; the
// channel updated longest ago is evicted first.
//
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber.
type MemoryStore struct {
	messages    *lru.Cache[string, Message]
	subscribers map[chan Message]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a [MemoryStore] retaining up to capacity channels.
// A non-positive capacity selects [DefaultCapacity].
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails for non-positive sizes
	messages, _ := lru.New[string, Message](capacity)

	return &MemoryStore{
		messages:    messages,
		subscribers: make(map[chan Message]struct{}),
	}
}

// Update stores msg under its channel and notifies all subscribers.
func (m *MemoryStore) Update(msg Message) {
	m.messages.Add(msg.Channel, msg)

	m.notifySubscribers(msg)
}

// Get returns the latest message for channel without affecting eviction order.
func (m *MemoryStore) Get(channel string) (Message, bool) {
	return m.messages.Peek(channel)
}

// GetAll returns a snapshot of all retained messages, oldest update first.
func (m *MemoryStore) GetAll() []Message {
	return m.messages.Values()
}

// Len returns the number of retained channels.
func (m *MemoryStore) Len() int {
	return m.messages.Len()
}

// Subscribe creates a new subscription and returns a channel for receiving
// messages. Caller must call [MemoryStore.Unsubscribe] when done.
func (m *MemoryStore) Subscribe() <-chan Message {
	ch := make(chan Message, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Message) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends msg to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(msg Message) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- msg:
		default:
			// subscriber is slow, drop the message
		}
	}
}
