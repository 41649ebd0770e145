// Package events is an in-process publish/subscribe bus for client-wide
// notifications such as a forced logout.
package events

import "sync"

type Kind string

// ForceLogout is published when the server rejects the session token.
const ForceLogout Kind = "force_logout"

type Event struct {
	Kind Kind
	// Reason is a short human-readable cause, e.g. the server message.
	Reason string
	// Token is the session token the rejected request carried, "" if none.
	Token string
}

type Handler func(Event)

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[Kind][]subscription
}

type subscription struct {
	id int
	h  Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers h for events of kind k. The returned function removes
// the subscription and may be called more than once.
func (b *Bus) Subscribe(k Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.subs[k] = append(b.subs[k], subscription{id: id, h: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		list := b.subs[k]
		for i, s := range list {
			if s.id == id {
				b.subs[k] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every handler subscribed to e.Kind. Handlers may subscribe,
// unsubscribe or publish again without deadlocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Kind]))
	for _, s := range b.subs[e.Kind] {
		handlers = append(handlers, s.h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
