// Package events fans ledger events out to websocket subscribers. Events
// are log lines of the form "event: <kind>: <data>"; every other line is
// ignored.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// Kind identifies the family of a ledger event.
type Kind string

// Set of event kinds the ledger emits.
const (
	KindBlock Kind = "block"
	KindAlert Kind = "alert"
	KindPool  Kind = "pool"
)

const prefix = "event: "

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindBlock, KindAlert, KindPool:
		return k, nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Event is a single ledger event.
type Event struct {
	Kind Kind
	Data string
}

// Parse extracts the event from a formatted line. It reports false when the
// line isn't an event.
func Parse(s string) (Event, bool) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return Event{}, false
	}

	kind, data, ok := strings.Cut(rest, ": ")
	if !ok || kind == "" {
		return Event{}, false
	}

	return Event{Kind: Kind(kind), Data: data}, true
}

// String renders the event in the form sent to websocket clients.
func (e Event) String() string {
	return prefix + string(e.Kind) + ": " + e.Data
}

// =============================================================================

// subscriber is a registered receiver. An empty kinds set receives
// everything.
type subscriber struct {
	ch      chan Event
	kinds   map[Kind]bool
	dropped int
}

func (s *subscriber) wants(k Kind) bool {
	return len(s.kinds) == 0 || s.kinds[k]
}

// Events maintains the set of subscribers keyed by a unique id.
type Events struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

// New constructs an empty set of subscribers.
func New() *Events {
	return &Events{
		subs: make(map[string]*subscriber),
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}

// Acquire registers the id for the given kinds, or all kinds when none are
// given, and returns the channel events arrive on. Acquiring an id twice
// returns the existing channel.
func (evt *Events) Acquire(id string, kinds ...Kind) <-chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.subs[id]; exists {
		return sub.ch
	}

	// A message is dropped when the websocket receiver is not ready. The
	// buffer gives a slow websocket write time to catch up.
	const messageBuffer = 100

	sub := subscriber{
		ch:    make(chan Event, messageBuffer),
		kinds: make(map[Kind]bool, len(kinds)),
	}
	for _, k := range kinds {
		sub.kinds[k] = true
	}

	evt.subs[id] = &sub
	return sub.ch
}

// Release closes and removes the subscriber. It returns the number of
// events the subscriber missed because its buffer was full.
func (evt *Events) Release(id string) (int, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return 0, fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)
	return sub.dropped, nil
}

// Subscribers returns the number of registered subscribers.
func (evt *Events) Subscribers() int {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	return len(evt.subs)
}

// Publish sends the line to every interested subscriber when it is an
// event and reports whether it was. Publish never blocks on a receiver.
func (evt *Events) Publish(line string) bool {
	e, ok := Parse(line)
	if !ok {
		return false
	}

	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, sub := range evt.subs {
		if !sub.wants(e.Kind) {
			continue
		}

		select {
		case sub.ch <- e:
		default:
			sub.dropped++
		}
	}

	return true
}
