// Package events allows for the registering and receiving of ledger events.
package events

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// messageBuffer is the number of messages held for a slow receiver before
// messages are dropped. Websocket writes can take a while.
const messageBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	mu      sync.RWMutex
	m       map[string]subscriber
	dropped atomic.Uint64
}

type subscriber struct {
	ch     chan string
	prefix string
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]subscriber),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.m {
		delete(evt.m, id)
		close(sub.ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used to
// receive events. Only events starting with the prefix are delivered, an
// empty prefix receives everything.
func (evt *Events) Acquire(id string, prefix string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.m[id]; exists {
		return sub.ch
	}

	sub := subscriber{
		ch:     make(chan string, messageBuffer),
		prefix: prefix,
	}
	evt.m[id] = sub

	return sub.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(sub.ch)

	return nil
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel, the message is dropped for
// a receiver that is full.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.m {
		if !strings.HasPrefix(s, sub.prefix) {
			continue
		}

		select {
		case sub.ch <- s:
		default:
			evt.dropped.Add(1)
		}
	}
}

// Len returns the number of registered receivers.
func (evt *Events) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Dropped returns the number of messages dropped for slow receivers.
func (evt *Events) Dropped() uint64 {
	return evt.dropped.Load()
}
