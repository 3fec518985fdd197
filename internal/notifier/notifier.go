// Package notifier propagates ledger change events to interested callbacks.
// Delivery is best effort: events are a latency optimization over fetching a
// fresh snapshot, never a replacement for it. A client offline when an event
// fires simply misses it.
package notifier

import (
	"fmt"
	"sync"

	"github.com/jonatato/routeit-sub001/internal/models"
)

// LedgerScope subscribes to one ledger's changes; UserScope subscribes to
// every ledger a user can see.
func LedgerScope(ledgerID string) string { return "ledger:" + ledgerID }
func UserScope(userID string) string     { return "user:" + userID }

type Subscription struct {
	bus   *Bus
	scope string
	id    int
}

// Cancel detaches the subscription. Components that subscribe on activation
// must cancel on deactivation or events keep flowing to a dead callback.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subs[s.scope]
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(s.bus.subs, s.scope)
	}
	s.bus = nil
}

// Bus fans change events out to scoped subscriptions. Multiple subscriptions
// to the same scope each receive their own copy of every event.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(models.ChangeEvent)

	// visibility resolves a ledger id to the user ids that can see it, so
	// ledger events also reach user-scoped subscriptions. Optional.
	visibility func(ledgerID string) []string
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(models.ChangeEvent))}
}

// SetVisibility installs the ledger-to-users lookup used to route ledger
// events to user scopes.
func (b *Bus) SetVisibility(fn func(ledgerID string) []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visibility = fn
}

func (b *Bus) Subscribe(scope string, fn func(models.ChangeEvent)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.subs[scope] == nil {
		b.subs[scope] = make(map[int]func(models.ChangeEvent))
	}
	b.subs[scope][id] = fn
	return &Subscription{bus: b, scope: scope, id: id}
}

// Publish delivers an event to the ledger scope and to the user scope of
// every user who can see the ledger. Callbacks run synchronously outside the
// bus lock, on the publisher's goroutine.
func (b *Bus) Publish(event models.ChangeEvent) {
	b.mu.Lock()
	visibility := b.visibility
	b.mu.Unlock()

	// The visibility lookup may hit storage; keep it outside the lock.
	scopes := []string{LedgerScope(event.LedgerID)}
	if visibility != nil {
		for _, userID := range visibility(event.LedgerID) {
			scopes = append(scopes, UserScope(userID))
		}
	}

	b.mu.Lock()
	var callbacks []func(models.ChangeEvent)
	for _, scope := range scopes {
		for _, fn := range b.subs[scope] {
			callbacks = append(callbacks, fn)
		}
	}
	b.mu.Unlock()
	for _, fn := range callbacks {
		fn(event)
	}
}

// SubscriberCount is used by tests and the metrics endpoint.
func (b *Bus) SubscriberCount(scope string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[scope])
}

func (b *Bus) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("notifier.Bus(%d scopes)", len(b.subs))
}
