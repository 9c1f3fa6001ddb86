// Package session tracks who is signed in and broadcasts sign-in and
// sign-out transitions to interested components.
package session

import (
	"sync"
	"sync/atomic"
)

// Identity describes an authenticated user.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// EventType distinguishes session transitions.
type EventType int

const (
	// SignedIn means a user's session became active.
	SignedIn EventType = iota

	// SignedOut means a user's session ended.
	SignedOut
)

// Event is a session transition delivered to subscribers.
type Event struct {
	Type     EventType
	Identity Identity
}

// Listener receives session events. Listeners run synchronously on the
// delivering goroutine and must not block.
type Listener func(Event)

// Observer maintains the set of active sessions and notifies subscribers of
// transitions. Until the session feed has caught up the observer reports
// itself as resolving; readers should treat unknown users as signed out
// rather than failing.
type Observer struct {
	mu        sync.RWMutex
	sessions  map[string]Identity
	listeners map[int]Listener
	nextID    int

	resolved atomic.Bool
}

// NewObserver creates an observer with no active sessions.
func NewObserver() *Observer {
	return &Observer{
		sessions:  make(map[string]Identity),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (o *Observer) Subscribe(l Listener) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = l
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// SignedIn records an active session and notifies subscribers. Repeated
// sign-ins for the same user refresh the identity without a second event.
func (o *Observer) SignedIn(id Identity) {
	o.mu.Lock()
	_, existed := o.sessions[id.UserID]
	o.sessions[id.UserID] = id
	listeners := o.snapshotListeners()
	o.mu.Unlock()

	if existed {
		return
	}
	for _, l := range listeners {
		l(Event{Type: SignedIn, Identity: id})
	}
}

// SignedOut removes the session and notifies subscribers. Unknown users are
// ignored so replayed sign-out events are harmless.
func (o *Observer) SignedOut(userID string) {
	o.mu.Lock()
	id, existed := o.sessions[userID]
	if existed {
		delete(o.sessions, userID)
	}
	listeners := o.snapshotListeners()
	o.mu.Unlock()

	if !existed {
		return
	}
	for _, l := range listeners {
		l(Event{Type: SignedOut, Identity: id})
	}
}

// Identity returns the active identity for the user, if any.
func (o *Observer) Identity(userID string) (Identity, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	id, ok := o.sessions[userID]
	return id, ok
}

// ActiveCount returns the number of tracked sessions.
func (o *Observer) ActiveCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.sessions)
}

// MarkResolved flips the observer out of the resolving state. The session
// feed calls this once it is consuming.
func (o *Observer) MarkResolved() {
	o.resolved.Store(true)
}

// Resolved reports whether the initial session state has been established.
func (o *Observer) Resolved() bool {
	return o.resolved.Load()
}

// snapshotListeners copies the listener set. Callers hold o.mu.
func (o *Observer) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(o.listeners))
	for _, l := range o.listeners {
		out = append(out, l)
	}
	return out
}
