package transport

import (
	"sort"
	"sync"

	"github.com/prim5v/studyhub-frontend/internal/protocol"
)

// Handler receives a dispatched event. The frame carries the envelope; payload
// is the decoded, schema-checked value (nil for connection lifecycle events).
// Handlers run on the read-loop goroutine, in arrival order.
type Handler func(frame *protocol.Frame, payload interface{})

// SubId identifies one registration so it can be removed symmetrically
type SubId uint64

// Emitter is the additive handler registry behind the shared channel. Every
// On must be paired with an Off; the Scope type enforces the pairing for
// component lifetimes.
type Emitter struct {
	mu       sync.RWMutex
	seq      SubId
	handlers map[string]map[SubId]Handler
}

// NewEmitter creates an empty emitter
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[string]map[SubId]Handler),
	}
}

// On registers a handler for an event and returns its removal id
func (e *Emitter) On(event string, h Handler) SubId {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	id := e.seq
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[SubId]Handler)
	}
	e.handlers[event][id] = h
	return id
}

// Off removes a previously registered handler
func (e *Emitter) Off(event string, id SubId) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m := e.handlers[event]; m != nil {
		delete(m, id)
		if len(m) == 0 {
			delete(e.handlers, event)
		}
	}
}

// HandlerCount returns the number of live handlers for an event
func (e *Emitter) HandlerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// Emit dispatches to every handler registered for the event, in registration
// order
func (e *Emitter) Emit(event string, frame *protocol.Frame, payload interface{}) {
	e.mu.RLock()
	m := e.handlers[event]
	ids := make([]SubId, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	hs := make([]Handler, 0, len(ids))
	for _, id := range ids {
		hs = append(hs, m[id])
	}
	e.mu.RUnlock()

	for _, h := range hs {
		h(frame, payload)
	}
}

type scopeSub struct {
	event string
	id    SubId
}

// Scope bundles handler registrations to one owner lifetime. A view acquires
// its handlers through a scope on activation and releases all of them with a
// single Close on teardown, so handlers cannot accumulate across remounts of
// the same view.
type Scope struct {
	emitter *Emitter
	mu      sync.Mutex
	subs    []scopeSub
	closed  bool
}

// NewScope creates a scope over this emitter
func (e *Emitter) NewScope() *Scope {
	return &Scope{emitter: e}
}

// On registers a handler owned by the scope. Registration on a closed scope
// is dropped: the owner is already torn down and must not receive events.
func (s *Scope) On(event string, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrScopeClosed
	}
	id := s.emitter.On(event, h)
	s.subs = append(s.subs, scopeSub{event: event, id: id})
	return nil
}

// Close releases every handler the scope registered. Idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, sub := range s.subs {
		s.emitter.Off(sub.event, sub.id)
	}
	s.subs = nil
}

// Closed reports whether the scope has been released
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
