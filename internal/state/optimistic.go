package state

import (
	"fmt"
	"sync"
)

// EntityKey identifies one toggleable entity across every view that renders
// it (a user's follow state, a resource's like or favorite state)
type EntityKey string

// FollowEntity keys a follow edge toward a user
func FollowEntity(userId int64) EntityKey {
	return EntityKey(fmt.Sprintf("follow:%d", userId))
}

// LikeEntity keys a like state on a resource
func LikeEntity(resourceId int64) EntityKey {
	return EntityKey(fmt.Sprintf("like:%d", resourceId))
}

// FavoriteEntity keys a favorite state on a resource
func FavoriteEntity(resourceId int64) EntityKey {
	return EntityKey(fmt.Sprintf("favorite:%d", resourceId))
}

// ToggleState is a boolean-plus-counter mirrored from server responses
type ToggleState struct {
	Active bool
	Count  int
}

// ToggleListener observes one entity's state from a view-local copy
type ToggleListener func(key EntityKey, st ToggleState)

// ToggleCoordinator applies optimistic flips for toggle-shaped actions
// (follow, like, favorite) and reconciles them against server confirmations.
// Several views can hold independent copies of the same entity, so every
// state change broadcasts to all listeners registered under the entity key,
// not just the view that initiated the action.
type ToggleCoordinator struct {
	mu        sync.Mutex
	states    map[EntityKey]ToggleState
	prior     map[EntityKey]ToggleState
	listeners map[EntityKey]map[uint64]ToggleListener
	seq       uint64
}

// NewToggleCoordinator creates an empty coordinator
func NewToggleCoordinator() *ToggleCoordinator {
	return &ToggleCoordinator{
		states:    make(map[EntityKey]ToggleState),
		prior:     make(map[EntityKey]ToggleState),
		listeners: make(map[EntityKey]map[uint64]ToggleListener),
	}
}

// Seed installs server truth for an entity without optimistic bookkeeping
// (fetch responses) and broadcasts it
func (c *ToggleCoordinator) Seed(key EntityKey, st ToggleState) {
	c.mu.Lock()
	c.states[key] = st
	ls := c.listenersLocked(key)
	c.mu.Unlock()

	for _, l := range ls {
		l(key, st)
	}
}

// Apply flips an entity optimistically, remembers the prior state for
// rollback and returns the provisional state the caller should emit from
func (c *ToggleCoordinator) Apply(key EntityKey) ToggleState {
	c.mu.Lock()
	cur := c.states[key]
	if _, inFlight := c.prior[key]; !inFlight {
		c.prior[key] = cur
	}

	next := ToggleState{Active: !cur.Active, Count: cur.Count}
	if next.Active {
		next.Count++
	} else if next.Count > 0 {
		next.Count--
	}
	c.states[key] = next
	ls := c.listenersLocked(key)
	c.mu.Unlock()

	for _, l := range ls {
		l(key, next)
	}
	return next
}

// Confirm commits server truth for an entity, ending any in-flight optimism,
// and broadcasts to every local copy
func (c *ToggleCoordinator) Confirm(key EntityKey, st ToggleState) {
	c.mu.Lock()
	delete(c.prior, key)
	c.states[key] = st
	ls := c.listenersLocked(key)
	c.mu.Unlock()

	for _, l := range ls {
		l(key, st)
	}
}

// Reject rolls an entity back to its pre-optimistic state after an error or
// mismatched confirmation
func (c *ToggleCoordinator) Reject(key EntityKey) {
	c.mu.Lock()
	st, ok := c.prior[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.prior, key)
	c.states[key] = st
	ls := c.listenersLocked(key)
	c.mu.Unlock()

	for _, l := range ls {
		l(key, st)
	}
}

// State returns the current state of an entity
func (c *ToggleCoordinator) State(key EntityKey) ToggleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[key]
}

// Subscribe registers a view-local copy; the returned func removes it.
// Registration and removal must pair with the view's lifetime.
func (c *ToggleCoordinator) Subscribe(key EntityKey, l ToggleListener) func() {
	c.mu.Lock()
	c.seq++
	id := c.seq
	if c.listeners[key] == nil {
		c.listeners[key] = make(map[uint64]ToggleListener)
	}
	c.listeners[key][id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if m := c.listeners[key]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(c.listeners, key)
			}
		}
		c.mu.Unlock()
	}
}

func (c *ToggleCoordinator) listenersLocked(key EntityKey) []ToggleListener {
	m := c.listeners[key]
	out := make([]ToggleListener, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	return out
}
