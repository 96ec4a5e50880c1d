package state

import (
	"sync"
	"time"
)

// UnreadTracker derives per-conversation and global unread counters from
// incoming pushes. The currently open conversation is always forced to zero;
// counts only grow for messages not authored by the local user and not
// targeting the open conversation. The highlight is a presentation signal
// that expires on its own, never persisted state.
type UnreadTracker struct {
	mu             sync.Mutex
	localUserId    int64
	counts         map[Key]int
	openKey        Key
	highlightKey   Key
	highlightUntil time.Time
	highlightDur   time.Duration
}

// NewUnreadTracker creates a tracker for the logged-in user
func NewUnreadTracker(localUserId int64, highlightDur time.Duration) *UnreadTracker {
	return &UnreadTracker{
		localUserId:  localUserId,
		counts:       make(map[Key]int),
		highlightDur: highlightDur,
	}
}

// SetOpen marks a conversation as the active one. Its count drops to zero
// immediately and stays there while open.
func (t *UnreadTracker) SetOpen(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openKey = key
	delete(t.counts, key)
}

// ClearOpen marks no conversation as active
func (t *UnreadTracker) ClearOpen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openKey = ""
}

// Open returns the currently active conversation key, empty when none
func (t *UnreadTracker) Open() Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openKey
}

// Incoming registers a qualifying push. Self-sent messages and pushes for
// the open conversation never count.
func (t *UnreadTracker) Incoming(key Key, senderId int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if senderId == t.localUserId || key == t.openKey {
		return
	}
	t.counts[key]++
	t.highlightKey = key
	t.highlightUntil = time.Now().Add(t.highlightDur)
}

// MarkRead zeroes one conversation's count
func (t *UnreadTracker) MarkRead(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, key)
}

// Count returns one conversation's unread count
func (t *UnreadTracker) Count(key Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[key]
}

// Total returns the global unread badge value
func (t *UnreadTracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, n := range t.counts {
		total += n
	}
	return total
}

// Highlighted returns the conversation to visually emphasize, if the signal
// has not expired yet
func (t *UnreadTracker) Highlighted() (Key, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.highlightKey == "" || time.Now().After(t.highlightUntil) {
		return "", false
	}
	return t.highlightKey, true
}
