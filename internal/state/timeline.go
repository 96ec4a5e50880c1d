package state

import (
	"sync"
	"time"

	"github.com/prim5v/studyhub-frontend/internal/protocol"
	"github.com/prim5v/studyhub-frontend/pkg/errcode"
	"github.com/prim5v/studyhub-frontend/pkg/idgen"
)

// Message is one timeline entry. Pending entries carry a temp id and await
// server confirmation; confirmed entries are unique by server id and never
// mutate except for removal.
type Message struct {
	Id          string
	ClientMsgId string
	SenderId    int64
	SenderName  string
	Body        string
	CreatedAt   int64
	Pending     bool
}

// Timeline is the ordered, deduplicated message sequence of one conversation.
// Ordering is by CreatedAt, not append position, so an older history page
// arriving after a newer live push merges cleanly.
type Timeline struct {
	mu              sync.Mutex
	key             Key
	msgs            []*Message
	byId            map[string]struct{}
	loading         bool
	offset          int
	pageSize        int
	exhausted       bool
	reconcileWindow time.Duration
}

// NewTimeline creates an empty timeline for a conversation
func NewTimeline(key Key, pageSize int, reconcileWindow time.Duration) *Timeline {
	return &Timeline{
		key:             key,
		byId:            make(map[string]struct{}),
		pageSize:        pageSize,
		reconcileWindow: reconcileWindow,
	}
}

// Key returns the conversation this timeline belongs to
func (t *Timeline) Key() Key {
	return t.key
}

// BeginLoad reserves the next history page load and returns the offset to
// request. Only one page load may be in flight per conversation; a second
// call while one is pending is rejected rather than risking interleaved
// pages.
func (t *Timeline) BeginLoad() (offset int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loading {
		return 0, errcode.ErrPageInFlight
	}
	if t.exhausted {
		return 0, errcode.ErrFetchFailed.Wrap(errNoMorePages)
	}
	t.loading = true
	return t.offset, nil
}

var errNoMorePages = errcode.New(3006, "no more history")

// ApplyPage merges a history page response and releases the in-flight slot
func (t *Timeline) ApplyPage(page []*protocol.MessageData) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range page {
		t.insertLocked(fromWire(m))
	}
	t.offset += t.pageSize
	if len(page) < t.pageSize {
		t.exhausted = true
	}
	t.loading = false
}

// AbortLoad releases the in-flight slot after a failed page request
func (t *Timeline) AbortLoad() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading = false
}

// Loading reports whether a page load is in flight
func (t *Timeline) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// AppendIncoming inserts a live push. Idempotent under duplicate delivery:
// a message already present by id leaves the timeline unchanged.
func (t *Timeline) AppendIncoming(m *protocol.MessageData) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(fromWire(m))
}

// AppendOptimistic inserts a provisional entry before network confirmation
// and returns it. The entry carries a distinct temp id and the client message
// id the send request travels with.
func (t *Timeline) AppendOptimistic(clientMsgId string, senderId int64, senderName, body string) *Message {
	m := &Message{
		Id:          idgen.NextTempID(),
		ClientMsgId: clientMsgId,
		SenderId:    senderId,
		SenderName:  senderName,
		Body:        body,
		CreatedAt:   time.Now().UnixMilli(),
		Pending:     true,
	}

	t.mu.Lock()
	t.insertLocked(m)
	t.mu.Unlock()
	return m
}

// Reconcile replaces the matching provisional entry with its confirmed
// counterpart. Matching prefers the echoed client message id; when the
// backend does not echo one, the oldest pending entry with the same sender
// and body inside the reconcile window is taken. With no match the confirmed
// message is appended as a genuine new message rather than guessed away.
func (t *Timeline) Reconcile(confirmed *protocol.MessageData) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if confirmed.Id != "" {
		if _, dup := t.byId[confirmed.Id]; dup {
			return
		}
	}

	idx := t.matchPendingLocked(confirmed)
	if idx < 0 {
		t.insertLocked(fromWire(confirmed))
		return
	}

	old := t.msgs[idx]
	delete(t.byId, old.Id)
	t.msgs = append(t.msgs[:idx], t.msgs[idx+1:]...)
	t.insertLocked(fromWire(confirmed))
}

func (t *Timeline) matchPendingLocked(confirmed *protocol.MessageData) int {
	if confirmed.ClientMsgId != "" {
		for i, m := range t.msgs {
			if m.Pending && m.ClientMsgId == confirmed.ClientMsgId {
				return i
			}
		}
		return -1
	}

	now := time.Now().UnixMilli()
	window := t.reconcileWindow.Milliseconds()
	best := -1
	for i, m := range t.msgs {
		if !m.Pending || m.SenderId != confirmed.SenderId || m.Body != confirmed.Body {
			continue
		}
		if now-m.CreatedAt > window {
			continue
		}
		if best < 0 || m.CreatedAt < t.msgs[best].CreatedAt {
			best = i
		}
	}
	return best
}

// Remove deletes a confirmed entry, comment-deletion style
func (t *Timeline) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byId[id]; !ok {
		return false
	}
	delete(t.byId, id)
	for i, m := range t.msgs {
		if m.Id == id {
			t.msgs = append(t.msgs[:i], t.msgs[i+1:]...)
			break
		}
	}
	return true
}

// Messages returns a snapshot of the timeline, ordered by CreatedAt ascending
func (t *Timeline) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, len(t.msgs))
	for i, m := range t.msgs {
		out[i] = *m
	}
	return out
}

// Len returns the number of entries
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// insertLocked places a message at its CreatedAt position, keeping arrival
// order among equal timestamps. Returns false for a duplicate id.
func (t *Timeline) insertLocked(m *Message) bool {
	if m.Id != "" {
		if _, dup := t.byId[m.Id]; dup {
			return false
		}
		t.byId[m.Id] = struct{}{}
	}

	pos := len(t.msgs)
	for pos > 0 && t.msgs[pos-1].CreatedAt > m.CreatedAt {
		pos--
	}
	t.msgs = append(t.msgs, nil)
	copy(t.msgs[pos+1:], t.msgs[pos:])
	t.msgs[pos] = m
	return true
}

func fromWire(m *protocol.MessageData) *Message {
	return &Message{
		Id:          m.Id,
		ClientMsgId: m.ClientMsgId,
		SenderId:    m.SenderId,
		SenderName:  m.SenderName,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}
