package state

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/prim5v/studyhub-frontend/internal/protocol"
)

// Kind distinguishes the two conversation identifier spaces
type Kind string

const (
	KindPrivate Kind = "private"
	KindGroup   Kind = "group"
)

// Key is a kind-qualified conversation identity. Private and group
// conversations use different backend id spaces, so a bare numeric id is
// ambiguous; the kind prefix keeps them apart.
type Key string

// PrivateKey builds the key for a two-user thread, identified by the peer
func PrivateKey(peerUserId int64) Key {
	return Key(fmt.Sprintf("private:%d", peerUserId))
}

// GroupKey builds the key for a group thread
func GroupKey(groupId string) Key {
	return Key(fmt.Sprintf("group:%s", groupId))
}

// KeyKind returns the kind prefix of a key
func (k Key) KeyKind() Kind {
	if strings.HasPrefix(string(k), "group:") {
		return KindGroup
	}
	return KindPrivate
}

// PeerUserId extracts the peer from a private key
func (k Key) PeerUserId() (int64, bool) {
	rest, ok := strings.CutPrefix(string(k), "private:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// GroupId extracts the group id from a group key
func (k Key) GroupId() (string, bool) {
	return strings.CutPrefix(string(k), "group:")
}

// ConversationSummary is the client's cached view of one conversation
type ConversationSummary struct {
	Key           Key
	Kind          Kind
	PeerUserId    int64 // private only
	User1Id       int64
	User2Id       int64
	GroupId       string // group only
	DisplayName   string
	LastMessage   string
	LastMessageAt int64
	UnreadCount   int
	MemberCount   int
}

// ConversationStore reconciles conversation summaries from fetch responses
// and live pushes. Summaries for the two kinds are maintained independently
// but always presented merged, sorted descending by last activity. At most
// one summary exists per key.
type ConversationStore struct {
	mu          sync.Mutex
	byKey       map[Key]*ConversationSummary
	localUserId int64
	unread      *UnreadTracker
}

// NewConversationStore creates a store for the logged-in user
func NewConversationStore(localUserId int64, unread *UnreadTracker) *ConversationStore {
	return &ConversationStore{
		byKey:       make(map[Key]*ConversationSummary),
		localUserId: localUserId,
		unread:      unread,
	}
}

func (s *ConversationStore) keyFor(c *protocol.ConversationData, kind Kind) (Key, *ConversationSummary) {
	if kind == KindGroup {
		return GroupKey(c.GroupId), &ConversationSummary{
			Kind:          KindGroup,
			GroupId:       c.GroupId,
			DisplayName:   c.Name,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
			MemberCount:   c.MemberCount,
		}
	}

	peer := c.User1Id
	if peer == s.localUserId {
		peer = c.User2Id
	}
	return PrivateKey(peer), &ConversationSummary{
		Kind:          KindPrivate,
		PeerUserId:    peer,
		User1Id:       c.User1Id,
		User2Id:       c.User2Id,
		DisplayName:   c.Name,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
	}
}

// UpsertFromFetch replaces every summary of one kind from a fetch response,
// leaving the other kind untouched. A fetch for one kind must never drop
// entries of the other.
func (s *ConversationStore) UpsertFromFetch(kind Kind, list []*protocol.ConversationData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, summary := range s.byKey {
		if summary.Kind == kind {
			delete(s.byKey, key)
		}
	}

	for _, c := range list {
		key, summary := s.keyFor(c, kind)
		summary.Key = key
		s.byKey[key] = summary
	}
}

// KeyForMessage derives the conversation key a message belongs to, from the
// local user's perspective
func (s *ConversationStore) KeyForMessage(msg *protocol.MessageData) Key {
	if !msg.IsPrivate() {
		return GroupKey(msg.GroupId)
	}
	peer := msg.SenderId
	if peer == s.localUserId {
		peer = msg.ReceiverId
	}
	return PrivateKey(peer)
}

// ApplyIncoming folds a live message push into the summary for its
// conversation, creating the summary on first contact. Unread bumps are
// suppressed for self-sent messages and for the currently open conversation.
func (s *ConversationStore) ApplyIncoming(msg *protocol.MessageData) Key {
	key := s.KeyForMessage(msg)

	s.mu.Lock()
	summary, ok := s.byKey[key]
	if !ok {
		summary = &ConversationSummary{Key: key}
		if msg.IsPrivate() {
			summary.Kind = KindPrivate
			summary.PeerUserId = msg.SenderId
			if summary.PeerUserId == s.localUserId {
				summary.PeerUserId = msg.ReceiverId
			}
			summary.DisplayName = msg.SenderName
		} else {
			summary.Kind = KindGroup
			summary.GroupId = msg.GroupId
		}
		s.byKey[key] = summary
	}
	if summary.Kind == KindGroup && summary.DisplayName == "" && msg.GroupName != "" {
		summary.DisplayName = msg.GroupName
	}
	// A delayed older push must not pair its body with the newer timestamp
	if msg.CreatedAt >= summary.LastMessageAt {
		summary.LastMessage = msg.Body
		summary.LastMessageAt = msg.CreatedAt
	}
	s.mu.Unlock()

	s.unread.Incoming(key, msg.SenderId)
	return key
}

// MarkRead zeroes the unread count for a conversation; called when a view
// makes it the active one
func (s *ConversationStore) MarkRead(key Key) {
	s.unread.MarkRead(key)
}

// Get returns a copy of one summary
func (s *ConversationStore) Get(key Key) (ConversationSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, ok := s.byKey[key]
	if !ok {
		return ConversationSummary{}, false
	}
	out := *summary
	out.UnreadCount = s.unread.Count(key)
	return out, true
}

// List returns the merged summary list, sorted descending by last activity.
// Unread counts are joined in from the tracker.
func (s *ConversationStore) List() []ConversationSummary {
	s.mu.Lock()
	out := make([]ConversationSummary, 0, len(s.byKey))
	for _, summary := range s.byKey {
		entry := *summary
		entry.UnreadCount = s.unread.Count(entry.Key)
		out = append(out, entry)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastMessageAt != out[j].LastMessageAt {
			return out[i].LastMessageAt > out[j].LastMessageAt
		}
		return out[i].Key < out[j].Key
	})
	return out
}
