package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prim5v/studyhub-frontend/internal/protocol"
)

func newTestStore(localUser int64) (*ConversationStore, *UnreadTracker) {
	unread := NewUnreadTracker(localUser, time.Second)
	return NewConversationStore(localUser, unread), unread
}

func TestConversationStore_SortedAndUnique(t *testing.T) {
	store, _ := newTestStore(1)

	store.UpsertFromFetch(KindPrivate, []*protocol.ConversationData{
		{User1Id: 1, User2Id: 2, Name: "Bea", LastMessage: "hi", LastMessageAt: 100},
		{User1Id: 3, User2Id: 1, Name: "Cal", LastMessage: "yo", LastMessageAt: 300},
	})
	store.UpsertFromFetch(KindGroup, []*protocol.ConversationData{
		{GroupId: "9", Name: "Algorithms", LastMessage: "hw due", LastMessageAt: 200},
	})

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, PrivateKey(3), list[0].Key)
	assert.Equal(t, GroupKey("9"), list[1].Key)
	assert.Equal(t, PrivateKey(2), list[2].Key)

	// Re-fetching the same kind must not duplicate entries
	store.UpsertFromFetch(KindPrivate, []*protocol.ConversationData{
		{User1Id: 1, User2Id: 2, Name: "Bea", LastMessage: "hi again", LastMessageAt: 400},
	})
	list = store.List()
	require.Len(t, list, 2)
	assert.Equal(t, PrivateKey(2), list[0].Key)

	seen := map[Key]bool{}
	for _, c := range list {
		require.False(t, seen[c.Key], "duplicate key %s", c.Key)
		seen[c.Key] = true
	}
}

func TestConversationStore_FetchPreservesOtherKind(t *testing.T) {
	store, _ := newTestStore(1)

	store.UpsertFromFetch(KindGroup, []*protocol.ConversationData{
		{GroupId: "9", Name: "Algorithms", LastMessageAt: 200},
	})
	store.UpsertFromFetch(KindPrivate, []*protocol.ConversationData{
		{User1Id: 1, User2Id: 2, Name: "Bea", LastMessageAt: 100},
	})

	// A private refresh must never drop group entries, and vice versa
	store.UpsertFromFetch(KindPrivate, nil)
	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, KindGroup, list[0].Kind)

	store.UpsertFromFetch(KindGroup, nil)
	assert.Empty(t, store.List())
}

func TestConversationStore_ApplyIncoming(t *testing.T) {
	store, unread := newTestStore(1)

	key := store.ApplyIncoming(&protocol.MessageData{
		SenderId:   2,
		SenderName: "Bea",
		ReceiverId: 1,
		GroupId:    protocol.PrivateGroupSentinel,
		Body:       "hello",
		CreatedAt:  100,
	})
	assert.Equal(t, PrivateKey(2), key)

	summary, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "hello", summary.LastMessage)
	assert.Equal(t, 1, summary.UnreadCount)

	// Self-sent messages update the summary but never the unread count
	store.ApplyIncoming(&protocol.MessageData{
		SenderId:   1,
		ReceiverId: 2,
		GroupId:    protocol.PrivateGroupSentinel,
		Body:       "hi back",
		CreatedAt:  200,
	})
	summary, _ = store.Get(key)
	assert.Equal(t, "hi back", summary.LastMessage)
	assert.Equal(t, 1, summary.UnreadCount)

	// Open conversations stay at zero
	unread.SetOpen(key)
	store.ApplyIncoming(&protocol.MessageData{
		SenderId:   2,
		ReceiverId: 1,
		GroupId:    protocol.PrivateGroupSentinel,
		Body:       "still there?",
		CreatedAt:  300,
	})
	summary, _ = store.Get(key)
	assert.Equal(t, 0, summary.UnreadCount)
}

func TestConversationStore_OutOfOrderPushKeepsNewestBody(t *testing.T) {
	store, _ := newTestStore(1)

	key := store.ApplyIncoming(&protocol.MessageData{
		SenderId: 2, ReceiverId: 1, GroupId: protocol.PrivateGroupSentinel,
		Body: "second", CreatedAt: 200,
	})
	// A delayed push of the earlier message arrives after the later one
	store.ApplyIncoming(&protocol.MessageData{
		SenderId: 2, ReceiverId: 1, GroupId: protocol.PrivateGroupSentinel,
		Body: "first", CreatedAt: 100,
	})

	summary, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "second", summary.LastMessage)
	assert.Equal(t, int64(200), summary.LastMessageAt)
}

func TestConversationStore_CreatesOnFirstPush(t *testing.T) {
	store, _ := newTestStore(1)

	key := store.ApplyIncoming(&protocol.MessageData{
		SenderId:  3,
		GroupId:   "9",
		Body:      "anyone solved q3?",
		CreatedAt: 50,
	})
	assert.Equal(t, GroupKey("9"), key)

	summary, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, KindGroup, summary.Kind)
	assert.Equal(t, "9", summary.GroupId)
	assert.Equal(t, 1, summary.UnreadCount)
}

func TestConversationStore_GroupNameFromPush(t *testing.T) {
	store, _ := newTestStore(1)

	// A nameless first push leaves the summary pending a name
	key := store.ApplyIncoming(&protocol.MessageData{
		SenderId: 3, GroupId: "9", Body: "anyone?", CreatedAt: 50,
	})
	summary, _ := store.Get(key)
	assert.Empty(t, summary.DisplayName)

	// A later push carrying the group name back-fills it
	store.ApplyIncoming(&protocol.MessageData{
		SenderId: 4, GroupId: "9", GroupName: "Algorithms", Body: "me", CreatedAt: 60,
	})
	summary, _ = store.Get(key)
	assert.Equal(t, "Algorithms", summary.DisplayName)

	// A fetch refresh replaces the summary, name included
	store.UpsertFromFetch(KindGroup, []*protocol.ConversationData{
		{GroupId: "9", Name: "Algorithms Study Group", LastMessageAt: 70},
	})
	summary, _ = store.Get(key)
	assert.Equal(t, "Algorithms Study Group", summary.DisplayName)
}

func TestKeyHelpers(t *testing.T) {
	peer, ok := PrivateKey(42).PeerUserId()
	require.True(t, ok)
	assert.Equal(t, int64(42), peer)
	assert.Equal(t, KindPrivate, PrivateKey(42).KeyKind())

	gid, ok := GroupKey("7").GroupId()
	require.True(t, ok)
	assert.Equal(t, "7", gid)
	assert.Equal(t, KindGroup, GroupKey("7").KeyKind())

	_, ok = GroupKey("7").PeerUserId()
	assert.False(t, ok)
}
