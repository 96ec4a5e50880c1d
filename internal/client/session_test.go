package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prim5v/studyhub-frontend/internal/config"
	"github.com/prim5v/studyhub-frontend/internal/localstate"
	"github.com/prim5v/studyhub-frontend/internal/protocol"
	"github.com/prim5v/studyhub-frontend/internal/state"
	"github.com/prim5v/studyhub-frontend/pkg/errcode"
)

// fakeBackend scripts the server side of the channel: per-event reply
// functions plus direct pushes. It also serves the HTTP endpoints the
// session touches.
type fakeBackend struct {
	t      *testing.T
	srv    *httptest.Server
	mu         sync.Mutex
	conns      []*websocket.Conn
	script     map[string]func(conn *websocket.Conn, f *protocol.Frame)
	publicGate chan struct{} // when set, the public history fetch blocks until closed
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		t:      t,
		script: make(map[string]func(conn *websocket.Conn, f *protocol.Frame)),
	}
	up := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			b.serveHTTP(w, r)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.mu.Unlock()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := protocol.DecodeFrame(raw)
			if err != nil {
				continue
			}
			b.mu.Lock()
			h := b.script[f.Event]
			b.mu.Unlock()
			if h != nil {
				h(conn, f)
			}
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/public-messages":
		b.mu.Lock()
		gate := b.publicGate
		b.mu.Unlock()
		if gate != nil {
			<-gate
		}
		io.WriteString(w, `[{"id": "p1", "sender_id": 3, "sender_name": "Cal", "message": "hi all", "created_at": 100}]`)
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) on(event string, h func(conn *websocket.Conn, f *protocol.Frame)) {
	b.mu.Lock()
	b.script[event] = h
	b.mu.Unlock()
}

// reply sends a direct response frame echoing the request's op id
func (b *fakeBackend) reply(conn *websocket.Conn, event, opId string, payload interface{}) {
	raw, err := protocol.EncodeFrame(event, opId, payload)
	require.NoError(b.t, err)
	require.NoError(b.t, conn.WriteMessage(websocket.TextMessage, raw))
}

// push broadcasts a server-initiated frame on the newest connection
func (b *fakeBackend) push(event string, payload interface{}) {
	raw, err := protocol.EncodeFrame(event, "", payload)
	require.NoError(b.t, err)
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(b.t, b.conns)
	require.NoError(b.t, b.conns[len(b.conns)-1].WriteMessage(websocket.TextMessage, raw))
}

// scriptDefaults installs the happy-path handlers every scenario shares
func (b *fakeBackend) scriptDefaults() {
	b.on(protocol.EvLogin, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvLoginResponse, f.OpId, &protocol.AuthResp{
			StatusResp: protocol.StatusResp{Status: "success"},
			User:       &protocol.AuthUser{UserId: 1, Name: "Ada", Token: "tok-1"},
		})
	})
	b.on(protocol.EvGetPrivateConversations, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvPrivateConversations, f.OpId, []*protocol.ConversationData{
			{User1Id: 1, User2Id: 2, Name: "Bea", LastMessage: "hi", LastMessageAt: 100},
		})
	})
	b.on(protocol.EvGetGroupConversations, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvGroupConversations, f.OpId, []*protocol.ConversationData{
			{GroupId: "9", Name: "Algorithms", LastMessage: "hw due", LastMessageAt: 50, MemberCount: 4},
		})
	})
	b.on(protocol.EvGetPrivateMessages, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvPrivateMessages, f.OpId, []*protocol.MessageData{})
	})
	b.on(protocol.EvGetGroupMessages, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvGroupMessages, f.OpId, []*protocol.MessageData{})
	})
	b.on(protocol.EvSendMessage, func(conn *websocket.Conn, f *protocol.Frame) {
		var req protocol.SendMessageReq
		if err := protocol.Decode(f.Data, &req); err != nil {
			return
		}
		b.reply(conn, protocol.EvNewMessage, "", &protocol.MessageData{
			Id:          "55",
			ClientMsgId: req.ClientMsgId,
			SenderId:    req.SenderId,
			SenderName:  "Ada",
			ReceiverId:  req.ReceiverId,
			GroupId:     req.GroupId,
			Body:        req.Body,
			CreatedAt:   time.Now().UnixMilli(),
		})
	})
}

func testConfig(b *fakeBackend) *config.Config {
	cfg := config.Default()
	cfg.Server.BaseURL = b.srv.URL
	cfg.Server.WSURL = "ws" + strings.TrimPrefix(b.srv.URL, "http")
	cfg.Server.WSPath = "/ws"
	cfg.WebSocket.ReconnectDelay = 20 * time.Millisecond
	cfg.WebSocket.RequestTimeout = 2 * time.Second
	return cfg
}

func newTestSession(t *testing.T, b *fakeBackend) *Session {
	t.Helper()
	local, err := localstate.NewStore(t.TempDir())
	require.NoError(t, err)

	s, err := New(testConfig(b), local)
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func loginTestSession(t *testing.T, b *fakeBackend) *Session {
	t.Helper()
	b.scriptDefaults()
	s := newTestSession(t, b)
	require.NoError(t, s.Login(context.Background(), "ada@uni.edu", "pw"))
	return s
}

func TestSession_LoginEstablishes(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	user := s.User()
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.UserId)
	assert.Equal(t, "Ada", user.Name)

	// The session record survives for the next start
	rec, err := s.Local().Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "tok-1", rec.Token)
}

func TestSession_LoginRejected(t *testing.T) {
	b := newFakeBackend(t)
	b.on(protocol.EvLogin, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvLoginResponse, f.OpId, &protocol.AuthResp{
			StatusResp: protocol.StatusResp{Status: "error", Message: "bad credentials"},
		})
	})
	s := newTestSession(t, b)

	err := s.Login(context.Background(), "ada@uni.edu", "wrong")
	var coded *errcode.Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, errcode.ErrLoginFailed.Code, coded.Code)
	assert.Nil(t, s.User())
}

func TestSession_OperationsRequireLogin(t *testing.T) {
	b := newFakeBackend(t)
	s := newTestSession(t, b)

	_, err := s.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, errcode.ErrNotLoggedIn)
	assert.ErrorIs(t, s.OpenConversation(context.Background(), state.PrivateKey(2)), errcode.ErrNotLoggedIn)
	assert.ErrorIs(t, s.FetchConversations(context.Background()), errcode.ErrNotLoggedIn)
}

func TestSession_FetchConversations(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	require.NoError(t, s.FetchConversations(context.Background()))

	list := s.Conversations()
	require.Len(t, list, 2)
	assert.Equal(t, state.PrivateKey(2), list[0].Key)
	assert.Equal(t, state.GroupKey("9"), list[1].Key)
}

func TestSession_SendMessageRoundTrip(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	require.NoError(t, s.FetchConversations(context.Background()))
	require.NoError(t, s.OpenConversation(context.Background(), state.PrivateKey(2)))

	msg, err := s.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, msg.Pending)

	// The confirmation push replaces the provisional entry in place
	tl := s.Timeline(state.PrivateKey(2))
	require.Eventually(t, func() bool {
		msgs := tl.Messages()
		return len(msgs) == 1 && msgs[0].Id == "55" && !msgs[0].Pending
	}, 3*time.Second, 10*time.Millisecond, "provisional entry never confirmed")

	msgs := tl.Messages()
	assert.Equal(t, "hello", msgs[0].Body)
	assert.Equal(t, int64(1), msgs[0].SenderId)
}

func TestSession_UnreadSuppressionForOpenConversation(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	require.NoError(t, s.FetchConversations(context.Background()))
	require.NoError(t, s.OpenConversation(context.Background(), state.PrivateKey(2)))

	// A push into another conversation counts
	b.push(protocol.EvNewMessage, &protocol.MessageData{
		Id: "70", SenderId: 3, SenderName: "Cal", GroupId: "9",
		Body: "anyone solved q3?", CreatedAt: time.Now().UnixMilli(),
	})
	require.Eventually(t, func() bool {
		return s.Unread().Count(state.GroupKey("9")) == 1
	}, 3*time.Second, 10*time.Millisecond)

	// A push into the open conversation does not
	b.push(protocol.EvNewMessage, &protocol.MessageData{
		Id: "71", SenderId: 2, SenderName: "Bea", ReceiverId: 1,
		GroupId: protocol.PrivateGroupSentinel,
		Body:    "still there?", CreatedAt: time.Now().UnixMilli(),
	})
	require.Eventually(t, func() bool {
		return s.Timeline(state.PrivateKey(2)).Len() == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, s.Unread().Count(state.PrivateKey(2)))
	assert.Equal(t, 1, s.Unread().Total())

	// Both pushes updated their conversation summaries
	list := s.Conversations()
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].UnreadCount+list[1].UnreadCount)
}

func TestSession_CloseConversationRestoresCounting(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	require.NoError(t, s.FetchConversations(context.Background()))
	require.NoError(t, s.OpenConversation(context.Background(), state.PrivateKey(2)))
	s.CloseConversation()

	b.push(protocol.EvNewMessage, &protocol.MessageData{
		Id: "72", SenderId: 2, SenderName: "Bea", ReceiverId: 1,
		GroupId: protocol.PrivateGroupSentinel,
		Body:    "you left", CreatedAt: time.Now().UnixMilli(),
	})
	require.Eventually(t, func() bool {
		return s.Unread().Count(state.PrivateKey(2)) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSession_FollowBroadcast(t *testing.T) {
	b := newFakeBackend(t)
	b.on(protocol.EvFollow, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvFollowResponse, "", &protocol.FollowResp{
			StatusResp:     protocol.StatusResp{Status: "success"},
			FollowerId:     1,
			FollowingId:    2,
			FollowersCount: 11,
		})
	})
	s := loginTestSession(t, b)

	key := state.FollowEntity(2)
	s.Toggles().Seed(key, state.ToggleState{Active: false, Count: 10})

	// The same user rendered on a profile view and a suggestion card
	var mu sync.Mutex
	var profile, card state.ToggleState
	unsub1 := s.Toggles().Subscribe(key, func(_ state.EntityKey, st state.ToggleState) {
		mu.Lock()
		profile = st
		mu.Unlock()
	})
	defer unsub1()
	unsub2 := s.Toggles().Subscribe(key, func(_ state.EntityKey, st state.ToggleState) {
		mu.Lock()
		card = st
		mu.Unlock()
	})
	defer unsub2()

	provisional, err := s.ToggleFollow(2)
	require.NoError(t, err)
	assert.Equal(t, state.ToggleState{Active: true, Count: 11}, provisional)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return profile == card && profile == state.ToggleState{Active: true, Count: 11}
	}, 3*time.Second, 10*time.Millisecond, "confirmation never reached every copy")
	assert.Equal(t, state.ToggleState{Active: true, Count: 11}, s.Toggles().State(key))
}

func TestSession_FollowRejectedRollsBack(t *testing.T) {
	b := newFakeBackend(t)
	b.on(protocol.EvFollow, func(conn *websocket.Conn, f *protocol.Frame) {
		b.reply(conn, protocol.EvFollowResponse, "", &protocol.FollowResp{
			StatusResp:  protocol.StatusResp{Status: "error", Message: "blocked"},
			FollowingId: 2,
		})
	})
	s := loginTestSession(t, b)

	key := state.FollowEntity(2)
	s.Toggles().Seed(key, state.ToggleState{Active: false, Count: 10})

	_, err := s.ToggleFollow(2)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Toggles().State(key) == state.ToggleState{Active: false, Count: 10}
	}, 3*time.Second, 10*time.Millisecond, "rejected flip never rolled back")
}

func TestSession_PublicChat(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	require.NoError(t, s.JoinPublicChat(context.Background()))

	msgs := s.PublicMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi all", msgs[0].Body)

	b.push(protocol.EvNewPublicMessage, &protocol.MessageData{
		Id: "p2", SenderId: 4, SenderName: "Dao", Body: "new here",
		CreatedAt: time.Now().UnixMilli(),
	})
	require.Eventually(t, func() bool {
		return len(s.PublicMessages()) == 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSession_LogoutDuringPublicJoin(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	gate := make(chan struct{})
	b.mu.Lock()
	b.publicGate = gate
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.JoinPublicChat(context.Background()) }()

	// Log out while the history fetch is parked, then release it. The late
	// response lands on a torn-down session and must be dropped, not applied.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Logout(context.Background()))
	close(gate)

	assert.ErrorIs(t, <-done, errcode.ErrNotLoggedIn)
	assert.Empty(t, s.PublicMessages())

	_, err := s.SendPublicMessage(context.Background(), "late")
	assert.ErrorIs(t, err, errcode.ErrNotLoggedIn)
}

func TestSession_MyNotes(t *testing.T) {
	b := newFakeBackend(t)
	b.on(protocol.EvGetMyNotes, func(conn *websocket.Conn, f *protocol.Frame) {
		var req protocol.GetMyNotesReq
		require.NoError(t, protocol.Decode(f.Data, &req))
		assert.Equal(t, int64(1), req.UserId)
		b.reply(conn, protocol.EvMyNotesResponse, f.OpId, &protocol.MyNotesResp{
			Notes: []*protocol.NoteData{
				{ResourceId: 7, ResourceName: "Graphs cheat sheet", CourseName: "CS", UploaderName: "Cal"},
			},
		})
	})
	s := loginTestSession(t, b)

	notes, err := s.MyNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, int64(7), notes[0].ResourceId)
	assert.Equal(t, "Graphs cheat sheet", notes[0].ResourceName)
}

func TestSession_PresenceAndNotifications(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	b.push(protocol.EvUserStatus, &protocol.UserStatusResp{UserId: 2, IsOnline: true})
	require.Eventually(t, func() bool {
		online, _ := s.PeerStatus(2)
		return online
	}, 3*time.Second, 10*time.Millisecond)

	b.push(protocol.EvUserStatus, &protocol.UserStatusResp{UserId: 2, IsOnline: false, LastSeen: 1700000000})
	require.Eventually(t, func() bool {
		online, lastSeen := s.PeerStatus(2)
		return !online && lastSeen == 1700000000
	}, 3*time.Second, 10*time.Millisecond)

	b.push(protocol.EvUserInfo, &protocol.UserInfo{UserId: 2, Name: "Bea", Course: "CS"})
	require.Eventually(t, func() bool {
		return s.PeerInfo(2) != nil
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "CS", s.PeerInfo(2).Course)

	b.push(protocol.EvNotification, &protocol.NotificationData{
		Type: "follow", Message: "Bea started following you", FromUserId: 2,
	})
	require.Eventually(t, func() bool {
		return len(s.Notifications()) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "follow", s.Notifications()[0].Type)

	s.ClearNotifications()
	assert.Empty(t, s.Notifications())
}

func TestSession_ResumeStates(t *testing.T) {
	b := newFakeBackend(t)
	b.scriptDefaults()

	local, err := localstate.NewStore(t.TempDir())
	require.NoError(t, err)
	s, err := New(testConfig(b), local)
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Close()

	// No record yet
	assert.ErrorIs(t, s.Resume(context.Background()), errcode.ErrNotLoggedIn)

	// A stored record restores the identity without re-authenticating
	require.NoError(t, local.Save(&localstate.Record{UserId: 1, Name: "Ada", Token: ""}))
	require.NoError(t, s.Resume(context.Background()))
	require.NotNil(t, s.User())
	assert.Equal(t, int64(1), s.User().UserId)
}

func TestSession_LogoutClearsEverything(t *testing.T) {
	b := newFakeBackend(t)
	s := loginTestSession(t, b)

	require.NoError(t, s.FetchConversations(context.Background()))
	require.NotEmpty(t, s.Conversations())

	require.NoError(t, s.Logout(context.Background()))
	assert.Nil(t, s.User())
	assert.Empty(t, s.Conversations())

	rec, err := s.Local().Load()
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Pushes after logout are ignored, not crashed on
	b.push(protocol.EvNewMessage, &protocol.MessageData{
		Id: "80", SenderId: 2, Body: "ghost", CreatedAt: time.Now().UnixMilli(),
	})
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, s.Conversations())
}
