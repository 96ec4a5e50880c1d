package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/mbeoliero/kit/log"

	"github.com/prim5v/studyhub-frontend/internal/config"
	"github.com/prim5v/studyhub-frontend/internal/httpapi"
	"github.com/prim5v/studyhub-frontend/internal/localstate"
	"github.com/prim5v/studyhub-frontend/internal/protocol"
	"github.com/prim5v/studyhub-frontend/internal/state"
	"github.com/prim5v/studyhub-frontend/internal/transport"
	"github.com/prim5v/studyhub-frontend/pkg/errcode"
)

// Session is the one shared client service behind every view: the real-time
// channel, the reconciled conversation/timeline/unread state and the
// optimistic action coordinator. Views receive the session by injection and
// subscribe to it through transport scopes bound to their own lifetimes.
type Session struct {
	cfg   *config.Config
	conn  *transport.Conn
	api   *httpapi.Client
	local *localstate.Store

	mu          sync.Mutex
	user        *localstate.Record
	convs       *state.ConversationStore
	unread      *state.UnreadTracker
	toggles     *state.ToggleCoordinator
	timelines   map[state.Key]*state.Timeline
	publicChat  *state.Timeline
	activeKey   state.Key
	scope       *transport.Scope
	established bool
	peers       map[int64]*protocol.UserInfo
	presence    map[int64]*protocol.UserStatusResp
	notifs      []*protocol.NotificationData
}

// New creates a session over the configured backend
func New(cfg *config.Config, local *localstate.Store) (*Session, error) {
	api, err := httpapi.NewClient(cfg.Server.BaseURL)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:       cfg,
		conn:      transport.NewConn(cfg.Server.WSEndpoint(), cfg.WebSocket),
		api:       api,
		local:     local,
		toggles:   state.NewToggleCoordinator(),
		timelines: make(map[state.Key]*state.Timeline),
	}, nil
}

// Connect dials the real-time channel. Must precede any operation.
func (s *Session) Connect(ctx context.Context) error {
	return s.conn.Connect(ctx)
}

// Conn exposes the shared channel so views can open handler scopes
func (s *Session) Conn() *transport.Conn {
	return s.conn
}

// API exposes the HTTP surface (public history, search, membership, upload
// credentials)
func (s *Session) API() *httpapi.Client {
	return s.api
}

// Local exposes the on-device state store (intro flag)
func (s *Session) Local() *localstate.Store {
	return s.local
}

// User returns the logged-in identity, nil before login
func (s *Session) User() *localstate.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Resume restores a logged-in session from the on-device record. A missing
// or expired record means the user must log in again.
func (s *Session) Resume(ctx context.Context) error {
	rec, err := s.local.Load()
	if err != nil {
		return err
	}
	if rec == nil {
		return errcode.ErrNotLoggedIn
	}
	if rec.TokenExpired() {
		return errcode.ErrSessionExpired
	}
	return s.establish(rec)
}

// Login authenticates over the channel and establishes the session
func (s *Session) Login(ctx context.Context, email, password string) error {
	reply, err := s.conn.Request(ctx, protocol.EvLogin, &protocol.LoginReq{
		Email:    email,
		Password: password,
	}, protocol.EvLoginResponse)
	if err != nil {
		return errcode.ErrLoginFailed.Wrap(err)
	}

	auth, ok := reply.Payload.(*protocol.AuthResp)
	if !ok || !auth.OK() {
		return errcode.ErrLoginFailed.Wrap(fmt.Errorf("server rejected: %s", rejectMessage(reply.Payload)))
	}

	rec := &localstate.Record{UserId: auth.User.UserId, Name: auth.User.Name, Token: auth.User.Token}
	if err := s.local.Save(rec); err != nil {
		log.CtxWarn(ctx, "persist session failed: %v", err)
	}
	return s.establish(rec)
}

// Signup registers a new account and establishes the session
func (s *Session) Signup(ctx context.Context, req *protocol.SignupReq) error {
	reply, err := s.conn.Request(ctx, protocol.EvSignup, req, protocol.EvSignupResponse)
	if err != nil {
		return errcode.ErrSignupFailed.Wrap(err)
	}

	auth, ok := reply.Payload.(*protocol.AuthResp)
	if !ok || !auth.OK() {
		return errcode.ErrSignupFailed.Wrap(fmt.Errorf("server rejected: %s", rejectMessage(reply.Payload)))
	}

	rec := &localstate.Record{UserId: auth.User.UserId, Name: auth.User.Name, Token: auth.User.Token}
	if err := s.local.Save(rec); err != nil {
		log.CtxWarn(ctx, "persist session failed: %v", err)
	}
	return s.establish(rec)
}

// Logout ends the session server-side, clears the on-device record and tears
// down every session-owned handler
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	user := s.user
	scope := s.scope
	s.user = nil
	s.established = false
	s.scope = nil
	s.convs = nil
	s.unread = nil
	s.timelines = make(map[state.Key]*state.Timeline)
	s.publicChat = nil
	s.activeKey = ""
	s.peers = nil
	s.presence = nil
	s.notifs = nil
	s.mu.Unlock()

	if scope != nil {
		scope.Close()
	}
	if user != nil {
		if err := s.conn.Emit(protocol.EvLogout, &protocol.LogoutReq{UserId: user.UserId}); err != nil {
			log.CtxWarn(ctx, "logout emit failed: %v", err)
		}
	}
	return s.local.Clear()
}

// Close releases the session and the underlying channel
func (s *Session) Close() error {
	s.mu.Lock()
	scope := s.scope
	s.established = false
	s.scope = nil
	s.mu.Unlock()

	if scope != nil {
		scope.Close()
	}
	return s.conn.Close()
}

// establish wires the logged-in identity: derived state, session-lifetime
// push handlers, the user's own room and the online declaration
func (s *Session) establish(rec *localstate.Record) error {
	s.mu.Lock()
	if s.established {
		s.mu.Unlock()
		return nil
	}
	s.user = rec
	s.unread = state.NewUnreadTracker(rec.UserId, s.cfg.Chat.HighlightDuration)
	s.convs = state.NewConversationStore(rec.UserId, s.unread)
	s.timelines = make(map[state.Key]*state.Timeline)
	s.publicChat = state.NewTimeline("public", s.cfg.Chat.PageSize, s.cfg.Chat.ReconcileWindow)
	s.peers = make(map[int64]*protocol.UserInfo)
	s.presence = make(map[int64]*protocol.UserStatusResp)
	s.notifs = nil
	s.scope = s.conn.NewScope()
	s.established = true
	scope := s.scope
	s.mu.Unlock()

	s.api.SetToken(rec.Token)
	s.registerHandlers(scope)

	room := strconv.FormatInt(rec.UserId, 10)
	if err := s.conn.DeclareRoom("user:"+room, protocol.EvJoinRoom, &protocol.JoinRoomReq{Room: room}); err != nil {
		log.Warn("join user room failed: %v", err)
	}
	if err := s.conn.Emit(protocol.EvUserOnline, &protocol.UserOnlineReq{UserId: rec.UserId}); err != nil {
		log.Warn("user_online emit failed: %v", err)
	}
	return nil
}

// registerHandlers subscribes the session-lifetime reconciliation handlers.
// Each one re-checks the session before touching state: a response landing
// after logout must be ignored.
func (s *Session) registerHandlers(scope *transport.Scope) {
	scope.On(protocol.EvNewMessage, func(_ *protocol.Frame, payload interface{}) {
		msg, ok := payload.(*protocol.MessageData)
		if !ok {
			return
		}
		s.handleNewMessage(msg)
	})

	scope.On(protocol.EvNewPublicMessage, func(_ *protocol.Frame, payload interface{}) {
		msg, ok := payload.(*protocol.MessageData)
		if !ok {
			return
		}
		s.mu.Lock()
		pub := s.publicChat
		user := s.user
		s.mu.Unlock()
		if pub == nil {
			return
		}
		if user != nil && msg.SenderId == user.UserId {
			pub.Reconcile(msg)
		} else {
			pub.AppendIncoming(msg)
		}
	})

	scope.On(protocol.EvPrivateConversations, func(_ *protocol.Frame, payload interface{}) {
		if list, ok := payload.(*[]*protocol.ConversationData); ok {
			s.applyConversations(state.KindPrivate, *list)
		}
	})

	scope.On(protocol.EvGroupConversations, func(_ *protocol.Frame, payload interface{}) {
		if list, ok := payload.(*[]*protocol.ConversationData); ok {
			s.applyConversations(state.KindGroup, *list)
		}
	})

	scope.On(protocol.EvFollowResponse, func(_ *protocol.Frame, payload interface{}) {
		s.handleFollowResponse(payload, true)
	})
	scope.On(protocol.EvUnfollowResponse, func(_ *protocol.Frame, payload interface{}) {
		s.handleFollowResponse(payload, false)
	})

	scope.On(protocol.EvLikeResponse, func(_ *protocol.Frame, payload interface{}) {
		resp, ok := payload.(*protocol.LikeResp)
		if !ok {
			return
		}
		s.toggles.Confirm(state.LikeEntity(resp.ResourceId), state.ToggleState{
			Active: resp.HasLiked,
			Count:  resp.LikeCount,
		})
	})

	scope.On(protocol.EvUpdateFavoriteResponse, func(_ *protocol.Frame, payload interface{}) {
		resp, ok := payload.(*protocol.FavoriteResp)
		if !ok {
			return
		}
		s.toggles.Confirm(state.FavoriteEntity(resp.ResourceId), state.ToggleState{
			Active: resp.IsFavorite,
		})
	})

	scope.On(protocol.EvUserInfo, func(_ *protocol.Frame, payload interface{}) {
		info, ok := payload.(*protocol.UserInfo)
		if !ok {
			return
		}
		s.mu.Lock()
		if s.peers != nil {
			s.peers[info.UserId] = info
		}
		s.mu.Unlock()
	})

	scope.On(protocol.EvUserStatus, func(_ *protocol.Frame, payload interface{}) {
		status, ok := payload.(*protocol.UserStatusResp)
		if !ok {
			return
		}
		s.mu.Lock()
		if s.presence != nil {
			s.presence[status.UserId] = status
		}
		s.mu.Unlock()
	})

	scope.On(protocol.EvNotification, func(_ *protocol.Frame, payload interface{}) {
		notif, ok := payload.(*protocol.NotificationData)
		if !ok {
			return
		}
		s.mu.Lock()
		if s.established {
			s.notifs = append(s.notifs, notif)
		}
		s.mu.Unlock()
	})

	// Rooms are re-declared by the transport on reconnect; the online mark
	// is not a room and needs its own re-issue.
	scope.On(transport.EvReconnect, func(_ *protocol.Frame, _ interface{}) {
		s.mu.Lock()
		user := s.user
		s.mu.Unlock()
		if user == nil {
			return
		}
		if err := s.conn.Emit(protocol.EvUserOnline, &protocol.UserOnlineReq{UserId: user.UserId}); err != nil {
			log.Warn("user_online re-emit failed: %v", err)
		}
	})
}

func (s *Session) handleNewMessage(msg *protocol.MessageData) {
	s.mu.Lock()
	if !s.established {
		s.mu.Unlock()
		return
	}
	convs := s.convs
	user := s.user
	s.mu.Unlock()

	key := convs.ApplyIncoming(msg)
	tl := s.timeline(key)
	if msg.SenderId == user.UserId {
		tl.Reconcile(msg)
	} else {
		tl.AppendIncoming(msg)
	}
}

func (s *Session) handleFollowResponse(payload interface{}, following bool) {
	resp, ok := payload.(*protocol.FollowResp)
	if !ok {
		return
	}
	key := state.FollowEntity(resp.FollowingId)
	if !resp.OK() {
		s.toggles.Reject(key)
		return
	}
	s.toggles.Confirm(key, state.ToggleState{
		Active: following,
		Count:  resp.FollowersCount,
	})
}

func (s *Session) applyConversations(kind state.Kind, list []*protocol.ConversationData) {
	s.mu.Lock()
	convs := s.convs
	s.mu.Unlock()
	if convs == nil {
		return
	}
	convs.UpsertFromFetch(kind, list)
}

// timeline returns the per-conversation timeline, creating it on first use
func (s *Session) timeline(key state.Key) *state.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	tl, ok := s.timelines[key]
	if !ok {
		tl = state.NewTimeline(key, s.cfg.Chat.PageSize, s.cfg.Chat.ReconcileWindow)
		s.timelines[key] = tl
	}
	return tl
}

// PeerInfo returns the last received info for a user, nil when none arrived
func (s *Session) PeerInfo(userId int64) *protocol.UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[userId]
}

// PeerStatus returns the last presence push for a user
func (s *Session) PeerStatus(userId int64) (online bool, lastSeen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.presence[userId]
	if !ok {
		return false, 0
	}
	return status.IsOnline, status.LastSeen
}

// Notifications returns the accumulated push notifications, newest last
func (s *Session) Notifications() []*protocol.NotificationData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.NotificationData, len(s.notifs))
	copy(out, s.notifs)
	return out
}

// ClearNotifications empties the notification list, e.g. when the panel opens
func (s *Session) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifs = nil
}

// requireUser returns the logged-in identity or ErrNotLoggedIn
func (s *Session) requireUser() (*localstate.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.established || s.user == nil {
		return nil, errcode.ErrNotLoggedIn
	}
	return s.user, nil
}

func rejectMessage(payload interface{}) string {
	if auth, ok := payload.(*protocol.AuthResp); ok && auth.Message != "" {
		return auth.Message
	}
	return "unknown error"
}
