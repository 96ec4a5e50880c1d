package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mbeoliero/kit/log"

	"github.com/prim5v/studyhub-frontend/internal/protocol"
	"github.com/prim5v/studyhub-frontend/internal/state"
	"github.com/prim5v/studyhub-frontend/pkg/errcode"
)

// FetchConversations requests both conversation lists. Each response
// replaces its own kind in the store and never disturbs the other.
func (s *Session) FetchConversations(ctx context.Context) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	req := &protocol.GetConversationsReq{UserId: user.UserId}
	if _, err := s.conn.Request(ctx, protocol.EvGetPrivateConversations, req, protocol.EvPrivateConversations); err != nil {
		return errcode.ErrFetchFailed.Wrap(err)
	}
	if _, err := s.conn.Request(ctx, protocol.EvGetGroupConversations, req, protocol.EvGroupConversations); err != nil {
		return errcode.ErrFetchFailed.Wrap(err)
	}
	return nil
}

// Conversations returns the merged, sorted conversation list
func (s *Session) Conversations() []state.ConversationSummary {
	s.mu.Lock()
	convs := s.convs
	s.mu.Unlock()
	if convs == nil {
		return nil
	}
	return convs.List()
}

// Unread exposes the unread/notification tracker
func (s *Session) Unread() *state.UnreadTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Toggles exposes the optimistic action coordinator
func (s *Session) Toggles() *state.ToggleCoordinator {
	return s.toggles
}

// ActiveKey returns the open conversation, empty when none
func (s *Session) ActiveKey() state.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeKey
}

// Timeline returns the timeline for a conversation
func (s *Session) Timeline(key state.Key) *state.Timeline {
	return s.timeline(key)
}

// OpenConversation makes one conversation the active one: its unread count
// drops to zero, its timeline resets and the first history page loads. For
// private threads the peer's info is requested alongside.
func (s *Session) OpenConversation(ctx context.Context, key state.Key) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.activeKey = key
	tl := state.NewTimeline(key, s.cfg.Chat.PageSize, s.cfg.Chat.ReconcileWindow)
	s.timelines[key] = tl
	unread := s.unread
	s.mu.Unlock()

	unread.SetOpen(key)

	if peer, ok := key.PeerUserId(); ok {
		if err := s.conn.Emit(protocol.EvGetUserInfo, &protocol.GetUserReq{UserId: peer}); err != nil {
			log.CtxDebug(ctx, "peer info fetch failed: %v", err)
		}
	}

	return s.loadPage(ctx, user.UserId, key, tl)
}

// CloseConversation deactivates the open conversation
func (s *Session) CloseConversation() {
	s.mu.Lock()
	s.activeKey = ""
	unread := s.unread
	s.mu.Unlock()

	if unread != nil {
		unread.ClearOpen()
	}
}

// LoadOlderMessages pulls the next history page of the open conversation.
// Rejected while a page is already in flight.
func (s *Session) LoadOlderMessages(ctx context.Context) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	s.mu.Lock()
	key := s.activeKey
	s.mu.Unlock()
	if key == "" {
		return errcode.ErrNoActiveConv
	}

	return s.loadPage(ctx, user.UserId, key, s.timeline(key))
}

// loadPage requests one history page and merges the response into the
// captured timeline. A conversation switch while the request is outstanding
// leaves this timeline detached, so a late response cannot corrupt the new
// one.
func (s *Session) loadPage(ctx context.Context, userId int64, key state.Key, tl *state.Timeline) error {
	offset, err := tl.BeginLoad()
	if err != nil {
		return err
	}

	var (
		event      string
		replyEvent string
		payload    interface{}
	)
	if peer, ok := key.PeerUserId(); ok {
		event, replyEvent = protocol.EvGetPrivateMessages, protocol.EvPrivateMessages
		payload = &protocol.GetPrivateMessagesReq{
			SenderId:   userId,
			ReceiverId: peer,
			Limit:      s.cfg.Chat.PageSize,
			Offset:     offset,
		}
	} else {
		groupId, _ := key.GroupId()
		event, replyEvent = protocol.EvGetGroupMessages, protocol.EvGroupMessages
		payload = &protocol.GetGroupMessagesReq{
			GroupId: groupId,
			Limit:   s.cfg.Chat.PageSize,
			Offset:  offset,
		}
	}

	reply, err := s.conn.Request(ctx, event, payload, replyEvent)
	if err != nil {
		tl.AbortLoad()
		return errcode.ErrFetchFailed.Wrap(err)
	}

	page, ok := reply.Payload.(*[]*protocol.MessageData)
	if !ok {
		tl.AbortLoad()
		return errcode.ErrFetchFailed.Wrap(fmt.Errorf("unexpected %s payload", replyEvent))
	}
	tl.ApplyPage(*page)

	s.mu.Lock()
	unread := s.unread
	active := s.activeKey
	s.mu.Unlock()
	if unread != nil && active == key {
		unread.MarkRead(key)
	}
	return nil
}

// SendMessage sends into the open conversation. The timeline shows the
// message immediately under a temp id; the confirmation push replaces it,
// matched by the client message id the request carries.
func (s *Session) SendMessage(ctx context.Context, body string) (*state.Message, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, errcode.ErrInvalidParam
	}

	s.mu.Lock()
	key := s.activeKey
	s.mu.Unlock()
	if key == "" {
		return nil, errcode.ErrNoActiveConv
	}

	req := &protocol.SendMessageReq{
		ClientMsgId: uuid.NewString(),
		SenderId:    user.UserId,
		Body:        body,
	}
	if peer, ok := key.PeerUserId(); ok {
		req.ReceiverId = peer
		req.GroupId = protocol.PrivateGroupSentinel
	} else {
		req.GroupId, _ = key.GroupId()
	}

	tl := s.timeline(key)
	msg := tl.AppendOptimistic(req.ClientMsgId, user.UserId, user.Name, body)

	if err := s.conn.Emit(protocol.EvSendMessage, req); err != nil {
		tl.Remove(msg.Id)
		return nil, errcode.ErrSendFailed.Wrap(err)
	}
	return msg, nil
}

// StartPrivateConversation opens (or locates) a private thread with a peer
// and makes it the active conversation
func (s *Session) StartPrivateConversation(ctx context.Context, peerId int64) (state.Key, error) {
	user, err := s.requireUser()
	if err != nil {
		return "", err
	}

	reply, err := s.conn.Request(ctx, protocol.EvStartPrivateConv, &protocol.StartPrivateConvReq{
		User1Id: user.UserId,
		User2Id: peerId,
	}, protocol.EvStartPrivateConvResponse)
	if err != nil {
		return "", errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.StartPrivateConvResp)
	if !ok || !resp.OK() {
		return "", errcode.ErrConvNotFound
	}

	key := state.PrivateKey(peerId)
	if err := s.OpenConversation(ctx, key); err != nil {
		return key, err
	}
	return key, nil
}

// JoinPublicChat joins the public room and loads its initial history over
// HTTP. The room declaration is remembered and re-issued across reconnects.
func (s *Session) JoinPublicChat(ctx context.Context) error {
	if _, err := s.requireUser(); err != nil {
		return err
	}

	if err := s.conn.DeclareRoom("public", protocol.EvJoinPublicRoom, nil); err != nil {
		return err
	}

	history, err := s.api.PublicMessages(ctx)
	if err != nil {
		return errcode.ErrFetchFailed.Wrap(err)
	}

	// A logout while the fetch was outstanding tore the timeline down
	s.mu.Lock()
	pub := s.publicChat
	s.mu.Unlock()
	if pub == nil {
		return errcode.ErrNotLoggedIn
	}
	for _, m := range history {
		pub.AppendIncoming(m)
	}
	return nil
}

// LeavePublicChat leaves the public room
func (s *Session) LeavePublicChat() error {
	return s.conn.UndeclareRoom("public", protocol.EvLeavePublicRoom, nil)
}

// PublicMessages returns the public room timeline snapshot
func (s *Session) PublicMessages() []state.Message {
	s.mu.Lock()
	pub := s.publicChat
	s.mu.Unlock()
	if pub == nil {
		return nil
	}
	return pub.Messages()
}

// SendPublicMessage sends into the public room, optimistically
func (s *Session) SendPublicMessage(ctx context.Context, body string) (*state.Message, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, errcode.ErrInvalidParam
	}

	s.mu.Lock()
	pub := s.publicChat
	s.mu.Unlock()
	if pub == nil {
		return nil, errcode.ErrNotLoggedIn
	}

	clientMsgId := uuid.NewString()
	msg := pub.AppendOptimistic(clientMsgId, user.UserId, user.Name, body)

	err = s.conn.Emit(protocol.EvSendPublicMessage, &protocol.SendMessageReq{
		ClientMsgId: clientMsgId,
		SenderId:    user.UserId,
		Body:        body,
	})
	if err != nil {
		pub.Remove(msg.Id)
		return nil, errcode.ErrSendFailed.Wrap(err)
	}
	return msg, nil
}
