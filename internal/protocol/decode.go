package protocol

import (
	"fmt"

	"github.com/prim5v/studyhub-frontend/pkg/errcode"
)

// Validator lets a payload declare its required fields. Decoding rejects a
// payload whose shape does not hold rather than letting missing fields leak
// into derived state as zero values.
type Validator interface {
	Validate() error
}

func (m *MessageData) Validate() error {
	if m.SenderId == 0 {
		return fmt.Errorf("message missing sender_id")
	}
	if m.Body == "" {
		return fmt.Errorf("message missing body")
	}
	return nil
}

func (r *FollowResp) Validate() error {
	if r.FollowingId == 0 {
		return fmt.Errorf("follow response missing following_id")
	}
	return nil
}

func (r *LikeResp) Validate() error {
	if r.ResourceId == 0 {
		return fmt.Errorf("like response missing resource_id")
	}
	return nil
}

func (r *FavoriteResp) Validate() error {
	if r.ResourceId == 0 {
		return fmt.Errorf("favorite response missing resource_id")
	}
	return nil
}

func (r *AuthResp) Validate() error {
	if r.Status == "" {
		return fmt.Errorf("auth response missing status")
	}
	if r.OK() && (r.User == nil || r.User.UserId == 0) {
		return fmt.Errorf("auth response missing user identity")
	}
	return nil
}

func (r *UserStatusResp) Validate() error {
	if r.UserId == 0 {
		return fmt.Errorf("user status missing user_id")
	}
	return nil
}

func (r *CommentResp) Validate() error {
	if r.Comment.ResourceId == 0 {
		return fmt.Errorf("comment response missing resource_id")
	}
	return nil
}

// payloadFactories maps every server->client event to its schema. An event
// outside this table has no recognized shape.
var payloadFactories = map[string]func() interface{}{
	EvPrivateConversations: func() interface{} { return &[]*ConversationData{} },
	EvGroupConversations:   func() interface{} { return &[]*ConversationData{} },
	EvMyGroupsResponse:     func() interface{} { return &[]*ConversationData{} },
	EvPrivateMessages:      func() interface{} { return &[]*MessageData{} },
	EvGroupMessages:        func() interface{} { return &[]*MessageData{} },
	EvNewMessage:           func() interface{} { return &MessageData{} },
	EvNewPublicMessage:     func() interface{} { return &MessageData{} },

	EvSignupResponse: func() interface{} { return &AuthResp{} },
	EvLoginResponse:  func() interface{} { return &AuthResp{} },

	EvFollowResponse:         func() interface{} { return &FollowResp{} },
	EvUnfollowResponse:       func() interface{} { return &FollowResp{} },
	EvLikeResponse:           func() interface{} { return &LikeResp{} },
	EvCommentResponse:        func() interface{} { return &CommentResp{} },
	EvDeleteCommentResponse:  func() interface{} { return &DeleteCommentResp{} },
	EvUpdateFavoriteResponse: func() interface{} { return &FavoriteResp{} },
	EvSaveNoteResponse:       func() interface{} { return &StatusResp{} },
	EvUploadResponse:         func() interface{} { return &UploadResp{} },

	EvUserInfo:                 func() interface{} { return &UserInfo{} },
	EvUserStatus:               func() interface{} { return &UserStatusResp{} },
	EvUserProfileResponse:      func() interface{} { return &ProfileResp{} },
	EvUserFollowersResponse:    func() interface{} { return &FollowListResp{} },
	EvUserFollowingResponse:    func() interface{} { return &FollowListResp{} },
	EvTrendingResourcesResp:    func() interface{} { return &[]*ResourceData{} },
	EvSuggestStudentsResponse:  func() interface{} { return &SuggestStudentsResp{} },
	EvRecentActivities:         func() interface{} { return &[]*ActivityData{} },
	EvMyNotesResponse:          func() interface{} { return &MyNotesResp{} },
	EvJoinGroupResponse:        func() interface{} { return &JoinGroupResp{} },
	EvGroupMembersResponse:     func() interface{} { return &GroupMembersResp{} },
	EvGroupResourcesResponse:   func() interface{} { return &GroupResourcesResp{} },
	EvGetResourceResponse:      func() interface{} { return &ResourceDetailResp{} },
	EvNotification:             func() interface{} { return &NotificationData{} },
	EvStartPrivateConvResponse: func() interface{} { return &StartPrivateConvResp{} },
	EvCreateGroupResponse:      func() interface{} { return &CreateGroupResp{} },
}

// KnownEvent reports whether the server->client event has a registered schema
func KnownEvent(event string) bool {
	_, ok := payloadFactories[event]
	return ok
}

// DecodePayload decodes and validates an event payload against its schema.
// Unknown events and malformed payloads return errcode.ErrInvalidProtocol.
func DecodePayload(event string, data []byte) (interface{}, error) {
	factory, ok := payloadFactories[event]
	if !ok {
		return nil, errcode.ErrInvalidProtocol.Wrap(fmt.Errorf("unknown event %q", event))
	}

	v := factory()
	if len(data) > 0 {
		if err := Decode(data, v); err != nil {
			return nil, errcode.ErrInvalidProtocol.Wrap(fmt.Errorf("event %q: %w", event, err))
		}
	}

	if validator, ok := v.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, errcode.ErrInvalidProtocol.Wrap(fmt.Errorf("event %q: %w", event, err))
		}
	}

	return v, nil
}
