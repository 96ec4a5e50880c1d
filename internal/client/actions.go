package client

import (
	"context"
	"fmt"

	"github.com/prim5v/studyhub-frontend/internal/protocol"
	"github.com/prim5v/studyhub-frontend/internal/state"
	"github.com/prim5v/studyhub-frontend/pkg/errcode"
)

// ToggleFollow flips the follow edge toward a user optimistically and emits
// the matching request. The confirmation (or rejection) lands in the
// session's follow_response handler, which broadcasts to every card holding
// a copy of this user.
func (s *Session) ToggleFollow(targetUserId int64) (state.ToggleState, error) {
	user, err := s.requireUser()
	if err != nil {
		return state.ToggleState{}, err
	}

	key := state.FollowEntity(targetUserId)
	next := s.toggles.Apply(key)

	event := protocol.EvFollow
	if !next.Active {
		event = protocol.EvUnfollow
	}
	err = s.conn.Emit(event, &protocol.FollowReq{
		FollowerId:  user.UserId,
		FollowingId: targetUserId,
	})
	if err != nil {
		s.toggles.Reject(key)
		return s.toggles.State(key), errcode.ErrFollowFailed.Wrap(err)
	}
	return next, nil
}

// ToggleLike flips a resource like optimistically
func (s *Session) ToggleLike(resourceId int64) (state.ToggleState, error) {
	user, err := s.requireUser()
	if err != nil {
		return state.ToggleState{}, err
	}

	key := state.LikeEntity(resourceId)
	next := s.toggles.Apply(key)

	err = s.conn.Emit(protocol.EvLikeResource, &protocol.LikeResourceReq{
		UserId:     user.UserId,
		ResourceId: resourceId,
	})
	if err != nil {
		s.toggles.Reject(key)
		return s.toggles.State(key), errcode.ErrLikeFailed.Wrap(err)
	}
	return next, nil
}

// SetFavorite sets a resource's favorite flag optimistically
func (s *Session) SetFavorite(resourceId int64, favorite bool) (state.ToggleState, error) {
	user, err := s.requireUser()
	if err != nil {
		return state.ToggleState{}, err
	}

	key := state.FavoriteEntity(resourceId)
	cur := s.toggles.State(key)
	if cur.Active == favorite {
		return cur, nil
	}
	next := s.toggles.Apply(key)

	err = s.conn.Emit(protocol.EvUpdateFavorite, &protocol.UpdateFavoriteReq{
		UserId:     user.UserId,
		ResourceId: resourceId,
		IsFavorite: favorite,
	})
	if err != nil {
		s.toggles.Reject(key)
		return s.toggles.State(key), errcode.ErrFavoriteFailed.Wrap(err)
	}
	return next, nil
}

// AddComment posts a comment and waits for the confirmation
func (s *Session) AddComment(ctx context.Context, resourceId int64, text string) (*protocol.CommentData, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errcode.ErrInvalidParam
	}

	reply, err := s.conn.Request(ctx, protocol.EvAddComment, &protocol.AddCommentReq{
		UserId:     user.UserId,
		ResourceId: resourceId,
		Text:       text,
	}, protocol.EvCommentResponse)
	if err != nil {
		return nil, errcode.ErrCommentFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.CommentResp)
	if !ok {
		return nil, errcode.ErrCommentFailed
	}
	return &resp.Comment, nil
}

// DeleteComment removes a comment
func (s *Session) DeleteComment(ctx context.Context, commentId int64) error {
	if _, err := s.requireUser(); err != nil {
		return err
	}

	reply, err := s.conn.Request(ctx, protocol.EvDeleteComment, &protocol.DeleteCommentReq{
		CommentId: commentId,
	}, protocol.EvDeleteCommentResponse)
	if err != nil {
		return errcode.ErrCommentFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.DeleteCommentResp)
	if !ok || !resp.OK() {
		return errcode.ErrCommentFailed
	}
	return nil
}

// SaveNote saves a resource into the user's notes
func (s *Session) SaveNote(ctx context.Context, resourceId int64) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	reply, err := s.conn.Request(ctx, protocol.EvSaveNote, &protocol.SaveNoteReq{
		UserId:     user.UserId,
		ResourceId: resourceId,
	}, protocol.EvSaveNoteResponse)
	if err != nil {
		return errcode.ErrInternalServer.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.StatusResp)
	if !ok || !resp.OK() {
		return errcode.ErrInternalServer
	}
	return nil
}

// MyNotes lists the resources the user saved as notes
func (s *Session) MyNotes(ctx context.Context) ([]*protocol.NoteData, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvGetMyNotes, &protocol.GetMyNotesReq{
		UserId: user.UserId,
	}, protocol.EvMyNotesResponse)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.MyNotesResp)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	return resp.Notes, nil
}

// GetProfile fetches a profile as seen by the logged-in user and seeds the
// follow state so every card agrees with the profile header
func (s *Session) GetProfile(ctx context.Context, userId int64) (*protocol.ProfileResp, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvGetUserProfile, &protocol.GetProfileReq{
		UserId:         userId,
		LoggedInUserId: user.UserId,
	}, protocol.EvUserProfileResponse)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.ProfileResp)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}

	s.toggles.Seed(state.FollowEntity(userId), state.ToggleState{
		Active: resp.IsFollowing,
		Count:  resp.FollowersCount,
	})
	return resp, nil
}

// Followers fetches a user's followers
func (s *Session) Followers(ctx context.Context, userId int64) ([]*protocol.StudentSuggestion, error) {
	return s.fetchFollowList(ctx, protocol.EvGetUserFollowers, protocol.EvUserFollowersResponse, userId)
}

// Following fetches who a user follows
func (s *Session) Following(ctx context.Context, userId int64) ([]*protocol.StudentSuggestion, error) {
	return s.fetchFollowList(ctx, protocol.EvGetUserFollowing, protocol.EvUserFollowingResponse, userId)
}

func (s *Session) fetchFollowList(ctx context.Context, event, replyEvent string, userId int64) ([]*protocol.StudentSuggestion, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, event, &protocol.GetProfileReq{
		UserId:         userId,
		LoggedInUserId: user.UserId,
	}, replyEvent)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.FollowListResp)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	s.seedFollowStates(resp.Users)
	return resp.Users, nil
}

// SuggestStudents fetches suggested students to follow
func (s *Session) SuggestStudents(ctx context.Context) ([]*protocol.StudentSuggestion, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvSuggestStudents, &protocol.GetUserReq{UserId: user.UserId}, protocol.EvSuggestStudentsResponse)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.SuggestStudentsResp)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	s.seedFollowStates(resp.Students)
	return resp.Students, nil
}

func (s *Session) seedFollowStates(users []*protocol.StudentSuggestion) {
	for _, u := range users {
		s.toggles.Seed(state.FollowEntity(u.UserId), state.ToggleState{
			Active: u.IsFollowing,
			Count:  u.FollowersCount,
		})
	}
}

// TrendingResources fetches the home feed and seeds like/favorite states
func (s *Session) TrendingResources(ctx context.Context) ([]*protocol.ResourceData, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvTrendingResources, &protocol.GetUserReq{UserId: user.UserId}, protocol.EvTrendingResourcesResp)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	list, ok := reply.Payload.(*[]*protocol.ResourceData)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	for _, r := range *list {
		s.seedResourceStates(r)
	}
	return *list, nil
}

func (s *Session) seedResourceStates(r *protocol.ResourceData) {
	s.toggles.Seed(state.LikeEntity(r.Id), state.ToggleState{Active: r.HasLiked, Count: r.LikeCount})
	s.toggles.Seed(state.FavoriteEntity(r.Id), state.ToggleState{Active: r.IsFavorite})
}

// GetResource fetches one resource with its comments
func (s *Session) GetResource(ctx context.Context, resourceId int64) (*protocol.ResourceDetailResp, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvGetResource, &protocol.GetResourceReq{
		ResourceId: resourceId,
		UserId:     user.UserId,
	}, protocol.EvGetResourceResponse)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.ResourceDetailResp)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	s.seedResourceStates(&resp.Resource)
	return resp, nil
}

// RecentActivities fetches the activity feed
func (s *Session) RecentActivities(ctx context.Context) ([]*protocol.ActivityData, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvGetRecentActivities, &protocol.GetUserReq{UserId: user.UserId}, protocol.EvRecentActivities)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	list, ok := reply.Payload.(*[]*protocol.ActivityData)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	return *list, nil
}

// MyGroups fetches the user's group list into the conversation store
func (s *Session) MyGroups(ctx context.Context) ([]*protocol.ConversationData, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvGetMyGroupList, &protocol.GetConversationsReq{UserId: user.UserId}, protocol.EvMyGroupsResponse)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	list, ok := reply.Payload.(*[]*protocol.ConversationData)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	s.applyConversations(state.KindGroup, *list)
	return *list, nil
}

// CreateGroup creates a study group; rejection surfaces as a coded error
func (s *Session) CreateGroup(ctx context.Context, name, description string) (*protocol.ConversationData, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvCreateGroup, &protocol.CreateGroupReq{
		Name:        name,
		Description: description,
		UserId:      user.UserId,
	}, protocol.EvCreateGroupResponse)
	if err != nil {
		return nil, errcode.ErrGroupCreateFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.CreateGroupResp)
	if !ok || !resp.OK() {
		return nil, errcode.ErrGroupCreateFailed.Wrap(fmt.Errorf("%s", rejectStatus(reply.Payload)))
	}
	return resp.Group, nil
}

// JoinGroup requests membership in a group
func (s *Session) JoinGroup(ctx context.Context, groupId string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	reply, err := s.conn.Request(ctx, protocol.EvJoinGroup, &protocol.JoinGroupReq{
		GroupId: groupId,
		UserId:  user.UserId,
	}, protocol.EvJoinGroupResponse)
	if err != nil {
		return errcode.ErrGroupJoinFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.JoinGroupResp)
	if !ok || !resp.OK() {
		return errcode.ErrGroupJoinFailed.Wrap(fmt.Errorf("%s", rejectStatus(reply.Payload)))
	}
	return nil
}

// EnterGroup verifies membership over HTTP, declares the group room (kept
// across reconnects) and opens the group conversation
func (s *Session) EnterGroup(ctx context.Context, groupId string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}

	member, err := s.api.IsMember(ctx, groupId, user.UserId)
	if err != nil {
		return errcode.ErrGroupNotFound.Wrap(err)
	}
	if !member {
		return errcode.ErrNotGroupMember
	}

	if err := s.conn.DeclareRoom("group:"+groupId, protocol.EvJoinGroup, &protocol.JoinGroupReq{
		GroupId: groupId,
		UserId:  user.UserId,
	}); err != nil {
		return err
	}

	return s.OpenConversation(ctx, state.GroupKey(groupId))
}

// LeaveGroupRoom leaves a group's room without leaving the group
func (s *Session) LeaveGroupRoom(groupId string) error {
	return s.conn.UndeclareRoom("group:"+groupId, protocol.EvLeaveGroup, &protocol.GetGroupDataReq{GroupId: groupId})
}

// GroupMembers fetches a group's member list
func (s *Session) GroupMembers(ctx context.Context, groupId string) ([]*protocol.UserInfo, error) {
	if _, err := s.requireUser(); err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvGetGroupMembers, &protocol.GetGroupDataReq{GroupId: groupId}, protocol.EvGroupMembersResponse)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.GroupMembersResp)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	return resp.Members, nil
}

// GroupResources fetches the resources shared into a group
func (s *Session) GroupResources(ctx context.Context, groupId string) ([]*protocol.ResourceData, error) {
	if _, err := s.requireUser(); err != nil {
		return nil, err
	}

	reply, err := s.conn.Request(ctx, protocol.EvGetGroupResources, &protocol.GetGroupDataReq{GroupId: groupId}, protocol.EvGroupResourcesResponse)
	if err != nil {
		return nil, errcode.ErrFetchFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.GroupResourcesResp)
	if !ok {
		return nil, errcode.ErrFetchFailed
	}
	for _, r := range resp.Resources {
		s.seedResourceStates(r)
	}
	return resp.Resources, nil
}

// UploadResource registers an uploaded resource. The asset itself goes to
// storage first via the credential from API().UploadSignature.
func (s *Session) UploadResource(ctx context.Context, title, subject, fileURL string) (int64, error) {
	user, err := s.requireUser()
	if err != nil {
		return 0, err
	}
	if title == "" || fileURL == "" {
		return 0, errcode.ErrInvalidParam
	}

	reply, err := s.conn.Request(ctx, protocol.EvUploadResource, &protocol.UploadResourceReq{
		UserId:  user.UserId,
		Title:   title,
		Subject: subject,
		FileURL: fileURL,
	}, protocol.EvUploadResponse)
	if err != nil {
		return 0, errcode.ErrUploadFailed.Wrap(err)
	}

	resp, ok := reply.Payload.(*protocol.UploadResp)
	if !ok || !resp.OK() {
		return 0, errcode.ErrUploadFailed.Wrap(fmt.Errorf("%s", rejectStatus(reply.Payload)))
	}
	return resp.ResourceId, nil
}

func rejectStatus(payload interface{}) string {
	type statusCarrier interface {
		OK() bool
	}
	if resp, ok := payload.(statusCarrier); ok && !resp.OK() {
		return "server rejected request"
	}
	return "unexpected response shape"
}
