package protocol

// Event names on the real-time channel. Names are the wire contract with the
// backend and never change casing.

// Client -> server events
const (
	EvJoinRoom        = "join_room"
	EvUserOnline      = "user_online"
	EvJoinPublicRoom  = "join_public_room"
	EvLeavePublicRoom = "leave_public_room"
	EvJoinGroup       = "join_group"
	EvCreateGroup     = "create_group"
	EvLeaveGroup      = "leave_group"

	EvSignup = "signup"
	EvLogin  = "login"
	EvLogout = "logout"

	EvGetPrivateConversations = "get_private_conversations"
	EvGetGroupConversations   = "get_group_conversations"
	EvGetPrivateMessages      = "get_private_messages"
	EvGetGroupMessages        = "get_group_messages"
	EvSendMessage             = "send_message"
	EvSendPublicMessage       = "send_public_message"
	EvStartPrivateConv        = "start_private_conversation"

	EvFollow         = "follow"
	EvUnfollow       = "unfollow"
	EvLikeResource   = "like_resource"
	EvAddComment     = "add_comment"
	EvDeleteComment  = "delete_comment"
	EvUpdateFavorite = "update_favorite"
	EvSaveNote       = "save_note"
	EvUploadResource = "upload_resource"

	EvGetUserInfo         = "get_user_info"
	EvGetUserProfile      = "get_user_profile"
	EvGetUserFollowers    = "get_user_followers"
	EvGetUserFollowing    = "get_user_following"
	EvTrendingResources   = "trending_resources"
	EvSuggestStudents     = "suggest_students"
	EvGetRecentActivities = "get_recent_activities"
	EvGetMyNotes          = "get_my_notes"
	// The backend registered the misspelled name; the wire string must match it
	EvGetMyGroupList    = "get_my_groupe_list"
	EvGetGroupMembers   = "get_group_members"
	EvGetGroupResources = "get_group_resources"
	EvGetResource       = "get_resource"
)

// Server -> client events
const (
	EvPrivateConversations = "private_conversations"
	EvGroupConversations   = "group_conversations"
	EvPrivateMessages      = "private_messages"
	EvGroupMessages        = "group_messages"
	EvNewMessage           = "new_message"
	EvNewPublicMessage     = "new_public_message"

	EvSignupResponse = "signup_response"
	EvLoginResponse  = "login_response"

	EvFollowResponse         = "follow_response"
	EvUnfollowResponse       = "unfollow_response"
	EvLikeResponse           = "like_response"
	EvCommentResponse        = "comment_response"
	EvDeleteCommentResponse  = "delete_comment_response"
	EvUpdateFavoriteResponse = "update_favorite_response"
	EvSaveNoteResponse       = "save_note_response"
	EvUploadResponse         = "upload_response"

	EvUserInfo                 = "user_info"
	EvUserStatus               = "user_status"
	EvUserProfileResponse      = "get_user_profile_response"
	EvUserFollowersResponse    = "get_user_followers_response"
	EvUserFollowingResponse    = "get_user_following_response"
	EvTrendingResourcesResp    = "trending_resources_response"
	EvSuggestStudentsResponse  = "suggest_students_response"
	EvRecentActivities         = "recent_activities"
	EvMyNotesResponse          = "get_my_notes_response"
	EvMyGroupsResponse         = "my_groups_response"
	EvJoinGroupResponse        = "join_group_response"
	EvGroupMembersResponse     = "group_members_response"
	EvGroupResourcesResponse   = "group_resources_response"
	EvGetResourceResponse      = "get_resource_response"
	EvNotification             = "notification"
	EvStartPrivateConvResponse = "start_private_conversation_response"
	EvCreateGroupResponse      = "create_group_response"
)

// PrivateGroupSentinel is the group_id value a private message carries on the
// wire. The backend uses a shared identifier space for group and private
// traffic and reserves this value for the private side.
const PrivateGroupSentinel = "UNI"
