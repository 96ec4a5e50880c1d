package protocol

// Wire payload types. Field names mirror the backend's JSON contract.

// MessageData represents a message on the wire, both live pushes and history
// pages. Id is server-assigned; ClientMsgId is the client-chosen correlation
// id echoed back on confirmation.
type MessageData struct {
	Id          string `json:"id,omitempty"`
	ClientMsgId string `json:"client_msg_id,omitempty"`
	SenderId    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name,omitempty"`
	ReceiverId  int64  `json:"receiver_id,omitempty"`
	GroupId     string `json:"group_id,omitempty"`
	GroupName   string `json:"group_name,omitempty"`
	Body        string `json:"message"`
	CreatedAt   int64  `json:"created_at"`
}

// IsPrivate reports whether the message belongs to a two-user thread
func (m *MessageData) IsPrivate() bool {
	return m.GroupId == "" || m.GroupId == PrivateGroupSentinel
}

// ConversationData represents one conversation summary on the wire. Private
// entries carry the two user ids; group entries carry the group id.
type ConversationData struct {
	ConversationId int64  `json:"conversation_id,omitempty"`
	User1Id        int64  `json:"user1_id,omitempty"`
	User2Id        int64  `json:"user2_id,omitempty"`
	GroupId        string `json:"group_id,omitempty"`
	Name           string `json:"name"`
	LastMessage    string `json:"last_message"`
	LastMessageAt  int64  `json:"last_message_at"`
	MemberCount    int    `json:"member_count,omitempty"`
}

// UserInfo represents public user info
type UserInfo struct {
	UserId     int64  `json:"user_id"`
	Name       string `json:"name"`
	Course     string `json:"course_name,omitempty"`
	Year       string `json:"year,omitempty"`
	Bio        string `json:"bio,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty"`
	IsOnline   bool   `json:"is_online,omitempty"`
	LastSeen   int64  `json:"last_seen,omitempty"`
}

// StudentSuggestion is a user plus the local viewer's follow relation
type StudentSuggestion struct {
	UserInfo
	IsFollowing    bool `json:"is_following"`
	FollowersCount int  `json:"followers_count"`
}

// ResourceData represents a shared study resource
type ResourceData struct {
	Id           int64  `json:"id"`
	Title        string `json:"title"`
	Subject      string `json:"subject,omitempty"`
	UploaderId   int64  `json:"uploader_id"`
	UploaderName string `json:"uploader_name,omitempty"`
	FileURL      string `json:"file_url,omitempty"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	HasLiked     bool   `json:"has_liked"`
	IsFavorite   bool   `json:"is_favorite"`
	CreatedAt    int64  `json:"created_at"`
}

// CommentData represents a comment on a resource
type CommentData struct {
	Id         int64  `json:"id"`
	ResourceId int64  `json:"resource_id"`
	UserId     int64  `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	Text       string `json:"text"`
	CreatedAt  int64  `json:"created_at"`
}

// ActivityData represents an entry in the recent-activities feed
type ActivityData struct {
	Id        int64  `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// NotificationData represents a follower/system push notification
type NotificationData struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	FromUserId int64  `json:"from_user_id,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// ===== Request payloads =====

// JoinRoomReq declares room membership; re-issued after every reconnect
type JoinRoomReq struct {
	Room string `json:"room"`
}

// UserOnlineReq marks the user online
type UserOnlineReq struct {
	UserId int64 `json:"user_id"`
}

// SignupReq represents a signup request
type SignupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Course   string `json:"course_name,omitempty"`
	Year     string `json:"year,omitempty"`
}

// LoginReq represents a login request
type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogoutReq represents a logout request
type LogoutReq struct {
	UserId int64 `json:"user_id"`
}

// GetConversationsReq fetches the conversation list of one kind
type GetConversationsReq struct {
	UserId int64 `json:"user_id"`
}

// GetPrivateMessagesReq pages through a private thread's history
type GetPrivateMessagesReq struct {
	SenderId   int64 `json:"sender_id"`
	ReceiverId int64 `json:"receiver_id"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// GetGroupMessagesReq pages through a group thread's history
type GetGroupMessagesReq struct {
	GroupId string `json:"group_id"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

// SendMessageReq sends a message. GroupId is PrivateGroupSentinel for private
// sends, the group id otherwise.
type SendMessageReq struct {
	ClientMsgId string `json:"client_msg_id"`
	SenderId    int64  `json:"sender_id"`
	ReceiverId  int64  `json:"receiver_id,omitempty"`
	GroupId     string `json:"group_id"`
	Body        string `json:"message"`
}

// StartPrivateConvReq opens (or locates) a private thread between two users
type StartPrivateConvReq struct {
	User1Id int64 `json:"user1_id"`
	User2Id int64 `json:"user2_id"`
}

// JoinGroupReq joins a group room
type JoinGroupReq struct {
	GroupId string `json:"group_id"`
	UserId  int64  `json:"user_id"`
}

// CreateGroupReq creates a study group
type CreateGroupReq struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UserId      int64  `json:"user_id"`
}

// FollowReq follows or unfollows a user depending on the event
type FollowReq struct {
	FollowerId  int64 `json:"follower_id"`
	FollowingId int64 `json:"following_id"`
}

// LikeResourceReq toggles a like on a resource
type LikeResourceReq struct {
	UserId     int64 `json:"user_id"`
	ResourceId int64 `json:"resource_id"`
}

// AddCommentReq adds a comment to a resource
type AddCommentReq struct {
	UserId     int64  `json:"user_id"`
	ResourceId int64  `json:"resource_id"`
	Text       string `json:"text"`
}

// DeleteCommentReq removes a comment
type DeleteCommentReq struct {
	CommentId int64 `json:"comment_id"`
}

// UpdateFavoriteReq sets the favorite flag on a resource
type UpdateFavoriteReq struct {
	UserId     int64 `json:"user_id"`
	ResourceId int64 `json:"resource_id"`
	IsFavorite bool  `json:"is_favorite"`
}

// SaveNoteReq saves a resource into the user's notes
type SaveNoteReq struct {
	UserId     int64 `json:"user_id"`
	ResourceId int64 `json:"resource_id"`
}

// GetMyNotesReq lists the user's saved notes
type GetMyNotesReq struct {
	UserId int64 `json:"user_id"`
}

// GetUserReq fetches info about one user
type GetUserReq struct {
	UserId int64 `json:"user_id"`
}

// GetProfileReq fetches a profile as seen by the logged-in user
type GetProfileReq struct {
	UserId         int64 `json:"user_id"`
	LoggedInUserId int64 `json:"logged_in_user_id"`
}

// GetResourceReq fetches one resource with its comments
type GetResourceReq struct {
	ResourceId int64 `json:"resource_id"`
	UserId     int64 `json:"user_id"`
}

// GetGroupDataReq fetches members or resources of a group
type GetGroupDataReq struct {
	GroupId string `json:"group_id"`
}

// UploadResourceReq registers an uploaded resource after the asset itself
// went to storage via the issued upload credential
type UploadResourceReq struct {
	UserId  int64  `json:"user_id"`
	Title   string `json:"title"`
	Subject string `json:"subject,omitempty"`
	FileURL string `json:"file_url"`
}

// ===== Response payloads =====

// StatusResp is the common {status, message} acknowledgement shape
type StatusResp struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the backend accepted the request
func (r *StatusResp) OK() bool {
	return r.Status == "success"
}

// AuthUser is the session identity echoed on login/signup
type AuthUser struct {
	UserId int64  `json:"user_id"`
	Name   string `json:"name"`
	Token  string `json:"token,omitempty"`
}

// AuthResp is the login/signup response
type AuthResp struct {
	StatusResp
	User *AuthUser `json:"user,omitempty"`
}

// FollowResp confirms a follow/unfollow action
type FollowResp struct {
	StatusResp
	FollowerId     int64 `json:"follower_id"`
	FollowingId    int64 `json:"following_id"`
	FollowersCount int   `json:"followers_count"`
}

// LikeResp confirms a like toggle
type LikeResp struct {
	ResourceId int64 `json:"resource_id"`
	LikeCount  int   `json:"like_count"`
	HasLiked   bool  `json:"has_liked"`
}

// CommentResp confirms a new comment
type CommentResp struct {
	Comment CommentData `json:"comment"`
}

// DeleteCommentResp confirms a comment removal
type DeleteCommentResp struct {
	StatusResp
	CommentId  int64 `json:"comment_id"`
	ResourceId int64 `json:"resource_id"`
}

// FavoriteResp confirms a favorite toggle
type FavoriteResp struct {
	ResourceId int64 `json:"resource_id"`
	IsFavorite bool  `json:"is_favorite"`
}

// UserStatusResp carries presence changes for a user
type UserStatusResp struct {
	UserId   int64 `json:"user_id"`
	IsOnline bool  `json:"is_online"`
	LastSeen int64 `json:"last_seen,omitempty"`
}

// ProfileResp is the profile page payload
type ProfileResp struct {
	UserInfo
	IsFollowing    bool `json:"is_following"`
	FollowersCount int  `json:"followers_count"`
	FollowingCount int  `json:"following_count"`
	ResourceCount  int  `json:"resource_count"`
}

// FollowListResp is a followers/following list payload
type FollowListResp struct {
	Users []*StudentSuggestion `json:"users"`
}

// SuggestStudentsResp is the suggested-students payload
type SuggestStudentsResp struct {
	Students []*StudentSuggestion `json:"students"`
}

// ResourceDetailResp is one resource plus its comments
type ResourceDetailResp struct {
	Resource ResourceData  `json:"resource"`
	Comments []CommentData `json:"comments"`
}

// JoinGroupResp confirms group membership
type JoinGroupResp struct {
	StatusResp
	GroupId string `json:"group_id"`
}

// CreateGroupResp confirms group creation
type CreateGroupResp struct {
	StatusResp
	Group *ConversationData `json:"group,omitempty"`
}

// UploadResp confirms a resource registration
type UploadResp struct {
	StatusResp
	ResourceId int64 `json:"resource_id,omitempty"`
}

// StartPrivateConvResp returns the opened private conversation
type StartPrivateConvResp struct {
	StatusResp
	Conversation *ConversationData `json:"conversation,omitempty"`
}

// NoteData is one saved note: a resource the user bookmarked for later
type NoteData struct {
	ResourceId   int64  `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	CourseName   string `json:"course_name,omitempty"`
	UploaderName string `json:"uploader_name,omitempty"`
}

// MyNotesResp lists the user's saved notes
type MyNotesResp struct {
	Notes []*NoteData `json:"notes"`
}

// GroupMembersResp lists members of a group
type GroupMembersResp struct {
	Members []*UserInfo `json:"members"`
}

// GroupResourcesResp lists resources shared into a group
type GroupResourcesResp struct {
	Resources []*ResourceData `json:"resources"`
}
