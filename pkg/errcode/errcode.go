package errcode

import "fmt"

// Error represents a coded error, either rejected by the backend or raised locally
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam   = New(1001, "invalid parameter")
	ErrInternalServer = New(1002, "internal server error")
	ErrUnauthorized   = New(1003, "unauthorized")
	ErrNotFound       = New(1005, "not found")

	// Auth errors (2xxx)
	ErrLoginFailed    = New(2001, "login failed")
	ErrSignupFailed   = New(2002, "signup failed")
	ErrSessionExpired = New(2003, "session expired")
	ErrNotLoggedIn    = New(2004, "not logged in")

	// Conversation/message errors (3xxx)
	ErrConvNotFound = New(3001, "conversation not found")
	ErrNoActiveConv = New(3002, "no active conversation")
	ErrPageInFlight = New(3003, "page load already in flight")
	ErrSendFailed   = New(3004, "message send failed")
	ErrFetchFailed  = New(3005, "message fetch failed")

	// Group errors (4xxx)
	ErrGroupNotFound     = New(4001, "group not found")
	ErrNotGroupMember    = New(4002, "not a group member")
	ErrGroupCreateFailed = New(4003, "group create failed")
	ErrGroupJoinFailed   = New(4004, "group join failed")

	// Action errors (5xxx)
	ErrFollowFailed   = New(5001, "follow action failed")
	ErrLikeFailed     = New(5002, "like action failed")
	ErrCommentFailed  = New(5003, "comment action failed")
	ErrFavoriteFailed = New(5004, "favorite action failed")
	ErrUploadFailed   = New(5005, "resource upload failed")

	// Channel errors (6xxx)
	ErrConnClosed      = New(6001, "connection closed")
	ErrInvalidProtocol = New(6002, "invalid protocol")
	ErrRequestTimeout  = New(6003, "request timed out")
)
