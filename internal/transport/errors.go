package transport

import "errors"

// Transport errors
var (
	ErrConnClosed       = errors.New("connection closed")
	ErrWriteChannelFull = errors.New("write channel full")
	ErrNotConnected     = errors.New("not connected")
	ErrReconnectFailed  = errors.New("reconnect attempts exhausted")
	ErrRequestTimeout   = errors.New("request timed out")
	ErrScopeClosed      = errors.New("scope closed")
)
