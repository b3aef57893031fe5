package errs

import (
	"errors"
	"fmt"
)

// CodeError is an error with a stable numeric code, serialized as-is on
// the REST surface.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Msg, e.Detail)
}

// WithDetail returns a copy carrying extra context; the original value
// stays usable as an errors.Is target.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Error taxonomy shared by the gateway and the REST layer.
var (
	ErrAuthFailed       = NewCodeError(1001, "auth failed")
	ErrTokenExpired     = NewCodeError(1002, "token expired")
	ErrSessionNotFound  = NewCodeError(1003, "session expired")
	ErrUserNotFound     = NewCodeError(1004, "user not found")
	ErrBadRequest       = NewCodeError(1100, "bad request")
	ErrChatNotFound     = NewCodeError(1200, "chat not found")
	ErrChatExists       = NewCodeError(1201, "chat id already taken")
	ErrNotMember        = NewCodeError(1202, "not a chat member")
	ErrAlreadyMember    = NewCodeError(1203, "already a chat member")
	ErrNotCreator       = NewCodeError(1204, "only the creator may change settings")
	ErrMessageNotFound  = NewCodeError(1300, "message not found")
	ErrNotAuthor        = NewCodeError(1301, "cannot delete another user's message")
	ErrEmailTaken       = NewCodeError(1400, "email already in use")
	ErrStoreUnavailable = NewCodeError(1500, "storage unavailable")
)
