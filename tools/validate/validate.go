// Package validate holds the input rules shared by the REST handlers.
// Every check returns a CodeError with a user-facing detail, or nil.
package validate

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"chaters/tools/errs"
)

var (
	chatKeyRe  = regexp.MustCompile(`^#[a-zA-Z0-9.]+$`)
	nicknameRe = regexp.MustCompile(`^[a-zA-Z0-9а-яА-ЯёЁ. _-]+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	fileNameRe = regexp.MustCompile(`[<>:"/\\|?*]`)
)

var allowedFileTypes = map[string]struct{}{
	"image/jpeg": {}, "image/png": {}, "image/gif": {}, "image/webp": {},
	"audio/webm": {}, "audio/mpeg": {}, "audio/ogg": {}, "audio/wav": {},
	"video/mp4": {}, "video/webm": {}, "video/ogg": {},
	"application/pdf": {}, "text/plain": {}, "application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/zip": {}, "application/x-zip-compressed": {},
}

// ChatKey checks the human-chosen chat id ("#team").
func ChatKey(key string) error {
	switch {
	case key == "":
		return errs.ErrBadRequest.WithDetail("chat id is required")
	case !chatKeyRe.MatchString(key):
		return errs.ErrBadRequest.WithDetail("chat id must start with # and contain only latin letters, digits and dots")
	case utf8.RuneCountInString(key) < 2:
		return errs.ErrBadRequest.WithDetail("chat id is too short")
	case utf8.RuneCountInString(key) > 30:
		return errs.ErrBadRequest.WithDetail("chat id must be at most 30 characters")
	}
	return nil
}

func ChatName(name string) error {
	switch n := utf8.RuneCountInString(name); {
	case name == "":
		return errs.ErrBadRequest.WithDetail("chat name is required")
	case n < 2:
		return errs.ErrBadRequest.WithDetail("chat name must be at least 2 characters")
	case n > 50:
		return errs.ErrBadRequest.WithDetail("chat name must be at most 50 characters")
	}
	return nil
}

func Nickname(nickname string) error {
	switch n := utf8.RuneCountInString(nickname); {
	case nickname == "":
		return errs.ErrBadRequest.WithDetail("nickname is required")
	case n < 2:
		return errs.ErrBadRequest.WithDetail("nickname must be at least 2 characters")
	case n > 20:
		return errs.ErrBadRequest.WithDetail("nickname must be at most 20 characters")
	case !nicknameRe.MatchString(nickname):
		return errs.ErrBadRequest.WithDetail("nickname contains invalid characters")
	}
	return nil
}

func Email(email string) error {
	switch {
	case email == "":
		return errs.ErrBadRequest.WithDetail("email is required")
	case !emailRe.MatchString(email):
		return errs.ErrBadRequest.WithDetail("invalid email")
	case len(email) > 255:
		return errs.ErrBadRequest.WithDetail("email is too long")
	}
	return nil
}

// Password bounds follow bcrypt's 72-byte input limit.
func Password(password string) error {
	switch {
	case password == "":
		return errs.ErrBadRequest.WithDetail("password is required")
	case len(password) < 6:
		return errs.ErrBadRequest.WithDetail("password must be at least 6 characters")
	case len(password) > 72:
		return errs.ErrBadRequest.WithDetail("password is too long")
	}
	return nil
}

// MessageContent allows empty content (file-only messages).
func MessageContent(content string) error {
	if utf8.RuneCountInString(content) > 5000 {
		return errs.ErrBadRequest.WithDetail("message must be at most 5000 characters")
	}
	return nil
}

func FileName(name string) error {
	switch {
	case name == "":
		return errs.ErrBadRequest.WithDetail("file name is required")
	case fileNameRe.MatchString(name):
		return errs.ErrBadRequest.WithDetail("file name contains invalid characters")
	case len(name) > 255:
		return errs.ErrBadRequest.WithDetail("file name is too long")
	}
	return nil
}

func FileType(mimetype string) error {
	if _, ok := allowedFileTypes[mimetype]; !ok {
		return errs.ErrBadRequest.WithDetail("unsupported file type")
	}
	return nil
}

// MessageTTL parses and bounds the retention setting in days;
// 0 disables retention.
func MessageTTL(raw string) (int, error) {
	ttl, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.ErrBadRequest.WithDetail("ttl must be a number")
	}
	if ttl < 0 {
		return 0, errs.ErrBadRequest.WithDetail("ttl cannot be negative")
	}
	if ttl > 365 {
		return 0, errs.ErrBadRequest.WithDetail("ttl must be at most 365 days")
	}
	return ttl, nil
}
