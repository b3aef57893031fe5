package chat

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Inbound frame types.
const (
	FrameAuth    = "auth"
	FrameJoin    = "join"
	FrameMessage = "message"
	FrameTyping  = "typing"
	FrameRead    = "read"
	FrameDelete  = "delete"
)

// Outbound frame types.
const (
	FrameAuthSuccess    = "auth_success"
	FrameError          = "error"
	FrameMessageDeleted = "message_deleted"
)

// Frame is one inbound client event. Type discriminates which of the
// remaining fields are meaningful.
type Frame struct {
	Type      string          `json:"type"`
	Token     string          `json:"token,omitempty"`
	ChatID    string          `json:"chatId,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	MessageID int64           `json:"messageId,omitempty"`
}

// ParseFrame decodes a raw websocket payload. Callers log and drop on
// error; a malformed frame never terminates the connection.
func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errors.New("frame missing type")
	}
	return f, nil
}

// ---- server-side frame constructors ----

func BuildAuthSuccess(userID int64) []byte {
	return mustMarshal(map[string]any{
		"type":   FrameAuthSuccess,
		"userId": userID,
	})
}

func BuildError(msg string) []byte {
	return mustMarshal(map[string]any{
		"type":  FrameError,
		"error": msg,
	})
}

func BuildMessage(message json.RawMessage) []byte {
	return mustMarshal(map[string]any{
		"type":    FrameMessage,
		"message": message,
	})
}

func BuildTyping(chatID, nickname string) []byte {
	return mustMarshal(map[string]any{
		"type":         FrameTyping,
		"chatId":       chatID,
		"userNickname": nickname,
	})
}

func BuildMessageDeleted(chatID string, messageID int64) []byte {
	return mustMarshal(map[string]any{
		"type":      FrameMessageDeleted,
		"chatId":    chatID,
		"messageId": messageID,
	})
}

func mustMarshal(v map[string]any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// map[string]any of scalars and raw JSON cannot fail to marshal
		panic(err)
	}
	return data
}
