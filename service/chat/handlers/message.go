package handlers

import (
	"chaters/logger"
	"chaters/service/chat"
)

// MessageHandler fans an already-durable message out to the room. The
// REST path persisted it and replied to the sender synchronously, so the
// broadcast excludes the sender's own connection. No persistence and no
// deduplication happen here.
type MessageHandler struct{}

func NewMessageHandler() *MessageHandler { return &MessageHandler{} }

func (h *MessageHandler) Type() string { return chat.FrameMessage }

func (h *MessageHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.ChatID == "" || len(f.Message) == 0 {
		logger.Infof("[message] drop incomplete frame conn=%s", c.ConnID)
		return nil
	}
	ctx.S.Rooms().Broadcast(f.ChatID, chat.BuildMessage(f.Message), c)
	return nil
}
