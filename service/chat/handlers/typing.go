package handlers

import (
	"context"

	"chaters/logger"
	"chaters/service/chat"
)

// TypingHandler broadcasts a typing notice to everyone else in the room.
// Rate limiting is the client's concern. The sender's nickname comes
// from the cache filled at auth; when that lookup failed, it is
// re-resolved here, falling back to "User".
type TypingHandler struct{}

func NewTypingHandler() *TypingHandler { return &TypingHandler{} }

func (h *TypingHandler) Type() string { return chat.FrameTyping }

func (h *TypingHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.ChatID == "" {
		logger.Infof("[typing] drop frame without chatId conn=%s", c.ConnID)
		return nil
	}

	nickname := c.Nickname()
	if nickname == "" {
		sctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		n, err := ctx.S.Store().Nickname(sctx, c.UserID())
		if err != nil {
			logger.Debugf("[typing] nickname lookup user=%d err=%v", c.UserID(), err)
		}
		nickname = n
	}
	if nickname == "" {
		nickname = "User"
	}

	ctx.S.Rooms().Broadcast(f.ChatID, chat.BuildTyping(f.ChatID, nickname), c)
	return nil
}
