package handlers

import (
	"chaters/logger"
	"chaters/service/chat"
)

// DeleteHandler broadcasts a deletion notice to the whole room, the
// sender included, so every open view drops the message. Authorization
// (author-only) was enforced by the REST layer that deleted the row.
type DeleteHandler struct{}

func NewDeleteHandler() *DeleteHandler { return &DeleteHandler{} }

func (h *DeleteHandler) Type() string { return chat.FrameDelete }

func (h *DeleteHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.ChatID == "" || f.MessageID == 0 {
		logger.Infof("[delete] drop incomplete frame conn=%s", c.ConnID)
		return nil
	}
	ctx.S.Rooms().Broadcast(f.ChatID, chat.BuildMessageDeleted(f.ChatID, f.MessageID), nil)
	return nil
}
