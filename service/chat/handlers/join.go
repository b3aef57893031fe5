package handlers

import (
	"chaters/logger"
	"chaters/service/chat"
)

// JoinHandler subscribes the connection to a room's live fan-out. One
// room per connection: joining a new room leaves the previous one. The
// gateway does not check persisted membership here; join is a liveness
// subscription, not an authorization grant.
type JoinHandler struct{}

func NewJoinHandler() *JoinHandler { return &JoinHandler{} }

func (h *JoinHandler) Type() string { return chat.FrameJoin }

func (h *JoinHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.ChatID == "" {
		logger.Infof("[join] drop frame without chatId conn=%s", c.ConnID)
		return nil
	}

	if prev := c.Room(); prev != "" && prev != f.ChatID {
		ctx.S.Rooms().Leave(prev, c)
	}
	ctx.S.Rooms().Join(f.ChatID, c)
	c.SetRoom(f.ChatID)
	return nil
}
