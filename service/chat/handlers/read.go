package handlers

import (
	"context"

	"chaters/logger"
	"chaters/service/chat"
)

// ReadHandler stamps the member's last-read timestamp. The only gateway
// event with a store side effect; executed as one atomic UPDATE,
// best-effort, never retried.
type ReadHandler struct{}

func NewReadHandler() *ReadHandler { return &ReadHandler{} }

func (h *ReadHandler) Type() string { return chat.FrameRead }

func (h *ReadHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.ChatID == "" {
		logger.Infof("[read] drop frame without chatId conn=%s", c.ConnID)
		return nil
	}

	sctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := ctx.S.Store().TouchLastRead(sctx, f.ChatID, c.UserID()); err != nil {
		logger.Infof("[read] touch last_read chat=%s user=%d err=%v", f.ChatID, c.UserID(), err)
	}
	return nil
}
