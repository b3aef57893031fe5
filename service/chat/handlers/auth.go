package handlers

import (
	"context"
	"time"

	"chaters/logger"
	"chaters/service/chat"
)

const storeTimeout = 3 * time.Second

// AuthHandler verifies the bearer token carried by an auth frame. On
// success the connection becomes authenticated, is recorded in the
// connection registry and gets an auth_success reply; on failure it gets
// an error frame and stays open so the client may retry.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler { return &AuthHandler{} }

func (h *AuthHandler) Type() string { return chat.FrameAuth }

func (h *AuthHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.Token == "" {
		logger.Infof("[auth] drop frame without token conn=%s", c.ConnID)
		return nil
	}

	vctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	userID, err := ctx.S.Verifier().Verify(vctx, f.Token)
	if err != nil {
		logger.Infof("[auth] failed conn=%s err=%v", c.ConnID, err)
		c.Enqueue(chat.BuildError("Auth failed"))
		return nil
	}

	// Refresh the cached nickname on every successful auth. A store
	// outage here is not fatal: typing fan-out re-resolves lazily.
	nickname, err := ctx.S.Store().Nickname(vctx, userID)
	if err != nil {
		logger.Infof("[auth] nickname lookup user=%d err=%v", userID, err)
		nickname = ""
	}

	c.SetAuthenticated(userID, nickname)
	ctx.S.Conns().Register(userID, c)

	if p := ctx.S.Presence(); p != nil {
		if err := p.Online(vctx, userID, ctx.S.GatewayID()); err != nil {
			logger.Debugf("[auth] presence online user=%d err=%v", userID, err)
		}
	}

	c.Enqueue(chat.BuildAuthSuccess(userID))
	return nil
}
