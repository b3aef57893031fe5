package push

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chaters/logger"
	mwsecurity "chaters/middleware/security"
	svcpush "chaters/service/push"
	"chaters/store"
	"chaters/tools/errs"
	"chaters/tools/web"
)

// Handler serves web push subscription management.
type Handler struct {
	store  *store.Store
	sender *svcpush.Sender
}

func NewHandler(st *store.Store, sender *svcpush.Sender) *Handler {
	return &Handler{store: st, sender: sender}
}

func (h *Handler) Register(pub, auth gin.IRouter) {
	pub.GET("/push/vapid-public-key", h.publicKey)
	auth.POST("/push/subscribe", h.subscribe)
	auth.POST("/push/unsubscribe", h.unsubscribe)
	auth.POST("/push/test", h.test)
}

func (h *Handler) publicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.sender.PublicKey()})
}

type subscribeReq struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *Handler) subscribe(c *gin.Context) {
	var req subscribeReq
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("invalid subscription object"))
		return
	}

	u := mwsecurity.User(c)
	sub := &store.PushSubscription{
		UserID:    u.ID,
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		UserAgent: c.GetHeader("User-Agent"),
	}
	if err := h.store.SavePushSubscription(c.Request.Context(), sub); err != nil {
		logger.Errorf("save push subscription for user %d: %v", u.ID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "subscribed"})
}

func (h *Handler) unsubscribe(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Endpoint == "" {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("endpoint is required"))
		return
	}
	u := mwsecurity.User(c)
	if err := h.store.DeletePushSubscription(c.Request.Context(), u.ID, req.Endpoint); err != nil {
		logger.Errorf("delete push subscription for user %d: %v", u.ID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "unsubscribed"})
}

// test pushes a fixed notification to every subscription of the caller.
func (h *Handler) test(c *gin.Context) {
	if !h.sender.Enabled() {
		web.Fail(c, http.StatusServiceUnavailable, errs.ErrBadRequest.WithDetail("push is not configured"))
		return
	}
	u := mwsecurity.User(c)
	ctx := c.Request.Context()
	subs, err := h.store.PushSubscriptionsForUser(ctx, u.ID)
	if err != nil {
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	n := &svcpush.Notification{Title: "Chaters", Body: "Notifications are working", URL: "/"}
	for i := range subs {
		if err := h.sender.Send(ctx, &subs[i], n); err != nil {
			logger.Warnf("test push to %d: %v", u.ID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "test notification sent"})
}
