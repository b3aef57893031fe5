package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"chaters/logger"
	mwsecurity "chaters/middleware/security"
	"chaters/store"
	"chaters/tools/errs"
	"chaters/tools/validate"
	"chaters/tools/web"
)

// Handler serves the chat list and membership endpoints.
type Handler struct {
	store *store.Store
}

func NewHandler(st *store.Store) *Handler {
	return &Handler{store: st}
}

func (h *Handler) Register(auth gin.IRouter) {
	auth.GET("/chats", h.list)
	auth.POST("/chats", h.create)
	auth.POST("/chats/join", h.join)
	auth.POST("/chats/:chatId/leave", h.leave)
	auth.GET("/chats/:chatId/members", h.members)
	auth.PUT("/chats/:chatId/settings", h.updateSettings)
}

func (h *Handler) list(c *gin.Context) {
	u := mwsecurity.User(c)
	chats, err := h.store.ChatsForUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("list chats for user %d: %v", u.ID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	if chats == nil {
		chats = []store.ChatSummary{}
	}
	c.JSON(http.StatusOK, chats)
}

type createReq struct {
	ChatID     string `json:"chatId"`
	Name       string `json:"name"`
	MessageTTL *int   `json:"messageTtl"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	if err := validate.ChatKey(req.ChatID); err != nil {
		web.Fail(c, http.StatusBadRequest, err)
		return
	}
	if err := validate.ChatName(req.Name); err != nil {
		web.Fail(c, http.StatusBadRequest, err)
		return
	}
	// new chats default to one day of retention
	ttl := 1
	if req.MessageTTL != nil {
		ttl = *req.MessageTTL
	}
	if ttl < 0 || ttl > 365 {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("ttl must be at most 365 days"))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.ChatByKey(ctx, req.ChatID); err == nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrChatExists)
		return
	} else if !errors.Is(err, errs.ErrChatNotFound) {
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}

	u := mwsecurity.User(c)
	chat, err := h.store.CreateChat(ctx, req.ChatID, req.Name, u.ID, ttl)
	if err != nil {
		logger.Errorf("create chat %s: %v", req.ChatID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (h *Handler) join(c *gin.Context) {
	var req struct {
		ChatID string `json:"chatId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("chat id is required"))
		return
	}

	ctx := c.Request.Context()
	chat, err := h.store.ChatByKey(ctx, req.ChatID)
	if err != nil {
		h.notFoundOrStore(c, err)
		return
	}

	u := mwsecurity.User(c)
	member, err := h.store.IsMember(ctx, chat.ID, u.ID)
	if err != nil {
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	if member {
		web.Fail(c, http.StatusBadRequest, errs.ErrAlreadyMember)
		return
	}
	if err := h.store.AddMember(ctx, chat.ID, u.ID); err != nil {
		logger.Errorf("join chat %s: %v", req.ChatID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined chat", "chat_id": chat.ChatID})
}

// leave removes the membership; the last member leaving deletes the
// chat itself.
func (h *Handler) leave(c *gin.Context) {
	ctx := c.Request.Context()
	chat, err := h.store.ChatByKey(ctx, c.Param("chatId"))
	if err != nil {
		h.notFoundOrStore(c, err)
		return
	}
	u := mwsecurity.User(c)
	if err := h.store.RemoveMember(ctx, chat.ID, u.ID); err != nil {
		logger.Errorf("leave chat %s: %v", chat.ChatID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left chat"})
}

func (h *Handler) members(c *gin.Context) {
	ctx := c.Request.Context()
	chat, err := h.store.ChatByKey(ctx, c.Param("chatId"))
	if err != nil {
		h.notFoundOrStore(c, err)
		return
	}
	members, err := h.store.Members(ctx, chat.ID)
	if err != nil {
		logger.Errorf("members of %s: %v", chat.ChatID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	if members == nil {
		members = []store.Member{}
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) updateSettings(c *gin.Context) {
	var req struct {
		MessageTTL int `json:"messageTtl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	if req.MessageTTL < 0 || req.MessageTTL > 365 {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("ttl must be at most 365 days"))
		return
	}

	ctx := c.Request.Context()
	chat, err := h.store.ChatByKey(ctx, c.Param("chatId"))
	if err != nil {
		h.notFoundOrStore(c, err)
		return
	}
	u := mwsecurity.User(c)
	if chat.CreatedBy != u.ID {
		web.Fail(c, http.StatusForbidden, errs.ErrNotCreator)
		return
	}
	if err := h.store.UpdateChatTTL(ctx, chat.ID, req.MessageTTL); err != nil {
		logger.Errorf("update settings of %s: %v", chat.ChatID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "settings saved"})
}

func (h *Handler) notFoundOrStore(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrChatNotFound) {
		web.Fail(c, http.StatusNotFound, errs.ErrChatNotFound)
		return
	}
	web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
}
