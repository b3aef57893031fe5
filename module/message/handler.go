package message

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"chaters/logger"
	mwsecurity "chaters/middleware/security"
	"chaters/module/upload"
	"chaters/service/natsx"
	"chaters/store"
	"chaters/tools/errs"
	"chaters/tools/validate"
	"chaters/tools/web"
)

const maxUploadBytes = 10 << 20

// Handler serves message history, sending, deletion and raw uploads.
// nc may be nil; stored-message events are then skipped.
type Handler struct {
	store *store.Store
	blobs *upload.Blobs
	nc    *nats.Conn
}

func NewHandler(st *store.Store, blobs *upload.Blobs, nc *nats.Conn) *Handler {
	return &Handler{store: st, blobs: blobs, nc: nc}
}

func (h *Handler) Register(auth gin.IRouter) {
	auth.GET("/messages/:chatId", h.list)
	auth.POST("/messages", h.send)
	auth.DELETE("/messages/:messageId", h.delete)
	auth.POST("/upload", h.upload)
}

// list pages history newest-first and marks the chat read for the
// requester, mirroring what a client does when it opens a chat.
func (h *Handler) list(c *gin.Context) {
	ctx := c.Request.Context()
	chat, err := h.store.ChatByKey(ctx, c.Param("chatId"))
	if err != nil {
		h.notFoundOrStore(c, err)
		return
	}
	u := mwsecurity.User(c)
	if !h.requireMember(c, chat.ID, u.ID) {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)

	msgs, err := h.store.MessagesForChat(ctx, chat.ID, limit, before)
	if err != nil {
		logger.Errorf("list messages of %s: %v", chat.ChatID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	if err := h.store.TouchLastRead(ctx, chat.ChatID, u.ID); err != nil {
		logger.Warnf("touch last read %s/%d: %v", chat.ChatID, u.ID, err)
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) send(c *gin.Context) {
	chatKey := c.PostForm("chatId")
	content := c.PostForm("content")

	ctx := c.Request.Context()
	chat, err := h.store.ChatByKey(ctx, chatKey)
	if err != nil {
		h.notFoundOrStore(c, err)
		return
	}
	u := mwsecurity.User(c)
	if !h.requireMember(c, chat.ID, u.ID) {
		return
	}
	if err := validate.MessageContent(content); err != nil {
		web.Fail(c, http.StatusBadRequest, err)
		return
	}

	var fileRef *store.FileRef
	if fh, err := c.FormFile("file"); err == nil {
		fileRef, err = h.saveUpload(fh)
		if err != nil {
			web.Fail(c, http.StatusBadRequest, err)
			return
		}
	}
	if content == "" && fileRef == nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("message needs content or a file"))
		return
	}

	var contentPtr *string
	if content != "" {
		contentPtr = &content
	}
	msg, err := h.store.InsertMessage(ctx, chat.ID, u.ID, u.Nickname, contentPtr, fileRef)
	if err != nil {
		logger.Errorf("send message to %s: %v", chat.ChatID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}

	h.publishStored(chat, msg)
	c.JSON(http.StatusCreated, msg)
}

// delete removes the author's own message along with its attachment.
func (h *Handler) delete(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("invalid message id"))
		return
	}

	ctx := c.Request.Context()
	msg, err := h.store.MessageByID(ctx, messageID)
	if errors.Is(err, errs.ErrMessageNotFound) {
		web.Fail(c, http.StatusNotFound, errs.ErrMessageNotFound)
		return
	}
	if err != nil {
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	u := mwsecurity.User(c)
	if msg.UserID != u.ID {
		web.Fail(c, http.StatusForbidden, errs.ErrNotAuthor)
		return
	}

	if msg.FileURL != nil {
		if err := h.blobs.Remove(*msg.FileURL); err != nil {
			logger.Warnf("remove attachment of message %d: %v", messageID, err)
		}
	}
	if err := h.store.DeleteMessage(ctx, messageID); err != nil {
		logger.Errorf("delete message %d: %v", messageID, err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

// upload stores a file without a message; the client attaches the
// returned ref to a later send.
func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("no file selected"))
		return
	}
	ref, err := h.saveUpload(fh)
	if err != nil {
		web.Fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":  ref.URL,
		"type": ref.Type,
		"name": ref.Name,
		"size": ref.Size,
	})
}

func (h *Handler) saveUpload(fh *multipart.FileHeader) (*store.FileRef, error) {
	if fh.Size > maxUploadBytes {
		return nil, errs.ErrBadRequest.WithDetail("file exceeds 10MB")
	}
	contentType := fh.Header.Get("Content-Type")
	if err := validate.FileType(contentType); err != nil {
		return nil, err
	}
	if err := validate.FileName(fh.Filename); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errs.ErrBadRequest.WithDetail("unreadable upload")
	}
	defer f.Close()

	url, err := h.blobs.Save(f, contentType, fh.Filename)
	if err != nil {
		return nil, err
	}
	return &store.FileRef{URL: url, Type: contentType, Name: fh.Filename, Size: fh.Size}, nil
}

func (h *Handler) publishStored(chat *store.Chat, msg *store.Message) {
	if h.nc == nil {
		return
	}
	preview := ""
	if msg.Content != nil {
		preview = *msg.Content
	}
	ev := &natsx.MessageStored{
		MessageID:      msg.ID,
		ChatID:         chat.ID,
		ChatKey:        chat.ChatID,
		ChatName:       chat.Name,
		SenderID:       msg.UserID,
		SenderNickname: msg.UserNickname,
		Preview:        preview,
	}
	if err := natsx.PublishMessageStored(h.nc, ev); err != nil {
		logger.Warnf("publish stored-message event: %v", err)
	}
}

func (h *Handler) requireMember(c *gin.Context, chatID, userID int64) bool {
	member, err := h.store.IsMember(c.Request.Context(), chatID, userID)
	if err != nil {
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return false
	}
	if !member {
		web.Fail(c, http.StatusForbidden, errs.ErrNotMember)
		return false
	}
	return true
}

func (h *Handler) notFoundOrStore(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrChatNotFound) {
		web.Fail(c, http.StatusNotFound, errs.ErrChatNotFound)
		return
	}
	web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
}
