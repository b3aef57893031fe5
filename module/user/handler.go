package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"chaters/logger"
	mwsecurity "chaters/middleware/security"
	"chaters/store"
	"chaters/tools/errs"
	"chaters/tools/security"
	"chaters/tools/validate"
	"chaters/tools/web"
)

const cookieMaxAge = 30 * 24 * 60 * 60 // matches the session TTL

// Handler serves registration, login and profile endpoints.
type Handler struct {
	store *store.Store
	jwt   security.Options
}

func NewHandler(st *store.Store, jwt security.Options) *Handler {
	return &Handler{store: st, jwt: jwt}
}

// Register mounts the public routes on pub and the authenticated ones
// on auth.
func (h *Handler) Register(pub, auth gin.IRouter) {
	pub.POST("/register", h.register)
	pub.POST("/login", h.login)
	auth.POST("/logout", h.logout)
	auth.GET("/me", h.me)
	auth.PUT("/user/nickname", h.updateNickname)
	auth.GET("/user/profile", h.me)
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	for _, err := range []error{
		validate.Email(req.Email),
		validate.Password(req.Password),
		validate.Nickname(req.Nickname),
	} {
		if err != nil {
			web.Fail(c, http.StatusBadRequest, err)
			return
		}
	}

	ctx := c.Request.Context()
	if _, err := h.store.UserByEmail(ctx, req.Email); err == nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrEmailTaken)
		return
	} else if !errors.Is(err, errs.ErrUserNotFound) {
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	u, err := h.store.CreateUser(ctx, req.Email, hash, req.Nickname)
	if err != nil {
		logger.Errorf("register: create user: %v", err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}

	if !h.openSession(c, u) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "email": u.Email, "nickname": u.Nickname})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest.WithDetail("email and password are required"))
		return
	}

	u, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	if err != nil || !security.CheckPassword(req.Password, u.PasswordHash) {
		// same answer for unknown email and wrong password
		web.Fail(c, http.StatusUnauthorized, errs.ErrAuthFailed.WithDetail("invalid email or password"))
		return
	}

	if !h.openSession(c, u) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": u.ID, "email": u.Email, "nickname": u.Nickname})
}

// openSession issues a JWT, persists the session row and sets the
// cookie; on failure it writes the error response itself.
func (h *Handler) openSession(c *gin.Context, u *store.User) bool {
	token, expireAt, err := security.Generate(h.jwt, u.ID, u.Email)
	if err != nil {
		logger.Errorf("session: sign token: %v", err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return false
	}
	if err := h.store.CreateSession(c.Request.Context(), token, u.ID, expireAt); err != nil {
		logger.Errorf("session: persist: %v", err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", token, cookieMaxAge, "/", "", false, true)
	return true
}

func (h *Handler) logout(c *gin.Context) {
	if token := mwsecurity.Token(c); token != "" {
		if err := h.store.DeleteSession(c.Request.Context(), token); err != nil {
			logger.Warnf("logout: delete session: %v", err)
		}
	}
	c.SetCookie("token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, mwsecurity.User(c))
}

func (h *Handler) updateNickname(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	if err := validate.Nickname(req.Nickname); err != nil {
		web.Fail(c, http.StatusBadRequest, err)
		return
	}
	u := mwsecurity.User(c)
	if err := h.store.UpdateNickname(c.Request.Context(), u.ID, req.Nickname); err != nil {
		logger.Errorf("update nickname: %v", err)
		web.Fail(c, http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "nickname updated", "nickname": req.Nickname})
}
