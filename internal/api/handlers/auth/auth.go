package auth

import (
	"net/http"
	"strings"

	"recipe-suggester/internal/api/handlers"
	coreauth "recipe-suggester/internal/core/auth"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgBadCredentials = "Incorrect email or password"

var errGoogleDisabled = common.ErrServiceUnavailable.WithMessage("Google login is not configured")

// Handler 註冊、登入、Google 登入與目前使用者
type Handler struct {
	users     *store.Memory
	jwt       *coreauth.JWTManager
	passwords *coreauth.PasswordHasher
	google    *coreauth.GoogleOAuth
}

// NewHandler 創建認證處理程序；google 為 nil 時 Google 登入回傳 503
func NewHandler(users *store.Memory, jwt *coreauth.JWTManager, passwords *coreauth.PasswordHasher, google *coreauth.GoogleOAuth) *Handler {
	if passwords == nil {
		passwords = coreauth.NewPasswordHasher(0)
	}
	return &Handler{users: users, jwt: jwt, passwords: passwords, google: google}
}

// Signup POST /auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var req common.SignupRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err)
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		req.FullName = &name
	}
	user, err := h.users.CreateUser(req.Email, hash, req.FullName)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("使用者已註冊", zap.Int64("user_id", user.ID))
	h.respondToken(c, http.StatusCreated, user)
}

// Login POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req common.LoginRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err)
		return
	}

	user, hash, err := h.users.UserByEmail(req.Email)
	if err != nil || !h.passwords.Verify(hash, req.Password) {
		handlers.RespondError(c, common.ErrUnauthorized.WithMessage(msgBadCredentials))
		return
	}

	h.respondToken(c, http.StatusOK, user)
}

// GoogleAuthURL GET /auth/google
func (h *Handler) GoogleAuthURL(c *gin.Context) {
	if h.google == nil {
		handlers.RespondError(c, errGoogleDisabled)
		return
	}
	c.JSON(http.StatusOK, common.GoogleAuthURLResponse{
		AuthorizationURL: h.google.AuthCodeURL(common.GenerateUUID()),
	})
}

// GoogleCallback POST /auth/google/callback，新 email 建立帳號，既有 Google 帳號直接登入
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		handlers.RespondError(c, errGoogleDisabled)
		return
	}

	var req common.GoogleAuthRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err)
		return
	}

	account, err := h.google.Exchange(c.Request.Context(), req.Code)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	var fullName *string
	if name := strings.TrimSpace(account.Name); name != "" {
		fullName = &name
	}
	user, created, err := h.users.ExternalUser(store.ProviderGoogle, account.Subject, account.Email, fullName)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("Google 登入", zap.Int64("user_id", user.ID), zap.Bool("created", created))
	h.respondToken(c, http.StatusOK, user)
}

// Me GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	user, err := h.users.UserByID(userID)
	if err != nil {
		// 權杖有效但使用者已不存在
		handlers.RespondError(c, common.ErrUnauthorized.WithMessage("User not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) respondToken(c *gin.Context, status int, user common.User) {
	token, err := h.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(status, common.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}
