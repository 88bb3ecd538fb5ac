package auth

import (
	"context"
	"strings"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const msgGoogleFailed = "Google authentication failed"

// GoogleUser Google userinfo 回傳的帳號資料
type GoogleUser struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleOAuth Google 授權碼流程
type GoogleOAuth struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleOAuth 創建 Google 登入；未設定 client id/secret 時回傳 nil
func NewGoogleOAuth(cfg config.GoogleConfig) *GoogleOAuth {
	if !cfg.Enabled() {
		return nil
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	}

	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: userInfoURL,
	}
}

// NewGoogleOAuthFromConfig 依設定創建
func NewGoogleOAuthFromConfig(cfg *config.Config) *GoogleOAuth {
	return NewGoogleOAuth(cfg.Auth.Google)
}

// AuthCodeURL 使用者要前往的授權頁
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange 以授權碼換取權杖並取得帳號資料
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (GoogleUser, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return GoogleUser{}, common.NewValidationError("authorization code is required")
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		common.LogWarn("Google 授權碼交換失敗", zap.Error(err))
		return GoogleUser{}, common.ErrInvalidRequest.WithMessage(msgGoogleFailed).WithError(err)
	}

	var user GoogleUser
	resp, err := resty.NewWithClient(g.config.Client(ctx, token)).R().
		SetContext(ctx).
		SetResult(&user).
		Get(g.userInfoURL)
	if err != nil {
		return GoogleUser{}, common.ErrInvalidRequest.WithMessage(msgGoogleFailed).WithError(err)
	}
	if resp.IsError() {
		common.LogWarn("取得 Google 帳號資料失敗", zap.Int("status", resp.StatusCode()))
		return GoogleUser{}, common.ErrInvalidRequest.WithMessage("Failed to get user info from Google")
	}
	if user.Email == "" {
		return GoogleUser{}, common.ErrInvalidRequest.WithMessage("Failed to get user info from Google")
	}
	return user, nil
}
