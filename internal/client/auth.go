package client

import (
	"context"
	"net/http"

	"recipe-suggester/internal/pkg/common"
)

// Signup 註冊
func (c *Client) Signup(ctx context.Context, email, password string, fullName *string) (common.AuthResponse, error) {
	var out common.AuthResponse
	req := c.request(ctx).SetBody(common.SignupRequest{Email: email, Password: password, FullName: fullName})
	if err := c.do(ctx, req, http.MethodPost, "/auth/signup", &out); err != nil {
		return common.AuthResponse{}, err
	}
	return out, nil
}

// Login 登入
func (c *Client) Login(ctx context.Context, email, password string) (common.AuthResponse, error) {
	var out common.AuthResponse
	req := c.request(ctx).SetBody(common.LoginRequest{Email: email, Password: password})
	if err := c.do(ctx, req, http.MethodPost, "/auth/login", &out); err != nil {
		return common.AuthResponse{}, err
	}
	return out, nil
}

// GoogleAuthURL 取得 Google 授權頁網址
func (c *Client) GoogleAuthURL(ctx context.Context) (string, error) {
	var out common.GoogleAuthURLResponse
	if err := c.do(ctx, c.request(ctx), http.MethodGet, "/auth/google", &out); err != nil {
		return "", err
	}
	return out.AuthorizationURL, nil
}

// GoogleCallback 以 Google 授權碼登入
func (c *Client) GoogleCallback(ctx context.Context, code string) (common.AuthResponse, error) {
	var out common.AuthResponse
	req := c.request(ctx).SetBody(common.GoogleAuthRequest{Code: code})
	if err := c.do(ctx, req, http.MethodPost, "/auth/google/callback", &out); err != nil {
		return common.AuthResponse{}, err
	}
	return out, nil
}

// Me 取得目前使用者
func (c *Client) Me(ctx context.Context) (common.User, error) {
	var out common.User
	if err := c.do(ctx, c.request(ctx), http.MethodGet, "/auth/me", &out); err != nil {
		return common.User{}, err
	}
	return out, nil
}
