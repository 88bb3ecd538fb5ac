package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TokenSource 提供目前的 bearer 憑證
type TokenSource interface {
	Token() string
}

// Client 後端 API 客戶端
type Client struct {
	http   *resty.Client
	tokens TokenSource
}

// errorBody 後端錯誤回應
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

// New 創建客戶端，不做任何重試
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		tokens: tokens,
	}
}

// NewFromConfig 依設定創建客戶端
func NewFromConfig(cfg *config.Config, tokens TokenSource) *Client {
	return New(cfg.Client.BaseURL, cfg.Client.Timeout, tokens)
}

// BaseURL 後端位址
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.SetAuthToken(token)
		}
	}
	return req
}

// do 發送請求並將非 2xx 回應轉為 CustomError
func (c *Client) do(ctx context.Context, req *resty.Request, method, path string, out interface{}) error {
	if out != nil {
		req.SetResult(out)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		// 呼叫端取消時直接回傳 context 錯誤
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		common.LogDebug("API 請求失敗",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return common.ErrTransport.WithError(err)
	}

	common.LogDebug("API 請求完成",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("耗時", time.Since(start)),
	)

	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return rejection(resp)
	}
	return nil
}

func rejection(resp *resty.Response) error {
	message := ""
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		message = detailMessage(body.Detail)
	}
	if message == "" {
		message = strings.TrimSpace(resp.String())
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode())
	}
	return common.FromStatus(resp.StatusCode(), message)
}

// detailMessage detail 可能是字串，也可能是驗證錯誤列表
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			msgs = append(msgs, item.Msg)
		}
		return strings.Join(msgs, "; ")
	}
	return string(raw)
}

// Health 檢查後端是否可用
func (c *Client) Health(ctx context.Context) error {
	var out map[string]interface{}
	if err := c.do(ctx, c.request(ctx), http.MethodGet, "/health", &out); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// IsCanceled 請求是否因呼叫端取消而中止
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
