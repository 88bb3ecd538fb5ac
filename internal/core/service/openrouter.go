package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Completer 文字補全
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// VisionCompleter 圖文補全
type VisionCompleter interface {
	CompleteWithImage(ctx context.Context, prompt, imageDataURI string) (string, error)
}

// OpenRouterService OpenRouter 服務
type OpenRouterService struct {
	model     string
	maxTokens int
	client    *resty.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// visionMessage content 為文字與圖片片段的陣列
type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model     string      `json:"model"`
	Messages  interface{} `json:"messages"`
	MaxTokens int         `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenRouterService 創建 OpenRouter 服務
func NewOpenRouterService(cfg *config.Config) *OpenRouterService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.OpenRouter.BaseURL, "/")).
		SetTimeout(cfg.OpenRouter.Timeout).
		SetAuthToken(cfg.OpenRouter.APIKey).
		SetHeader("HTTP-Referer", "https://recipe-suggester.local").
		SetHeader("X-Title", "Recipe Suggester")

	common.LogInfo("OpenRouter 服務已初始化",
		zap.String("model", cfg.OpenRouter.Model),
		zap.String("api_key", config.MaskSecret(cfg.OpenRouter.APIKey)),
	)

	return &OpenRouterService{
		model:     cfg.OpenRouter.Model,
		maxTokens: cfg.OpenRouter.MaxTokens,
		client:    client,
	}
}

// Complete 送出單輪文字請求並回傳模型內容
func (s *OpenRouterService) Complete(ctx context.Context, prompt string) (string, error) {
	return s.send(ctx, []chatMessage{{Role: "user", Content: strings.TrimSpace(prompt)}})
}

// CompleteWithImage 附上 data URI 圖片的單輪請求
func (s *OpenRouterService) CompleteWithImage(ctx context.Context, prompt, imageDataURI string) (string, error) {
	if !strings.HasPrefix(imageDataURI, "data:image/") {
		return "", common.ErrInvalidImageFormat
	}
	return s.send(ctx, []visionMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: strings.TrimSpace(prompt)},
			{Type: "image_url", ImageURL: &imageURL{URL: imageDataURI}},
		},
	}})
}

func (s *OpenRouterService) send(ctx context.Context, messages interface{}) (content string, err error) {
	start := time.Now()
	defer func() {
		common.LogAICall(s.model, time.Since(start), err)
	}()

	req := chatRequest{
		Model:     s.model,
		Messages:  messages,
		MaxTokens: s.maxTokens,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", common.ErrTransport.WithError(fmt.Errorf("failed to send request to OpenRouter: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		return "", common.ErrTransport.WithError(fmt.Errorf("OpenRouter API returned %d: %s", resp.StatusCode(), sanitizeBody(resp.String())))
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", common.ErrMalformedPayload.WithError(fmt.Errorf("failed to parse OpenRouter response: %w", err))
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", common.ErrMalformedPayload.WithError(fmt.Errorf("no choices in OpenRouter response"))
	}

	return result.Choices[0].Message.Content, nil
}

// sanitizeBody 錯誤訊息不帶回圖片資料
func sanitizeBody(body string) string {
	if strings.Contains(body, "data:image/") || strings.Contains(body, ";base64,") {
		return "[IMAGE_DATA_REMOVED]"
	}
	if len(body) > 500 {
		return body[:500] + "..."
	}
	return body
}
