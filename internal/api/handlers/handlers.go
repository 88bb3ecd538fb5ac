package handlers

import (
	"errors"
	"io"
	"strconv"

	"recipe-suggester/internal/api/middleware"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 將錯誤寫成 {"detail", "code"}
func RespondError(c *gin.Context, err error) {
	status, body := common.ResponseFor(err)
	if status >= 500 {
		common.LogError("請求處理失敗",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// ParamID 解析路徑中的數字 ID
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrInvalidRequest.WithMessage("invalid " + name)
	}
	return id, nil
}

// BindJSON 解析 JSON 請求體並套用 binding 驗證
func BindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.ErrInvalidRequest.WithMessage("request body is required")
		}
		return common.ErrInvalidRequest.WithMessage(err.Error())
	}
	return nil
}

// CurrentUserID 取得 Auth 中間件寫入的使用者 ID
func CurrentUserID(c *gin.Context) (int64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, common.ErrUnauthorized
	}
	return id, nil
}
