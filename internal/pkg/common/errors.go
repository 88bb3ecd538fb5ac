package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Detail  string `json:"detail"`            // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼，傳輸錯誤時為 0
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 支援 errors.Is / errors.As
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比較，讓預定義錯誤可以作為哨兵值
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WithError 以預定義錯誤為模板附上原始錯誤
func (e *CustomError) WithError(err error) *CustomError {
	return &CustomError{Code: e.Code, Message: e.Message, Status: e.Status, Err: err}
}

// WithMessage 以預定義錯誤為模板替換錯誤信息
func (e *CustomError) WithMessage(message string) *CustomError {
	return &CustomError{Code: e.Code, Message: message, Status: e.Status, Err: e.Err}
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return ErrorCode(err) == ErrCodeInvalidRequest
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeForbidden       = "FORBIDDEN"         // 403
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeTooLarge        = "PAYLOAD_TOO_LARGE" // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503

	// 客戶端流程錯誤
	ErrCodeTransport        = "TRANSPORT_ERROR"
	ErrCodeJobFailed        = "JOB_FAILED"
	ErrCodeMalformedPayload = "MALFORMED_PAYLOAD"
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "could not validate credentials", http.StatusUnauthorized, nil)
	ErrForbidden       = NewError(ErrCodeForbidden, "forbidden", http.StatusForbidden, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "not found", http.StatusNotFound, nil)
	ErrConflict        = NewError(ErrCodeConflict, "conflict", http.StatusConflict, nil)
	ErrTooLarge        = NewError(ErrCodeTooLarge, "payload too large", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "service unavailable", http.StatusServiceUnavailable, nil)

	// 業務錯誤
	ErrTransport          = NewError(ErrCodeTransport, "backend is not reachable", 0, nil)
	ErrJobFailed          = NewError(ErrCodeJobFailed, "job failed", 0, nil)
	ErrMalformedPayload   = NewError(ErrCodeMalformedPayload, "malformed job payload", 0, nil)
	ErrInvalidImageFormat = NewError(ErrCodeInvalidRequest, "invalid image format", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError(ErrCodeTooLarge, "image size exceeds limit", http.StatusRequestEntityTooLarge, nil)
	ErrQueueFull          = NewError(ErrCodeServiceUnavailable, "job queue is full", http.StatusServiceUnavailable, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "cache is full", http.StatusServiceUnavailable, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "cache miss", 0, nil)
)

// ErrorCode 取得錯誤代碼，非 CustomError 回傳空字串
func ErrorCode(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// ErrorStatus 取得錯誤的 HTTP 狀態碼，未知時回傳 0
func ErrorStatus(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}

// IsTransportError 網路不可達等傳輸層錯誤
func IsTransportError(err error) bool {
	return ErrorCode(err) == ErrCodeTransport
}

// IsUnauthorized 缺少或過期的憑證
func IsUnauthorized(err error) bool {
	code := ErrorCode(err)
	return code == ErrCodeUnauthorized || code == ErrCodeForbidden
}

// IsNotFound 資源不存在
func IsNotFound(err error) bool {
	return ErrorCode(err) == ErrCodeNotFound
}

// FromStatus 依 HTTP 狀態碼建立對應錯誤
func FromStatus(status int, message string) *CustomError {
	var base *CustomError
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		base = ErrInvalidRequest
	case status == http.StatusUnauthorized:
		base = ErrUnauthorized
	case status == http.StatusForbidden:
		base = ErrForbidden
	case status == http.StatusNotFound:
		base = ErrNotFound
	case status == http.StatusConflict:
		base = ErrConflict
	case status == http.StatusRequestEntityTooLarge:
		base = ErrTooLarge
	case status == http.StatusTooManyRequests:
		base = ErrTooManyRequests
	case status >= 500:
		base = ErrServiceUnavailable
	default:
		base = ErrInvalidRequest
	}
	e := &CustomError{Code: base.Code, Message: base.Message, Status: status}
	if message != "" {
		e.Message = message
	}
	return e
}

// ResponseFor 將錯誤轉為 HTTP 狀態碼與回應內容
func ResponseFor(err error) (int, ErrorResponse) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{Code: ErrCodeInvalidRequest, Detail: ve.Error()}
	}

	var ce *CustomError
	if errors.As(err, &ce) {
		status := ce.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Code: ce.Code, Detail: ce.Message}
	}

	return http.StatusInternalServerError, ErrorResponse{Code: ErrCodeInternalError, Detail: ErrInternalError.Message}
}
