package session

import (
	"sync"

	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// Reader 唯讀存取，供 API 客戶端與流程控制使用
type Reader interface {
	Token() string
	User() (common.User, bool)
	SelectedRecipe() (int64, bool)
}

// Session 應用程式狀態：憑證、使用者與目前選取的食譜。
// 只有登入流程（SignIn/SignOut）與食譜選取（Select/ClearSelection）會寫入。
type Session struct {
	mu       sync.RWMutex
	token    string
	user     *common.User
	recipeID int64
	selected bool
}

// New 創建空的 Session
func New() *Session {
	return &Session{}
}

// NewWithToken 以既有憑證創建 Session
func NewWithToken(token string) *Session {
	return &Session{token: token}
}

// Token 目前的 bearer 憑證
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User 目前登入的使用者
func (s *Session) User() (common.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return common.User{}, false
	}
	return *s.user, true
}

// SelectedRecipe 目前選取的食譜
func (s *Session) SelectedRecipe() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recipeID, s.selected
}

// SignIn 儲存登入結果
func (s *Session) SignIn(resp common.AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := resp.User
	s.token = resp.AccessToken
	s.user = &user
	common.LogInfo("使用者登入", zap.String("email", user.Email))
}

// SignOut 清除憑證與選取狀態
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.recipeID = 0
	s.selected = false
}

// Select 選取食譜
func (s *Session) Select(recipeID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipeID = recipeID
	s.selected = true
}

// ClearSelection 取消選取
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipeID = 0
	s.selected = false
}
