package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"recipe-suggester/internal/pkg/common"
)

// 預設標題格式，對應 "Recipe of DD/MM/YY HH:MM"
const recipeTitleLayout = "Recipe of 02/01/06 15:04"

// DefaultRecipeTitle 新食譜的預設標題（UTC）
func DefaultRecipeTitle(t time.Time) string {
	return t.UTC().Format(recipeTitleLayout)
}

// 登入方式
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type userRecord struct {
	user         common.User
	passwordHash string
	provider     string
	subject      string
}

// Memory 使用者、食譜與分類的記憶體儲存
type Memory struct {
	mu sync.RWMutex

	users      map[int64]userRecord
	emails     map[string]int64
	recipes    map[int64]common.Recipe
	categories map[int64]common.Category

	nextUserID     int64
	nextRecipeID   int64
	nextCategoryID int64

	now func() time.Time
}

// NewMemory 創建記憶體儲存
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[int64]userRecord),
		emails:     make(map[string]int64),
		recipes:    make(map[int64]common.Recipe),
		categories: make(map[int64]common.Category),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser 建立使用者，email 重複時回傳錯誤
func (m *Memory) CreateUser(email, passwordHash string, fullName *string) (common.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeEmail(email)
	if _, exists := m.emails[key]; exists {
		return common.User{}, common.ErrInvalidRequest.WithMessage("Email already registered")
	}

	m.nextUserID++
	now := m.now()
	user := common.User{
		ID:        m.nextUserID,
		Email:     strings.TrimSpace(email),
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[user.ID] = userRecord{user: user, passwordHash: passwordHash, provider: ProviderEmail}
	m.emails[key] = user.ID
	return user, nil
}

// ExternalUser 依外部帳號登入：email 不存在時建立使用者，
// 已存在但以其他方式註冊時回傳錯誤
func (m *Memory) ExternalUser(provider, subject, email string, fullName *string) (common.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeEmail(email)
	if key == "" {
		return common.User{}, false, common.ErrInvalidRequest.WithMessage("Email is required")
	}
	if id, exists := m.emails[key]; exists {
		rec := m.users[id]
		if rec.provider != provider {
			return common.User{}, false, common.ErrInvalidRequest.WithMessage("This email is registered with " + rec.provider + " authentication")
		}
		return rec.user, false, nil
	}

	m.nextUserID++
	now := m.now()
	user := common.User{
		ID:        m.nextUserID,
		Email:     strings.TrimSpace(email),
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[user.ID] = userRecord{user: user, provider: provider, subject: subject}
	m.emails[key] = user.ID
	return user, true, nil
}

// UserByEmail 依 email 取得使用者與密碼雜湊
func (m *Memory) UserByEmail(email string) (common.User, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[normalizeEmail(email)]
	if !ok {
		return common.User{}, "", common.ErrNotFound.WithMessage("User not found")
	}
	rec := m.users[id]
	return rec.user, rec.passwordHash, nil
}

// UserByID 依 id 取得使用者
func (m *Memory) UserByID(id int64) (common.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[id]
	if !ok {
		return common.User{}, common.ErrNotFound.WithMessage("User not found")
	}
	return rec.user, nil
}

// CreateRecipe 建立空白食譜
func (m *Memory) CreateRecipe(userID int64) common.Recipe {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRecipeID++
	now := m.now()
	recipe := common.Recipe{
		ID:        m.nextRecipeID,
		Title:     DefaultRecipeTitle(now),
		UserID:    userID,
		CreatedAt: now,
	}
	m.recipes[recipe.ID] = recipe
	return recipe
}

// ListRecipes 使用者的食譜，新的在前
func (m *Memory) ListRecipes(userID int64, categoryID *int64) []common.Recipe {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]common.Recipe, 0)
	for _, r := range m.recipes {
		if r.UserID != userID {
			continue
		}
		if categoryID != nil && (r.CategoryID == nil || *r.CategoryID != *categoryID) {
			continue
		}
		out = append(out, m.withCategory(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetRecipe 取得食譜，不屬於該使用者時視為不存在
func (m *Memory) GetRecipe(userID, recipeID int64) (common.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.recipes[recipeID]
	if !ok || r.UserID != userID {
		return common.Recipe{}, common.ErrNotFound.WithMessage("Recipe not found")
	}
	return m.withCategory(r), nil
}

// RenameRecipe 修改標題
func (m *Memory) RenameRecipe(userID, recipeID int64, title string) (common.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.recipes[recipeID]
	if !ok || r.UserID != userID {
		return common.Recipe{}, common.ErrNotFound.WithMessage("Recipe not found")
	}
	r.Title = title
	m.recipes[recipeID] = r
	return r, nil
}

// SetRecipeImage 設定圖片，回傳被取代的舊圖片名稱
func (m *Memory) SetRecipeImage(userID, recipeID int64, image string) (common.Recipe, *string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.recipes[recipeID]
	if !ok || r.UserID != userID {
		return common.Recipe{}, nil, common.ErrNotFound.WithMessage("Recipe not found")
	}
	old := r.Image
	r.Image = common.StringPtr(image)
	m.recipes[recipeID] = r
	return r, old, nil
}

// DeleteRecipe 刪除食譜，回傳被刪除的紀錄
func (m *Memory) DeleteRecipe(userID, recipeID int64) (common.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.recipes[recipeID]
	if !ok || r.UserID != userID {
		return common.Recipe{}, common.ErrNotFound.WithMessage("Recipe not found")
	}
	delete(m.recipes, recipeID)
	return r, nil
}

// CreateCategory 建立分類，名稱不可重複
func (m *Memory) CreateCategory(name string) (common.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.categoryNameTaken(name, 0) {
		return common.Category{}, common.ErrInvalidRequest.WithMessage("Category already exists")
	}
	m.nextCategoryID++
	c := common.Category{ID: m.nextCategoryID, Name: name, CreatedAt: m.now()}
	m.categories[c.ID] = c
	return c, nil
}

// ListCategories 所有分類，新的在前
func (m *Memory) ListCategories() []common.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]common.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RenameCategory 修改分類名稱
func (m *Memory) RenameCategory(categoryID int64, name string) (common.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[categoryID]
	if !ok {
		return common.Category{}, common.ErrNotFound.WithMessage("Category not found")
	}
	if m.categoryNameTaken(name, categoryID) {
		return common.Category{}, common.ErrInvalidRequest.WithMessage("Category name already exists")
	}
	c.Name = name
	m.categories[categoryID] = c
	return c, nil
}

// DeleteCategory 刪除分類並清空所屬食譜的 category_id
func (m *Memory) DeleteCategory(categoryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[categoryID]; !ok {
		return common.ErrNotFound.WithMessage("Category not found")
	}
	delete(m.categories, categoryID)
	for id, r := range m.recipes {
		if r.CategoryID != nil && *r.CategoryID == categoryID {
			r.CategoryID = nil
			m.recipes[id] = r
		}
	}
	return nil
}

// AssignCategory 指定多個食譜的分類；任何一個食譜不存在時全部不變更
func (m *Memory) AssignCategory(userID int64, recipeIDs []int64, categoryID *int64) ([]common.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if categoryID != nil {
		if _, ok := m.categories[*categoryID]; !ok {
			return nil, common.ErrNotFound.WithMessage("Category not found")
		}
	}
	for _, id := range recipeIDs {
		r, ok := m.recipes[id]
		if !ok || r.UserID != userID {
			return nil, common.ErrNotFound.WithMessage("Some recipes not found")
		}
	}

	out := make([]common.Recipe, 0, len(recipeIDs))
	for _, id := range recipeIDs {
		r := m.recipes[id]
		if categoryID != nil {
			cid := *categoryID
			r.CategoryID = &cid
		} else {
			r.CategoryID = nil
		}
		m.recipes[id] = r
		out = append(out, m.withCategory(r))
	}
	return out, nil
}

func (m *Memory) categoryNameTaken(name string, exceptID int64) bool {
	for _, c := range m.categories {
		if c.ID != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

// withCategory 呼叫端需持有鎖
func (m *Memory) withCategory(r common.Recipe) common.Recipe {
	if r.CategoryID != nil {
		if c, ok := m.categories[*r.CategoryID]; ok {
			r.Category = &c
		}
	}
	return r
}
