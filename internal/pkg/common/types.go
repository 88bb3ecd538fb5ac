package common

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus 任務狀態
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal 是否為終止狀態（completed 或 failed）
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobKind 任務種類
type JobKind string

const (
	JobKindIngredients JobKind = "ingredients"
	JobKindRecipe      JobKind = "recipe"
)

// User 使用者
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthResponse 登入/註冊回應
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// SignupRequest 註冊請求
type SignupRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name,omitempty"`
}

// LoginRequest 登入請求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GoogleAuthRequest Google 授權碼
type GoogleAuthRequest struct {
	Code string `json:"code" binding:"required"`
}

// GoogleAuthURLResponse Google 授權頁網址
type GoogleAuthURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// Category 分類
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryRequest 建立或修改分類
type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// AssignCategoryRequest 指定食譜分類
type AssignCategoryRequest struct {
	RecipeIDs  []int64 `json:"recipe_ids" binding:"required"`
	CategoryID *int64  `json:"category_id"`
}

// RecipeUpdateRequest 修改食譜標題
type RecipeUpdateRequest struct {
	Title string `json:"title" binding:"required"`
}

// Recipe 食譜紀錄
type Recipe struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Image      *string   `json:"image"`
	UserID     int64     `json:"user_id"`
	CategoryID *int64    `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
	Category   *Category `json:"category,omitempty"`
}

// Ingredient 食材，Confidence 只有模型偵測的項目才有
type Ingredient struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// DetectedIngredients ingredients_json 的內容
type DetectedIngredients struct {
	Ingredients []Ingredient `json:"ingredients"`
}

// CreateRecipeJobRequest 建立食譜生成任務的請求
type CreateRecipeJobRequest struct {
	Ingredients []Ingredient `json:"ingredients"`
}

// Job 與種類無關的任務紀錄，Payload 只在 completed 時存在
type Job struct {
	ID        int64      `json:"id"`
	RecipeID  int64      `json:"recipe_id"`
	Kind      JobKind    `json:"kind"`
	Status    JobStatus  `json:"status"`
	Payload   *string    `json:"payload,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// PayloadString 回傳 payload，不存在時為空字串
func (j Job) PayloadString() string {
	if j.Payload == nil {
		return ""
	}
	return *j.Payload
}

// IngredientsJob 食材偵測任務（wire 格式）
type IngredientsJob struct {
	ID              int64      `json:"id"`
	RecipeID        int64      `json:"recipe_id"`
	Status          JobStatus  `json:"status"`
	IngredientsJSON *string    `json:"ingredients_json"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
}

// Job 轉換為通用任務
func (j IngredientsJob) Job() Job {
	return Job{
		ID:        j.ID,
		RecipeID:  j.RecipeID,
		Kind:      JobKindIngredients,
		Status:    j.Status,
		Payload:   j.IngredientsJSON,
		StartTime: j.StartTime,
		EndTime:   j.EndTime,
	}
}

// RecipeJob 食譜生成任務（wire 格式）
type RecipeJob struct {
	ID         int64      `json:"id"`
	RecipeID   int64      `json:"recipe_id"`
	Status     JobStatus  `json:"status"`
	RecipeJSON *string    `json:"recipe_json"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
}

// Job 轉換為通用任務
func (j RecipeJob) Job() Job {
	return Job{
		ID:        j.ID,
		RecipeID:  j.RecipeID,
		Kind:      JobKindRecipe,
		Status:    j.Status,
		Payload:   j.RecipeJSON,
		StartTime: j.StartTime,
		EndTime:   j.EndTime,
	}
}

// IngredientsJobFrom 由通用任務轉為 wire 格式
func IngredientsJobFrom(j Job) IngredientsJob {
	return IngredientsJob{
		ID:              j.ID,
		RecipeID:        j.RecipeID,
		Status:          j.Status,
		IngredientsJSON: j.Payload,
		StartTime:       j.StartTime,
		EndTime:         j.EndTime,
	}
}

// RecipeJobFrom 由通用任務轉為 wire 格式
func RecipeJobFrom(j Job) RecipeJob {
	return RecipeJob{
		ID:         j.ID,
		RecipeID:   j.RecipeID,
		Status:     j.Status,
		RecipeJSON: j.Payload,
		StartTime:  j.StartTime,
		EndTime:    j.EndTime,
	}
}

// JobsByRecipe GET /jobs/by-recipe/{recipeId} 的回應
type JobsByRecipe struct {
	IngredientsJob *IngredientsJob `json:"ingredients_job"`
	RecipeJob      *RecipeJob      `json:"recipe_job"`
}

// RecipeIngredient 生成食譜中的食材用量
type RecipeIngredient struct {
	Name           string  `json:"name"`
	QuantityNeeded float64 `json:"quantity_needed"`
	Unit           string  `json:"unit"`
}

// GeneratedRecipe recipe_json 的內容
type GeneratedRecipe struct {
	Title           string             `json:"title"`
	Difficulty      string             `json:"difficulty"`
	PreparationTime int                `json:"preparation_time"`
	CookingTime     int                `json:"cooking_time"`
	Ingredients     []RecipeIngredient `json:"ingredients"`
	Procedure       []string           `json:"procedure"`
}

// TotalTime 準備加烹調時間（分鐘）
func (r GeneratedRecipe) TotalTime() int {
	return r.PreparationTime + r.CookingTime
}

// FormatIngredients 格式化食材列表
func FormatIngredients(ingredients []Ingredient) string {
	var sb strings.Builder
	for i, ing := range ingredients {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, ing.Name))
		if ing.Confidence != nil {
			sb.WriteString(fmt.Sprintf(" (%d%%)", int(*ing.Confidence*100+0.5)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatRecipe 格式化生成的食譜
func FormatRecipe(r GeneratedRecipe) string {
	var sb strings.Builder
	sb.WriteString(r.Title + "\n")
	sb.WriteString(fmt.Sprintf("Difficulty: %s | Prep: %d min | Cook: %d min | Total: %d min\n",
		r.Difficulty, r.PreparationTime, r.CookingTime, r.TotalTime()))
	sb.WriteString("\nIngredients:\n")
	for _, ing := range r.Ingredients {
		sb.WriteString(fmt.Sprintf("- %s: %g %s\n", ing.Name, ing.QuantityNeeded, ing.Unit))
	}
	sb.WriteString("\nProcedure:\n")
	for i, step := range r.Procedure {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
	return sb.String()
}

// Float64Ptr 取得 float64 指標
func Float64Ptr(v float64) *float64 {
	return &v
}

// StringPtr 取得 string 指標
func StringPtr(v string) *string {
	return &v
}
