package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// Step 上傳流程的步驟
type Step string

const (
	StepCreateRecipe Step = "create_recipe"
	StepUploadImage  Step = "upload_image"
	StepCreateJob    Step = "create_job"
)

// 使用者看到的錯誤訊息
const (
	MsgCreateRecipeFailed = "Failed to create recipe"
	MsgUploadImageFailed  = "Failed to upload image"
	MsgCreateJobFailed    = "Failed to start ML job"
)

// RecipeAPI 建立食譜與上傳圖片
type RecipeAPI interface {
	CreateRecipe(ctx context.Context) (common.Recipe, error)
	UploadImage(ctx context.Context, recipeID int64, filename string, r io.Reader) (common.Recipe, error)
}

// JobAPI 建立食材偵測任務
type JobAPI interface {
	CreateIngredientsJob(ctx context.Context, recipeID int64) (common.Job, error)
}

// Image 要上傳的圖片
type Image struct {
	Name   string
	Reader io.Reader
}

// Result 成功時的食譜與偵測任務
type Result struct {
	Recipe common.Recipe
	Job    common.Job
}

// StepError 某一步失敗；已建立的食譜不會回滾，Recipe 為 nil 表示尚未建立
type StepError struct {
	Step    Step
	Message string
	Recipe  *common.Recipe
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Orchestrator 依序執行建立食譜、上傳圖片、建立偵測任務
type Orchestrator struct {
	recipes RecipeAPI
	jobs    JobAPI
}

// NewOrchestrator 創建上傳流程
func NewOrchestrator(recipes RecipeAPI, jobs JobAPI) *Orchestrator {
	return &Orchestrator{recipes: recipes, jobs: jobs}
}

// StartDetection 三個呼叫嚴格依序執行，任一步失敗即停止
func (o *Orchestrator) StartDetection(ctx context.Context, img Image) (Result, error) {
	if img.Reader == nil || strings.TrimSpace(img.Name) == "" {
		return Result{}, common.NewValidationError("no image selected")
	}

	recipe, err := o.recipes.CreateRecipe(ctx)
	if err != nil {
		return Result{}, o.fail(StepCreateRecipe, MsgCreateRecipeFailed, nil, err)
	}
	common.LogInfo("食譜已建立", zap.Int64("recipe_id", recipe.ID))

	updated, err := o.recipes.UploadImage(ctx, recipe.ID, img.Name, img.Reader)
	if err != nil {
		return Result{}, o.fail(StepUploadImage, MsgUploadImageFailed, &recipe, err)
	}
	if updated.ID != 0 {
		recipe = updated
	}

	job, err := o.jobs.CreateIngredientsJob(ctx, recipe.ID)
	if err != nil {
		return Result{}, o.fail(StepCreateJob, MsgCreateJobFailed, &recipe, err)
	}
	common.LogInfo("食材偵測任務已建立",
		zap.Int64("recipe_id", recipe.ID),
		zap.Int64("job_id", job.ID),
	)

	return Result{Recipe: recipe, Job: job}, nil
}

func (o *Orchestrator) fail(step Step, message string, recipe *common.Recipe, err error) error {
	fields := []zap.Field{zap.String("step", string(step)), zap.Error(err)}
	if recipe != nil {
		fields = append(fields, zap.Int64("recipe_id", recipe.ID))
	}
	common.LogError(message, fields...)
	return &StepError{Step: step, Message: message, Recipe: recipe, Err: err}
}
