package job

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"recipe-suggester/internal/api/handlers"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgIngredientsJobExists   = "Ingredients job already exists for this recipe"
	msgIngredientsJobNotFound = "Ingredients job not found"
	msgRecipeJobNotFound      = "Recipe job not found"
)

// Runner 背景執行任務
type Runner interface {
	SubmitDetection(ctx context.Context, job common.Job, imagePath string) error
	SubmitGeneration(ctx context.Context, job common.Job, ingredients []string) error
}

// ImagePather 食譜圖片檔名對應的路徑
type ImagePather interface {
	Path(name string) string
}

// Handler 任務處理程序
type Handler struct {
	recipes *store.Memory
	jobs    store.JobStore
	runner  Runner
	images  ImagePather

	// 同一食譜只能有一個食材辨識任務
	createMu sync.Mutex
}

// NewHandler 創建任務處理程序
func NewHandler(recipes *store.Memory, jobs store.JobStore, runner Runner, images ImagePather) *Handler {
	return &Handler{
		recipes: recipes,
		jobs:    jobs,
		runner:  runner,
		images:  images,
	}
}

// CreateIngredientsJob POST /jobs/ingredients/{recipe_id}
func (h *Handler) CreateIngredientsJob(c *gin.Context) {
	recipe, ok := h.ownedRecipe(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	h.createMu.Lock()
	existing, err := h.jobs.LatestJob(ctx, common.JobKindIngredients, recipe.ID)
	if err != nil {
		h.createMu.Unlock()
		handlers.RespondError(c, err)
		return
	}
	if existing != nil {
		h.createMu.Unlock()
		handlers.RespondError(c, common.ErrInvalidRequest.WithMessage(msgIngredientsJobExists))
		return
	}
	job, err := h.jobs.CreateJob(ctx, common.JobKindIngredients, recipe.ID)
	h.createMu.Unlock()
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	imagePath := ""
	if recipe.Image != nil {
		imagePath = h.images.Path(*recipe.Image)
	}
	if err := h.runner.SubmitDetection(ctx, job, imagePath); err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("食材辨識任務已建立", zap.Int64("job_id", job.ID), zap.Int64("recipe_id", recipe.ID))
	c.JSON(http.StatusCreated, common.IngredientsJobFrom(job))
}

// GetIngredientsJob GET /jobs/ingredients/{job_id}
func (h *Handler) GetIngredientsJob(c *gin.Context) {
	job, ok := h.ownedJob(c, common.JobKindIngredients, msgIngredientsJobNotFound)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, common.IngredientsJobFrom(job))
}

// CreateRecipeJob POST /jobs/recipe/{recipe_id}
func (h *Handler) CreateRecipeJob(c *gin.Context) {
	recipe, ok := h.ownedRecipe(c)
	if !ok {
		return
	}

	var req common.CreateRecipeJobRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err)
		return
	}
	names := make([]string, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		if name := strings.TrimSpace(ing.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		handlers.RespondError(c, common.ErrInvalidRequest.WithMessage("Ingredients list cannot be empty"))
		return
	}

	ctx := c.Request.Context()
	job, err := h.jobs.CreateJob(ctx, common.JobKindRecipe, recipe.ID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if err := h.runner.SubmitGeneration(ctx, job, names); err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("食譜生成任務已建立",
		zap.Int64("job_id", job.ID),
		zap.Int64("recipe_id", recipe.ID),
		zap.Int("ingredients", len(names)),
	)
	c.JSON(http.StatusCreated, common.RecipeJobFrom(job))
}

// GetRecipeJob GET /jobs/recipe/{job_id}
func (h *Handler) GetRecipeJob(c *gin.Context) {
	job, ok := h.ownedJob(c, common.JobKindRecipe, msgRecipeJobNotFound)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, common.RecipeJobFrom(job))
}

// GetJobsByRecipe GET /jobs/by-recipe/{recipe_id}
func (h *Handler) GetJobsByRecipe(c *gin.Context) {
	recipe, ok := h.ownedRecipe(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var out common.JobsByRecipe
	ingredients, err := h.jobs.LatestJob(ctx, common.JobKindIngredients, recipe.ID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if ingredients != nil {
		wire := common.IngredientsJobFrom(*ingredients)
		out.IngredientsJob = &wire
	}

	generated, err := h.jobs.LatestJob(ctx, common.JobKindRecipe, recipe.ID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if generated != nil {
		wire := common.RecipeJobFrom(*generated)
		out.RecipeJob = &wire
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handler) ownedRecipe(c *gin.Context) (common.Recipe, bool) {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		handlers.RespondError(c, err)
		return common.Recipe{}, false
	}
	recipeID, err := handlers.ParamID(c, "recipe_id")
	if err != nil {
		handlers.RespondError(c, err)
		return common.Recipe{}, false
	}
	recipe, err := h.recipes.GetRecipe(userID, recipeID)
	if err != nil {
		handlers.RespondError(c, err)
		return common.Recipe{}, false
	}
	return recipe, true
}

// ownedJob 任務不存在或屬於他人的食譜時都回 404
func (h *Handler) ownedJob(c *gin.Context, kind common.JobKind, notFound string) (common.Job, bool) {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		handlers.RespondError(c, err)
		return common.Job{}, false
	}
	jobID, err := handlers.ParamID(c, "job_id")
	if err != nil {
		handlers.RespondError(c, err)
		return common.Job{}, false
	}

	job, err := h.jobs.GetJob(c.Request.Context(), kind, jobID)
	if errors.Is(err, store.ErrJobNotFound) {
		handlers.RespondError(c, common.ErrNotFound.WithMessage(notFound))
		return common.Job{}, false
	}
	if err != nil {
		handlers.RespondError(c, err)
		return common.Job{}, false
	}

	if _, err := h.recipes.GetRecipe(userID, job.RecipeID); err != nil {
		handlers.RespondError(c, common.ErrNotFound.WithMessage(notFound))
		return common.Job{}, false
	}
	return job, true
}
