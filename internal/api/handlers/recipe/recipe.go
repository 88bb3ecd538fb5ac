package recipe

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"recipe-suggester/internal/api/handlers"
	"recipe-suggester/internal/core/image"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/pkg/common"
	"recipe-suggester/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食譜處理程序
type Handler struct {
	recipes *store.Memory
	jobs    store.JobStore
	images  *image.Service
}

// NewHandler 創建新的食譜處理程序
func NewHandler(recipes *store.Memory, jobs store.JobStore, images *image.Service) *Handler {
	return &Handler{
		recipes: recipes,
		jobs:    jobs,
		images:  images,
	}
}

// Create POST /recipes
func (h *Handler) Create(c *gin.Context) {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	recipe := h.recipes.CreateRecipe(userID)
	common.LogInfo("食譜已建立", zap.Int64("recipe_id", recipe.ID), zap.Int64("user_id", userID))
	c.JSON(http.StatusCreated, recipe)
}

// List GET /recipes?category_id=
func (h *Handler) List(c *gin.Context) {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			handlers.RespondError(c, common.ErrInvalidRequest.WithMessage("invalid category_id"))
			return
		}
		categoryID = &id
	}

	c.JSON(http.StatusOK, h.recipes.ListRecipes(userID, categoryID))
}

// Get GET /recipes/{recipe_id}
func (h *Handler) Get(c *gin.Context) {
	userID, recipeID, ok := h.ids(c)
	if !ok {
		return
	}

	recipe, err := h.recipes.GetRecipe(userID, recipeID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Update PATCH /recipes/{recipe_id}
func (h *Handler) Update(c *gin.Context) {
	userID, recipeID, ok := h.ids(c)
	if !ok {
		return
	}

	var req common.RecipeUpdateRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		handlers.RespondError(c, common.NewValidationError("title cannot be empty"))
		return
	}

	recipe, err := h.recipes.RenameRecipe(userID, recipeID, title)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Delete DELETE /recipes/{recipe_id}，一併刪除圖片與任務
func (h *Handler) Delete(c *gin.Context) {
	userID, recipeID, ok := h.ids(c)
	if !ok {
		return
	}

	recipe, err := h.recipes.DeleteRecipe(userID, recipeID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	if recipe.Image != nil {
		if err := h.images.Remove(*recipe.Image); err != nil {
			common.LogWarn("刪除食譜圖片失敗", zap.Int64("recipe_id", recipeID), zap.Error(err))
		}
	}
	if err := h.jobs.DeleteRecipeJobs(context.WithoutCancel(c.Request.Context()), recipeID); err != nil {
		common.LogWarn("刪除食譜任務失敗", zap.Int64("recipe_id", recipeID), zap.Error(err))
	}

	c.Status(http.StatusNoContent)
}

// Upload POST /recipes/{recipe_id}/upload，multipart 欄位 file
func (h *Handler) Upload(c *gin.Context) {
	userID, recipeID, ok := h.ids(c)
	if !ok {
		return
	}

	if _, err := h.recipes.GetRecipe(userID, recipeID); err != nil {
		handlers.RespondError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		handlers.RespondError(c, common.ErrInvalidRequest.WithMessage("file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		handlers.RespondError(c, common.ErrInvalidRequest.WithError(err))
		return
	}
	defer file.Close()

	name, err := h.images.Save(file, header.Filename)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	recipe, old, err := h.recipes.SetRecipeImage(userID, recipeID, name)
	if err != nil {
		// 食譜在上傳期間被刪除
		_ = h.images.Remove(name)
		handlers.RespondError(c, err)
		return
	}
	if old != nil && *old != name {
		if err := h.images.Remove(*old); err != nil {
			common.LogWarn("刪除舊圖片失敗", zap.String("file", *old), zap.Error(err))
		}
	}

	telemetry.ImagesUploaded.Inc()
	common.LogInfo("食譜圖片已上傳",
		zap.Int64("recipe_id", recipeID),
		zap.String("file", name),
		zap.Int64("size", header.Size),
	)
	c.JSON(http.StatusOK, recipe)
}

func (h *Handler) ids(c *gin.Context) (int64, int64, bool) {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		handlers.RespondError(c, err)
		return 0, 0, false
	}
	recipeID, err := handlers.ParamID(c, "recipe_id")
	if err != nil {
		handlers.RespondError(c, err)
		return 0, 0, false
	}
	return userID, recipeID, true
}
