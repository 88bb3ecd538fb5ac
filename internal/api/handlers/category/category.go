package category

import (
	"net/http"
	"strings"

	"recipe-suggester/internal/api/handlers"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Handler 分類處理程序
type Handler struct {
	store *store.Memory
}

// NewHandler 創建分類處理程序
func NewHandler(s *store.Memory) *Handler {
	return &Handler{store: s}
}

func bindName(c *gin.Context) (string, bool) {
	var req common.CategoryRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err)
		return "", false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		handlers.RespondError(c, common.NewValidationError("name cannot be empty"))
		return "", false
	}
	return name, true
}

// Create POST /categories
func (h *Handler) Create(c *gin.Context) {
	name, ok := bindName(c)
	if !ok {
		return
	}
	category, err := h.store.CreateCategory(name)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// List GET /categories
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListCategories())
}

// Update PATCH /categories/{category_id}
func (h *Handler) Update(c *gin.Context) {
	id, err := handlers.ParamID(c, "category_id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	name, ok := bindName(c)
	if !ok {
		return
	}
	category, err := h.store.RenameCategory(id, name)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Delete DELETE /categories/{category_id}
func (h *Handler) Delete(c *gin.Context) {
	id, err := handlers.ParamID(c, "category_id")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if err := h.store.DeleteCategory(id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Assign POST /categories/assign，category_id 為 null 時移除分類
func (h *Handler) Assign(c *gin.Context) {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	var req common.AssignCategoryRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err)
		return
	}

	recipes, err := h.store.AssignCategory(userID, req.RecipeIDs, req.CategoryID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}
