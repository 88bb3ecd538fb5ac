package client

import (
	"context"
	"fmt"
	"net/http"

	"recipe-suggester/internal/pkg/common"
)

// CreateIngredientsJob 建立食材偵測任務
func (c *Client) CreateIngredientsJob(ctx context.Context, recipeID int64) (common.Job, error) {
	var out common.IngredientsJob
	path := fmt.Sprintf("/jobs/ingredients/%d", recipeID)
	if err := c.do(ctx, c.request(ctx), http.MethodPost, path, &out); err != nil {
		return common.Job{}, err
	}
	return out.Job(), nil
}

// GetIngredientsJob 查詢食材偵測任務
func (c *Client) GetIngredientsJob(ctx context.Context, jobID int64) (common.Job, error) {
	var out common.IngredientsJob
	path := fmt.Sprintf("/jobs/ingredients/%d", jobID)
	if err := c.do(ctx, c.request(ctx), http.MethodGet, path, &out); err != nil {
		return common.Job{}, err
	}
	return out.Job(), nil
}

// CreateRecipeJob 以編輯後的食材建立食譜生成任務
func (c *Client) CreateRecipeJob(ctx context.Context, recipeID int64, ingredients []common.Ingredient) (common.Job, error) {
	if ingredients == nil {
		ingredients = []common.Ingredient{}
	}
	var out common.RecipeJob
	path := fmt.Sprintf("/jobs/recipe/%d", recipeID)
	req := c.request(ctx).SetBody(common.CreateRecipeJobRequest{Ingredients: ingredients})
	if err := c.do(ctx, req, http.MethodPost, path, &out); err != nil {
		return common.Job{}, err
	}
	return out.Job(), nil
}

// GetRecipeJob 查詢食譜生成任務
func (c *Client) GetRecipeJob(ctx context.Context, jobID int64) (common.Job, error) {
	var out common.RecipeJob
	path := fmt.Sprintf("/jobs/recipe/%d", jobID)
	if err := c.do(ctx, c.request(ctx), http.MethodGet, path, &out); err != nil {
		return common.Job{}, err
	}
	return out.Job(), nil
}

// GetJob 依種類查詢任務
func (c *Client) GetJob(ctx context.Context, kind common.JobKind, jobID int64) (common.Job, error) {
	switch kind {
	case common.JobKindIngredients:
		return c.GetIngredientsJob(ctx, jobID)
	case common.JobKindRecipe:
		return c.GetRecipeJob(ctx, jobID)
	default:
		return common.Job{}, common.NewValidationError(fmt.Sprintf("unknown job kind %q", kind))
	}
}

// GetJobsByRecipe 查詢食譜最新的兩種任務，不存在的項目為 nil
func (c *Client) GetJobsByRecipe(ctx context.Context, recipeID int64) (common.JobsByRecipe, error) {
	var out common.JobsByRecipe
	path := fmt.Sprintf("/jobs/by-recipe/%d", recipeID)
	if err := c.do(ctx, c.request(ctx), http.MethodGet, path, &out); err != nil {
		return common.JobsByRecipe{}, err
	}
	return out, nil
}
