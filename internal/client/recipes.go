package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"recipe-suggester/internal/pkg/common"
)

// CreateRecipe 建立空白食譜
func (c *Client) CreateRecipe(ctx context.Context) (common.Recipe, error) {
	var out common.Recipe
	if err := c.do(ctx, c.request(ctx), http.MethodPost, "/recipes", &out); err != nil {
		return common.Recipe{}, err
	}
	return out, nil
}

// UploadImage 上傳食譜圖片（multipart 欄位 file）
func (c *Client) UploadImage(ctx context.Context, recipeID int64, filename string, r io.Reader) (common.Recipe, error) {
	var out common.Recipe
	path := fmt.Sprintf("/recipes/%d/upload", recipeID)
	req := c.request(ctx).SetFileReader("file", filename, r)
	if err := c.do(ctx, req, http.MethodPost, path, &out); err != nil {
		return common.Recipe{}, err
	}
	return out, nil
}

// ListRecipes 列出食譜，categoryID 為 nil 時列出全部
func (c *Client) ListRecipes(ctx context.Context, categoryID *int64) ([]common.Recipe, error) {
	var out []common.Recipe
	req := c.request(ctx)
	if categoryID != nil {
		req.SetQueryParam("category_id", strconv.FormatInt(*categoryID, 10))
	}
	if err := c.do(ctx, req, http.MethodGet, "/recipes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRecipe 取得食譜
func (c *Client) GetRecipe(ctx context.Context, recipeID int64) (common.Recipe, error) {
	var out common.Recipe
	if err := c.do(ctx, c.request(ctx), http.MethodGet, fmt.Sprintf("/recipes/%d", recipeID), &out); err != nil {
		return common.Recipe{}, err
	}
	return out, nil
}

// RenameRecipe 修改食譜標題
func (c *Client) RenameRecipe(ctx context.Context, recipeID int64, title string) (common.Recipe, error) {
	var out common.Recipe
	req := c.request(ctx).SetBody(common.RecipeUpdateRequest{Title: title})
	if err := c.do(ctx, req, http.MethodPatch, fmt.Sprintf("/recipes/%d", recipeID), &out); err != nil {
		return common.Recipe{}, err
	}
	return out, nil
}

// DeleteRecipe 刪除食譜
func (c *Client) DeleteRecipe(ctx context.Context, recipeID int64) error {
	return c.do(ctx, c.request(ctx), http.MethodDelete, fmt.Sprintf("/recipes/%d", recipeID), nil)
}
