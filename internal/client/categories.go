package client

import (
	"context"
	"fmt"
	"net/http"

	"recipe-suggester/internal/pkg/common"
)

// ListCategories 列出分類
func (c *Client) ListCategories(ctx context.Context) ([]common.Category, error) {
	var out []common.Category
	if err := c.do(ctx, c.request(ctx), http.MethodGet, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory 建立分類
func (c *Client) CreateCategory(ctx context.Context, name string) (common.Category, error) {
	var out common.Category
	req := c.request(ctx).SetBody(common.CategoryRequest{Name: name})
	if err := c.do(ctx, req, http.MethodPost, "/categories", &out); err != nil {
		return common.Category{}, err
	}
	return out, nil
}

// RenameCategory 修改分類名稱
func (c *Client) RenameCategory(ctx context.Context, categoryID int64, name string) (common.Category, error) {
	var out common.Category
	req := c.request(ctx).SetBody(common.CategoryRequest{Name: name})
	if err := c.do(ctx, req, http.MethodPatch, fmt.Sprintf("/categories/%d", categoryID), &out); err != nil {
		return common.Category{}, err
	}
	return out, nil
}

// DeleteCategory 刪除分類，所屬食譜的 category_id 會被清空
func (c *Client) DeleteCategory(ctx context.Context, categoryID int64) error {
	return c.do(ctx, c.request(ctx), http.MethodDelete, fmt.Sprintf("/categories/%d", categoryID), nil)
}

// AssignCategory 指定多個食譜的分類，categoryID 為 nil 時移除分類
func (c *Client) AssignCategory(ctx context.Context, recipeIDs []int64, categoryID *int64) ([]common.Recipe, error) {
	var out []common.Recipe
	body := common.AssignCategoryRequest{RecipeIDs: recipeIDs, CategoryID: categoryID}
	req := c.request(ctx).SetBody(body)
	if err := c.do(ctx, req, http.MethodPost, "/categories/assign", &out); err != nil {
		return nil, err
	}
	return out, nil
}
