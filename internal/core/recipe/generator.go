package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-suggester/internal/core/ai/cache"
	"recipe-suggester/internal/core/service"
	"recipe-suggester/internal/pkg/common"
	"recipe-suggester/internal/telemetry"

	"go.uber.org/zap"
)

// Generator 依食材生成食譜；未設定模型時使用固定規則產生
type Generator struct {
	completer service.Completer
	cache     cache.Cache
}

// NewGenerator completer 與 cache 皆可為 nil
func NewGenerator(completer service.Completer, c cache.Cache) *Generator {
	return &Generator{completer: completer, cache: c}
}

// Generate 生成食譜
func (g *Generator) Generate(ctx context.Context, ingredients []string) (*common.GeneratedRecipe, error) {
	names := cleanNames(ingredients)
	if len(names) == 0 {
		return nil, common.NewValidationError("ingredients list cannot be empty")
	}

	if g.completer == nil {
		return fallbackRecipe(names), nil
	}

	prompt := BuildPrompt(names)
	if g.cache != nil {
		cached, err := g.cache.Get(ctx, prompt)
		if err == nil {
			if recipe, perr := parseRecipe(cached); perr == nil {
				telemetry.CacheHits.Inc()
				common.LogDebug("使用快取的食譜", zap.Strings("ingredients", names))
				return recipe, nil
			}
		} else if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.Error(err))
		}
	}

	content, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate recipe: %w", err)
	}

	raw := common.ExtractJSONObject(content)
	recipe, err := parseRecipe(raw)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, prompt, raw); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return recipe, nil
}

func parseRecipe(raw string) (*common.GeneratedRecipe, error) {
	var recipe common.GeneratedRecipe
	if err := common.ParseJSON(raw, &recipe); err != nil {
		// 部分模型會省略鍵的雙引號
		if retryErr := common.ParseJSON(common.QuoteJSONKeys(raw), &recipe); retryErr != nil {
			return nil, common.ErrMalformedPayload.WithError(err)
		}
	}
	switch {
	case recipe.Difficulty == "":
		return nil, common.ErrMalformedPayload.WithError(errors.New("missing required field: difficulty"))
	case len(recipe.Ingredients) == 0:
		return nil, common.ErrMalformedPayload.WithError(errors.New("missing required field: ingredients"))
	case len(recipe.Procedure) == 0:
		return nil, common.ErrMalformedPayload.WithError(errors.New("missing required field: procedure"))
	}
	return &recipe, nil
}

func cleanNames(ingredients []string) []string {
	names := make([]string, 0, len(ingredients))
	for _, name := range ingredients {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func fallbackRecipe(names []string) *common.GeneratedRecipe {
	title := names[0]
	if len(names) > 1 {
		title = names[0] + " and " + names[1]
	}

	difficulty := "Easy"
	if len(names) > 3 {
		difficulty = "Medium"
	}

	items := make([]common.RecipeIngredient, 0, len(names))
	lower := make([]string, 0, len(names))
	for _, name := range names {
		items = append(items, common.RecipeIngredient{Name: name, QuantityNeeded: 100, Unit: "gr"})
		lower = append(lower, strings.ToLower(name))
	}

	procedure := []string{
		"Wash and chop the " + strings.Join(lower, ", ") + ".",
		"Heat a pan over medium heat with a little oil.",
	}
	for _, name := range lower {
		procedure = append(procedure, "Add the "+name+" and cook for 3 minutes, stirring often.")
	}
	procedure = append(procedure, "Season with salt and pepper to taste and serve warm.")

	return &common.GeneratedRecipe{
		Title:           title + " Skillet",
		Difficulty:      difficulty,
		PreparationTime: 5 * len(names),
		CookingTime:     10 + 3*len(names),
		Ingredients:     items,
		Procedure:       procedure,
	}
}
