package recipe

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a professional chef assistant that creates recipes in JSON format. Always return valid JSON only, with no additional text or markdown formatting."

// BuildPrompt 依食材組出生成食譜的提示詞
func BuildPrompt(ingredients []string) string {
	return fmt.Sprintf(`%s

Given the following ingredients, create a delicious and feasible recipe.

Ingredients available: %s

Create a recipe using these ingredients. You can suggest additional common pantry items if needed (like salt, pepper, olive oil, water).

Return ONLY a valid JSON object with this exact structure:
{
  "title": "Creative and appetizing recipe name",
  "difficulty": "Easy|Medium|Hard",
  "preparation_time": <minutes as integer>,
  "cooking_time": <minutes as integer>,
  "ingredients": [
    {"name": "ingredient name", "quantity_needed": <number>, "unit": "gr|ml|pieces|tbsp|tsp|cups|etc"}
  ],
  "procedure": ["Step 1 description", "Step 2 description"]
}

Important:
- Include ALL ingredients from the list above in your recipe
- Include realistic quantities and appropriate units
- preparation_time is for prep work, cooking_time is for actual cooking
- Return ONLY the JSON, no additional text`, systemPrompt, strings.Join(ingredients, ", "))
}
