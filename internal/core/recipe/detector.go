package recipe

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"recipe-suggester/internal/core/service"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// Detector 從圖片辨識食材
type Detector interface {
	Detect(ctx context.Context, imagePath string) (common.DetectedIngredients, error)
}

// MockDetector 尚未串接影像模型前的固定辨識結果
type MockDetector struct{}

// NewMockDetector 創建固定結果的辨識器
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// Detect 圖片路徑存在時回傳固定的食材清單
func (d *MockDetector) Detect(ctx context.Context, imagePath string) (common.DetectedIngredients, error) {
	if err := ctx.Err(); err != nil {
		return common.DetectedIngredients{}, err
	}
	if imagePath != "" {
		if _, err := os.Stat(imagePath); err != nil {
			return common.DetectedIngredients{}, fmt.Errorf("image not readable: %w", err)
		}
	}

	result := common.DetectedIngredients{
		Ingredients: []common.Ingredient{
			{Name: "Tomato", Confidence: common.Float64Ptr(0.95)},
			{Name: "Onion", Confidence: common.Float64Ptr(0.88)},
			{Name: "Garlic", Confidence: common.Float64Ptr(0.72)},
			{Name: "Olive Oil", Confidence: common.Float64Ptr(0.65)},
		},
	}
	common.LogDebug("食材辨識完成", zap.String("image", imagePath), zap.Int("count", len(result.Ingredients)))
	return result, nil
}

const detectPrompt = `Carefully analyze the photo and list the food ingredients that are actually visible.
Do not add items that do not appear in the photo.
For each ingredient give a confidence between 0 and 1.
Return ONLY a compact JSON object with this exact structure:
{"ingredients":[{"name":"ingredient name","confidence":0.9}]}`

// VisionDetector 以影像模型辨識食材
type VisionDetector struct {
	vision service.VisionCompleter
}

// NewVisionDetector 創建影像模型辨識器
func NewVisionDetector(vision service.VisionCompleter) *VisionDetector {
	return &VisionDetector{vision: vision}
}

// Detect 讀取圖片並交給模型辨識；沒有圖片時回傳空清單
func (d *VisionDetector) Detect(ctx context.Context, imagePath string) (common.DetectedIngredients, error) {
	if imagePath == "" {
		return common.DetectedIngredients{Ingredients: []common.Ingredient{}}, nil
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return common.DetectedIngredients{}, fmt.Errorf("image not readable: %w", err)
	}

	content, err := d.vision.CompleteWithImage(ctx, detectPrompt, dataURI(data))
	if err != nil {
		return common.DetectedIngredients{}, err
	}

	var raw common.DetectedIngredients
	if err := common.ParseJSON(common.ExtractJSONObject(content), &raw); err != nil {
		return common.DetectedIngredients{}, common.ErrMalformedPayload.WithError(fmt.Errorf("failed to parse AI response: %w", err))
	}

	result := common.DetectedIngredients{Ingredients: make([]common.Ingredient, 0, len(raw.Ingredients))}
	for _, ing := range raw.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			continue
		}
		if ing.Confidence != nil {
			ing.Confidence = common.Float64Ptr(clamp01(*ing.Confidence))
		}
		result.Ingredients = append(result.Ingredients, ing)
	}

	common.LogInfo("Successfully identified ingredients", zap.Int("ingredients_count", len(result.Ingredients)))
	return result, nil
}

func dataURI(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
