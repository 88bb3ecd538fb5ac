package ingredients

import (
	"context"

	"recipe-suggester/internal/core/poller"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// RecipeCaptions 食譜生成期間的進度文字
var RecipeCaptions = []string{
	"Generating your recipe...",
	"Choosing the best ingredients...",
	"Writing the procedure...",
}

// MsgParseRecipeFailed 食譜結果無法解析
const MsgParseRecipeFailed = "Failed to parse recipe data"

// RecipeJobAPI 建立與查詢食譜生成任務
type RecipeJobAPI interface {
	CreateRecipeJob(ctx context.Context, recipeID int64, ingredients []common.Ingredient) (common.Job, error)
	GetRecipeJob(ctx context.Context, jobID int64) (common.Job, error)
}

// Trigger 送出食材清單並輪詢食譜生成任務
type Trigger struct {
	api    RecipeJobAPI
	poller *poller.Poller
}

// NewTrigger 創建觸發器；opts 的 Kind 與未設定的 Captions 會被補上
func NewTrigger(api RecipeJobAPI, opts poller.Options) *Trigger {
	opts.Kind = common.JobKindRecipe
	if len(opts.Captions) == 0 {
		opts.Captions = RecipeCaptions
	}
	return &Trigger{
		api:    api,
		poller: poller.New(api.GetRecipeJob, opts),
	}
}

// Confirm 送出整個清單建立食譜任務，成功後開始輪詢。
// ctx 只限制建立請求；輪詢在 pollCtx 取消或呼叫 Cancel 時結束。
func (t *Trigger) Confirm(ctx, pollCtx context.Context, recipeID int64, buf *Buffer) (common.Job, error) {
	items := buf.Items()
	if len(items) == 0 {
		return common.Job{}, common.NewValidationError("at least one ingredient is required")
	}

	job, err := t.api.CreateRecipeJob(ctx, recipeID, items)
	if err != nil {
		common.LogError("建立食譜任務失敗", zap.Int64("recipe_id", recipeID), zap.Error(err))
		return common.Job{}, err
	}
	common.LogInfo("食譜任務已建立",
		zap.Int64("recipe_id", recipeID),
		zap.Int64("job_id", job.ID),
		zap.Int("ingredients", len(items)),
	)

	t.poller.Start(pollCtx, job.ID)
	return job, nil
}

// Resume 繼續輪詢既有的食譜任務
func (t *Trigger) Resume(ctx context.Context, jobID int64) {
	t.poller.Start(ctx, jobID)
}

// Poller 食譜任務輪詢器
func (t *Trigger) Poller() *poller.Poller {
	return t.poller
}

// Cancel 停止輪詢
func (t *Trigger) Cancel() {
	t.poller.Cancel()
}

// ParseRecipe 解析 recipe_json
func ParseRecipe(job common.Job) (common.GeneratedRecipe, error) {
	var recipe common.GeneratedRecipe
	if job.Payload == nil {
		return recipe, common.ErrMalformedPayload.WithMessage(MsgParseRecipeFailed)
	}
	if err := common.ParseJSON(*job.Payload, &recipe); err != nil {
		common.LogWarn("食譜資料格式錯誤", zap.Int64("job_id", job.ID), zap.Error(err))
		return common.GeneratedRecipe{}, common.ErrMalformedPayload.WithMessage(MsgParseRecipeFailed).WithError(err)
	}
	return recipe, nil
}
