package flow

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"recipe-suggester/internal/core/ingredients"
	"recipe-suggester/internal/core/poller"
	"recipe-suggester/internal/core/session"
	"recipe-suggester/internal/core/upload"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// DetectionCaptions 食材偵測期間的進度文字
var DetectionCaptions = []string{
	"Scanning the image...",
	"Preparing the list of ingredients...",
}

// 通知訊息
const (
	MsgDetectionSucceeded   = "Ingredients detected successfully!"
	MsgDetectionFailed      = "Failed to detect ingredients"
	MsgRecipeSucceeded      = "Recipe generated successfully!"
	MsgRecipeFailed         = "Failed to generate recipe"
	MsgRecipeJobStartFailed = "Failed to start recipe generation"
	MsgLoadJobsFailed       = "Failed to load recipe jobs"
)

// API 流程需要的後端操作，*client.Client 即符合
type API interface {
	CreateRecipe(ctx context.Context) (common.Recipe, error)
	UploadImage(ctx context.Context, recipeID int64, filename string, r io.Reader) (common.Recipe, error)
	CreateIngredientsJob(ctx context.Context, recipeID int64) (common.Job, error)
	GetIngredientsJob(ctx context.Context, jobID int64) (common.Job, error)
	CreateRecipeJob(ctx context.Context, recipeID int64, ingredients []common.Ingredient) (common.Job, error)
	GetRecipeJob(ctx context.Context, jobID int64) (common.Job, error)
	GetJobsByRecipe(ctx context.Context, recipeID int64) (common.JobsByRecipe, error)
}

// Observer 狀態變化事件，於輪詢 goroutine 上呼叫；事件內可呼叫 Close、StartDetection 或 Resume
type Observer interface {
	OnCaption(kind common.JobKind, caption string)
	OnDetectionComplete(recipeID int64, buf *ingredients.Buffer)
	OnDetectionFailed(recipeID int64, err error)
	OnRecipeReady(recipeID int64, recipe common.GeneratedRecipe)
	OnRecipeFailed(recipeID int64, err error)
}

// Notifier 使用者通知
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NopObserver 不處理任何事件，可嵌入只實作部分方法
type NopObserver struct{}

func (NopObserver) OnCaption(common.JobKind, string)               {}
func (NopObserver) OnDetectionComplete(int64, *ingredients.Buffer) {}
func (NopObserver) OnDetectionFailed(int64, error)                 {}
func (NopObserver) OnRecipeReady(int64, common.GeneratedRecipe)    {}
func (NopObserver) OnRecipeFailed(int64, error)                    {}

// LogNotifier 將通知寫入日誌
type LogNotifier struct{}

func (LogNotifier) Success(message string) { common.LogInfo(message) }
func (LogNotifier) Error(message string)   { common.LogError(message) }

// Options 輪詢間隔
type Options struct {
	Interval        time.Duration
	CaptionInterval time.Duration
}

// Controller 串接上傳、偵測輪詢、食材編輯與食譜生成
type Controller struct {
	api      API
	session  *session.Session
	observer Observer
	notifier Notifier

	orchestrator *upload.Orchestrator
	detection    *poller.Poller
	trigger      *ingredients.Trigger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	recipeID int64
	buf      *ingredients.Buffer
	recipe   *common.GeneratedRecipe
}

// NewController 創建流程控制器
func NewController(api API, sess *session.Session, observer Observer, notifier Notifier, opts Options) *Controller {
	if observer == nil {
		observer = NopObserver{}
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if sess == nil {
		sess = session.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:          api,
		session:      sess,
		observer:     observer,
		notifier:     notifier,
		orchestrator: upload.NewOrchestrator(api, api),
		ctx:          ctx,
		cancel:       cancel,
	}

	c.detection = poller.New(api.GetIngredientsJob, poller.Options{
		Kind:            common.JobKindIngredients,
		Interval:        opts.Interval,
		CaptionInterval: opts.CaptionInterval,
		Captions:        DetectionCaptions,
		OnComplete:      c.detectionCompleted,
		OnFail:          c.detectionFailed,
		OnCaption: func(caption string) {
			c.observer.OnCaption(common.JobKindIngredients, caption)
		},
	})

	c.trigger = ingredients.NewTrigger(api, poller.Options{
		Interval:        opts.Interval,
		CaptionInterval: opts.CaptionInterval,
		OnComplete:      c.recipeCompleted,
		OnFail:          c.recipeFailed,
		OnCaption: func(caption string) {
			c.observer.OnCaption(common.JobKindRecipe, caption)
		},
	})

	return c
}

// StartDetection 上傳圖片並開始偵測；先停止既有的輪詢
func (c *Controller) StartDetection(ctx context.Context, img upload.Image) (upload.Result, error) {
	c.stopPollers()
	c.reset(0)

	res, err := c.orchestrator.StartDetection(ctx, img)
	if err != nil {
		var stepErr *upload.StepError
		if errors.As(err, &stepErr) {
			c.notifier.Error(stepErr.Message)
		} else {
			c.notifier.Error(err.Error())
		}
		return res, err
	}

	c.session.Select(res.Recipe.ID)
	c.reset(res.Recipe.ID)
	c.detection.Start(c.ctx, res.Job.ID)
	return res, nil
}

// Resume 依食譜既有的任務恢復畫面：執行中的任務繼續輪詢，已完成的直接還原
func (c *Controller) Resume(ctx context.Context, recipeID int64) error {
	c.stopPollers()

	jobs, err := c.api.GetJobsByRecipe(ctx, recipeID)
	if err != nil {
		c.notifier.Error(MsgLoadJobsFailed)
		return err
	}

	c.session.Select(recipeID)
	c.reset(recipeID)

	if ij := jobs.IngredientsJob; ij != nil {
		job := ij.Job()
		switch job.Status {
		case common.JobStatusRunning:
			c.detection.Start(c.ctx, job.ID)
		case common.JobStatusCompleted:
			buf := ingredients.FromJob(job)
			c.setBuffer(buf)
			c.observer.OnDetectionComplete(recipeID, buf)
		case common.JobStatusFailed:
			c.observer.OnDetectionFailed(recipeID, common.ErrJobFailed.WithMessage(MsgDetectionFailed))
		}
	}

	if rj := jobs.RecipeJob; rj != nil {
		job := rj.Job()
		switch job.Status {
		case common.JobStatusRunning:
			c.trigger.Resume(c.ctx, job.ID)
		case common.JobStatusCompleted:
			c.applyRecipe(recipeID, job, false)
		case common.JobStatusFailed:
			c.observer.OnRecipeFailed(recipeID, common.ErrJobFailed.WithMessage(MsgRecipeFailed))
		}
	}

	common.LogInfo("恢復食譜狀態", zap.Int64("recipe_id", recipeID))
	return nil
}

// Buffer 目前的食材清單，偵測完成前為 nil
func (c *Controller) Buffer() *ingredients.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}

// Recipe 最後一次生成的食譜
func (c *Controller) Recipe() (common.GeneratedRecipe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recipe == nil {
		return common.GeneratedRecipe{}, false
	}
	return *c.recipe, true
}

// RecipeID 目前處理中的食譜
func (c *Controller) RecipeID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recipeID
}

// GenerateRecipe 以目前清單建立食譜任務並開始輪詢
func (c *Controller) GenerateRecipe(ctx context.Context) (common.Job, error) {
	c.mu.Lock()
	recipeID, buf := c.recipeID, c.buf
	c.mu.Unlock()

	if recipeID == 0 || buf == nil {
		return common.Job{}, common.NewValidationError("ingredients are not ready yet")
	}

	c.trigger.Cancel()
	c.mu.Lock()
	c.recipe = nil
	c.mu.Unlock()

	job, err := c.trigger.Confirm(ctx, c.ctx, recipeID, buf)
	if err != nil {
		if !common.IsValidationError(err) {
			c.notifier.Error(MsgRecipeJobStartFailed)
		}
		return common.Job{}, err
	}
	return job, nil
}

// DetectionPoller 偵測任務輪詢器
func (c *Controller) DetectionPoller() *poller.Poller {
	return c.detection
}

// RecipePoller 食譜任務輪詢器
func (c *Controller) RecipePoller() *poller.Poller {
	return c.trigger.Poller()
}

// Close 離開畫面：停止所有輪詢並捨棄未送出的食材清單，之後不可再使用
func (c *Controller) Close() {
	c.stopPollers()
	c.cancel()
	c.reset(0)
}

func (c *Controller) stopPollers() {
	c.detection.Cancel()
	c.trigger.Cancel()
}

func (c *Controller) reset(recipeID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipeID = recipeID
	c.buf = nil
	c.recipe = nil
}

func (c *Controller) setBuffer(buf *ingredients.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = buf
}

func (c *Controller) detectionCompleted(job common.Job) {
	buf := ingredients.FromJob(job)
	c.setBuffer(buf)
	c.notifier.Success(MsgDetectionSucceeded)
	c.observer.OnDetectionComplete(job.RecipeID, buf)
}

func (c *Controller) detectionFailed(job common.Job) {
	c.notifier.Error(MsgDetectionFailed)
	c.observer.OnDetectionFailed(job.RecipeID, common.ErrJobFailed.WithMessage(MsgDetectionFailed))
}

func (c *Controller) recipeCompleted(job common.Job) {
	c.applyRecipe(job.RecipeID, job, true)
}

func (c *Controller) recipeFailed(job common.Job) {
	c.notifier.Error(MsgRecipeFailed)
	c.observer.OnRecipeFailed(job.RecipeID, common.ErrJobFailed.WithMessage(MsgRecipeFailed))
}

// applyRecipe 解析失敗時交給 observer，不回傳錯誤
func (c *Controller) applyRecipe(recipeID int64, job common.Job, notify bool) {
	recipe, err := ingredients.ParseRecipe(job)
	if err != nil {
		c.observer.OnRecipeFailed(recipeID, err)
		return
	}
	c.mu.Lock()
	c.recipe = &recipe
	c.mu.Unlock()
	if notify {
		c.notifier.Success(MsgRecipeSucceeded)
	}
	c.observer.OnRecipeReady(recipeID, recipe)
}
